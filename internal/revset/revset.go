// Package revset resolves revision expressions against a repo. The grammar
// is deliberately small: symbols (@, root(), all(), mutable(), bookmark
// names, id prefixes), the union operator |, and the parents suffix -.
package revset

import (
	"sort"
	"strings"

	"strata.dev/strata/internal/errors"
	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/repo"
)

// Resolve evaluates an expression and returns the matching commits, newest
// first (reverse topological order). An expression matching nothing is an
// EmptyRevisionSetError.
func Resolve(r *repo.ReadonlyRepo, expression string) ([]model.CommitID, error) {
	seen := make(map[model.CommitID]bool)
	var ids []model.CommitID
	for _, part := range strings.Split(expression, "|") {
		partIDs, err := resolveTerm(r, strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		for _, id := range partIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return nil, errors.NewEmptyRevisionSetError(expression)
	}
	sortReverseTopological(r, ids)
	return ids, nil
}

// ResolveOne evaluates an expression that must name exactly one commit.
func ResolveOne(r *repo.ReadonlyRepo, expression string) (model.CommitID, error) {
	ids, err := Resolve(r, expression)
	if err != nil {
		return model.CommitID{}, err
	}
	if len(ids) != 1 {
		return model.CommitID{}, errors.NewUserError(
			"revset %q resolved to %d commits, expected one", expression, len(ids))
	}
	return ids[0], nil
}

func resolveTerm(r *repo.ReadonlyRepo, term string) ([]model.CommitID, error) {
	if term == "" {
		return nil, errors.NewUserError("empty revset expression")
	}

	// The parents suffix applies to whatever the rest resolves to.
	if strings.HasSuffix(term, "-") {
		ids, err := resolveTerm(r, strings.TrimSuffix(term, "-"))
		if err != nil {
			return nil, err
		}
		return parentsOf(r, ids)
	}

	switch term {
	case "@":
		wc := r.View().WcCommit(repo.DefaultWorkspace)
		if wc.IsZero() {
			return nil, errors.NewUserError("no working-copy commit")
		}
		return []model.CommitID{wc}, nil
	case "root()":
		return []model.CommitID{r.Store().RootCommitID()}, nil
	case "all()":
		return visibleCommits(r), nil
	case "mutable()":
		var mutable []model.CommitID
		for _, id := range visibleCommits(r) {
			if r.CheckRewritable([]model.CommitID{id}) == nil {
				mutable = append(mutable, id)
			}
		}
		return mutable, nil
	}

	if target := r.View().LocalBookmark(term); target.IsPresent() {
		return []model.CommitID{target.Commit}, nil
	}
	return resolveIDPrefix(r, term)
}

// visibleCommits returns every commit reachable from the view heads.
func visibleCommits(r *repo.ReadonlyRepo) []model.CommitID {
	return r.Index().Descendants([]model.CommitID{r.Store().RootCommitID()})
}

func parentsOf(r *repo.ReadonlyRepo, ids []model.CommitID) ([]model.CommitID, error) {
	seen := make(map[model.CommitID]bool)
	var parents []model.CommitID
	for _, id := range ids {
		commit, err := r.GetCommit(id)
		if err != nil {
			return nil, err
		}
		for _, parent := range commit.Parents {
			if !seen[parent] {
				seen[parent] = true
				parents = append(parents, parent)
			}
		}
	}
	return parents, nil
}

func resolveIDPrefix(r *repo.ReadonlyRepo, prefix string) ([]model.CommitID, error) {
	if id, err := model.ParseID(prefix); err == nil && r.Index().Has(id) {
		return []model.CommitID{id}, nil
	}
	var matches []model.CommitID
	for _, id := range visibleCommits(r) {
		if strings.HasSuffix(id.String(), prefix) || strings.HasPrefix(id.String(), prefix) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return nil, errors.NewUserError("revision %q doesn't exist", prefix)
	case 1:
		return matches, nil
	default:
		return nil, errors.NewUserError("revision id prefix %q is ambiguous", prefix)
	}
}

// sortReverseTopological orders ids so descendants come before ancestors,
// using index positions (insertion order is topological).
func sortReverseTopological(r *repo.ReadonlyRepo, ids []model.CommitID) {
	position := make(map[model.CommitID]int, len(ids))
	for _, id := range r.Index().Descendants([]model.CommitID{r.Store().RootCommitID()}) {
		position[id] = len(position)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		return position[ids[i]] > position[ids[j]]
	})
}
