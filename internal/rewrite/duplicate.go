package rewrite

import (
	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/repo"
)

// DuplicateCommits copies each target commit. Parent edges between targets
// are redirected to the copies, so duplicating a connected subgraph keeps
// its shape; edges to commits outside the set are kept, leaving the copies
// siblings of the originals. Descendants of the originals are not touched.
// The returned map goes from original id to copy id.
func DuplicateCommits(mut *repo.MutableRepo, targets []model.CommitID) (map[model.CommitID]model.CommitID, error) {
	targetSet := make(map[model.CommitID]bool, len(targets))
	for _, id := range targets {
		targetSet[id] = true
	}

	duplicated := make(map[model.CommitID]model.CommitID, len(targets))
	for _, id := range mut.Index().Descendants(targets) {
		if !targetSet[id] {
			continue
		}
		original, err := mut.GetCommit(id)
		if err != nil {
			return nil, err
		}
		parents := make([]model.CommitID, len(original.Parents))
		for i, parent := range original.Parents {
			if copyID, ok := duplicated[parent]; ok {
				parents[i] = copyID
			} else {
				parents[i] = parent
			}
		}
		copy, err := mut.NewCommit(parents, original.Tree).
			SetAuthor(original.Author).
			SetDescription(original.Description).
			SetPredecessors([]model.CommitID{original.ID}).
			Write()
		if err != nil {
			return nil, err
		}
		duplicated[id] = copy.ID
	}
	return duplicated, nil
}

// DuplicateOnto copies the target commits onto an explicit parent set
// instead of their own parents. The roots of the duplicated subgraph move to
// newParents; internal edges are redirected as in DuplicateCommits.
func DuplicateOnto(mut *repo.MutableRepo, targets []model.CommitID, newParents []model.CommitID) (map[model.CommitID]model.CommitID, error) {
	targetSet := make(map[model.CommitID]bool, len(targets))
	for _, id := range targets {
		targetSet[id] = true
	}

	duplicated := make(map[model.CommitID]model.CommitID, len(targets))
	for _, id := range mut.Index().Descendants(targets) {
		if !targetSet[id] {
			continue
		}
		original, err := mut.GetCommit(id)
		if err != nil {
			return nil, err
		}
		var parents []model.CommitID
		isRoot := true
		for _, parent := range original.Parents {
			if copyID, ok := duplicated[parent]; ok {
				parents = append(parents, copyID)
				isRoot = false
			}
		}
		if isRoot {
			parents = append([]model.CommitID(nil), newParents...)
		}
		rw := NewRewriter(mut, original)
		rw.SetNewParents(parents)
		builder, err := rw.Rebase()
		if err != nil {
			return nil, err
		}
		// A rebase onto explicit parents is a copy here, not a rewrite of
		// the original, so write it without recording a mapping.
		copy, err := mut.NewCommit(builder.Parents(), builder.Tree()).
			SetAuthor(original.Author).
			SetDescription(original.Description).
			SetPredecessors([]model.CommitID{original.ID}).
			Write()
		if err != nil {
			return nil, err
		}
		duplicated[id] = copy.ID
	}
	return duplicated, nil
}
