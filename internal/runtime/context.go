// Package runtime provides a context type that holds the loaded repository
// and logger for use throughout the application. This avoids passing
// multiple parameters.
package runtime

import (
	"fmt"
	"os"
	"path/filepath"

	"strata.dev/strata/internal/config"
	"strata.dev/strata/internal/model"
	"strata.dev/strata/internal/output"
	"strata.dev/strata/internal/repo"
)

// Context provides access to the repository and output for commands
type Context struct {
	Repo     *repo.ReadonlyRepo
	Splog    *output.Splog
	RepoRoot string
}

// NewContext creates a new context with the given repository
func NewContext(r *repo.ReadonlyRepo, repoRoot string) *Context {
	return &Context{
		Repo:     r,
		Splog:    output.NewSplog(),
		RepoRoot: repoRoot,
	}
}

// FindRepoRoot walks up from dir looking for a .strata directory.
func FindRepoRoot(dir string) (string, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(current, ".strata")); err == nil {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no strata repository found in %s or any parent", dir)
		}
		current = parent
	}
}

// GetContext loads the repository containing the working directory and
// applies the configured user and immutability rules.
func GetContext() (*Context, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	repoRoot, err := FindRepoRoot(cwd)
	if err != nil {
		return nil, fmt.Errorf("not a strata repository: %w (run 'strata init' first)", err)
	}

	r, err := repo.Load(repoRoot)
	if err != nil {
		return nil, err
	}
	if err := Configure(r, repoRoot); err != nil {
		return nil, err
	}
	return NewContext(r, repoRoot), nil
}

// Configure applies the repo config to a loaded repository: the user
// signature and the immutable heads pinned by configured bookmarks.
func Configure(r *repo.ReadonlyRepo, repoRoot string) error {
	name, email, err := config.GetUser(repoRoot)
	if err != nil {
		return err
	}
	r.SetUser(name, email)

	pinned, err := config.GetImmutableBookmarks(repoRoot)
	if err != nil {
		return err
	}
	var heads []model.CommitID
	for _, bookmark := range pinned {
		if target := r.View().LocalBookmark(bookmark); target.IsPresent() {
			heads = append(heads, target.Commit)
		}
	}
	r.SetImmutableHeads(heads)
	return nil
}

// Reload replaces the context's repository with one loaded at the current
// head operation, re-applying configuration.
func (c *Context) Reload() error {
	reloaded, err := c.Repo.Reload()
	if err != nil {
		return err
	}
	if err := Configure(reloaded, c.RepoRoot); err != nil {
		return err
	}
	c.Repo = reloaded
	return nil
}
