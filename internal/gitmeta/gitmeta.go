// Package gitmeta reads repository metadata for the docs tree. Everything
// here degrades gracefully: a docs root outside any git repository yields
// zero values, never an error the caller has to special-case.
package gitmeta

import (
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	ggit "github.com/go-git/go-git/v5"

	"github.com/Ace1928/docforge/internal/logfields"
)

// Info describes the repository state at build time.
type Info struct {
	IsRepo bool
	Commit string
	Branch string
}

// Reader resolves git metadata for paths under root.
type Reader struct {
	root string
	repo *ggit.Repository
}

// NewReader opens the repository containing root. A root outside any
// repository returns a Reader whose queries yield zero values.
func NewReader(root string) *Reader {
	repo, err := ggit.PlainOpenWithOptions(root, &ggit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if !errors.Is(err, ggit.ErrRepositoryNotExists) {
			slog.Debug("Failed to open git repository", logfields.Root(root), logfields.Error(err))
		}
		return &Reader{root: root}
	}
	return &Reader{root: root, repo: repo}
}

// Info returns the HEAD commit and branch, or a zero Info when root is not
// inside a repository.
func (r *Reader) Info() Info {
	if r.repo == nil {
		return Info{}
	}

	ref, err := r.repo.Head()
	if err != nil {
		slog.Debug("Failed to resolve HEAD", logfields.Root(r.root), logfields.Error(err))
		return Info{IsRepo: true}
	}

	info := Info{IsRepo: true, Commit: ref.Hash().String()}
	if ref.Name().IsBranch() {
		info.Branch = ref.Name().Short()
	}
	return info
}

// LastModified returns the author time of the most recent commit touching
// path (relative to the repository worktree). The zero time means the path
// has no history or root is not a repository.
func (r *Reader) LastModified(path string) time.Time {
	if r.repo == nil {
		return time.Time{}
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return time.Time{}
	}

	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(r.root, path)
	}
	rel, err := filepath.Rel(wt.Filesystem.Root(), abs)
	if err != nil {
		return time.Time{}
	}
	rel = filepath.ToSlash(rel)

	iter, err := r.repo.Log(&ggit.LogOptions{FileName: &rel})
	if err != nil {
		return time.Time{}
	}
	defer iter.Close()

	commit, err := iter.Next()
	if err != nil {
		return time.Time{}
	}
	return commit.Author.When
}
