// Package gitrepo computes git repository status by reading on-disk
// repository structures directly, without executing git. It answers the
// questions an interactive prompt cares about: where the repository is,
// what HEAD points at, whether an operation (merge, rebase, ...) is in
// progress, whether there are staged, unstaged or untracked changes, how
// far the branch has diverged from its upstream, and which tag points at
// HEAD.
//
// All operations are read-only with respect to the repository.
package gitrepo

import (
	"errors"

	"github.com/go-git/go-git/v5"
)

// ErrNotRepository reports that a path is not inside a git repository.
// It is not a failure: the daemon answers such requests with a negative
// response.
var ErrNotRepository = errors.New("not a git repository")

// Repo identifies a working tree root and its administrative directory,
// and owns the open repository handle. A Repo is cached by the Locator
// and reused across requests for the same root; all state is re-read from
// disk on every status computation.
type Repo struct {
	// Root is the canonical absolute path of the working tree.
	Root string
	// GitDir is the administrative directory for this working tree. For a
	// linked worktree this is the per-worktree directory, where the
	// in-progress operation markers live.
	GitDir string
	// CommonDir is the shared administrative directory. Equal to GitDir
	// except for linked worktrees.
	CommonDir string

	repo *git.Repository
}
