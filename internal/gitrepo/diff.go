package gitrepo

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	findex "github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"golang.org/x/sync/errgroup"
)

// diff fills the staged, unstaged and untracked flags of st.
//
// Staged changes only require comparing the index against HEAD's tree and
// are always computed. Unstaged and untracked detection touches the live
// working tree; when the index has more entries than DirtyMaxIndexSize
// both are reported unknown instead, bounding the cost on huge
// repositories.
func (e *Engine) diff(ctx context.Context, repo *Repo, info *headInfo, st *Status) error {
	idx, err := repo.repo.Storer.Index()
	if err != nil {
		return fmt.Errorf("reading index: %w", err)
	}

	staged, err := e.stagedChanges(repo, info, idx)
	if err != nil {
		return err
	}
	st.HasStaged = staged

	if limit := e.opts.DirtyMaxIndexSize; limit >= 0 && len(idx.Entries) > limit {
		st.HasUnstaged = TriUnknown
		st.HasUntracked = TriUnknown
		return nil
	}

	unstaged, err := e.unstagedChanges(ctx, repo, idx)
	if err != nil {
		return err
	}
	st.HasUnstaged = triFromBool(unstaged)

	untracked, err := e.untrackedFiles(ctx, repo, idx)
	if err != nil {
		return err
	}
	st.HasUntracked = triFromBool(untracked)
	return nil
}

type treeItem struct {
	hash plumbing.Hash
	mode filemode.FileMode
}

// stagedChanges reports whether the index differs from HEAD's tree: any
// added, deleted or modified path. Returns early on the first difference.
func (e *Engine) stagedChanges(repo *Repo, info *headInfo, idx *findex.Index) (bool, error) {
	headFiles := make(map[string]treeItem)
	if info.HasCommit {
		commit, err := repo.repo.CommitObject(info.Commit)
		if err != nil {
			return false, fmt.Errorf("reading commit %s: %w", info.Commit, err)
		}
		tree, err := commit.Tree()
		if err != nil {
			return false, fmt.Errorf("reading tree of %s: %w", info.Commit, err)
		}
		walker := object.NewTreeWalker(tree, true, nil)
		defer walker.Close()
		for {
			name, entry, err := walker.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return false, fmt.Errorf("walking tree of %s: %w", info.Commit, err)
			}
			if entry.Mode == filemode.Dir {
				continue
			}
			headFiles[name] = treeItem{hash: entry.Hash, mode: entry.Mode}
		}
	}

	tracked := 0
	for i, entry := range idx.Entries {
		if entry.IntentToAdd {
			// git add -N: the path is promised, not staged.
			continue
		}
		if i > 0 && idx.Entries[i-1].Name == entry.Name {
			// Duplicate names are conflict stages; unmerged paths always
			// count as changes to commit.
			return true, nil
		}
		tracked++
		item, ok := headFiles[entry.Name]
		if !ok || item.hash != entry.Hash || item.mode != entry.Mode {
			return true, nil
		}
	}
	// Everything in the index matches HEAD; a count mismatch means a
	// staged deletion.
	return tracked != len(headFiles), nil
}

// unstagedChanges reports whether any tracked file differs from its index
// entry. The index is partitioned into contiguous ranges, one per worker.
// Workers compare cached metadata first and rehash the file content only
// on a metadata mismatch, so a touched-but-unchanged file is not a false
// positive. A shared flag stops all workers once any of them finds a
// difference; an in-flight hash always runs to completion.
func (e *Engine) unstagedChanges(ctx context.Context, repo *Repo, idx *findex.Index) (bool, error) {
	entries := idx.Entries
	if len(entries) == 0 {
		return false, nil
	}
	workers := min(e.opts.EffectiveThreads(), len(entries))
	chunk := (len(entries) + workers - 1) / workers

	var found atomic.Bool
	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(entries); start += chunk {
		part := entries[start:min(start+chunk, len(entries))]
		g.Go(func() error {
			for _, entry := range part {
				if found.Load() {
					return nil
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				dirty, err := e.entryDirty(repo, entry)
				if err != nil {
					return err
				}
				if dirty {
					found.Store(true)
					return nil
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}
	return found.Load(), nil
}

// entryDirty compares one index entry against the working tree.
func (e *Engine) entryDirty(repo *Repo, entry *findex.Entry) (bool, error) {
	if entry.SkipWorktree {
		return false, nil
	}
	if entry.IntentToAdd {
		return true, nil
	}
	if entry.Mode == filemode.Submodule {
		// Submodule dirtiness would require opening the nested repository;
		// not reported.
		return false, nil
	}

	path := filepath.Join(repo.Root, entry.Name)
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Present in the index, gone from the worktree: a deletion,
			// never an untracked file.
			return true, nil
		}
		return false, fmt.Errorf("lstat %s: %w", entry.Name, err)
	}
	if fi.IsDir() {
		return true, nil
	}
	if workfileMode(fi) != entry.Mode {
		return true, nil
	}
	if uint32(fi.Size()) != entry.Size {
		return true, nil
	}
	if sameMtime(fi.ModTime(), entry.ModifiedAt) {
		return false, nil
	}
	// Metadata mismatch. Rehash the content to rule out a changed mtime
	// with unchanged content.
	same, err := contentMatches(path, fi, entry)
	if err != nil {
		return false, err
	}
	return !same, nil
}

// sameMtime compares a filesystem mtime with the one cached in the index.
// Index timestamps may have zero nanoseconds even on filesystems that
// report them.
func sameMtime(fsTime, idxTime time.Time) bool {
	if fsTime.Unix() != idxTime.Unix() {
		return false
	}
	return idxTime.Nanosecond() == 0 || fsTime.Nanosecond() == idxTime.Nanosecond()
}

// contentMatches hashes the file at path as a blob and compares it with
// the hash recorded in the index. A symlink hashes its target string. The
// content is hashed as-is: filters (crlf, smudge) are not applied.
func contentMatches(path string, fi os.FileInfo, entry *findex.Entry) (bool, error) {
	if fi.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return false, fmt.Errorf("readlink %s: %w", entry.Name, err)
		}
		return plumbing.ComputeHash(plumbing.BlobObject, []byte(target)) == entry.Hash, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", entry.Name, err)
	}
	defer f.Close() //nolint:errcheck
	h := plumbing.NewHasher(plumbing.BlobObject, fi.Size())
	if _, err := io.Copy(h, f); err != nil {
		return false, fmt.Errorf("hashing %s: %w", entry.Name, err)
	}
	return h.Sum() == entry.Hash, nil
}

func workfileMode(fi os.FileInfo) filemode.FileMode {
	switch {
	case fi.Mode()&os.ModeSymlink != 0:
		return filemode.Symlink
	case fi.Mode().Perm()&0o100 != 0:
		return filemode.Executable
	default:
		return filemode.Regular
	}
}

// untrackedFiles reports whether the working tree contains any file that
// is neither in the index nor ignored. Top-level directories are scanned
// in parallel; the first hit stops the remaining workers.
func (e *Engine) untrackedFiles(ctx context.Context, repo *Repo, idx *findex.Index) (bool, error) {
	tracked := make(map[string]struct{}, len(idx.Entries))
	submodules := make(map[string]struct{})
	for _, entry := range idx.Entries {
		tracked[entry.Name] = struct{}{}
		if entry.Mode == filemode.Submodule {
			submodules[entry.Name] = struct{}{}
		}
	}

	matcher := e.excludeMatcher(repo)

	roots, err := os.ReadDir(repo.Root)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", repo.Root, err)
	}

	var found atomic.Bool
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.EffectiveThreads())
	for _, de := range roots {
		name := de.Name()
		if name == ".git" {
			continue
		}
		if !de.IsDir() {
			if _, ok := tracked[name]; ok {
				continue
			}
			if matcher != nil && matcher.Match([]string{name}, false) {
				continue
			}
			found.Store(true)
			break
		}
		g.Go(func() error {
			return scanUntracked(ctx, repo, matcher, tracked, submodules, name, &found)
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}
	return found.Load(), nil
}

// scanUntracked walks one top-level directory looking for a path absent
// from the index, honoring ignore rules and skipping nested repositories
// and submodules.
func scanUntracked(ctx context.Context, repo *Repo, matcher gitignore.Matcher, tracked, submodules map[string]struct{}, topDir string, found *atomic.Bool) error {
	root := filepath.Join(repo.Root, topDir)
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				// Raced with a concurrent deletion.
				return nil
			}
			return err
		}
		if found.Load() {
			return fs.SkipAll
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(repo.Root, path)
		if err != nil {
			return err
		}
		relSlash := filepath.ToSlash(rel)
		parts := strings.Split(relSlash, "/")
		if d.IsDir() {
			if d.Name() == ".git" {
				return fs.SkipDir
			}
			if _, ok := submodules[relSlash]; ok {
				return fs.SkipDir
			}
			if matcher != nil && matcher.Match(parts, true) {
				return fs.SkipDir
			}
			return nil
		}
		if _, ok := tracked[relSlash]; ok {
			return nil
		}
		if matcher != nil && matcher.Match(parts, false) {
			return nil
		}
		found.Store(true)
		return fs.SkipAll
	})
}

// excludeMatcher builds the ignore matcher from per-directory .gitignore
// files, the repository's info/exclude and the user's global excludes.
// All sources are best effort; an unreadable one is logged and skipped.
func (e *Engine) excludeMatcher(repo *Repo) gitignore.Matcher {
	patterns, err := gitignore.ReadPatterns(osfs.New(repo.Root), nil)
	e.bestEffort("reading gitignore patterns", err)

	if ps, err := readExcludeFile(filepath.Join(repo.CommonDir, "info", "exclude")); err == nil {
		patterns = append(patterns, ps...)
	}

	global, err := gitignore.LoadGlobalPatterns(osfs.New("/"))
	e.bestEffort("loading global gitignore", err)
	patterns = append(patterns, global...)

	if len(patterns) == 0 {
		return nil
	}
	return gitignore.NewMatcher(patterns)
}

func readExcludeFile(path string) ([]gitignore.Pattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ps []gitignore.Pattern
	for line := range strings.Lines(string(data)) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(line, nil))
	}
	return ps, nil
}
