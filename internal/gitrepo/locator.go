package gitrepo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
)

// Locator finds the repository enclosing a filesystem path. Discovered
// repositories are cached per canonical working tree root so successive
// requests for the same repository skip the upward walk and reopen.
type Locator struct {
	mu    sync.Mutex
	cache map[string]*Repo
}

// NewLocator returns an empty Locator.
func NewLocator() *Locator {
	return &Locator{cache: make(map[string]*Repo)}
}

// Locate walks upward from path looking for a .git directory or a .git
// gitdir file (linked worktree). It returns ErrNotRepository if the walk
// reaches the filesystem root without finding one, or if path does not
// exist. Symlinks in path are resolved before the walk so equivalent
// spellings of the same directory share a cache entry.
func (l *Locator) Locate(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, ErrNotRepository
	}
	fi, err := os.Stat(canon)
	if err != nil {
		return nil, ErrNotRepository
	}
	if !fi.IsDir() {
		canon = filepath.Dir(canon)
	}

	for dir := canon; ; {
		if r := l.cached(dir); r != nil {
			return r, nil
		}
		gitPath := filepath.Join(dir, ".git")
		if fi, err := os.Stat(gitPath); err == nil {
			return l.open(dir, gitPath, fi.IsDir())
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, ErrNotRepository
		}
		dir = parent
	}
}

func (l *Locator) cached(root string) *Repo {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache[root]
}

func (l *Locator) open(root, gitPath string, isDir bool) (*Repo, error) {
	gitDir := gitPath
	if !isDir {
		resolved, err := readGitdirFile(gitPath, root)
		if err != nil {
			return nil, err
		}
		gitDir = resolved
	}
	commonDir := gitDir
	if target, err := os.ReadFile(filepath.Join(gitDir, "commondir")); err == nil {
		p := strings.TrimSpace(string(target))
		if !filepath.IsAbs(p) {
			p = filepath.Join(gitDir, p)
		}
		commonDir = filepath.Clean(p)
	}

	gr, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{EnableDotGitCommonDir: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, ErrNotRepository
		}
		return nil, fmt.Errorf("opening repository at %s: %w", root, err)
	}

	r := &Repo{Root: root, GitDir: gitDir, CommonDir: commonDir, repo: gr}
	l.mu.Lock()
	l.cache[root] = r
	l.mu.Unlock()
	return r, nil
}

// readGitdirFile resolves a .git file of the form "gitdir: <path>" as
// written by git worktree and submodules.
func readGitdirFile(path, root string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	content := strings.TrimSpace(string(data))
	target, ok := strings.CutPrefix(content, "gitdir:")
	if !ok {
		return "", fmt.Errorf("%s: not a gitdir pointer", path)
	}
	target = strings.TrimSpace(target)
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, target)
	}
	return filepath.Clean(target), nil
}
