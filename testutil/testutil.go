// Package testutil constructs real on-disk git repositories for tests, in
// the states the status engine has to classify: staged, unstaged and
// untracked changes, tags, worktrees and upstream divergence.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// RepoBuilder constructs temporary git repositories for testing.
type RepoBuilder struct {
	t         *testing.T
	remote    string
	staged    []string
	unstaged  []string
	untracked []string
	tags      []tagSpec
	worktrees []string
	commits   int
}

type tagSpec struct {
	name      string
	annotated bool
}

// NewRepo creates a RepoBuilder for the given test.
func NewRepo(t *testing.T) *RepoBuilder {
	t.Helper()
	return &RepoBuilder{t: t}
}

// WithRemote sets the origin remote URL.
func (b *RepoBuilder) WithRemote(url string) *RepoBuilder {
	b.remote = url
	return b
}

// WithStagedFile adds a file that is added to the index but not committed.
func (b *RepoBuilder) WithStagedFile(name string) *RepoBuilder {
	b.staged = append(b.staged, name)
	return b
}

// WithUnstagedFile adds a committed file that is then modified in the
// worktree without staging.
func (b *RepoBuilder) WithUnstagedFile(name string) *RepoBuilder {
	b.unstaged = append(b.unstaged, name)
	return b
}

// WithUntrackedFile adds a file unknown to git.
func (b *RepoBuilder) WithUntrackedFile(name string) *RepoBuilder {
	b.untracked = append(b.untracked, name)
	return b
}

// WithTag adds a lightweight tag on HEAD.
func (b *RepoBuilder) WithTag(name string) *RepoBuilder {
	b.tags = append(b.tags, tagSpec{name: name})
	return b
}

// WithAnnotatedTag adds an annotated tag on HEAD.
func (b *RepoBuilder) WithAnnotatedTag(name string) *RepoBuilder {
	b.tags = append(b.tags, tagSpec{name: name, annotated: true})
	return b
}

// WithWorktree adds a branch and a linked worktree for it under
// .worktrees/.
func (b *RepoBuilder) WithWorktree(branch string) *RepoBuilder {
	b.worktrees = append(b.worktrees, branch)
	return b
}

// WithExtraCommits adds n empty commits after the initial one.
func (b *RepoBuilder) WithExtraCommits(n int) *RepoBuilder {
	b.commits = n
	return b
}

// Build creates the repository and returns the root directory path.
func (b *RepoBuilder) Build() string {
	b.t.Helper()

	dir := b.t.TempDir()

	Run(b.t, dir, "git", "init", "-b", "main")
	Run(b.t, dir, "git", "config", "user.email", "test@example.com")
	Run(b.t, dir, "git", "config", "user.name", "Test")

	WriteFile(b.t, dir, "README.md", "# test\n")
	for _, name := range b.unstaged {
		WriteFile(b.t, dir, name, "original\n")
	}
	Run(b.t, dir, "git", "add", ".")
	Run(b.t, dir, "git", "commit", "-m", "initial commit")

	for i := 0; i < b.commits; i++ {
		Run(b.t, dir, "git", "commit", "--allow-empty", "-m", "more work")
	}

	for _, tag := range b.tags {
		if tag.annotated {
			Run(b.t, dir, "git", "tag", "-a", tag.name, "-m", tag.name)
		} else {
			Run(b.t, dir, "git", "tag", tag.name)
		}
	}

	if b.remote != "" {
		Run(b.t, dir, "git", "remote", "add", "origin", b.remote)
	}

	for _, branch := range b.worktrees {
		wtDir := filepath.Join(dir, ".worktrees", branch)
		Run(b.t, dir, "git", "worktree", "add", "-b", branch, wtDir)
	}

	for _, name := range b.unstaged {
		WriteFile(b.t, dir, name, "modified content\n")
	}
	for _, name := range b.staged {
		WriteFile(b.t, dir, name, "staged\n")
		Run(b.t, dir, "git", "add", name)
	}
	for _, name := range b.untracked {
		WriteFile(b.t, dir, name, "untracked\n")
	}

	return dir
}

// GitRepo creates a temporary git repository with an initial commit.
// The directory is cleaned up when the test finishes.
func GitRepo(t *testing.T) string {
	t.Helper()
	return NewRepo(t).Build()
}

// CloneWithUpstream clones src into a new temporary directory. The clone
// has src as its origin remote and main tracking origin/main, which is
// what the divergence tests need.
func CloneWithUpstream(t *testing.T, src string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "clone")
	Run(t, filepath.Dir(dir), "git", "clone", src, dir)
	Run(t, dir, "git", "config", "user.email", "test@example.com")
	Run(t, dir, "git", "config", "user.name", "Test")
	return dir
}

// Commit commits all pending changes in dir.
func Commit(t *testing.T, dir, message string) {
	t.Helper()
	Run(t, dir, "git", "add", ".")
	Run(t, dir, "git", "commit", "--allow-empty", "-m", message)
}

// WriteFile writes a file under dir, creating parent directories.
func WriteFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// Run executes a command in dir and fails the test on error.
func Run(t *testing.T, dir, name string, args ...string) {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("%s %v: %s: %v", name, args, out, err)
	}
}
