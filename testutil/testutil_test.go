package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gitOutput(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	require.NoError(t, err, "git %v", args)
	return strings.TrimRight(string(out), "\n")
}

func TestRepoBuilder(t *testing.T) {
	t.Run("plain repository", func(t *testing.T) {
		dir := GitRepo(t)

		assert.Equal(t, "main", gitOutput(t, dir, "branch", "--show-current"))
		assert.Empty(t, gitOutput(t, dir, "status", "--porcelain"))
	})

	t.Run("pending changes", func(t *testing.T) {
		dir := NewRepo(t).
			WithStagedFile("new.txt").
			WithUnstagedFile("edited.txt").
			WithUntrackedFile("scratch.txt").
			Build()

		status := gitOutput(t, dir, "status", "--porcelain")
		assert.Contains(t, status, "A  new.txt")
		assert.Contains(t, status, " M edited.txt")
		assert.Contains(t, status, "?? scratch.txt")
	})

	t.Run("tags and extra commits", func(t *testing.T) {
		dir := NewRepo(t).
			WithExtraCommits(2).
			WithTag("v1").
			WithAnnotatedTag("v2").
			Build()

		assert.Equal(t, "3", gitOutput(t, dir, "rev-list", "--count", "HEAD"))
		assert.ElementsMatch(t, []string{"v1", "v2"},
			strings.Fields(gitOutput(t, dir, "tag", "--points-at", "HEAD")))
	})

	t.Run("linked worktree", func(t *testing.T) {
		dir := NewRepo(t).WithWorktree("feature").Build()

		wt := filepath.Join(dir, ".worktrees", "feature")
		assert.Equal(t, "feature", gitOutput(t, wt, "branch", "--show-current"))

		// Linked worktrees carry a gitdir pointer file, not a directory.
		fi, err := os.Lstat(filepath.Join(wt, ".git"))
		require.NoError(t, err)
		assert.True(t, fi.Mode().IsRegular())
	})
}

func TestCloneWithUpstream(t *testing.T) {
	src := GitRepo(t)
	clone := CloneWithUpstream(t, src)

	assert.Equal(t, "origin/main", gitOutput(t, clone, "rev-parse", "--abbrev-ref", "main@{upstream}"))
	assert.Equal(t,
		gitOutput(t, src, "rev-parse", "HEAD"),
		gitOutput(t, clone, "rev-parse", "HEAD"))
}
