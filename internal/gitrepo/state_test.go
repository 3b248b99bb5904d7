package gitrepo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasabi0522/sokuho/testutil"
)

func TestStatusHead(t *testing.T) {
	t.Run("on a branch", func(t *testing.T) {
		dir := testutil.GitRepo(t)
		st := statusOf(t, dir)

		assert.True(t, st.IsRepo)
		assert.Equal(t, canonical(t, dir), st.Workdir)
		assert.Len(t, st.HeadCommit, 40)
		assert.Equal(t, "main", st.LocalBranch)
		assert.Empty(t, st.UpstreamBranch)
		assert.Equal(t, StateNone, st.State)
	})

	t.Run("detached HEAD", func(t *testing.T) {
		dir := testutil.GitRepo(t)
		testutil.Run(t, dir, "git", "checkout", "--detach")

		st := statusOf(t, dir)
		assert.Empty(t, st.LocalBranch)
		assert.Len(t, st.HeadCommit, 40)
	})

	t.Run("unborn HEAD", func(t *testing.T) {
		dir := t.TempDir()
		testutil.Run(t, dir, "git", "init", "-b", "main")

		st := statusOf(t, dir)
		assert.True(t, st.IsRepo)
		assert.Empty(t, st.HeadCommit)
		assert.Equal(t, "main", st.LocalBranch)
	})

	t.Run("remote and upstream", func(t *testing.T) {
		origin := testutil.GitRepo(t)
		clone := testutil.CloneWithUpstream(t, origin)

		st := statusOf(t, clone)
		assert.Equal(t, "main", st.LocalBranch)
		assert.Equal(t, "main", st.UpstreamBranch)
		assert.Equal(t, origin, st.RemoteURL)
	})
}

func TestOperationState(t *testing.T) {
	marker := func(t *testing.T, dir, name string) {
		t.Helper()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", name), []byte("x\n"), 0644))
	}

	t.Run("merging", func(t *testing.T) {
		dir := testutil.GitRepo(t)
		marker(t, dir, "MERGE_HEAD")
		assert.Equal(t, StateMerging, statusOf(t, dir).State)
	})

	t.Run("cherry-picking", func(t *testing.T) {
		dir := testutil.GitRepo(t)
		marker(t, dir, "CHERRY_PICK_HEAD")
		assert.Equal(t, StateCherryPicking, statusOf(t, dir).State)
	})

	t.Run("reverting", func(t *testing.T) {
		dir := testutil.GitRepo(t)
		marker(t, dir, "REVERT_HEAD")
		assert.Equal(t, StateReverting, statusOf(t, dir).State)
	})

	t.Run("bisecting", func(t *testing.T) {
		dir := testutil.GitRepo(t)
		marker(t, dir, "BISECT_LOG")
		assert.Equal(t, StateBisecting, statusOf(t, dir).State)
	})

	t.Run("rebasing", func(t *testing.T) {
		dir := testutil.GitRepo(t)
		require.NoError(t, os.Mkdir(filepath.Join(dir, ".git", "rebase-merge"), 0755))
		assert.Equal(t, StateRebasing, statusOf(t, dir).State)
	})

	t.Run("rebase wins over conflicting markers", func(t *testing.T) {
		dir := testutil.GitRepo(t)
		require.NoError(t, os.Mkdir(filepath.Join(dir, ".git", "rebase-apply"), 0755))
		marker(t, dir, "MERGE_HEAD")
		assert.Equal(t, StateRebasing, statusOf(t, dir).State)
	})
}

func TestStateString(t *testing.T) {
	assert.Empty(t, StateNone.String())
	assert.Equal(t, "rebasing", StateRebasing.String())
	assert.Equal(t, "cherry-picking", StateCherryPicking.String())
	assert.Empty(t, State(99).String())
}
