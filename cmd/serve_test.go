package cmd

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasabi0522/sokuho/testutil"
)

const (
	recordSep = "\x1e"
	fieldSep  = "\x1f"
)

func request(id, path string) string {
	return id + fieldSep + path + recordSep
}

func responses(t *testing.T, out string) [][]string {
	t.Helper()
	require.True(t, strings.HasSuffix(out, recordSep))
	var recs [][]string
	for _, r := range strings.Split(strings.TrimSuffix(out, recordSep), recordSep) {
		recs = append(recs, strings.Split(r, fieldSep))
	}
	return recs
}

func TestServeCmd(t *testing.T) {
	t.Run("answers requests until end of input", func(t *testing.T) {
		repo := testutil.NewRepo(t).WithUntrackedFile("scratch.txt").Build()
		canonical, err := filepath.EvalSymlinks(repo)
		require.NoError(t, err)

		in := strings.NewReader(request("a", repo) + request("b", t.TempDir()))
		out, err := executeCommandWithInput(t, NewApp(), in, "serve")
		require.NoError(t, err)

		recs := responses(t, out)
		require.Len(t, recs, 2)

		require.Len(t, recs[0], 15)
		assert.Equal(t, "a", recs[0][0])
		assert.Equal(t, "1", recs[0][1])
		assert.Equal(t, canonical, recs[0][2])
		assert.Equal(t, "main", recs[0][4])
		assert.Equal(t, "1", recs[0][10], "untracked file must be reported")

		assert.Equal(t, []string{"b", "0"}, recs[1])
	})

	t.Run("index size cap from flag", func(t *testing.T) {
		repo := testutil.GitRepo(t)

		in := strings.NewReader(request("a", repo))
		out, err := executeCommandWithInput(t, NewApp(), in, "serve", "--dirty-max-index-size", "0")
		require.NoError(t, err)

		recs := responses(t, out)
		require.Len(t, recs, 1)
		assert.Equal(t, "-1", recs[0][9])
		assert.Equal(t, "-1", recs[0][10])
	})

	t.Run("empty input exits cleanly", func(t *testing.T) {
		out, err := executeCommand(t, NewApp(), "serve")
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("rejects invalid configuration", func(t *testing.T) {
		_, err := executeCommand(t, NewApp(), "serve", "--lock-fd", "-2")
		assert.Error(t, err)
	})

	t.Run("rejects positional arguments", func(t *testing.T) {
		_, err := executeCommand(t, NewApp(), "serve", "extra")
		assert.Error(t, err)
	})

	t.Run("reads options from a config file", func(t *testing.T) {
		repo := testutil.GitRepo(t)
		cfg := filepath.Join(t.TempDir(), "config.yaml")
		testutil.WriteFile(t, filepath.Dir(cfg), "config.yaml", "dirty_max_index_size: 0\n")

		in := strings.NewReader(request("a", repo))
		out, err := executeCommandWithInput(t, NewApp(), in, "serve", "--config", cfg)
		require.NoError(t, err)

		recs := responses(t, out)
		require.Len(t, recs, 1)
		assert.Equal(t, "-1", recs[0][9])
	})
}
