package gitrepo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasabi0522/sokuho/internal/config"
)

func testOptions() *config.Options {
	return &config.Options{
		LockFD:            -1,
		SigwinchPID:       -1,
		NumThreads:        -1,
		DirtyMaxIndexSize: -1,
	}
}

// statusOf computes the status of dir with default options.
func statusOf(t *testing.T, dir string) *Status {
	t.Helper()
	return statusWith(t, dir, testOptions())
}

func statusWith(t *testing.T, dir string, opts *config.Options) *Status {
	t.Helper()
	st, err := NewEngine(opts).Status(context.Background(), dir)
	require.NoError(t, err)
	return st
}

// canonical resolves symlinks the way the locator does, so workdir
// expectations survive symlinked temp directories.
func canonical(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	return resolved
}
