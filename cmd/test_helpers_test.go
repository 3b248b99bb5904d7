package cmd

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

// executeCommand runs the CLI command tree with the given args and returns the output.
func executeCommand(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	return executeCommandWithInput(t, app, strings.NewReader(""), args...)
}

// executeCommandWithInput runs the CLI command tree with the given stdin.
func executeCommandWithInput(t *testing.T, app *App, in io.Reader, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := app.BuildRootCmd()
	root.SetIn(in)
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}
