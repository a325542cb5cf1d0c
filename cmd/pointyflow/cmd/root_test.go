package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempProgram(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "workflow.ptly")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestParseCommandPrintsAST(t *testing.T) {
	path := writeTempProgram(t, "a -> b")

	c := NewRootCmd()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetArgs([]string{"parse", path})

	require.NoError(t, c.Execute())
	require.NotEmpty(t, out.String())
}

func TestValidateCommandAcceptsWellFormedGraph(t *testing.T) {
	path := writeTempProgram(t, "a || b -> c")

	c := NewRootCmd()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetArgs([]string{"validate", path})

	require.NoError(t, c.Execute())
	require.Contains(t, out.String(), "is valid")
}

func TestValidateCommandRejectsShapeError(t *testing.T) {
	path := writeTempProgram(t, "0 -> a")

	c := NewRootCmd()
	c.SetArgs([]string{"validate", path})
	require.Error(t, c.Execute())
}

func TestRunCommandExecutesAgainstMockHandlers(t *testing.T) {
	path := writeTempProgram(t, "a -> b")

	c := NewRootCmd()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetArgs([]string{"run", path})

	require.NoError(t, c.Execute())
	require.Contains(t, out.String(), "Succeeded")
}
