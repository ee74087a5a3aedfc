package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vql/internal/store"
	"github.com/roach88/vql/internal/testutil"
)

// cohortDB writes the cohort fixture to a database file and returns its
// path.
func cohortDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cohort.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, testutil.Cohort().Load(context.Background(), st))
	require.NoError(t, st.Close())
	return path
}

// writeFile writes content to name in a temp dir and returns the path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs cmd with args and returns stdout and the error.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
