package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/storelens/internal/cli/config"
	clitestutil "github.com/leapstack-labs/storelens/internal/cli/testutil"
	"github.com/leapstack-labs/storelens/internal/testutil"
)

func setupCLI(t *testing.T) string {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestRoot_QueryJSON(t *testing.T) {
	dir := setupCLI(t)
	path := testutil.CreatePersonStore(t, dir, "people.objdb", nil)

	out, _, err := clitestutil.ExecuteCommand(t, NewRootCmd(),
		"query", path, `SELECT rowid, * FROM "Person"`,
		"--root", dir, "--limit", "2", "--order", "desc", "-o", "json")
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, map[string]any{"<index>": float64(2), "name": "Carol"}, rows[0])
	assert.Equal(t, map[string]any{"<index>": float64(1), "name": "Bob"}, rows[1])
	assert.Equal(t, map[string]any{"<index>": "{truncated}", "name": "{truncated}"}, rows[2])
}

func TestRoot_QueryUnsupported(t *testing.T) {
	dir := setupCLI(t)
	path := testutil.CreatePersonStore(t, dir, "people.objdb", nil)

	out, _, err := clitestutil.ExecuteCommand(t, NewRootCmd(),
		"query", path, "DELETE FROM Person", "--root", dir, "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)

	config.ResetConfig()
	_, _, err = clitestutil.ExecuteCommand(t, NewRootCmd(),
		"query", path, "DELETE FROM Person", "--root", dir, "--strict-queries")
	assert.ErrorContains(t, err, "DELETE FROM Person")
}

func TestRoot_DatabasesAndTables(t *testing.T) {
	dir := setupCLI(t)
	testutil.CreatePersonStore(t, dir, "b.objdb", nil)
	testutil.CreatePersonStore(t, filepath.Join(dir, "nested"), "a.objdb", nil)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	out, _, err := clitestutil.ExecuteCommand(t, NewRootCmd(), "databases", "--root", dir, "-o", "json")
	require.NoError(t, err)

	var dbs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &dbs))
	require.Len(t, dbs, 2)
	assert.Equal(t, "b.objdb", dbs[0]["name"])
	assert.Equal(t, "a.objdb", dbs[1]["name"])
	assert.Equal(t, "N/A", dbs[0]["version"])

	config.ResetConfig()
	out, _, err = clitestutil.ExecuteCommand(t, NewRootCmd(),
		"tables", filepath.Join(dir, "b.objdb"), "--root", dir, "--with-meta-tables", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"Person"`)
	assert.Contains(t, out, `"metadata"`)
}

func TestRoot_Demo(t *testing.T) {
	dir := setupCLI(t)
	path := filepath.Join(dir, "demo.objdb")

	out, _, err := clitestutil.ExecuteCommand(t, NewRootCmd(), "demo", path, "--root", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "class_Person: 3 rows")
	clitestutil.AssertNoANSI(t, out)

	config.ResetConfig()
	_, _, err = clitestutil.ExecuteCommand(t, NewRootCmd(), "demo", path, "--root", dir)
	assert.ErrorContains(t, err, "already exists")

	config.ResetConfig()
	out, _, err = clitestutil.ExecuteCommand(t, NewRootCmd(), "tables", path, "--root", dir, "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "class_Dog")
	assert.NotContains(t, out, "metadata")
}

func TestRoot_InvalidConfig(t *testing.T) {
	dir := setupCLI(t)

	_, _, err := clitestutil.ExecuteCommand(t, NewRootCmd(), "databases", "--root", dir, "--order", "sideways")
	assert.ErrorContains(t, err, "order")
}

func TestRoot_Version(t *testing.T) {
	setupCLI(t)

	out, _, err := clitestutil.ExecuteCommand(t, NewRootCmd(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "storelens v"+Version)
}

func TestRoot_DatabasesEmptyWarns(t *testing.T) {
	dir := setupCLI(t)

	out, errOut, err := clitestutil.ExecuteCommand(t, NewRootCmd(), "databases", "--root", dir, "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
	assert.Contains(t, errOut, "warning: no databases found under "+dir)
}
