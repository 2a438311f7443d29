package commands

import (
	"bytes"
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/storelens/internal/flatten"
	"github.com/leapstack-labs/storelens/pkg/objectstore"
	"github.com/leapstack-labs/storelens/pkg/objectstore/sqlite"
)

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		use string
		cmd *cobra.Command
	}{
		{use: "serve", cmd: NewServeCommand("1.0")},
		{use: "databases", cmd: NewDatabasesCommand()},
		{use: "tables <database>", cmd: NewTablesCommand()},
		{use: "query <database> <sql>", cmd: NewQueryCommand()},
		{use: "demo <path>", cmd: NewDemoCommand()},
	}
	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Example, "Example should not be empty")
		})
	}

	serve := NewServeCommand("1.0")
	for _, flag := range []string{"listen", "watch"} {
		assert.NotNil(t, serve.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	demo := NewDemoCommand()
	for _, flag := range []string{"from", "key", "force"} {
		assert.NotNil(t, demo.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.Equal(t, []string{"dbs"}, NewDatabasesCommand().Aliases)
}

func TestVersionCommand(t *testing.T) {
	cmd := NewVersionCommand("1.2.3")
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs(nil)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "storelens v1.2.3")
}

func TestChunkRows(t *testing.T) {
	values := []any{1, "a", 2, "b", 3, "c"}

	assert.Equal(t, [][]any{{1, "a"}, {2, "b"}, {3, "c"}}, chunkRows(values, 2))
	assert.Equal(t, [][]any{{1, "a", 2}, {"b", 3, "c"}}, chunkRows(values, 3))
	assert.Nil(t, chunkRows(values, 0))
	assert.Empty(t, chunkRows(nil, 2))
}

func TestParseFixture_Embedded(t *testing.T) {
	f, err := ParseFixture(demoFixture)
	require.NoError(t, err)
	require.Len(t, f.Tables, 2)

	assert.Equal(t, "class_Dog", f.Tables[0].Name)
	assert.Equal(t, "class_Person", f.Tables[1].Name)
	for _, table := range f.Tables {
		for i, row := range table.Rows {
			assert.Len(t, row, len(table.Columns), "%s row %d", table.Name, i)
		}
	}
}

func TestParseFixture_Errors(t *testing.T) {
	_, err := ParseFixture([]byte("tables: ["))
	assert.Error(t, err)

	_, err = ParseFixture([]byte("tables: []"))
	assert.ErrorContains(t, err, "no tables")
}

func TestFixtureValue(t *testing.T) {
	born := time.Date(1994, 3, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		typ  objectstore.ColumnType
		in   any
		want any
	}{
		{"null", objectstore.TypeString, nil, nil},
		{"integer", objectstore.TypeInteger, 42, int64(42)},
		{"link", objectstore.TypeObject, 3, int64(3)},
		{"boolean", objectstore.TypeBoolean, true, true},
		{"string from number", objectstore.TypeString, 7, "7"},
		{"binary", objectstore.TypeBinary, "ab", []byte("ab")},
		{"float", objectstore.TypeFloat, 1.5, float32(1.5)},
		{"double from int", objectstore.TypeDouble, 2, float64(2)},
		{"double infinity", objectstore.TypeDouble, "Infinity", math.Inf(1)},
		{"double negative infinity", objectstore.TypeDouble, "-Infinity", math.Inf(-1)},
		{"date string", objectstore.TypeDate, "1994-03-01T09:30:00Z", born},
		{"date value", objectstore.TypeDate, born, born},
		{"list", objectstore.TypeList, []any{1, 2}, []int64{1, 2}},
		{"empty list", objectstore.TypeList, []any{}, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fixtureValue(tt.typ, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	nan, err := fixtureValue(objectstore.TypeDouble, "NaN")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(nan.(float64)))
}

func TestFixtureValue_Errors(t *testing.T) {
	tests := []struct {
		name string
		typ  objectstore.ColumnType
		in   any
	}{
		{"integer from string", objectstore.TypeInteger, "x"},
		{"boolean from int", objectstore.TypeBoolean, 1},
		{"double from bool", objectstore.TypeDouble, true},
		{"bad date", objectstore.TypeDate, "yesterday"},
		{"list of strings", objectstore.TypeList, []any{"a"}},
		{"list from scalar", objectstore.TypeList, 1},
		{"unsupported", objectstore.TypeUnsupported, "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fixtureValue(tt.typ, tt.in)
			assert.Error(t, err)
		})
	}
}

func TestBuildStore_Demo(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "demo.objdb")

	f, err := ParseFixture(demoFixture)
	require.NoError(t, err)

	version, err := BuildStore(ctx, path, nil, f)
	require.NoError(t, err)
	assert.NotEmpty(t, version)

	s, err := sqlite.New(nil).Open(ctx, path, objectstore.OpenOptions{Durability: objectstore.DurabilityFull})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	names, err := s.TableNames(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "class_Dog")
	assert.Contains(t, names, "class_Person")

	table, err := s.Table(ctx, "class_Person")
	require.NoError(t, err)
	res, err := flatten.New().Flatten(ctx, table, 10, true, false)
	require.NoError(t, err)

	assert.False(t, res.Truncated)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, "Alice", res.Rows[0][0])
	assert.Equal(t, int64(0), res.Rows[0][7])
	assert.Equal(t, "class_Dog{0,1}", res.Rows[0][8])
	assert.Equal(t, "Infinity", res.Rows[1][4])
	assert.Nil(t, res.Rows[1][7])
	assert.Equal(t, "class_Dog{}", res.Rows[1][8])
	assert.Equal(t, int64(2), res.Rows[2][7])
}

func TestBuildStore_RowWidthMismatch(t *testing.T) {
	f := &Fixture{Tables: []FixtureTable{{
		Name:    "class_Thing",
		Columns: []FixtureColumn{{Name: "a", Type: "string"}, {Name: "b", Type: "integer"}},
		Rows:    [][]any{{"only one"}},
	}}}

	_, err := BuildStore(context.Background(), filepath.Join(t.TempDir(), "bad.objdb"), nil, f)
	assert.ErrorContains(t, err, "got 1 values for 2 columns")
}

func TestBuildStore_UnknownType(t *testing.T) {
	f := &Fixture{Tables: []FixtureTable{{
		Name:    "class_Thing",
		Columns: []FixtureColumn{{Name: "a", Type: "geometry"}},
	}}}

	_, err := BuildStore(context.Background(), filepath.Join(t.TempDir(), "bad.objdb"), nil, f)
	assert.ErrorContains(t, err, "unknown type")
}
