package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/storelens/pkg/objectstore"
	"github.com/leapstack-labs/storelens/pkg/objectstore/sqlite"
)

// CreatePersonStore writes a store under dir and returns its path. The
// store holds a plain "Person" table with the rows Alice, Bob and Carol, and
// the object tables class_Dog (Rex, Fido) and class_Person:
//
//	name   age  dog   dogs
//	Alice  30   Fido  [Fido, Rex]
//	Bob    nil  nil   []
//	Carol  41   Rex   [Rex]
func CreatePersonStore(t testing.TB, dir, name string, key []byte) string {
	t.Helper()

	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	ctx := context.Background()

	b, err := sqlite.Create(ctx, path, key)
	require.NoError(t, err)
	defer func() { require.NoError(t, b.Close()) }()

	require.NoError(t, b.CreateTable(ctx, "Person",
		sqlite.ColumnSpec{Name: "name", Type: objectstore.TypeString},
	))
	for _, n := range []string{"Alice", "Bob", "Carol"} {
		_, err := b.Insert(ctx, "Person", n)
		require.NoError(t, err)
	}

	require.NoError(t, b.CreateTable(ctx, "class_Dog",
		sqlite.ColumnSpec{Name: "name", Type: objectstore.TypeString, Required: true},
	))
	require.NoError(t, b.CreateTable(ctx, "class_Person",
		sqlite.ColumnSpec{Name: "name", Type: objectstore.TypeString, Required: true},
		sqlite.ColumnSpec{Name: "age", Type: objectstore.TypeInteger},
		sqlite.ColumnSpec{Name: "dog", Type: objectstore.TypeObject, Target: "class_Dog"},
		sqlite.ColumnSpec{Name: "dogs", Type: objectstore.TypeList, Target: "class_Dog"},
	))
	require.NoError(t, b.SetPrimaryKey(ctx, "class_Person", "name"))

	rex, err := b.Insert(ctx, "class_Dog", "Rex")
	require.NoError(t, err)
	fido, err := b.Insert(ctx, "class_Dog", "Fido")
	require.NoError(t, err)

	rows := [][]any{
		{"Alice", int64(30), fido, []int64{fido, rex}},
		{"Bob", nil, nil, nil},
		{"Carol", int64(41), rex, []int64{rex}},
	}
	for _, row := range rows {
		_, err := b.Insert(ctx, "class_Person", row...)
		require.NoError(t, err)
	}
	return path
}
