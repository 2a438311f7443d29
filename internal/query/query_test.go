package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/storelens/internal/testutil"
	"github.com/leapstack-labs/storelens/pkg/objectstore"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		table string
		ok    bool
	}{
		{"basic", `SELECT rowid, * FROM "Person"`, "Person", true},
		{"surrounding whitespace", "  \n\tSELECT rowid, * FROM \"Person\"  \n", "Person", true},
		{"tabs between tokens", "SELECT\trowid,\t*\tFROM \"class_Dog\"", "class_Dog", true},
		{"name with spaces", `SELECT rowid, * FROM "my table"`, "my table", true},
		{"where clause", `SELECT rowid, * FROM "Person" WHERE x=1`, "", false},
		{"lowercase keywords", `select rowid, * from "Person"`, "", false},
		{"unquoted table", `SELECT rowid, * FROM Person`, "", false},
		{"no rowid", `SELECT * FROM "Person"`, "", false},
		{"empty table name", `SELECT rowid, * FROM ""`, "", false},
		{"trailing semicolon", `SELECT rowid, * FROM "Person";`, "", false},
		{"write statement", `DELETE FROM "Person"`, "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, ok := Parse(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.table, sel.Table)
		})
	}
}

func TestResolve(t *testing.T) {
	person := &testutil.FakeTable{TableName: "Person"}
	s := testutil.NewFakeSession(person)
	ctx := context.Background()

	tbl, err := Resolve(ctx, s, ` SELECT rowid, * FROM "Person" `)
	require.NoError(t, err)
	assert.Equal(t, "Person", tbl.Name())

	_, err = Resolve(ctx, s, `SELECT name FROM "Person"`)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Resolve(ctx, s, `SELECT rowid, * FROM "Missing"`)
	assert.ErrorIs(t, err, objectstore.ErrTableNotFound)
	assert.NotErrorIs(t, err, ErrUnsupported)
}
