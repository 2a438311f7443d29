package flatten

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/storelens/internal/testutil"
	"github.com/leapstack-labs/storelens/pkg/objectstore"
	"github.com/leapstack-labs/storelens/pkg/objectstore/sqlite"
)

func personTable() *testutil.FakeTable {
	return &testutil.FakeTable{
		TableName: "Person",
		Cols:      []objectstore.Column{{Name: "name", Type: objectstore.TypeString, Native: "TEXT"}},
		Rows:      [][]any{{"Alice"}, {"Bob"}, {"Carol"}},
	}
}

func TestFlatten_Ordering(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		ascending bool
		want      []any
		truncated bool
	}{
		{"ascending within limit", 5, true, []any{int64(0), "Alice", int64(1), "Bob", int64(2), "Carol"}, false},
		{"ascending exact size", 3, true, []any{int64(0), "Alice", int64(1), "Bob", int64(2), "Carol"}, false},
		{"descending within limit", 3, false, []any{int64(2), "Carol", int64(1), "Bob", int64(0), "Alice"}, false},
		{"ascending truncated", 2, true, []any{int64(0), "Alice", int64(1), "Bob", TruncatedToken, TruncatedToken}, true},
		{"descending truncated", 2, false, []any{int64(2), "Carol", int64(1), "Bob", TruncatedToken, TruncatedToken}, true},
		{"zero limit", 0, true, []any{TruncatedToken, TruncatedToken}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New().Flatten(context.Background(), personTable(), tt.limit, tt.ascending, true)
			require.NoError(t, err)
			assert.Equal(t, []string{IndexColumn, "name"}, res.ColumnNames)
			assert.Equal(t, tt.truncated, res.Truncated)
			assert.Equal(t, tt.want, res.Values())
		})
	}
}

func TestFlatten_WithoutRowIndex(t *testing.T) {
	res, err := New().Flatten(context.Background(), personTable(), 1, true, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, res.ColumnNames)
	assert.Equal(t, []any{"Alice", TruncatedToken}, res.Values())
}

func TestFlatten_EmptyTable(t *testing.T) {
	tbl := personTable()
	tbl.Rows = nil
	res, err := New().Flatten(context.Background(), tbl, 0, true, true)
	require.NoError(t, err)
	assert.False(t, res.Truncated)
	assert.Empty(t, res.Values())
}

func TestFlatten_NegativeLimitPanics(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = New().Flatten(context.Background(), personTable(), -1, true, true)
	})
}

func TestFlatten_CellTypes(t *testing.T) {
	born := time.Date(1990, 5, 17, 8, 30, 0, 0, time.UTC)
	tbl := &testutil.FakeTable{
		TableName: "class_Everything",
		Cols: []objectstore.Column{
			{Name: "i", Type: objectstore.TypeInteger},
			{Name: "b", Type: objectstore.TypeBoolean},
			{Name: "s", Type: objectstore.TypeString},
			{Name: "bin", Type: objectstore.TypeBinary},
			{Name: "f", Type: objectstore.TypeFloat},
			{Name: "d", Type: objectstore.TypeDouble},
			{Name: "at", Type: objectstore.TypeDate},
			{Name: "dog", Type: objectstore.TypeObject, Target: "class_Dog"},
			{Name: "dogs", Type: objectstore.TypeList, Target: "class_Dog"},
			{Name: "mixed", Type: objectstore.TypeUnsupported, Native: "MIXED"},
		},
		Rows: [][]any{
			{int64(42), true, "hi", []byte{1, 2}, float32(1.5), 2.25, born, int64(3),
				objectstore.LinkList{Target: "class_Dog", Indices: []int64{3, 7, 9}}, "ignored"},
			{nil, nil, nil, nil, float32(math.NaN()), math.Inf(1), nil, nil, nil, nil},
			{nil, nil, nil, nil, float32(math.Inf(-1)), math.NaN(), nil, nil,
				objectstore.LinkList{Target: "class_Dog"}, nil},
		},
	}

	res, err := New().Flatten(context.Background(), tbl, 10, true, false)
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)

	assert.Equal(t, []any{
		int64(42), true, "hi", []byte{1, 2}, float32(1.5), 2.25, "1990-05-17 08:30:00 UTC", int64(3),
		"class_Dog{3,7,9}", "unknown column type: MIXED",
	}, res.Rows[0])
	assert.Equal(t, []any{
		nil, nil, nil, nil, "NaN", "Infinity", nil, nil, "class_Dog{}", "unknown column type: MIXED",
	}, res.Rows[1])
	assert.Equal(t, []any{
		nil, nil, nil, nil, "-Infinity", "NaN", nil, nil, "class_Dog{}", "unknown column type: MIXED",
	}, res.Rows[2])
}

func TestFlatten_DateOptions(t *testing.T) {
	cet := time.FixedZone("CET", 3600)

	tbl := &testutil.FakeTable{
		TableName: "class_Event",
		Cols:      []objectstore.Column{{Name: "at", Type: objectstore.TypeDate}},
		Rows:      [][]any{{time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}},
	}

	res, err := New(WithDateLayout(time.RFC3339), WithLocation(cet)).Flatten(context.Background(), tbl, 1, true, false)
	require.NoError(t, err)
	assert.Equal(t, []any{"2024-01-02T04:04:05+01:00"}, res.Values())

	res, err = New(WithDateLayout(""), WithLocation(nil)).Flatten(context.Background(), tbl, 1, true, false)
	require.NoError(t, err)
	assert.Equal(t, []any{"2024-01-02 03:04:05 UTC"}, res.Values())
}

func TestFlatten_Errors(t *testing.T) {
	colErr := errors.New("schema unreadable")
	tbl := personTable()
	tbl.ColumnsErr = colErr
	_, err := New().Flatten(context.Background(), tbl, 1, true, true)
	assert.ErrorIs(t, err, colErr)

	scanErr := errors.New("cursor broken")
	tbl = personTable()
	tbl.ScanErr = scanErr
	_, err = New().Flatten(context.Background(), tbl, 1, true, true)
	assert.ErrorIs(t, err, scanErr)
}

func TestFlatten_RealStore(t *testing.T) {
	path := testutil.CreatePersonStore(t, t.TempDir(), "people.objdb", nil)
	s, err := sqlite.New(testutil.NewTestLogger(t)).Open(context.Background(), path, objectstore.OpenOptions{})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	tbl, err := s.Table(context.Background(), "Person")
	require.NoError(t, err)

	res, err := New().Flatten(context.Background(), tbl, 2, false, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"<index>", "name"}, res.ColumnNames)
	assert.Equal(t, []any{int64(2), "Carol", int64(1), "Bob", "{truncated}", "{truncated}"}, res.Values())
}
