// Package flatten converts table rows into protocol-safe cell values.
package flatten

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/storelens/pkg/objectstore"
)

const (
	// TruncatedToken fills every cell of the marker row appended when a
	// table holds more rows than the limit.
	TruncatedToken = "{truncated}"

	// IndexColumn names the row index column.
	IndexColumn = "<index>"

	// DefaultDateLayout is used when no layout is configured.
	DefaultDateLayout = "2006-01-02 15:04:05 MST"
)

// Flattener renders tables. It holds no state between calls.
type Flattener struct {
	layout   string
	location *time.Location
}

// Option configures a Flattener.
type Option func(*Flattener)

// WithDateLayout sets the time.Format layout used for Date cells.
func WithDateLayout(layout string) Option {
	return func(f *Flattener) {
		if layout != "" {
			f.layout = layout
		}
	}
}

// WithLocation sets the time zone Date cells are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(f *Flattener) {
		if loc != nil {
			f.location = loc
		}
	}
}

// New creates a Flattener. Dates default to DefaultDateLayout in UTC.
func New(opts ...Option) *Flattener {
	f := &Flattener{layout: DefaultDateLayout, location: time.UTC}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Result is a flattened table.
type Result struct {
	ColumnNames []string
	Rows        [][]any
	Truncated   bool
}

// Values returns the rows in row-major order. A truncated result ends with
// one TruncatedToken per column.
func (r *Result) Values() []any {
	n := len(r.Rows) * len(r.ColumnNames)
	if r.Truncated {
		n += len(r.ColumnNames)
	}
	values := make([]any, 0, n)
	for _, row := range r.Rows {
		values = append(values, row...)
	}
	if r.Truncated {
		for range r.ColumnNames {
			values = append(values, TruncatedToken)
		}
	}
	return values
}

// Flatten reads up to limit rows from t. Ascending visits the first rows in
// physical order; otherwise the last rows are visited from the end backwards.
// Flatten panics if limit is negative.
func (f *Flattener) Flatten(ctx context.Context, t objectstore.Table, limit int, ascending, includeRowIndex bool) (*Result, error) {
	if limit < 0 {
		panic(fmt.Sprintf("flatten: negative limit %d", limit))
	}

	cols, err := t.Columns(ctx)
	if err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", t.Name(), err)
	}
	size, err := t.Size(ctx)
	if err != nil {
		return nil, fmt.Errorf("count rows of %s: %w", t.Name(), err)
	}

	res := &Result{ColumnNames: columnNames(cols, includeRowIndex)}
	width := len(res.ColumnNames)

	err = t.Scan(ctx, objectstore.Range{Count: int64(limit), Descending: !ascending}, func(row objectstore.Row) error {
		cells := make([]any, 0, width)
		if includeRowIndex {
			cells = append(cells, row.Index())
		}
		for i, c := range cols {
			cells = append(cells, f.cell(row, i, c))
		}
		res.Rows = append(res.Rows, cells)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", t.Name(), err)
	}

	res.Truncated = int64(limit) < size
	return res, nil
}

func columnNames(cols []objectstore.Column, includeRowIndex bool) []string {
	names := make([]string, 0, len(cols)+1)
	if includeRowIndex {
		names = append(names, IndexColumn)
	}
	for _, c := range cols {
		names = append(names, c.Name)
	}
	return names
}

func (f *Flattener) cell(row objectstore.Row, i int, c objectstore.Column) any {
	if c.Type == objectstore.TypeList {
		return renderList(row.LinkList(i), c.Target)
	}
	if c.Type == objectstore.TypeUnsupported {
		return unknownType(c)
	}
	if row.IsNull(i) {
		return nil
	}

	switch c.Type {
	case objectstore.TypeInteger:
		return row.Int(i)
	case objectstore.TypeBoolean:
		return row.Bool(i)
	case objectstore.TypeString:
		return row.Text(i)
	case objectstore.TypeBinary:
		return row.Binary(i)
	case objectstore.TypeFloat:
		v := row.Float(i)
		if s, ok := nonFinite(float64(v)); ok {
			return s
		}
		return v
	case objectstore.TypeDouble:
		v := row.Double(i)
		if s, ok := nonFinite(v); ok {
			return s
		}
		return v
	case objectstore.TypeDate:
		return row.Date(i).In(f.location).Format(f.layout)
	case objectstore.TypeObject:
		return row.Link(i)
	default:
		return unknownType(c)
	}
}

// nonFinite returns the string token for NaN and the infinities.
func nonFinite(v float64) (string, bool) {
	switch {
	case math.IsNaN(v):
		return "NaN", true
	case math.IsInf(v, 1):
		return "Infinity", true
	case math.IsInf(v, -1):
		return "-Infinity", true
	}
	return "", false
}

// renderList formats a list cell as Target{1,2,3}.
func renderList(l objectstore.LinkList, target string) string {
	if l.Target != "" {
		target = l.Target
	}
	var b strings.Builder
	b.WriteString(target)
	b.WriteByte('{')
	for i, idx := range l.Indices {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(idx, 10))
	}
	b.WriteByte('}')
	return b.String()
}

func unknownType(c objectstore.Column) string {
	native := c.Native
	if native == "" {
		native = c.Type.String()
	}
	return "unknown column type: " + native
}
