package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/storelens/pkg/objectstore"
)

type table struct {
	db   *sql.DB
	name string
}

func (t *table) Name() string { return t.name }

// Columns reads the table's current schema.
func (t *table) Columns(ctx context.Context) ([]objectstore.Column, error) {
	rows, err := t.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(t.name)))
	if err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", t.name, err)
	}
	defer func() { _ = rows.Close() }()

	var cols []objectstore.Column
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, declared   string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &declared, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", t.name, err)
		}
		typ, target := objectstore.NormalizeType(declared)
		cols = append(cols, objectstore.Column{
			Name:   name,
			Type:   typ,
			Native: declared,
			Target: target,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", t.name, err)
	}
	return cols, nil
}

// Size returns the number of rows in the table.
func (t *table) Size(ctx context.Context) (int64, error) {
	return countRows(ctx, t.db, t.name)
}

// Scan visits up to r.Count rows. Rows are read into memory first so link
// resolution can reuse the session's single connection.
func (t *table) Scan(ctx context.Context, r objectstore.Range, fn func(objectstore.Row) error) error {
	cols, err := t.Columns(ctx)
	if err != nil {
		return err
	}
	size, err := t.Size(ctx)
	if err != nil {
		return err
	}

	count := min(r.Count, size)
	if count <= 0 {
		return nil
	}

	selected, err := t.read(ctx, cols, count, size, r.Descending)
	if err != nil {
		return err
	}

	resolver := &linkResolver{db: t.db}
	for _, row := range selected {
		if err := resolver.resolve(ctx, row); err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

func (t *table) read(ctx context.Context, cols []objectstore.Column, count, size int64, descending bool) ([]*row, error) {
	list := make([]string, 0, len(cols)+1)
	list = append(list, "rowid")
	for _, c := range cols {
		list = append(list, quoteIdent(c.Name))
	}
	order := "ASC"
	if descending {
		order = "DESC"
	}

	//nolint:gosec // identifiers are quoted and come from the store's own schema
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid %s LIMIT ?",
		strings.Join(list, ", "), quoteIdent(t.name), order)

	rows, err := t.db.QueryContext(ctx, query, count)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", t.name, err)
	}
	defer func() { _ = rows.Close() }()

	var out []*row
	for k := int64(0); rows.Next(); k++ {
		values := make([]any, len(cols)+1)
		ptrs := make([]any, len(values))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}

		index := k
		if descending {
			index = size - 1 - k
		}
		out = append(out, &row{index: index, cols: cols, values: values[1:]})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", t.name, err)
	}
	return out, nil
}

func countRows(ctx context.Context, db *sql.DB, name string) (int64, error) {
	var n int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(name)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows of %s: %w", name, err)
	}
	return n, nil
}

// linkResolver turns stored rowids into physical indices of the target table.
type linkResolver struct {
	db *sql.DB
}

func (l *linkResolver) resolve(ctx context.Context, r *row) error {
	for i, c := range r.cols {
		switch c.Type {
		case objectstore.TypeObject:
			if r.values[i] == nil {
				continue
			}
			idx, ok, err := l.index(ctx, c.Target, toInt64(r.values[i]))
			if err != nil {
				return err
			}
			if !ok {
				r.values[i] = nil
				continue
			}
			r.values[i] = idx

		case objectstore.TypeList:
			rowids, err := decodeRowIDs(r.values[i])
			if err != nil {
				return fmt.Errorf("column %s: %w", c.Name, err)
			}
			list := objectstore.LinkList{Target: c.Target, Indices: make([]int64, 0, len(rowids))}
			for _, id := range rowids {
				idx, ok, err := l.index(ctx, c.Target, id)
				if err != nil {
					return err
				}
				if ok {
					list.Indices = append(list.Indices, idx)
				}
			}
			r.values[i] = list
		}
	}
	return nil
}

func (l *linkResolver) index(ctx context.Context, target string, rowid int64) (int64, bool, error) {
	if target == "" {
		return 0, false, fmt.Errorf("link without target table")
	}
	q := fmt.Sprintf(`SELECT (SELECT COUNT(*) FROM %[1]s WHERE rowid < ?), EXISTS(SELECT 1 FROM %[1]s WHERE rowid = ?)`,
		quoteIdent(target))

	var (
		idx    int64
		exists bool
	)
	if err := l.db.QueryRowContext(ctx, q, rowid, rowid).Scan(&idx, &exists); err != nil {
		return 0, false, fmt.Errorf("resolve link into %s: %w", target, err)
	}
	return idx, exists, nil
}

func decodeRowIDs(v any) ([]int64, error) {
	var raw []byte
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		raw = []byte(x)
	case []byte:
		raw = x
	default:
		return nil, fmt.Errorf("unexpected link list value %T", v)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, nil
	}
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("decode link list: %w", err)
	}
	return ids, nil
}

// row is a materialized row. Link cells hold resolved physical indices and
// list cells hold objectstore.LinkList values.
type row struct {
	index  int64
	cols   []objectstore.Column
	values []any
}

var _ objectstore.Row = (*row)(nil)

func (r *row) Index() int64 { return r.index }

func (r *row) IsNull(col int) bool { return r.values[col] == nil }

func (r *row) Int(col int) int64 { return toInt64(r.values[col]) }

func (r *row) Bool(col int) bool {
	if b, ok := r.values[col].(bool); ok {
		return b
	}
	return toInt64(r.values[col]) != 0
}

func (r *row) Float(col int) float32 { return float32(toFloat64(r.values[col])) }

func (r *row) Double(col int) float64 { return toFloat64(r.values[col]) }

func (r *row) Text(col int) string {
	switch v := r.values[col].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (r *row) Binary(col int) []byte {
	switch v := r.values[col].(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return nil
	}
}

func (r *row) Date(col int) time.Time {
	switch v := r.values[col].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
		return time.Time{}
	default:
		return time.UnixMilli(toInt64(v)).UTC()
	}
}

func (r *row) Link(col int) int64 { return toInt64(r.values[col]) }

func (r *row) LinkList(col int) objectstore.LinkList {
	if l, ok := r.values[col].(objectstore.LinkList); ok {
		return l
	}
	return objectstore.LinkList{Target: r.cols[col].Target}
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case float64:
		return int64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		n, _ := strconv.ParseInt(x, 10, 64)
		return n
	case []byte:
		n, _ := strconv.ParseInt(string(x), 10, 64)
		return n
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	case []byte:
		f, _ := strconv.ParseFloat(string(x), 64)
		return f
	default:
		return 0
	}
}
