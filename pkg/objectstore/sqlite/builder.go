package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/leapstack-labs/storelens/pkg/objectstore"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ColumnSpec describes a column for Builder.CreateTable.
type ColumnSpec struct {
	Name string
	Type objectstore.ColumnType
	// Target is the linked table for TypeObject and TypeList columns.
	Target string
	// Native overrides the declared type spelling verbatim.
	Native   string
	Required bool
}

// Builder creates and populates stores. The inspector never writes; Builder
// exists for fixtures and the demo command.
type Builder struct {
	db   *sql.DB
	path string
}

// Create creates a new store at path, or upgrades the internal tables of an
// existing one. A non-nil key is recorded so sessions must present it.
func Create(ctx context.Context, path string, key []byte) (*Builder, error) {
	if err := objectstore.ValidateKey(filepath.Base(path), key); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", "file:"+escapePath(path)+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("create store %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	b := &Builder{db: db, path: path}
	if err := b.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if key != nil {
		fp, err := keyFingerprint(key)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if err := b.setMetadata(ctx, metaKeyCheck, fp); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return b, nil
}

func (b *Builder) migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, b.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (b *Builder) setMetadata(ctx context.Context, key, value string) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("write store metadata %s: %w", key, err)
	}
	return nil
}

// SchemaVersion returns the store's recorded schema version.
func (b *Builder) SchemaVersion(ctx context.Context) (string, error) {
	s := newSession(b.db, b.path, nil)
	return s.metadata(ctx, metaSchemaVersion)
}

// CreateTable creates a table with the given columns.
func (b *Builder) CreateTable(ctx context.Context, name string, cols ...ColumnSpec) error {
	defs := make([]string, 0, len(cols))
	for _, c := range cols {
		declared, err := c.declaredType()
		if err != nil {
			return fmt.Errorf("create table %s: %w", name, err)
		}
		def := quoteIdent(c.Name) + " " + declared
		if c.Required {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	if len(defs) == 0 {
		return fmt.Errorf("create table %s: no columns", name)
	}

	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(defs, ", "))
	if _, err := b.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	return nil
}

// SetPrimaryKey records the primary key field of a class table.
func (b *Builder) SetPrimaryKey(ctx context.Context, class, field string) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO pk (class_name, field_name) VALUES (?, ?) ON CONFLICT(class_name) DO UPDATE SET field_name = excluded.field_name`,
		class, field)
	if err != nil {
		return fmt.Errorf("set primary key of %s: %w", class, err)
	}
	return nil
}

// Insert appends a row and returns its rowid. Values follow column order:
// time.Time for dates, rowids (int64) for links, []int64 rowids for lists,
// nil for null.
func (b *Builder) Insert(ctx context.Context, tableName string, values ...any) (int64, error) {
	t := &table{db: b.db, name: tableName}
	cols, err := t.Columns(ctx)
	if err != nil {
		return 0, err
	}
	if len(values) != len(cols) {
		return 0, fmt.Errorf("insert into %s: got %d values for %d columns", tableName, len(values), len(cols))
	}

	args := make([]any, len(values))
	marks := make([]string, len(values))
	for i, v := range values {
		arg, err := encodeValue(cols[i], v)
		if err != nil {
			return 0, fmt.Errorf("insert into %s: %w", tableName, err)
		}
		args[i] = arg
		marks[i] = "?"
	}

	//nolint:gosec // table name is quoted
	stmt := fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(tableName), strings.Join(marks, ", "))
	res, err := b.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", tableName, err)
	}
	return res.LastInsertId()
}

// Close closes the underlying database.
func (b *Builder) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

func (c ColumnSpec) declaredType() (string, error) {
	if c.Native != "" {
		return c.Native, nil
	}
	switch c.Type {
	case objectstore.TypeInteger:
		return "INTEGER", nil
	case objectstore.TypeBoolean:
		return "BOOLEAN", nil
	case objectstore.TypeString:
		return "TEXT", nil
	case objectstore.TypeBinary:
		return "BLOB", nil
	case objectstore.TypeFloat:
		return "FLOAT", nil
	case objectstore.TypeDouble:
		return "DOUBLE", nil
	case objectstore.TypeDate:
		return "DATETIME", nil
	case objectstore.TypeObject, objectstore.TypeList:
		if c.Target == "" {
			return "", fmt.Errorf("column %s: link column needs a target table", c.Name)
		}
		if strings.ContainsAny(c.Target, " \t()\"") {
			return "", fmt.Errorf("column %s: invalid link target %q", c.Name, c.Target)
		}
		if c.Type == objectstore.TypeObject {
			return "LINK " + c.Target, nil
		}
		return "LINKLIST " + c.Target, nil
	default:
		return "", fmt.Errorf("column %s: type %s needs a native spelling", c.Name, c.Type)
	}
}

func encodeValue(c objectstore.Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch c.Type {
	case objectstore.TypeDate:
		switch t := v.(type) {
		case time.Time:
			return t.UnixMilli(), nil
		case int64:
			return t, nil
		}
		return nil, fmt.Errorf("column %s: expected time.Time, got %T", c.Name, v)

	case objectstore.TypeBoolean:
		if b, ok := v.(bool); ok {
			if b {
				return int64(1), nil
			}
			return int64(0), nil
		}

	case objectstore.TypeFloat:
		if f, ok := v.(float32); ok {
			return float64(f), nil
		}

	case objectstore.TypeList:
		ids, ok := v.([]int64)
		if !ok {
			return nil, fmt.Errorf("column %s: expected []int64 rowids, got %T", c.Name, v)
		}
		if ids == nil {
			ids = []int64{}
		}
		raw, err := json.Marshal(ids)
		if err != nil {
			return nil, err
		}
		return string(raw), nil
	}
	return v, nil
}
