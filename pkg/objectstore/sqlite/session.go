package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/storelens/pkg/objectstore"
)

type session struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

func newSession(db *sql.DB, path string, logger *slog.Logger) *session {
	return &session{db: db, path: path, logger: logger}
}

// TableNames lists tables in creation order.
func (s *session) TableNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return names, nil
}

// Table resolves a table by exact name.
func (s *session) Table(ctx context.Context, name string) (objectstore.Table, error) {
	ok, err := s.hasTable(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", objectstore.ErrTableNotFound, name)
	}
	return &table{db: s.db, name: name}, nil
}

// Close releases the session's connection.
func (s *session) Close() error {
	if s.db == nil {
		return nil
	}
	s.logger.Debug("store session closed", "path", s.path)
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *session) hasTable(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("look up table %s: %w", name, err)
	}
	return n > 0, nil
}

// verifyKey checks the supplied key against the store's key fingerprint.
func (s *session) verifyKey(ctx context.Context, key []byte) error {
	stored, err := s.metadata(ctx, metaKeyCheck)
	if err != nil {
		return err
	}

	switch {
	case stored == "" && key == nil:
		return nil
	case stored == "":
		return fmt.Errorf("open store %s: %w", s.path, objectstore.ErrInvalidKey)
	case key == nil:
		return fmt.Errorf("open store %s: %w", s.path, objectstore.ErrKeyRequired)
	}

	ok, err := matchKey(stored, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("open store %s: %w", s.path, objectstore.ErrInvalidKey)
	}
	return nil
}

// metadata reads one value from the internal metadata table. Files without
// that table read as empty.
func (s *session) metadata(ctx context.Context, key string) (string, error) {
	ok, err := s.hasTable(ctx, "metadata")
	if err != nil || !ok {
		return "", err
	}

	var value string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read store metadata %s: %w", key, err)
	}
	return value, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
