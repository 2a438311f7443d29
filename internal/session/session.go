// Package session opens read sessions on store files and enumerates their
// tables.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/leapstack-labs/storelens/pkg/objectstore"
)

// KeyRing resolves the encryption key for a database file.
type KeyRing struct {
	// Default is used for files without an entry in PerDatabase. It may be nil.
	Default []byte
	// PerDatabase maps a file's base name to its key. A present entry with a
	// nil value means the file is opened without a key.
	PerDatabase map[string][]byte
}

// KeyFor returns the key for the database at path.
func (k KeyRing) KeyFor(path string) []byte {
	if key, ok := k.PerDatabase[filepath.Base(path)]; ok {
		return key
	}
	return k.Default
}

// Opener opens sessions with key resolution and durability fallback.
type Opener struct {
	engine objectstore.Engine
	keys   KeyRing
	logger *slog.Logger
}

// Option configures an Opener.
type Option func(*Opener)

// WithKeys sets the key ring.
func WithKeys(keys KeyRing) Option {
	return func(o *Opener) { o.keys = keys }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Opener) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOpener creates an Opener over the given engine.
func NewOpener(engine objectstore.Engine, opts ...Option) *Opener {
	o := &Opener{
		engine: engine,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open opens a session on databaseID in full durability mode. If the engine
// reports that durability cannot be guaranteed, Open retries exactly once in
// memory-only mode. The caller must close the returned session.
func (o *Opener) Open(ctx context.Context, databaseID string) (objectstore.Session, error) {
	key := o.keys.KeyFor(databaseID)

	s, err := o.engine.Open(ctx, databaseID, objectstore.OpenOptions{
		Durability: objectstore.DurabilityFull,
		Key:        key,
	})
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, objectstore.ErrDurability) {
		return nil, err
	}

	o.logger.Warn("durability unavailable, retrying in memory-only mode",
		"database", databaseID, "error", err)

	s, err = o.engine.Open(ctx, databaseID, objectstore.OpenOptions{
		Durability: objectstore.DurabilityMemOnly,
		Key:        key,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// With opens a session, runs fn and closes the session on every path.
// A close error is returned only when fn succeeded.
func (o *Opener) With(ctx context.Context, databaseID string, fn func(objectstore.Session) error) (err error) {
	s, err := o.Open(ctx, databaseID)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close session: %w", cerr)
		}
	}()
	return fn(s)
}

// ListTables returns the session's table names in engine order. Unless
// includeInternal is set, only user object tables are returned.
func ListTables(ctx context.Context, s objectstore.Session, includeInternal bool) ([]string, error) {
	names, err := s.TableNames(ctx)
	if err != nil {
		return nil, err
	}
	tables := make([]string, 0, len(names))
	for _, name := range names {
		if includeInternal || objectstore.IsUserTable(name) {
			tables = append(tables, name)
		}
	}
	return tables, nil
}
