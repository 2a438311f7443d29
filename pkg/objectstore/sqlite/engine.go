// Package sqlite implements the object store engine on top of SQLite.
//
// A store is a SQLite file whose user object tables are named class_<Name>.
// Physical row order is ascending rowid. Column declared types carry the
// engine's native type spelling (see objectstore.NormalizeType); link
// columns store the target rowid and link lists a JSON array of rowids.
package sqlite

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/leapstack-labs/storelens/pkg/objectstore"
)

// Metadata keys stored in the internal metadata table.
const (
	metaKeyCheck      = "key_check"
	metaSchemaVersion = "schema_version"
)

const keyCheckDomain = "storelens/key-check/v1"

// Engine opens SQLite-backed object stores.
type Engine struct {
	logger *slog.Logger
}

var _ objectstore.Engine = (*Engine)(nil)

// New creates an Engine. A nil logger discards output.
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{logger: logger}
}

// Open opens a read session on the store at path.
func (e *Engine) Open(ctx context.Context, path string, opts objectstore.OpenOptions) (objectstore.Session, error) {
	if err := objectstore.ValidateKey(filepath.Base(path), opts.Key); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", buildDSN(path, opts.Durability))
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	// Link resolution runs after the scan cursor is closed.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, classifyOpenError(path, opts.Durability, err)
	}

	s := newSession(db, path, e.logger)
	if err := s.verifyKey(ctx, opts.Key); err != nil {
		_ = db.Close()
		return nil, err
	}

	e.logger.Debug("store session opened", "path", path, "durability", opts.Durability.String())
	return s, nil
}

// buildDSN builds a URI filename for modernc.org/sqlite.
//
// Full durability opens the file read-write with query_only set, which needs
// write access to the file for locking but never changes its contents or
// journal mode. The relaxed mode opens the file as immutable and keeps
// temporary state in memory.
func buildDSN(path string, mode objectstore.Durability) string {
	params := url.Values{}
	switch mode {
	case objectstore.DurabilityMemOnly:
		params.Set("mode", "ro")
		params.Set("immutable", "1")
		params.Add("_pragma", "temp_store(MEMORY)")
	default:
		params.Set("mode", "rw")
		params.Add("_pragma", "busy_timeout(5000)")
		params.Add("_pragma", "query_only(1)")
		params.Add("_pragma", "synchronous(FULL)")
	}
	return "file:" + escapePath(path) + "?" + params.Encode()
}

var pathEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

func escapePath(path string) string {
	return pathEscaper.Replace(filepath.ToSlash(path))
}

// classifyOpenError reports SQLite failures to establish the full durability
// mode as objectstore.ErrDurability.
func classifyOpenError(path string, mode objectstore.Durability, err error) error {
	if mode == objectstore.DurabilityFull && isDurabilityFailure(err) {
		return fmt.Errorf("open store %s: %w: %w", path, objectstore.ErrDurability, err)
	}
	return fmt.Errorf("open store %s: %w", path, err)
}

func isDurabilityFailure(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() & 0xff {
		case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_READONLY, sqlite3.SQLITE_PERM, sqlite3.SQLITE_IOERR:
			return true
		}
		return false
	}
	// Some open failures surface before a connection exists and carry only text.
	return strings.Contains(err.Error(), "unable to open database file")
}

// keyFingerprint derives the value stored under key_check for a key.
func keyFingerprint(key []byte) (string, error) {
	h, err := blake2b.New256(key)
	if err != nil {
		return "", fmt.Errorf("derive key fingerprint: %w", err)
	}
	_, _ = h.Write([]byte(keyCheckDomain))
	return hex.EncodeToString(h.Sum(nil)), nil
}

func matchKey(stored string, key []byte) (bool, error) {
	fp, err := keyFingerprint(key)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(fp), []byte(stored)) == 1, nil
}
