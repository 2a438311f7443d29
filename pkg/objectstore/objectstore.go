// Package objectstore defines the capability interface the inspector uses to
// read an embedded object store.
//
// An Engine opens Sessions, a Session exposes named Tables, and a Table scans
// Rows whose cells are read through typed accessors. Concrete engines live in
// subpackages (see pkg/objectstore/sqlite).
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TablePrefix marks user-defined object tables. Every other table in a
// store is engine bookkeeping.
const TablePrefix = "class_"

// KeyLength is the required length of an encryption key in bytes.
const KeyLength = 64

// Sentinel errors reported by engines.
var (
	// ErrDurability is returned by Engine.Open when the requested durability
	// mode cannot be guaranteed in the current environment.
	ErrDurability = errors.New("cannot guarantee durability in this environment")

	// ErrTableNotFound is returned by Session.Table for unknown tables.
	ErrTableNotFound = errors.New("table not found")

	// ErrInvalidKey is returned when the supplied key does not match the store.
	ErrInvalidKey = errors.New("invalid encryption key")

	// ErrKeyRequired is returned when an encrypted store is opened without a key.
	ErrKeyRequired = errors.New("store is encrypted and no key was supplied")
)

// Durability controls how an engine persists the session's state.
type Durability int

const (
	// DurabilityFull is the engine's normal, disk-backed mode.
	DurabilityFull Durability = iota
	// DurabilityMemOnly is the relaxed mode used when full durability is
	// unavailable.
	DurabilityMemOnly
)

func (d Durability) String() string {
	switch d {
	case DurabilityFull:
		return "full"
	case DurabilityMemOnly:
		return "mem_only"
	default:
		return fmt.Sprintf("durability(%d)", int(d))
	}
}

// OpenOptions configures Engine.Open.
type OpenOptions struct {
	Durability Durability
	// Key is the encryption key; nil opens the store without one.
	Key []byte
}

// Engine opens read sessions against store files.
type Engine interface {
	Open(ctx context.Context, path string, opts OpenOptions) (Session, error)
}

// Session is a scoped read handle on one store file. Callers must Close it.
type Session interface {
	// TableNames returns every table in engine-native order.
	TableNames(ctx context.Context) ([]string, error)
	// Table resolves a table by exact name. The handle is only valid until
	// the session is closed.
	Table(ctx context.Context, name string) (Table, error)
	Close() error
}

// Column describes one column of a table as of the moment it was read.
type Column struct {
	Name string
	Type ColumnType
	// Native is the engine's own spelling of the type.
	Native string
	// Target is the linked table for Object and List columns.
	Target string
}

// Range selects rows for Table.Scan.
type Range struct {
	// Count is the maximum number of rows visited.
	Count int64
	// Descending visits the last Count rows, highest physical index first.
	Descending bool
}

// Table is a handle on one named table inside a session.
type Table interface {
	Name() string
	Columns(ctx context.Context) ([]Column, error)
	Size(ctx context.Context) (int64, error)
	Scan(ctx context.Context, r Range, fn func(Row) error) error
}

// LinkList is the content of a List cell.
type LinkList struct {
	Target  string
	Indices []int64
}

// Row gives typed access to the cells of one row. Accessors are only
// meaningful for columns of the matching type and when IsNull is false.
type Row interface {
	Index() int64
	IsNull(col int) bool
	Int(col int) int64
	Bool(col int) bool
	Float(col int) float32
	Double(col int) float64
	Text(col int) string
	Binary(col int) []byte
	Date(col int) time.Time
	// Link returns the physical index of the linked row.
	Link(col int) int64
	LinkList(col int) LinkList
}

// KeyLengthError is returned when a key has the wrong size.
type KeyLengthError struct {
	File   string
	Length int
}

func (e *KeyLengthError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("the provided key for %s must be %d bytes, yours was %d", e.File, KeyLength, e.Length)
	}
	return fmt.Sprintf("the provided key must be %d bytes, yours was %d", KeyLength, e.Length)
}

// ValidateKey checks a key's length. A nil key is valid and means "no key".
func ValidateKey(file string, key []byte) error {
	if key == nil || len(key) == KeyLength {
		return nil
	}
	return &KeyLengthError{File: file, Length: len(key)}
}
