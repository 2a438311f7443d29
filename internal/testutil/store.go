package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/leapstack-labs/storelens/pkg/objectstore"
)

// FakeTable is an in-memory objectstore.Table. Each entry of Rows holds one
// value per column; nil is a null cell. Cells hold int64, bool, float32,
// float64, string, []byte, time.Time, int64 (links) or objectstore.LinkList.
type FakeTable struct {
	TableName  string
	Cols       []objectstore.Column
	Rows       [][]any
	ColumnsErr error
	ScanErr    error
}

func (t *FakeTable) Name() string { return t.TableName }

func (t *FakeTable) Columns(context.Context) ([]objectstore.Column, error) {
	if t.ColumnsErr != nil {
		return nil, t.ColumnsErr
	}
	return t.Cols, nil
}

func (t *FakeTable) Size(context.Context) (int64, error) {
	return int64(len(t.Rows)), nil
}

func (t *FakeTable) Scan(ctx context.Context, r objectstore.Range, fn func(objectstore.Row) error) error {
	if t.ScanErr != nil {
		return t.ScanErr
	}
	size := int64(len(t.Rows))
	count := min(r.Count, size)
	for k := int64(0); k < count; k++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		idx := k
		if r.Descending {
			idx = size - 1 - k
		}
		if err := fn(fakeRow{index: idx, values: t.Rows[idx]}); err != nil {
			return err
		}
	}
	return nil
}

type fakeRow struct {
	index  int64
	values []any
}

func (r fakeRow) Index() int64 { return r.index }
func (r fakeRow) IsNull(col int) bool { return r.values[col] == nil }
func (r fakeRow) Int(col int) int64 { return r.values[col].(int64) }
func (r fakeRow) Bool(col int) bool { return r.values[col].(bool) }
func (r fakeRow) Float(col int) float32 { return r.values[col].(float32) }
func (r fakeRow) Double(col int) float64 { return r.values[col].(float64) }
func (r fakeRow) Text(col int) string { return r.values[col].(string) }
func (r fakeRow) Binary(col int) []byte { return r.values[col].([]byte) }
func (r fakeRow) Date(col int) time.Time { return r.values[col].(time.Time) }
func (r fakeRow) Link(col int) int64 { return r.values[col].(int64) }

func (r fakeRow) LinkList(col int) objectstore.LinkList {
	if r.values[col] == nil {
		return objectstore.LinkList{}
	}
	return r.values[col].(objectstore.LinkList)
}

// FakeSession is an in-memory objectstore.Session.
type FakeSession struct {
	mu       sync.Mutex
	Names    []string
	Tables   map[string]*FakeTable
	NamesErr error
	closed   int
}

// NewFakeSession creates a session holding the given tables, in order.
func NewFakeSession(tables ...*FakeTable) *FakeSession {
	s := &FakeSession{Tables: make(map[string]*FakeTable)}
	for _, t := range tables {
		s.Names = append(s.Names, t.TableName)
		s.Tables[t.TableName] = t
	}
	return s
}

func (s *FakeSession) TableNames(context.Context) ([]string, error) {
	if s.NamesErr != nil {
		return nil, s.NamesErr
	}
	return s.Names, nil
}

func (s *FakeSession) Table(_ context.Context, name string) (objectstore.Table, error) {
	t, ok := s.Tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", objectstore.ErrTableNotFound, name)
	}
	return t, nil
}

func (s *FakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// Closed reports how many times Close was called.
func (s *FakeSession) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// OpenCall records one FakeEngine.Open invocation.
type OpenCall struct {
	Path string
	Opts objectstore.OpenOptions
}

// FakeEngine is an objectstore.Engine serving FakeSessions by path.
type FakeEngine struct {
	mu       sync.Mutex
	Sessions map[string]*FakeSession
	// Fail makes Open return the error for the given durability mode.
	Fail  map[objectstore.Durability]error
	calls []OpenCall
}

// NewFakeEngine creates an engine with no sessions.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{
		Sessions: make(map[string]*FakeSession),
		Fail:     make(map[objectstore.Durability]error),
	}
}

func (e *FakeEngine) Open(_ context.Context, path string, opts objectstore.OpenOptions) (objectstore.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, OpenCall{Path: path, Opts: opts})
	if err := e.Fail[opts.Durability]; err != nil {
		return nil, err
	}
	s, ok := e.Sessions[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such store", path)
	}
	return s, nil
}

// Calls returns the recorded Open invocations.
func (e *FakeEngine) Calls() []OpenCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]OpenCall(nil), e.calls...)
}
