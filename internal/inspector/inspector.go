// Package inspector implements the Database devtools domain on top of the
// catalog, session, query and flatten packages.
package inspector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/storelens/internal/catalog"
	"github.com/leapstack-labs/storelens/internal/flatten"
	"github.com/leapstack-labs/storelens/internal/query"
	"github.com/leapstack-labs/storelens/internal/session"
	"github.com/leapstack-labs/storelens/pkg/objectstore"
)

// DefaultLimit is the row limit used when none is configured.
const DefaultLimit = 250

// Peer is one attached debugging client.
type Peer interface {
	ID() string
	Notify(ctx context.Context, method string, params any) error
}

// Inspector serves the Database domain. All operations are safe for
// concurrent use; each call opens and closes its own session.
type Inspector struct {
	catalog   *catalog.Catalog
	opener    *session.Opener
	flattener *flatten.Flattener
	logger    *slog.Logger

	limit          int
	ascending      bool
	withMetaTables bool
	strictQueries  bool

	mu    sync.Mutex
	peers map[string]Peer
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithLimit sets the maximum number of rows returned by ExecuteSQL.
func WithLimit(limit int) Option {
	return func(i *Inspector) { i.limit = limit }
}

// WithAscending selects the row order: the first rows ascending, or the
// last rows descending.
func WithAscending(ascending bool) Option {
	return func(i *Inspector) { i.ascending = ascending }
}

// WithMetaTables includes engine bookkeeping tables in table listings.
func WithMetaTables(include bool) Option {
	return func(i *Inspector) { i.withMetaTables = include }
}

// WithStrictQueries makes ExecuteSQL report unsupported statements as errors
// instead of returning an empty result.
func WithStrictQueries(strict bool) Option {
	return func(i *Inspector) { i.strictQueries = strict }
}

// WithFlattener sets the row flattener.
func WithFlattener(f *flatten.Flattener) Option {
	return func(i *Inspector) {
		if f != nil {
			i.flattener = f
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Inspector) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// New creates an Inspector.
func New(cat *catalog.Catalog, opener *session.Opener, opts ...Option) *Inspector {
	i := &Inspector{
		catalog:   cat,
		opener:    opener,
		flattener: flatten.New(),
		logger:    slog.New(slog.DiscardHandler),
		limit:     DefaultLimit,
		ascending: true,
		peers:     make(map[string]Peer),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Databases returns the current catalog.
func (i *Inspector) Databases() []catalog.Descriptor {
	return i.catalog.Descriptors()
}

// Enable registers peer. The first time a peer is registered it receives one
// Database.addDatabase notification per catalog entry.
func (i *Inspector) Enable(ctx context.Context, peer Peer) error {
	i.mu.Lock()
	_, known := i.peers[peer.ID()]
	i.peers[peer.ID()] = peer
	i.mu.Unlock()

	if known {
		return nil
	}
	i.logger.Info("peer enabled", "peer", peer.ID())

	for _, d := range i.catalog.Descriptors() {
		if err := peer.Notify(ctx, MethodAddDatabase, AddDatabaseParams{Database: d}); err != nil {
			// A peer that missed part of its bootstrap stays unregistered.
			i.mu.Lock()
			delete(i.peers, peer.ID())
			i.mu.Unlock()
			return fmt.Errorf("announce %s to %s: %w", d.ID, peer.ID(), err)
		}
	}
	return nil
}

// Disable unregisters peer. Disabling an unknown peer is a no-op.
func (i *Inspector) Disable(peer Peer) {
	i.mu.Lock()
	_, known := i.peers[peer.ID()]
	delete(i.peers, peer.ID())
	i.mu.Unlock()

	if known {
		i.logger.Info("peer disabled", "peer", peer.ID())
	}
}

// Enabled reports how many peers are registered.
func (i *Inspector) Enabled() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.peers)
}

// Announce sends Database.addDatabase for d to every registered peer.
func (i *Inspector) Announce(ctx context.Context, d catalog.Descriptor) {
	i.mu.Lock()
	peers := make([]Peer, 0, len(i.peers))
	for _, p := range i.peers {
		peers = append(peers, p)
	}
	i.mu.Unlock()

	for _, p := range peers {
		if err := p.Notify(ctx, MethodAddDatabase, AddDatabaseParams{Database: d}); err != nil {
			i.logger.Warn("cannot announce database", "peer", p.ID(), "database", d.ID, "error", err)
		}
	}
}

// GetDatabaseTableNames lists the tables of one database. Failures are
// returned to the caller.
func (i *Inspector) GetDatabaseTableNames(ctx context.Context, req GetDatabaseTableNamesRequest) (*GetDatabaseTableNamesResponse, error) {
	var names []string
	err := i.opener.With(ctx, req.DatabaseID, func(s objectstore.Session) error {
		var err error
		names, err = session.ListTables(ctx, s, i.withMetaTables)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list tables of %s: %w", req.DatabaseID, err)
	}
	return &GetDatabaseTableNamesResponse{TableNames: names}, nil
}

// ExecuteSQL runs a query. It never fails: errors are reported in the
// response's SQLError with code 0.
func (i *Inspector) ExecuteSQL(ctx context.Context, req ExecuteSQLRequest) *ExecuteSQLResponse {
	resp := &ExecuteSQLResponse{ColumnNames: []string{}, Values: []any{}}

	err := i.opener.With(ctx, req.DatabaseID, func(s objectstore.Session) error {
		t, err := query.Resolve(ctx, s, req.Query)
		if err != nil {
			return err
		}
		res, err := i.flattener.Flatten(ctx, t, i.limit, i.ascending, true)
		if err != nil {
			return err
		}
		resp.ColumnNames = res.ColumnNames
		resp.Values = res.Values()
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, query.ErrUnsupported) && !i.strictQueries:
		i.logger.Debug("ignoring unsupported query", "database", req.DatabaseID, "query", req.Query)
	default:
		i.logger.Warn("query failed", "database", req.DatabaseID, "query", req.Query, "error", err)
		resp.SQLError = &SQLError{Message: err.Error(), Code: 0}
	}
	return resp
}
