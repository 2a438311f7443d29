// Package devtools exposes the inspector to devtools clients over a
// websocket JSON-RPC endpoint.
package devtools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/net/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/storelens/internal/catalog"
	"github.com/leapstack-labs/storelens/internal/inspector"
)

// InspectorPath is the websocket endpoint.
const InspectorPath = "/inspector"

// Server serves the devtools endpoints.
type Server struct {
	inspector *inspector.Inspector
	catalog   *catalog.Catalog
	listen    string
	watch     bool
	version   string
	logger    *slog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// Config holds configuration for the devtools server.
type Config struct {
	Inspector *inspector.Inspector
	// Catalog is watched for new files when Watch is set.
	Catalog *catalog.Catalog
	Listen  string
	Watch   bool
	Version string
	Logger  *slog.Logger
}

// NewServer creates a new devtools server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		inspector: cfg.Inspector,
		catalog:   cfg.Catalog,
		listen:    cfg.Listen,
		watch:     cfg.Watch,
		version:   cfg.Version,
		logger:    logger,
		conns:     make(map[*websocket.Conn]struct{}),
	}
}

// Target describes the inspectable target on the /json endpoint.
type Target struct {
	Description          string `json:"description"`
	ID                   string `json:"id"`
	Title                string `json:"title"`
	Type                 string `json:"type"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// VersionInfo is served on /json/version.
type VersionInfo struct {
	Browser         string `json:"Browser"`
	ProtocolVersion string `json:"Protocol-Version"`
}

// Handler returns the HTTP handler serving all endpoints.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(middleware.Recoverer)

	r.Get("/json", s.handleTargets)
	r.Get("/json/list", s.handleTargets)
	r.Get("/json/version", s.handleVersion)
	r.Handle(InspectorPath, websocket.Server{
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler:   s.handleConn,
	})
	return r
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, []Target{{
		Description:          "storelens database inspector",
		ID:                   "storelens",
		Title:                "storelens",
		Type:                 "app",
		WebSocketDebuggerURL: "ws://" + r.Host + InspectorPath,
	}})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, VersionInfo{
		Browser:         "storelens/" + s.version,
		ProtocolVersion: "1.1",
	})
}

func (s *Server) handleConn(ws *websocket.Conn) {
	s.track(ws, true)
	defer s.track(ws, false)

	newPeer(ws, s.logger).serve(ws.Request().Context(), s.inspector)
}

func (s *Server) track(ws *websocket.Conn, open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if open {
		s.conns[ws] = struct{}{}
		return
	}
	delete(s.conns, ws)
	_ = ws.Close()
}

// closeConns closes every open websocket, ending their peer loops.
func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ws := range s.conns {
		_ = ws.Close()
	}
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.listen, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting devtools server", "addr", "http://"+ln.Addr().String()+"/json")

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch && s.catalog != nil {
		eg.Go(func() error {
			return s.catalog.Watch(egctx, s.logger, func(d catalog.Descriptor) {
				s.inspector.Announce(egctx, d)
			})
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down devtools server...")
		s.closeConns()
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
