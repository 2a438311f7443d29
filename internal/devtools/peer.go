package devtools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/leapstack-labs/storelens/internal/inspector"
)

// peer is one websocket connection. It implements inspector.Peer.
type peer struct {
	id      string
	ws      *websocket.Conn
	logger  *slog.Logger
	writeMu sync.Mutex
}

func newPeer(ws *websocket.Conn, logger *slog.Logger) *peer {
	id := uuid.NewString()
	return &peer{id: id, ws: ws, logger: logger.With("peer", id)}
}

func (p *peer) ID() string { return p.id }

// Notify sends a notification (a message without ID).
func (p *peer) Notify(_ context.Context, method string, params any) error {
	msg := Message{Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal %s params: %w", method, err)
		}
		msg.Params = raw
	}
	return p.write(&msg)
}

func (p *peer) respond(id *json.RawMessage, result any, rpcErr *Error) error {
	msg := Message{ID: id}
	if rpcErr != nil {
		msg.Error = rpcErr
	} else {
		raw, err := json.Marshal(result)
		if err != nil {
			msg.Error = &Error{Code: CodeServerError, Message: err.Error()}
		} else {
			msg.Result = raw
		}
	}
	return p.write(&msg)
}

func (p *peer) write(msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return websocket.Message.Send(p.ws, string(body))
}

// serve reads requests until the connection closes, then disables the peer.
func (p *peer) serve(ctx context.Context, insp *inspector.Inspector) {
	defer insp.Disable(p)
	p.logger.Debug("peer connected")

	for {
		var body []byte
		if err := websocket.Message.Receive(p.ws, &body); err != nil {
			if !errors.Is(err, io.EOF) {
				p.logger.Debug("read failed", "error", err)
			}
			p.logger.Debug("peer disconnected")
			return
		}

		var msg Message
		if err := json.Unmarshal(body, &msg); err != nil {
			if err := p.respond(nil, nil, &Error{Code: CodeParseError, Message: err.Error()}); err != nil {
				return
			}
			continue
		}

		result, rpcErr := dispatch(ctx, insp, p, &msg)
		if msg.ID == nil {
			continue
		}
		if err := p.respond(msg.ID, result, rpcErr); err != nil {
			p.logger.Debug("write failed", "error", err)
			return
		}
	}
}
