package devtools

import (
	"context"
	"encoding/json"

	"github.com/leapstack-labs/storelens/internal/inspector"
)

type handlerFunc func(ctx context.Context, insp *inspector.Inspector, p *peer, params json.RawMessage) (any, *Error)

var handlers = map[string]handlerFunc{
	inspector.MethodEnable:                handleEnable,
	inspector.MethodDisable:               handleDisable,
	inspector.MethodGetDatabaseTableNames: handleGetDatabaseTableNames,
	inspector.MethodExecuteSQL:            handleExecuteSQL,
}

// dispatch routes a request to its handler.
func dispatch(ctx context.Context, insp *inspector.Inspector, p *peer, msg *Message) (any, *Error) {
	p.logger.Debug("received", "method", msg.Method)

	h, ok := handlers[msg.Method]
	if !ok {
		return nil, &Error{Code: CodeMethodNotFound, Message: "Method not found: " + msg.Method}
	}
	return h(ctx, insp, p, msg.Params)
}

func handleEnable(ctx context.Context, insp *inspector.Inspector, p *peer, _ json.RawMessage) (any, *Error) {
	if err := insp.Enable(ctx, p); err != nil {
		return nil, &Error{Code: CodeServerError, Message: err.Error()}
	}
	return inspector.EnableResponse{}, nil
}

func handleDisable(_ context.Context, insp *inspector.Inspector, p *peer, _ json.RawMessage) (any, *Error) {
	insp.Disable(p)
	return inspector.EnableResponse{}, nil
}

func handleGetDatabaseTableNames(ctx context.Context, insp *inspector.Inspector, _ *peer, params json.RawMessage) (any, *Error) {
	var req inspector.GetDatabaseTableNamesRequest
	if rpcErr := decodeParams(params, &req); rpcErr != nil {
		return nil, rpcErr
	}
	if req.DatabaseID == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "missing databaseId"}
	}

	resp, err := insp.GetDatabaseTableNames(ctx, req)
	if err != nil {
		return nil, &Error{Code: CodeServerError, Message: err.Error()}
	}
	return resp, nil
}

func handleExecuteSQL(ctx context.Context, insp *inspector.Inspector, _ *peer, params json.RawMessage) (any, *Error) {
	var req inspector.ExecuteSQLRequest
	if rpcErr := decodeParams(params, &req); rpcErr != nil {
		return nil, rpcErr
	}
	if req.DatabaseID == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "missing databaseId"}
	}
	return insp.ExecuteSQL(ctx, req), nil
}

func decodeParams(params json.RawMessage, v any) *Error {
	if len(params) == 0 {
		return &Error{Code: CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(params, v); err != nil {
		return &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	return nil
}
