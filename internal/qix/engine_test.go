// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package qix

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// handlerFunc answers one engine method. A non-nil RPCError is sent as the
// response's error member.
type handlerFunc func(handle int, params json.RawMessage) (any, *RPCError)

type call struct {
	Handle int
	Method string
	Params json.RawMessage
}

// fakeEngine is a WebSocket server speaking the engine's JSON-RPC dialect.
type fakeEngine struct {
	srv *httptest.Server

	mu       sync.Mutex
	handlers map[string]handlerFunc
	calls    []call
	paths    []string
}

func newFakeEngine(t *testing.T, handlers map[string]handlerFunc) *fakeEngine {
	t.Helper()
	e := &fakeEngine{handlers: handlers}
	upgrader := websocket.Upgrader{}
	e.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.mu.Lock()
		e.paths = append(e.paths, r.URL.Path)
		e.mu.Unlock()

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close() //nolint:errcheck

		_ = ws.WriteJSON(map[string]any{
			"jsonrpc": "2.0",
			"method":  "OnConnected",
			"params":  map[string]any{"qSessionState": "SESSION_CREATED"},
		})
		for {
			var req request
			if err := ws.ReadJSON(&req); err != nil {
				return
			}
			params, _ := json.Marshal(req.Params)

			e.mu.Lock()
			e.calls = append(e.calls, call{Handle: req.Handle, Method: req.Method, Params: params})
			h := e.handlers[req.Method]
			e.mu.Unlock()

			resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
			if h == nil {
				resp["error"] = &RPCError{Code: -1, Parameter: req.Method, Message: "unknown method"}
			} else if result, rpcErr := h(req.Handle, params); rpcErr != nil {
				resp["error"] = rpcErr
			} else {
				resp["result"] = result
			}
			if err := ws.WriteJSON(resp); err != nil {
				return
			}
		}
	}))
	t.Cleanup(e.srv.Close)
	return e
}

func (e *fakeEngine) url() string {
	return "ws" + strings.TrimPrefix(e.srv.URL, "http")
}

func (e *fakeEngine) dial(t *testing.T) *Conn {
	t.Helper()
	conn, err := Dial(context.Background(), e.url()+"/app/main", DialOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (e *fakeEngine) callsTo(method string) []call {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []call
	for _, c := range e.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (e *fakeEngine) requestPaths() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.paths...)
}

func handle(h int, typ, id string) map[string]any {
	return map[string]any{"qReturn": map[string]any{"qType": typ, "qHandle": h, "qGenericId": id}}
}

func result(v any) handlerFunc {
	return func(int, json.RawMessage) (any, *RPCError) { return v, nil }
}

func fails(code int, msg string) handlerFunc {
	return func(int, json.RawMessage) (any, *RPCError) {
		return nil, &RPCError{Code: code, Message: msg}
	}
}
