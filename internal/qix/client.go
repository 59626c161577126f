// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

// Package qix is a JSON-RPC client for the analytics engine's WebSocket API.
// It adapts an open document to the definition store, catalog source and file
// browser used by the rest of curate, and opens scratch session apps for file
// imports.
package qix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrClosed is returned by calls made on, or pending on, a closed connection.
var ErrClosed = errors.New("qix: connection closed")

// globalHandle addresses the engine itself.
const globalHandle = -1

// codeNotFound is the engine's "object not found" error code.
const codeNotFound = 2

// RPCError is an error object returned by the engine.
type RPCError struct {
	Code      int    `json:"code"`
	Parameter string `json:"parameter"`
	Message   string `json:"message"`
}

func (e *RPCError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Parameter
	} else if e.Parameter != "" {
		msg = e.Parameter + ": " + msg
	}
	return fmt.Sprintf("qix: engine error %d: %s", e.Code, msg)
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Handle  int    `json:"handle"`
	Params  any    `json:"params"`
}

type response struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// Conn is one WebSocket session with the engine. Calls may be made from
// multiple goroutines; responses are matched to calls by request id.
type Conn struct {
	ws *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan response
	err     error

	done      chan struct{}
	closeOnce sync.Once
}

// DialOptions configures Dial.
type DialOptions struct {
	// Header is sent with the WebSocket handshake (authentication, cookies).
	Header http.Header

	// HandshakeTimeout defaults to 30 seconds.
	HandshakeTimeout time.Duration
}

// Dial opens a session with the engine at url.
func Dial(ctx context.Context, url string, opts DialOptions) (*Conn, error) {
	timeout := opts.HandshakeTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}

	ws, resp, err := dialer.DialContext(ctx, url, opts.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("qix: dial %s: %w (status %s)", url, err, resp.Status)
		}
		return nil, fmt.Errorf("qix: dial %s: %w", url, err)
	}
	return newConn(ws), nil
}

func newConn(ws *websocket.Conn) *Conn {
	c := &Conn{
		ws:      ws,
		pending: make(map[int64]chan response),
		done:    make(chan struct{}),
	}
	go c.read()
	return c
}

// Global returns the engine's global handle.
func (c *Conn) Global() *Global {
	return &Global{c: c}
}

// Call invokes method on the object behind handle. params is encoded as the
// request's params member; result, if not nil, receives the response's result
// member.
func (c *Conn) Call(ctx context.Context, handle int, method string, params, result any) error {
	if params == nil {
		params = map[string]any{}
	}
	ch := make(chan response, 1)

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return err
	}
	c.nextID++
	id := c.nextID
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.write(ctx, request{JSONRPC: "2.0", ID: id, Method: method, Handle: handle, Params: params}); err != nil {
		c.forget(id)
		return fmt.Errorf("qix: send %s: %w", method, err)
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if result == nil || len(resp.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("qix: decode %s result: %w", method, err)
		}
		return nil
	case <-ctx.Done():
		c.forget(id)
		return ctx.Err()
	case <-c.done:
		return c.closedErr()
	}
}

func (c *Conn) write(ctx context.Context, req request) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteJSON(req)
}

func (c *Conn) forget(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// read dispatches responses until the socket fails. Messages without an id
// are engine notifications and are dropped.
func (c *Conn) read() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.fail(err)
			return
		}
		var resp response
		if err := json.Unmarshal(data, &resp); err != nil || resp.ID == 0 {
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

func (c *Conn) fail(err error) {
	c.mu.Lock()
	if c.err == nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			c.err = ErrClosed
		} else {
			c.err = fmt.Errorf("%w: %v", ErrClosed, err)
		}
	}
	c.pending = map[int64]chan response{}
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Conn) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		return ErrClosed
	}
	return c.err
}

// Done is closed once the connection stops reading.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close closes the session. Pending calls fail with ErrClosed.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.err == nil {
		c.err = ErrClosed
	}
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	err := c.ws.Close()
	c.closeOnce.Do(func() { close(c.done) })
	return err
}
