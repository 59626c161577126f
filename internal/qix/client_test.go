// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Daco Labs

package qix

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dacolabs/curate/internal/reconcile"
)

func TestCall(t *testing.T) {
	e := newFakeEngine(t, map[string]handlerFunc{
		"EngineVersion": result(map[string]any{"qVersion": map[string]any{"qComponentVersion": "12.1"}}),
	})
	conn := e.dial(t)

	var res struct {
		Version struct {
			Component string `json:"qComponentVersion"`
		} `json:"qVersion"`
	}
	require.NoError(t, conn.Call(context.Background(), globalHandle, "EngineVersion", nil, &res))
	assert.Equal(t, "12.1", res.Version.Component)

	calls := e.callsTo("EngineVersion")
	require.Len(t, calls, 1)
	assert.Equal(t, -1, calls[0].Handle)
	assert.JSONEq(t, `{}`, string(calls[0].Params))
}

func TestCall_Concurrent(t *testing.T) {
	e := newFakeEngine(t, map[string]handlerFunc{
		"Echo": func(_ int, params json.RawMessage) (any, *RPCError) {
			return json.RawMessage(params), nil
		},
	})
	conn := e.dial(t)

	var wg sync.WaitGroup
	errs := make([]error, 20)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var got struct{ N int }
			errs[i] = conn.Call(context.Background(), 1, "Echo", map[string]any{"N": i}, &got)
			if errs[i] == nil && got.N != i {
				errs[i] = errors.New("response routed to the wrong call")
			}
		}()
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestCall_RPCError(t *testing.T) {
	e := newFakeEngine(t, map[string]handlerFunc{"Broken": fails(-128, "internal error")})
	conn := e.dial(t)

	err := conn.Call(context.Background(), 1, "Broken", nil, nil)
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -128, rpcErr.Code)
	assert.EqualError(t, err, "qix: engine error -128: internal error")
}

func TestCall_ContextCanceled(t *testing.T) {
	block := make(chan struct{})
	e := newFakeEngine(t, map[string]handlerFunc{
		"Slow": func(int, json.RawMessage) (any, *RPCError) {
			<-block
			return nil, nil
		},
	})
	defer close(block)
	conn := e.dial(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := conn.Call(ctx, 1, "Slow", nil, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCall_AfterClose(t *testing.T) {
	e := newFakeEngine(t, nil)
	conn := e.dial(t)
	require.NoError(t, conn.Close())

	<-conn.Done()
	err := conn.Call(context.Background(), 1, "Anything", nil, nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDoc_ObjectNotFound(t *testing.T) {
	e := newFakeEngine(t, map[string]handlerFunc{
		"OpenDoc":    result(handle(1, "Doc", "app")),
		"GetMeasure": result(map[string]any{"qReturn": map[string]any{"qType": "GenericMeasure", "qHandle": nil}}),
		"GetObject":  fails(codeNotFound, "Object not found"),
	})
	doc, err := e.dial(t).Global().OpenDoc(context.Background(), "app")
	require.NoError(t, err)

	_, err = doc.GetMeasure(context.Background(), "missing")
	assert.ErrorIs(t, err, reconcile.ErrNotFound)

	_, err = doc.GetObject(context.Background(), "missing")
	assert.ErrorIs(t, err, reconcile.ErrNotFound)

	var rpcErr *RPCError
	assert.ErrorAs(t, err, &rpcErr)
}
