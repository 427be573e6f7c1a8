// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"miniapi.io/errors"
	"miniapi.io/log"
	"miniapi.io/metric"
)

// State is the position of an Engine in its life cycle.
// An engine moves only forward: Built, AwaitingTransport, Normalized, Done.
type State int

// Engine states.
const (
	Built State = iota
	AwaitingTransport
	Normalized
	Done
)

func (s State) String() string {
	switch s {
	case Built:
		return "built"
	case AwaitingTransport:
		return "awaiting transport"
	case Normalized:
		return "normalized"
	case Done:
		return "done"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrCallState reports an Engine method called out of order.
var ErrCallState = errors.E(errors.Internal, errors.Str("call engine used out of order"))

// Engine carries one call from its Request to its Response in two steps.
// Prepare turns the Request into an *http.Request for a Transport;
// Complete takes what the transport got back and normalizes it.
// Close releases what Prepare opened. The same engine serves synchronous
// and asynchronous strategies; an Engine must not be used concurrently.
type Engine struct {
	c     *Client
	req   *Request
	slot  string
	state State
	url   string
	resp  *Response

	cleanup []func()
}

func newEngine(c *Client, req *Request, slot string) *Engine {
	return &Engine{c: c, req: req, slot: slot}
}

// State returns the current state.
func (e *Engine) State() State { return e.state }

// Slot returns the slot name of the call, if any.
func (e *Engine) Slot() string { return e.slot }

// URL returns the final URL, known once Prepare has succeeded.
func (e *Engine) URL() string { return e.url }

func (e *Engine) onClose(f func()) {
	e.cleanup = append(e.cleanup, f)
}

func (e *Engine) release() {
	for i := len(e.cleanup) - 1; i >= 0; i-- {
		e.cleanup[i]()
	}
	e.cleanup = nil
}

// Prepare assembles the final URL, runs the client's hook on it, opens
// and compresses any upload and returns the transport-ready request.
// If Prepare fails the engine is Done.
func (e *Engine) Prepare(ctx context.Context) (*http.Request, error) {
	const op errors.Op = "rpc.Prepare"
	if e.state != Built {
		return nil, errors.E(op, ErrCallState)
	}

	c := e.c
	c.mu.Lock()
	base := c.ep.String()
	header := c.header.Clone()
	hook := c.hook
	debug := c.debug
	buffered := c.buffered
	c.mu.Unlock()

	u := e.req.URL
	if u == "" {
		u = base
	}
	if q := e.req.Params.Encode(); q != "" {
		u += "?" + q
	}
	if hook != nil {
		u = hook(u, c)
	}
	e.url = u

	method := strings.ToUpper(e.req.Method)
	if method == "" {
		method = http.MethodGet
	}
	if debug != nil {
		fmt.Fprintf(debug, "%s->%s\n", method, u)
		if e.req.File != "" {
			fmt.Fprintf(debug, "file: %s\n", e.req.File)
		}
	}

	body, bodyHeader, length, err := e.body(method, buffered)
	if err != nil {
		e.fail()
		return nil, errors.E(op, err)
	}
	hreq, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		e.fail()
		return nil, errors.E(op, errors.Invalid, err)
	}
	if length > 0 {
		hreq.ContentLength = length
	}
	for _, h := range []http.Header{header, bodyHeader, e.req.Header} {
		for k, v := range h {
			hreq.Header[k] = v
		}
	}
	e.state = AwaitingTransport
	return hreq, nil
}

func (e *Engine) fail() {
	e.release()
	e.state = Done
}

// body returns the request body for method, the headers describing it
// and its length if known.
func (e *Engine) body(method string, buffered bool) (io.Reader, http.Header, int64, error) {
	if method != http.MethodPost && method != http.MethodPut {
		return nil, nil, 0, nil
	}
	h := make(http.Header)
	switch {
	case e.req.File != "" && method == http.MethodPut:
		r, n, err := e.gzipFile(e.req.File, buffered)
		if err != nil {
			return nil, nil, 0, err
		}
		h.Set("Content-Type", "application/x-www-form-urlencoded")
		h.Set("Content-Encoding", "gzip")
		return r, h, n, nil
	case e.req.File != "":
		r, ctype, err := e.multipart(e.req.Form, e.req.File)
		if err != nil {
			return nil, nil, 0, err
		}
		h.Set("Content-Type", ctype)
		return r, h, 0, nil
	case e.req.Form != nil:
		h.Set("Content-Type", "application/x-www-form-urlencoded")
		return strings.NewReader(e.req.Form.Encode()), h, 0, nil
	default:
		h.Set("Content-Type", "application/x-www-form-urlencoded")
		return strings.NewReader(e.req.Body), h, 0, nil
	}
}

// Complete normalizes the outcome of the transport, records it as the
// client's last call and returns the Response.
func (e *Engine) Complete(out RawOutcome) (*Response, error) {
	const op errors.Op = "rpc.Complete"
	if e.state != AwaitingTransport {
		return nil, errors.E(op, ErrCallState)
	}
	resp := normalize(e.url, out)
	e.c.mu.Lock()
	e.c.lastCode = out.Code
	e.c.lastErr = out.Err
	e.c.mu.Unlock()

	e.resp = resp
	e.state = Normalized
	return resp, nil
}

// Close releases the resources of the call and echoes the response if
// the client is in debug mode. Close may be called in any state but Done.
func (e *Engine) Close() error {
	const op errors.Op = "rpc.Close"
	if e.state == Done {
		return errors.E(op, ErrCallState)
	}
	e.release()
	e.state = Done

	e.c.mu.Lock()
	debug := e.c.debug
	e.c.mu.Unlock()
	if debug != nil && e.resp != nil {
		fmt.Fprintf(debug, "HTTP %d %s\n\n%s\n", e.resp.Code, e.resp.TransportErr, e.resp.Body)
	}
	return nil
}

// run takes e from Built to Done using t.
func run(ctx context.Context, e *Engine, t Transport) (*Response, error) {
	m, span := metric.NewSpan("rpc.call")
	span.SetKind(metric.Client)
	if e.slot != "" {
		span.SetAnnotation(e.slot)
	}
	defer m.Done()

	s := span.StartSpan("prepare")
	hreq, err := e.Prepare(ctx)
	s.End()
	if err != nil {
		return nil, err
	}

	s = span.StartSpan("transport")
	out := t.Execute(ctx, hreq)
	s.End()

	resp, err := e.Complete(out)
	if cerr := e.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	log.Debug.Printf("rpc: %s %s: %d %s", hreq.Method, e.url, resp.Code, resp.TransportErr)
	return resp, resp.Err()
}
