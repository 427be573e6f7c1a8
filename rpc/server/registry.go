// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"fmt"
	"sort"
	"sync"

	"miniapi.io/errors"
)

// Handler serves one method. It reads its parameters from req and
// returns either a result or an error. Anything it writes to req.Stdout
// spoils the result.
type Handler func(req *Request) Reply

// Reply is what a Handler returns. A Reply with neither a Result nor an
// Error with a message is an incorrect result.
type Reply struct {
	Result interface{} `json:"result,omitempty"`
	Error  *Error      `json:"error,omitempty"`
}

// Error is an error reported to the caller.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("%d %s: %v", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}

var (
	sourcesMu sync.RWMutex
	sources   = make(map[string]map[string]Handler)
)

// RegisterSource makes the methods implemented by a package available
// under the source name used in server configurations. It is typically
// called from an init function. Registering the same name twice is an
// error.
func RegisterSource(name string, methods map[string]Handler) error {
	const op errors.Op = "server.RegisterSource"
	sourcesMu.Lock()
	defer sourcesMu.Unlock()
	if _, ok := sources[name]; ok {
		return errors.E(op, errors.Invalid, errors.Errorf("source %q already registered", name))
	}
	m := make(map[string]Handler, len(methods))
	for method, h := range methods {
		if h == nil {
			return errors.E(op, errors.Invalid, errors.Errorf("nil handler for %s.%s", name, method))
		}
		m[method] = h
	}
	sources[name] = m
	return nil
}

// Entry is a method enabled in a Registry.
type Entry struct {
	Method  string
	Source  string
	Handler Handler
}

// Registry maps enabled method names to their handlers.
// It is not modified after NewRegistry returns.
type Registry struct {
	entries map[string]Entry
}

// NewRegistry enables each method in methods, a map from method name to
// the source that implements it.
func NewRegistry(methods map[string]string) (*Registry, error) {
	const op errors.Op = "server.NewRegistry"
	sourcesMu.RLock()
	defer sourcesMu.RUnlock()
	r := &Registry{entries: make(map[string]Entry, len(methods))}
	for method, source := range methods {
		src, ok := sources[source]
		if !ok {
			return nil, errors.E(op, errors.NotExist, errors.Errorf("unknown source %q for method %q", source, method))
		}
		h, ok := src[method]
		if !ok {
			return nil, errors.E(op, errors.NotExist, errors.Errorf("source %q has no method %q", source, method))
		}
		r.entries[method] = Entry{Method: method, Source: source, Handler: h}
	}
	return r, nil
}

// Lookup returns the entry for method.
func (r *Registry) Lookup(method string) (Entry, bool) {
	e, ok := r.entries[method]
	return e, ok
}

// Methods returns the enabled method names in sorted order.
func (r *Registry) Methods() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
