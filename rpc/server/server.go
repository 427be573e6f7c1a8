// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package server serves miniapi methods over HTTP.
//
// A request names its method in the parameter "method" and may carry
// "params" and "id". The server checks the caller, reads the parameters,
// finds the method in its Registry and calls the handler under a guard
// that captures stray output and recovers panics. The outcome is written
// in one of four modes: jsonrpc2, jsonrpc1, http or html.
package server // import "miniapi.io/rpc/server"

import (
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"miniapi.io/config"
	"miniapi.io/errors"
	"miniapi.io/log"
	"miniapi.io/metric"
	"miniapi.io/serverutil"
)

// Authorizer decides whether the caller at addr may use the server.
type Authorizer interface {
	Allow(addr string) bool
}

// Options configure a Server.
type Options struct {
	Registry *Registry
	Mode     Mode

	// Authorizer screens callers. If nil, only loopback callers are allowed.
	Authorizer Authorizer

	// Rate and Burst limit the requests served per second, across all
	// callers. A zero Rate means no limit.
	Rate  float64
	Burst int

	// Backoff and BackoffMax slow down refused callers: a caller refused
	// again within its backoff is told to retry later, and the backoff
	// doubles up to BackoffMax. A zero Backoff disables this.
	Backoff    time.Duration
	BackoffMax time.Duration
}

// Server is an http.Handler dispatching miniapi requests.
type Server struct {
	registry *Registry
	mode     Mode
	auth     Authorizer
	limiter  *rate.Limiter
	refused  *serverutil.RateLimiter
}

var _ http.Handler = (*Server)(nil)

// New returns a Server configured by opts.
func New(opts Options) (*Server, error) {
	const op errors.Op = "server.New"
	if opts.Registry == nil {
		return nil, errors.E(op, errors.Invalid, errors.Str("nil registry"))
	}
	s := &Server{
		registry: opts.Registry,
		mode:     opts.Mode,
		auth:     opts.Authorizer,
	}
	if s.mode == "" {
		s.mode = ModeHTML
	}
	if s.auth == nil {
		s.auth = &serverutil.AllowList{}
	}
	if opts.Rate > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.Rate), burst)
	}
	if opts.Backoff > 0 {
		s.refused = &serverutil.RateLimiter{Backoff: opts.Backoff, Max: opts.BackoffMax}
	}
	return s, nil
}

// NewFromConfig returns a Server for cfg, which must be validated.
func NewFromConfig(cfg *config.Server) (*Server, error) {
	const op errors.Op = "server.NewFromConfig"
	reg, err := NewRegistry(cfg.Methods)
	if err != nil {
		return nil, errors.E(op, err)
	}
	allow, err := serverutil.NewAllowList(cfg.Allow)
	if err != nil {
		return nil, errors.E(op, err)
	}
	s, err := New(Options{
		Registry:   reg,
		Mode:       Mode(cfg.Mode),
		Authorizer: allow,
		Rate:       cfg.Rate,
		Burst:      cfg.Burst,
		Backoff:    cfg.ClientBackoff,
		BackoffMax: cfg.ClientBackoffMax,
	})
	if err != nil {
		return nil, errors.E(op, err)
	}
	return s, nil
}

// Mode returns the response mode.
func (s *Server) Mode() Mode { return s.mode }

// Registry returns the methods the server dispatches to.
func (s *Server) Registry() *Registry { return s.registry }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m, span := metric.NewSpan("rpc/server.ServeHTTP")
	span.SetKind(metric.Server)
	defer m.Done()

	o := s.serve(w, r, span)
	if o.Kind != KindResult {
		log.Debug.Printf("rpc/server: %s %s: %v", r.RemoteAddr, r.URL.Path, o.Err)
	}
	sp := span.StartSpan("encode")
	err := Encode(w, s.mode, o)
	if errors.Is(errors.Internal, err) {
		// Nothing was written yet.
		log.Error.Printf("rpc/server: %s: %v", r.URL.Path, err)
		err = Encode(w, s.mode, errorOutcome(CodeUnexpectedError, "Unexpected error", nil, o.ID))
	}
	sp.End()
	if err != nil {
		log.Error.Printf("rpc/server: %v", err)
	}
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request, span *metric.Span) Outcome {
	if s.limiter != nil && !s.limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		return errorOutcome(CodeTooManyRequests, "Too Many Requests", nil, nil)
	}
	if !s.auth.Allow(r.RemoteAddr) {
		if s.refused != nil {
			if ok, wait := s.refused.Pass(serverutil.Host(r.RemoteAddr)); !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(wait/time.Second)+1))
				return errorOutcome(CodeTooManyRequests, "Too Many Requests", nil, nil)
			}
		}
		log.Info.Printf("rpc/server: access denied to %s", r.RemoteAddr)
		return errorOutcome(CodeAccessDenied, "Access denied", nil, nil)
	}

	sp := span.StartSpan("read")
	req, err := NewRequest(r)
	sp.End()
	if err != nil {
		return malformedOutcome(CodeInvalidRequest, "Invalid Request", err.Error(), nil)
	}
	sp = span.StartSpan("dispatch")
	defer sp.End()
	return s.Dispatch(req)
}

// Dispatch reads the envelope of req, resolves its method and calls the
// handler. It never panics on behalf of a handler.
func (s *Server) Dispatch(req *Request) Outcome {
	if missing := req.ReadParams([]string{"method"}, []string{"params", "id"}); len(missing) > 0 {
		return malformedOutcome(CodeInvalidRequest, "Invalid Request", nil, nil)
	}
	req.Params, _ = req.Field("params")
	req.ID, _ = req.Field("id")
	method, ok := req.fields["method"].(string)
	if !ok {
		return malformedOutcome(CodeInvalidRequest, "Invalid Request", nil, req.ID)
	}
	req.Method = method

	entry, ok := s.registry.Lookup(method)
	if !ok {
		return malformedOutcome(CodeMethodNotFound, "Method not found", nil, req.ID)
	}
	reply, output, fault := invoke(entry.Handler, req)
	return classify(reply, output, fault, req.ID)
}
