// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Miniapiserver serves the methods enabled in its configuration file.
//
// The configuration is YAML, for example:
//
//	mode: jsonrpc2
//	path: /api
//	allow: [127.0.0.1, 192.168.1.0/24]
//	methods:
//	  test: example
//	  sum: example
//
// By default it serves HTTPS on localhost:443; use -http to serve plain
// HTTP instead.
package main // import "miniapi.io/cmd/miniapiserver"

import (
	"fmt"
	"net/http"
	"os"

	"github.com/NYTimes/gziphandler"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"miniapi.io/cloud/https"
	"miniapi.io/config"
	"miniapi.io/errors"
	"miniapi.io/flags"
	"miniapi.io/log"
	"miniapi.io/metric"
	"miniapi.io/rpc/server"
	"miniapi.io/version"

	// Load the method sources named in configurations.
	_ "miniapi.io/rpc/server/example"
)

func main() {
	flags.Parse()
	if flags.Version() {
		fmt.Fprint(os.Stdout, version.Version())
		os.Exit(2)
	}

	cfg, err := config.ServerFromFile(flags.Config())
	if err != nil {
		log.Fatalf("miniapiserver: %v", err)
	}
	if flags.Debug() {
		log.SetLevel("debug")
		metric.RegisterSaver(metric.NewLogSaver())
	}
	h, err := newHandler(cfg)
	if err != nil {
		log.Fatalf("miniapiserver: %v", err)
	}
	log.Info.Printf("miniapiserver: serving %d methods at %s in %s mode", len(cfg.Methods), cfg.Path, cfg.Mode)

	opt := https.OptionsFromFlags()
	opt.Handler = h
	https.ListenAndServe(nil, opt)
}

// newHandler returns the HTTP handler for cfg: the dispatcher at
// cfg.Path, behind request logging, panic recovery and, if configured,
// response compression.
func newHandler(cfg *config.Server) (http.Handler, error) {
	const op errors.Op = "miniapiserver.newHandler"
	s, err := server.NewFromConfig(cfg)
	if err != nil {
		return nil, errors.E(op, err)
	}

	r := chi.NewRouter()
	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: log.Debug, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Use(middleware.Heartbeat("/ping"))
	if cfg.Gzip {
		r.Use(gziphandler.GzipHandler)
	}
	r.Handle(cfg.Path, s)
	return r, nil
}
