// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package https provides a helper for starting an HTTPS server.
package https // import "miniapi.io/cloud/https"

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/net/http2"
	"golang.org/x/net/netutil"

	"miniapi.io/errors"
	"miniapi.io/flags"
	"miniapi.io/log"
	"miniapi.io/serverutil"
	"miniapi.io/shutdown"
)

// drainPeriod bounds the time spent waiting for in-flight calls on shutdown.
const drainPeriod = shutdown.GracePeriod / 2

// Options configures the server started by Serve and ListenAndServe.
type Options struct {
	// Addr specifies the host and port on which the server should serve
	// HTTPS requests (or HTTP requests if InsecureHTTP is set).
	// If empty, ":443" is used. Serve replaces it with the address
	// actually bound before closing the ready channel.
	Addr string

	// HTTPAddr specifies the host and port on which the server answers
	// Let's Encrypt challenges. If empty, ":80" is used.
	HTTPAddr string

	// LetsEncryptCache specifies the cache directory for Let's Encrypt.
	// If non-empty and no certificate files are given, enables Let's
	// Encrypt certificates for this server.
	LetsEncryptCache string

	// LetsEncryptHosts specifies the list of hosts for which we should
	// obtain TLS certificates through Let's Encrypt.
	LetsEncryptHosts []string

	// CertFile and KeyFile specify the TLS certificates to use.
	CertFile string
	KeyFile  string

	// InsecureHTTP specifies whether to serve insecure HTTP without TLS.
	// An error occurs if this is attempted with a non-loopback address
	// unless AllowInsecure is also set.
	InsecureHTTP  bool
	AllowInsecure bool

	// MaxConns limits the number of simultaneous connections.
	// Zero means no limit.
	MaxConns int

	// Handler serves the requests. If nil, http.DefaultServeMux is used.
	Handler http.Handler
}

// OptionsFromFlags returns Options derived from the command-line flags present
// in the miniapi.io/flags package. The -http flag, when set, selects
// insecure HTTP on that address.
func OptionsFromFlags() *Options {
	opt := &Options{
		Addr:             flags.Https(),
		LetsEncryptCache: flags.Letscache(),
		CertFile:         flags.TlsCert(),
		KeyFile:          flags.TlsKey(),
		AllowInsecure:    flags.Insecure(),
		MaxConns:         flags.MaxConns(),
	}
	if host := serverutil.Host(opt.Addr); host != "" {
		opt.LetsEncryptHosts = []string{host}
	}
	if addr := flags.Http(); addr != "" {
		opt.Addr = addr
		opt.InsecureHTTP = true
	}
	return opt
}

func (opt *Options) applyDefaults() {
	if opt.Addr == "" {
		opt.Addr = ":443"
	}
	if opt.HTTPAddr == "" {
		opt.HTTPAddr = ":80"
	}
	if opt.Handler == nil {
		opt.Handler = http.DefaultServeMux
	}
}

// ListenAndServe serves opt.Handler by HTTPS (or plain HTTP) until the
// process is asked to shut down.
//
// The given channel, if any, is closed when the TCP listener has succeeded.
// It may be used to signal that the server is ready to start serving requests.
//
// ListenAndServe does not return. It drains in-flight requests when the
// process receives SIGTERM and exits the program via shutdown.Now.
func ListenAndServe(ready chan<- struct{}, opt *Options) {
	done := make(chan struct{})
	shutdown.Handle(func() { <-done })
	err := Serve(shutdown.Context(), ready, opt)
	close(done)
	if err != http.ErrServerClosed {
		log.Error.Printf("https: %v", err)
	}
	shutdown.Now(1)
}

// Serve is like ListenAndServe but returns when ctx is canceled, after
// the in-flight requests have completed. The error is http.ErrServerClosed
// after a clean stop.
func Serve(ctx context.Context, ready chan<- struct{}, opt *Options) error {
	const op errors.Op = "https.Serve"
	if opt == nil {
		opt = &Options{}
	}
	opt.applyDefaults()

	var manager autocert.Manager
	manager.Prompt = autocert.AcceptTOS
	if h := opt.LetsEncryptHosts; len(h) > 0 {
		manager.HostPolicy = autocert.HostWhitelist(h...)
	}

	addr := opt.Addr
	var config *tls.Config
	switch {
	case opt.InsecureHTTP:
		log.Info.Printf("https: serving insecure HTTP on %q", addr)
		if !serverutil.IsLoopback(addr) {
			if !opt.AllowInsecure {
				return errors.E(op, errors.Invalid, errors.Errorf("refusing insecure HTTP on non-loopback address %q", addr))
			}
			log.Error.Printf("https: WARNING: serving insecure HTTP on non-loopback address %q", addr)
		}
	case opt.CertFile != "" || opt.KeyFile != "":
		log.Info.Printf("https: serving HTTPS on %q using provided certificates", addr)
		var err error
		config, err = newDefaultTLSConfig(opt.CertFile, opt.KeyFile)
		if err != nil {
			return errors.E(op, err)
		}
	case opt.LetsEncryptCache != "":
		dir := opt.LetsEncryptCache
		log.Info.Printf("https: serving HTTPS on %q using Let's Encrypt certificates", addr)
		log.Info.Printf("https: caching Let's Encrypt certificates in %v", dir)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return errors.E(op, errors.IO, errors.Errorf("could not create Let's Encrypt cache: %v", err))
		}
		manager.Cache = autocert.DirCache(dir)
		config = &tls.Config{GetCertificate: manager.GetCertificate}
	default:
		return errors.E(op, errors.Invalid, errors.Str("no TLS certificates: need certificate files, a Let's Encrypt cache or insecure HTTP"))
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.E(op, errors.IO, err)
	}
	opt.Addr = ln.Addr().String()
	if opt.MaxConns > 0 {
		ln = netutil.LimitListener(ln, opt.MaxConns)
	}

	httpLogger := log.NewStdLogger(log.Info)
	servers := []*http.Server{}
	errc := make(chan error, 2)
	if manager.Cache != nil {
		// If we're using LetsEncrypt then we need to serve the http-01
		// challenge by plain HTTP. We also serve a redirect to HTTPS
		// for all other requests.
		httpLn, err := net.Listen("tcp", opt.HTTPAddr)
		if err != nil {
			ln.Close()
			return errors.E(op, errors.IO, err)
		}
		httpServer := &http.Server{
			Handler:           manager.HTTPHandler(nil),
			ReadHeaderTimeout: 5 * time.Second,
			ErrorLog:          httpLogger,
		}
		servers = append(servers, httpServer)
		go func() { errc <- httpServer.Serve(httpLn) }()
	}

	server := &http.Server{
		Handler:           opt.Handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Uploads may be large and slow; handlers bound their own work.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
		TLSConfig:    config,
		ErrorLog:     httpLogger,
	}
	servers = append(servers, server)

	// If we're serving HTTPS then wrap the listener with a TLS listener
	// that offers HTTP/2.
	if !opt.InsecureHTTP {
		if err := http2.ConfigureServer(server, nil); err != nil {
			ln.Close()
			return errors.E(op, err)
		}
		ln = tls.NewListener(ln, server.TLSConfig)
	}

	if ready != nil {
		// Notify the calling packages that
		// we're ready to accept requests.
		close(ready)
	}

	go func() { errc <- server.Serve(ln) }()

	select {
	case err = <-errc:
	case <-ctx.Done():
		err = http.ErrServerClosed
	}
	dctx, cancel := context.WithTimeout(context.Background(), drainPeriod)
	defer cancel()
	for _, s := range servers {
		if serr := s.Shutdown(dctx); serr != nil {
			log.Error.Printf("https: shutdown: %v", serr)
		}
	}
	return err
}

// newDefaultTLSConfig creates a new TLS config based on the certificate files given.
func newDefaultTLSConfig(certFile string, certKeyFile string) (*tls.Config, error) {
	const op errors.Op = "https.newDefaultTLSConfig"
	for _, f := range []string{certFile, certKeyFile} {
		readable, err := isReadableFile(f)
		if err != nil {
			return nil, errors.E(op, errors.Invalid, errors.Errorf("TLS file %q: %v", f, err))
		}
		if !readable {
			return nil, errors.E(op, errors.NotExist, errors.Errorf("TLS file %q does not exist", f))
		}
	}

	cert, err := tls.LoadX509KeyPair(certFile, certKeyFile)
	if err != nil {
		return nil, errors.E(op, errors.Invalid, err)
	}

	return &tls.Config{
		MinVersion:       tls.VersionTLS12,
		CurvePreferences: []tls.CurveID{tls.X25519, tls.CurveP256, tls.CurveP384},
		Certificates:     []tls.Certificate{cert},
	}, nil
}

// isReadableFile reports whether the file exists and is readable.
// If the error is non-nil, it means there might be a file or directory
// with that name but we cannot read it.
func isReadableFile(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil // Item does not exist.
		}
		return false, err // Item is problematic.
	}
	if info.IsDir() {
		return false, errors.Str("is directory")
	}
	fd, err := os.Open(path)
	if err != nil {
		return false, errors.E(errors.Permission, err)
	}
	fd.Close()
	return true, nil // Item exists and is readable.
}
