// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpc

import (
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"miniapi.io/errors"
)

// Transport executes prepared requests. Execute never fails: a transport
// error is reported in the outcome, with a zero Code.
type Transport interface {
	Execute(ctx context.Context, req *http.Request) RawOutcome
}

// RawOutcome is what a Transport got back for one request.
type RawOutcome struct {
	Code int
	Err  string
	Body []byte
	Info Info
}

// Info holds details of an exchange.
type Info struct {
	ContentType string

	// HeaderSize is the size of the response status line and headers.
	HeaderSize int

	// SizeDownload is the number of body bytes received, before
	// decompression. SizeUpload is the number of body bytes sent.
	SizeDownload int64
	SizeUpload   int64

	// RequestHeader holds the headers that were sent.
	RequestHeader http.Header
}

// TransportConfig configures an HTTPTransport.
type TransportConfig struct {
	UserAgent string

	// Insecure skips verification of server certificates.
	Insecure bool

	// ConnectTimeout limits connecting; Timeout limits the whole exchange.
	// Zero means no limit.
	ConnectTimeout time.Duration
	Timeout        time.Duration

	// HTTP2 allows HTTP/2 over TLS. Otherwise HTTP/1.1 is used.
	HTTP2 bool
}

// DefaultTransportConfig returns the configuration used by NewClient.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		UserAgent: "miniapi-go",
		Insecure:  true,
		Timeout:   99999 * time.Millisecond,
	}
}

// HTTPTransport is a Transport using net/http.
type HTTPTransport struct {
	client    *http.Client
	userAgent string
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport returns a Transport configured by cfg.
func NewHTTPTransport(cfg TransportConfig) (*HTTPTransport, error) {
	const op errors.Op = "rpc.NewHTTPTransport"
	t := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.Insecure},
		// The following values are the same as
		// net/http.DefaultTransport.
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if cfg.HTTP2 {
		if err := http2.ConfigureTransport(t); err != nil {
			return nil, errors.E(op, err)
		}
	} else {
		// A non-nil empty map disables HTTP/2.
		t.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	}
	return &HTTPTransport{
		client:    &http.Client{Transport: t, Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
	}, nil
}

// Execute implements Transport. A gzip-encoded response is decoded,
// since the client asks for gzip explicitly.
func (t *HTTPTransport) Execute(ctx context.Context, req *http.Request) RawOutcome {
	if req.Header.Get("User-Agent") == "" && t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	var sent counter
	if req.Body != nil && req.Body != http.NoBody {
		req.Body = &countingReadCloser{ReadCloser: req.Body, n: &sent}
	}
	out := RawOutcome{Info: Info{RequestHeader: req.Header.Clone()}}

	resp, err := t.client.Do(req.WithContext(ctx))
	out.Info.SizeUpload = int64(sent)
	if err != nil {
		out.Err = err.Error()
		return out
	}
	defer resp.Body.Close()

	out.Code = resp.StatusCode
	out.Info.ContentType = resp.Header.Get("Content-Type")
	out.Info.HeaderSize = headerSize(resp)

	var received counter
	var body io.Reader = io.TeeReader(resp.Body, &received)
	if resp.Header.Get("Content-Encoding") == "gzip" && !resp.Uncompressed {
		zr, err := gzip.NewReader(body)
		if err != nil {
			out.Err = fmt.Sprintf("decoding gzip response: %v", err)
			return out
		}
		defer zr.Close()
		body = zr
	}
	out.Body, err = ioutil.ReadAll(body)
	out.Info.SizeDownload = int64(received)
	if err != nil {
		out.Err = err.Error()
	}
	return out
}

// headerSize estimates the size of the status line and headers as received.
func headerSize(resp *http.Response) int {
	var n counter
	fmt.Fprintf(&n, "%s %s\r\n", resp.Proto, resp.Status)
	resp.Header.Write(&n)
	return int(n) + 2
}

// counter is an io.Writer that counts the bytes written to it.
type counter int64

func (c *counter) Write(p []byte) (int, error) {
	*c += counter(len(p))
	return len(p), nil
}

type countingReadCloser struct {
	io.ReadCloser
	n *counter
}

func (r *countingReadCloser) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	*r.n += counter(n)
	return n, err
}
