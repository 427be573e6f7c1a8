// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package https

import (
	"context"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"miniapi.io/errors"
)

func TestServeInsecureLoopback(t *testing.T) {
	opt := &Options{
		Addr:         "127.0.0.1:0",
		InsecureHTTP: true,
		MaxConns:     4,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("pong"))
		}),
	}
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	errc := make(chan error, 1)
	go func() { errc <- Serve(ctx, ready, opt) }()

	select {
	case <-ready:
	case err := <-errc:
		t.Fatal(err)
	case <-time.After(10 * time.Second):
		t.Fatal("server not ready")
	}

	resp, err := http.Get("http://" + opt.Addr + "/")
	if err != nil {
		t.Fatal(err)
	}
	body, err := ioutil.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "pong" {
		t.Errorf("body = %q; want pong", body)
	}

	cancel()
	select {
	case err := <-errc:
		if err != http.ErrServerClosed {
			t.Errorf("Serve = %v; want %v", err, http.ErrServerClosed)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServeRefusesInsecureRemote(t *testing.T) {
	err := Serve(context.Background(), nil, &Options{Addr: "8.8.8.8:80", InsecureHTTP: true})
	if !errors.Is(errors.Invalid, err) {
		t.Errorf("got %v; want Invalid error", err)
	}
}

func TestServeNeedsCertificates(t *testing.T) {
	err := Serve(context.Background(), nil, &Options{Addr: "127.0.0.1:0"})
	if !errors.Is(errors.Invalid, err) {
		t.Errorf("got %v; want Invalid error", err)
	}
}

func TestTLSConfigMissingFiles(t *testing.T) {
	dir, err := ioutil.TempDir("", "miniapi-https")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	_, err = newDefaultTLSConfig(filepath.Join(dir, "cert.pem"), filepath.Join(dir, "key.pem"))
	if !errors.Is(errors.NotExist, err) {
		t.Errorf("missing files: got %v; want NotExist error", err)
	}
	_, err = newDefaultTLSConfig(dir, dir)
	if !errors.Is(errors.Invalid, err) {
		t.Errorf("directory: got %v; want Invalid error", err)
	}

	bad := filepath.Join(dir, "bad.pem")
	if err := ioutil.WriteFile(bad, []byte("not a certificate"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err = newDefaultTLSConfig(bad, bad)
	if !errors.Is(errors.Invalid, err) {
		t.Errorf("garbage: got %v; want Invalid error", err)
	}
}
