// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpc

import (
	"context"
	"net/http"
	"testing"

	"miniapi.io/errors"
)

func TestEngineStates(t *testing.T) {
	c, _ := newTestClient(t, "example.com")
	e := newEngine(c, c.build(&Call{Query: "test"}), "s1")
	if e.State() != Built || e.Slot() != "s1" {
		t.Fatalf("new engine: state %v slot %q", e.State(), e.Slot())
	}

	hreq, err := e.Prepare(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if e.State() != AwaitingTransport {
		t.Fatalf("after Prepare: %v", e.State())
	}
	if hreq.URL.String() != e.URL() {
		t.Errorf("request URL %s, engine URL %s", hreq.URL, e.URL())
	}

	resp, err := e.Complete(RawOutcome{Code: http.StatusOK, Body: []byte("ok")})
	if err != nil {
		t.Fatal(err)
	}
	if e.State() != Normalized || resp.Code != http.StatusOK || resp.URL != e.URL() {
		t.Fatalf("after Complete: %v %+v", e.State(), resp)
	}
	if c.LastCode() != http.StatusOK {
		t.Errorf("LastCode = %d", c.LastCode())
	}

	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	if e.State() != Done {
		t.Fatalf("after Close: %v", e.State())
	}
}

func TestEngineMisuse(t *testing.T) {
	c, _ := newTestClient(t, "example.com")
	ctx := context.Background()

	e := newEngine(c, c.build(&Call{}), "")
	if _, err := e.Complete(RawOutcome{}); !errors.Is(errors.Internal, err) {
		t.Errorf("Complete before Prepare: %v", err)
	}
	if _, err := e.Prepare(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Prepare(ctx); !errors.Is(errors.Internal, err) {
		t.Errorf("second Prepare: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	if err := e.Close(); !errors.Is(errors.Internal, err) {
		t.Errorf("second Close: %v", err)
	}
	if _, err := e.Complete(RawOutcome{}); !errors.Is(errors.Internal, err) {
		t.Errorf("Complete after Close: %v", err)
	}
	if _, err := e.Prepare(ctx); !errors.Is(errors.Internal, err) {
		t.Errorf("Prepare after Close: %v", err)
	}
}

func TestEnginePrepareFailure(t *testing.T) {
	c, _ := newTestClient(t, "example.com")
	e := newEngine(c, c.build(&Call{Method: http.MethodPut, File: "/no/such/file"}), "")
	if _, err := e.Prepare(context.Background()); !errors.Is(errors.NotExist, err) {
		t.Fatalf("Prepare: %v", err)
	}
	if e.State() != Done {
		t.Errorf("state after failed Prepare: %v", e.State())
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		Built:             "built",
		AwaitingTransport: "awaiting transport",
		Normalized:        "normalized",
		Done:              "done",
		State(9):          "State(9)",
	} {
		if got := s.String(); got != want {
			t.Errorf("%d: %q, want %q", int(s), got, want)
		}
	}
}
