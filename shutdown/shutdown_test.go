// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shutdown

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

const (
	childEnv      = "MINIAPI_SHUTDOWN_CHILD"
	childStallEnv = childEnv + "_STALL"
	timeout       = 10 * time.Second
)

func TestContextLive(t *testing.T) {
	if err := Context().Err(); err != nil {
		t.Fatalf("Context().Err() = %v before shutdown", err)
	}
}

// TestDrain runs an HTTP server in a child process that stops serving
// when the shutdown context is canceled, as cloud/https does, and asks it
// to shut down through a request.
func TestDrain(t *testing.T) {
	if os.Getenv(childEnv) == "true" {
		serveUntilShutdown()
		return
	}
	t.Run("clean", func(t *testing.T) {
		testDrain(t, false, []string{"context canceled", "drained"})
	})
	t.Run("stalled", func(t *testing.T) {
		testDrain(t, true, []string{"context canceled", "drained", "stalling"})
	})
}

func testDrain(t *testing.T, stall bool, want []string) {
	cmd := exec.Command(os.Args[0], "-test.run=^TestDrain$")
	cmd.Env = []string{childEnv + "=true"}
	if stall {
		cmd.Env = append(cmd.Env, childStallEnv+"=true")
	}
	rc, err := cmd.StdoutPipe()
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}
	defer cmd.Process.Kill()

	lines := make(chan string)
	go func() {
		defer close(lines)
		out := bufio.NewScanner(rc)
		for out.Scan() {
			lines <- out.Text()
		}
	}()
	next := func() (string, bool) {
		select {
		case l, ok := <-lines:
			return l, ok
		case <-time.After(timeout):
			t.Fatal("timed out reading child output")
		}
		return "", false
	}

	first, ok := next()
	if !ok || !strings.HasPrefix(first, "listening ") {
		t.Fatalf("child said %q, want listening address", first)
	}
	addr := strings.TrimPrefix(first, "listening ")

	resp, err := http.Get("http://" + addr + "/status")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "serving" {
		t.Fatalf("status = %q, want serving", body)
	}

	// The quit request may race with the listener closing.
	if resp, err := http.Get("http://" + addr + "/quit"); err == nil {
		resp.Body.Close()
	}

	for _, w := range want {
		got, ok := next()
		if !ok {
			t.Fatalf("child output ended, want %q", w)
		}
		if got != w {
			t.Fatalf("child said %q, want %q", got, w)
		}
	}
	if extra, ok := next(); ok {
		t.Fatalf("unexpected child output %q", extra)
	}

	err = cmd.Wait()
	switch {
	case stall && err == nil:
		t.Fatal("stalled child exited cleanly, want non-zero status")
	case !stall && err != nil:
		t.Fatalf("child exited with %v, want status 0", err)
	}
}

// serveUntilShutdown is the child process of TestDrain.
func serveUntilShutdown() {
	if os.Getenv(childStallEnv) == "true" {
		release := make(chan bool)
		killSleep = func(time.Duration) { <-release }
		// Registered first, so it runs last.
		Handle(func() {
			fmt.Println("stalling")
			release <- true
			select {}
		})
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		fmt.Println("listen:", err)
		os.Exit(2)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "serving")
	})
	mux.HandleFunc("/quit", func(w http.ResponseWriter, r *http.Request) {
		go Now(0)
		fmt.Fprint(w, "bye")
	})
	srv := &http.Server{Handler: mux}

	drained := make(chan struct{})
	Handle(func() {
		<-drained
		fmt.Println("drained")
	})
	go func() {
		<-Context().Done()
		fmt.Println("context canceled")
		srv.Shutdown(context.Background())
		close(drained)
	}()

	fmt.Println("listening", ln.Addr())
	srv.Serve(ln)

	// Serve returns once shutdown begins; Now exits the process.
	select {}
}
