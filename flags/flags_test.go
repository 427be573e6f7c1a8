// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flags

import (
	"flag"
	"testing"
)

func TestEnable(t *testing.T) {
	Enable("log", "max_conns")

	if f := flag.Lookup("log"); f == nil || f.DefValue != "info" {
		t.Fatalf("log flag = %v; want default info", f)
	}
	if err := flag.Set("max_conns", "64"); err != nil {
		t.Fatal(err)
	}
	if MaxConns() != 64 {
		t.Errorf("MaxConns() = %d; want 64", MaxConns())
	}
	if flag.Lookup("tls_key") != nil {
		t.Errorf("tls_key enabled without being named")
	}
}

func TestEnableUnknown(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown flag")
		}
	}()
	Enable("no_such_flag")
}
