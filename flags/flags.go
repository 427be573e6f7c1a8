// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flags

import (
	"flag"

	"miniapi.io/log"
)

// Parse enables the named flags (all of them if none are named), parses
// the command line and applies the -log flag, if enabled, to the log package.
func Parse(names ...string) {
	Enable(names...)
	flag.Parse()
	if flag.Lookup("log") == nil {
		return
	}
	if err := log.SetLevel(Log()); err != nil {
		log.Fatal(err)
	}
}
