// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package version reports the version control information stamped into
// the running binary by the go command.
package version // import "miniapi.io/version"

import (
	"fmt"
	"runtime/debug"
	"time"
)

// These are filled from the build information at init.
var (
	BuildTime = time.Time{}
	GitSHA    = ""
	Modified  = false
)

var readBuildInfo = debug.ReadBuildInfo

func init() {
	load()
}

func load() {
	info, ok := readBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			GitSHA = s.Value
		case "vcs.time":
			if t, err := time.Parse(time.RFC3339, s.Value); err == nil {
				BuildTime = t
			}
		case "vcs.modified":
			Modified = s.Value == "true"
		}
	}
}

// Version returns a newline-terminated string describing the current
// version of the build.
func Version() string {
	if GitSHA == "" {
		return "devel\n"
	}
	str := fmt.Sprintf("Build time: %s\n", BuildTime.In(time.UTC).Format(time.Stamp+" 2006 UTC"))
	str += fmt.Sprintf("Git hash:   %s", GitSHA)
	if Modified {
		str += " (modified)"
	}
	return str + "\n"
}
