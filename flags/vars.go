// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package flags provides a standard set of command-line flags that may be individually enabled.
// To use the package, call flags.Enable with the flag names to have available
// on the command line. The empty list enables all flags.
// Call Enable before calling flag.Parse, or call Parse to do both:
//
//	flags.Parse("config", "log", "https")
//
// Flag values are retrieved by calling the function with the camel-cased name:
//
//	log.SetLevel(flags.Log())
//
package flags // import "miniapi.io/flags"

//go:generate go run gen.go

// To declare a flag for the package, give its full variable declaration, including the type,
// one per self-contained line, in the style of those listed below.
// The name of the variable should be all lower case, beginning with an underscore.
// Inner underscores are promoted to camel case: _foo_bar becomes the flag foo_bar
// and is available through the public function FooBar.
//
// Run "go generate" to recreate funcs.go, the file that provides the public interface.

var _config string = defaultConfig // server configuration file in YAML

var _debug bool = false // log every dispatch and save metrics to the log

var _http string = "" // plain HTTP listen address; overrides -https

var _https string = "localhost:443" // HTTPS listen address

var _insecure bool = false // allow plain HTTP on non-loopback addresses

var _letscache string = "" // Let's Encrypt cache directory; empty disables autocert

var _log string = "info" // the level of logging: debug, info, error or disabled

var _max_conns int = 0 // maximum simultaneous connections; 0 means no limit

var _tls_cert string = "" // TLS certificate file

var _tls_key string = "" // TLS key file

var _version bool = false // print build version and exit
