// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config reads client and server configurations from YAML files.
package config // import "miniapi.io/config"

import (
	"io"
	"io/ioutil"
	"net"
	"os"
	osuser "os/user"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v2"

	"miniapi.io/errors"
)

// Response modes understood by the server.
const (
	ModeHTML     = "html"
	ModeHTTP     = "http"
	ModeJSONRPC1 = "jsonrpc1"
	ModeJSONRPC2 = "jsonrpc2"
)

// Server holds the configuration of a dispatching server.
//
// A server configuration file looks like
//
//	allow:
//	  - 127.0.0.1
//	  - 192.168.1.0/24
//	methods:
//	  test: example
//	  sum: example
//	mode: jsonrpc2
//
// Every method names the source, registered in code, that provides its handler.
type Server struct {
	// Allow lists the addresses, single IPs or CIDR blocks, that may call the server.
	Allow []string `yaml:"allow"`

	// Methods maps a method name to the name of its handler source.
	Methods map[string]string `yaml:"methods"`

	// Mode selects the response encoding: html, http, jsonrpc1 or jsonrpc2.
	// The empty mode is html.
	Mode string `yaml:"mode"`

	// Path is the URL path the server answers on. The default is "/".
	Path string `yaml:"path"`

	// Gzip enables compression of responses for clients that accept it.
	Gzip bool `yaml:"gzip"`

	// Rate and Burst limit the number of calls per second the server
	// accepts from all clients together. A zero Rate means no limit.
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`

	// ClientBackoff and ClientBackoffMax configure the per-address
	// limiter. A zero ClientBackoff disables it.
	ClientBackoff    time.Duration `yaml:"client_backoff"`
	ClientBackoffMax time.Duration `yaml:"client_backoff_max"`

	// TrustProxy makes the server take the caller address from the
	// X-Real-IP and X-Forwarded-For headers.
	TrustProxy bool `yaml:"trust_proxy"`
}

// Client holds the configuration of an RPC client.
// Either URL or the individual Scheme, Host, Port and Path fields may be given;
// fields left empty take the client defaults.
type Client struct {
	URL    string `yaml:"url"`
	Scheme string `yaml:"scheme"`
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Path   string `yaml:"path"`

	// User and Pass are sent as request parameters when present.
	// An empty string is present; a missing key is not.
	User *string `yaml:"user"`
	Pass *string `yaml:"pass"`

	// QueryName is the name of the parameter carrying the query.
	// If present and empty, the query is appended to the URL path.
	QueryName *string `yaml:"query_name"`

	// Options are added to the parameters of every call.
	Options map[string]string `yaml:"options"`

	// Compression defaults to true.
	Compression *bool `yaml:"compression"`
	Debug       bool  `yaml:"debug"`

	UserAgent      string        `yaml:"user_agent"`
	Insecure       *bool         `yaml:"insecure"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	Timeout        time.Duration `yaml:"timeout"`
	HTTP2          bool          `yaml:"http2"`

	// BufferedUploads compresses PUT uploads to a temporary file
	// instead of streaming them. The default depends on the platform.
	BufferedUploads *bool `yaml:"buffered_uploads"`
}

// ParseServer reads and validates a server configuration.
func ParseServer(r io.Reader) (*Server, error) {
	const op errors.Op = "config.ParseServer"
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.E(op, errors.IO, err)
	}
	cfg := new(Server)
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, errors.E(op, errors.Invalid, errors.Errorf("parsing YAML file: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.E(op, err)
	}
	return cfg, nil
}

// Validate checks the configuration and fills in defaults.
func (cfg *Server) Validate() error {
	switch cfg.Mode {
	case "":
		cfg.Mode = ModeHTML
	case ModeHTML, ModeHTTP, ModeJSONRPC1, ModeJSONRPC2:
	default:
		return errors.E(errors.Invalid, errors.Errorf("unknown mode %q", cfg.Mode))
	}
	if len(cfg.Methods) == 0 {
		return errors.E(errors.Invalid, errors.Str("no methods configured"))
	}
	for method, source := range cfg.Methods {
		if method == "" || source == "" {
			return errors.E(errors.Invalid, errors.Errorf("bad method entry %q: %q", method, source))
		}
	}
	for _, a := range cfg.Allow {
		if err := checkAddr(a); err != nil {
			return err
		}
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	if !strings.HasPrefix(cfg.Path, "/") {
		return errors.E(errors.Invalid, errors.Errorf("path %q must begin with /", cfg.Path))
	}
	if cfg.Rate < 0 || cfg.Burst < 0 {
		return errors.E(errors.Invalid, errors.Str("rate and burst must not be negative"))
	}
	if cfg.Rate > 0 && cfg.Burst == 0 {
		cfg.Burst = 1
	}
	if cfg.ClientBackoff > 0 && cfg.ClientBackoffMax < cfg.ClientBackoff {
		cfg.ClientBackoffMax = cfg.ClientBackoff
	}
	return nil
}

func checkAddr(a string) error {
	if strings.Contains(a, "/") {
		if _, _, err := net.ParseCIDR(a); err != nil {
			return errors.E(errors.Invalid, errors.Errorf("bad allow entry %q", a))
		}
		return nil
	}
	if net.ParseIP(a) == nil {
		return errors.E(errors.Invalid, errors.Errorf("bad allow entry %q", a))
	}
	return nil
}

// ParseClient reads and validates a client configuration.
func ParseClient(r io.Reader) (*Client, error) {
	const op errors.Op = "config.ParseClient"
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.E(op, errors.IO, err)
	}
	cfg := new(Client)
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, errors.E(op, errors.Invalid, errors.Errorf("parsing YAML file: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.E(op, err)
	}
	return cfg, nil
}

// Validate checks the fields that can be checked without building a client.
func (cfg *Client) Validate() error {
	if cfg.URL != "" && (cfg.Scheme != "" || cfg.Host != "" || cfg.Port != 0) {
		return errors.E(errors.Invalid, errors.Str("url and scheme, host or port are mutually exclusive"))
	}
	switch cfg.Scheme {
	case "", "http", "https":
	default:
		return errors.E(errors.Invalid, errors.Errorf("unsupported scheme %q", cfg.Scheme))
	}
	if cfg.Port < 0 {
		return errors.E(errors.Invalid, errors.Errorf("bad port %d", cfg.Port))
	}
	if cfg.ConnectTimeout < 0 || cfg.Timeout < 0 {
		return errors.E(errors.Invalid, errors.Str("timeouts must not be negative"))
	}
	return nil
}

// ServerFromFile reads a server configuration from the named file.
// If the file cannot be opened but the name can be found in $HOME/miniapi,
// that file is used.
func ServerFromFile(name string) (*Server, error) {
	const op errors.Op = "config.ServerFromFile"
	f, err := open(name)
	if err != nil {
		return nil, errors.E(op, err)
	}
	defer f.Close()
	return ParseServer(f)
}

// ClientFromFile reads a client configuration from the named file,
// looking in $HOME/miniapi as ServerFromFile does.
func ClientFromFile(name string) (*Client, error) {
	const op errors.Op = "config.ClientFromFile"
	f, err := open(name)
	if err != nil {
		return nil, errors.E(op, err)
	}
	defer f.Close()
	return ParseClient(f)
}

func open(name string) (*os.File, error) {
	f, err := os.Open(name)
	if err != nil && !filepath.IsAbs(name) && os.IsNotExist(err) {
		// It's a local name, so, try adding $HOME/miniapi
		home, errHome := Homedir()
		if errHome == nil {
			f, err = os.Open(filepath.Join(home, "miniapi", name))
		}
	}
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.E(errors.NotExist, err)
		}
		return nil, errors.E(errors.IO, err)
	}
	return f, nil
}

// Homedir returns the home directory of the OS' logged-in user.
func Homedir() (string, error) {
	u, err := osuser.Current()
	// user.Current may return an error, but we should only handle it if it
	// returns a nil user. This is because os/user is wonky without cgo,
	// but it should work well enough for our purposes.
	if u == nil {
		e := errors.Str("lookup of current user failed")
		if err != nil {
			e = errors.Errorf("%v: %v", e, err)
		}
		return "", e
	}
	h := u.HomeDir
	if h == "" {
		return "", errors.E(errors.NotExist, errors.Str("user home directory not found"))
	}
	return h, nil
}
