// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package serverutil provides helper functions for miniapi servers.
package serverutil // import "miniapi.io/serverutil"

import (
	"net"
	"strings"

	"miniapi.io/errors"
)

// IsLoopback returns true if the name only resolves to loopback addresses.
func IsLoopback(addr string) bool {
	host := Host(addr)
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return true
	}
	// Check for loopback network.
	ips, err := net.LookupIP(host)
	if err != nil {
		return false
	}
	for _, ip := range ips {
		if !ip.IsLoopback() {
			return false
		}
	}
	return true
}

// Host strips the port, if any, from addr.
func Host(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return strings.Trim(addr, "[]")
	}
	return host
}

// AllowList holds the addresses permitted to call a server.
// An empty AllowList permits loopback callers only.
type AllowList struct {
	ips  []net.IP
	nets []*net.IPNet
}

// NewAllowList parses entries, each a single IP or a CIDR block.
func NewAllowList(entries []string) (*AllowList, error) {
	const op errors.Op = "serverutil.NewAllowList"
	a := &AllowList{}
	for _, e := range entries {
		if strings.Contains(e, "/") {
			_, n, err := net.ParseCIDR(e)
			if err != nil {
				return nil, errors.E(op, errors.Invalid, err)
			}
			a.nets = append(a.nets, n)
			continue
		}
		ip := net.ParseIP(e)
		if ip == nil {
			return nil, errors.E(op, errors.Invalid, errors.Errorf("bad address %q", e))
		}
		a.ips = append(a.ips, ip)
	}
	return a, nil
}

// Allow reports whether the caller at addr, an IP with or without a port,
// is permitted.
func (a *AllowList) Allow(addr string) bool {
	ip := net.ParseIP(Host(addr))
	if ip == nil {
		return false
	}
	if len(a.ips) == 0 && len(a.nets) == 0 {
		return ip.IsLoopback()
	}
	for _, p := range a.ips {
		if p.Equal(ip) {
			return true
		}
	}
	for _, n := range a.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
