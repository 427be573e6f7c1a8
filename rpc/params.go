// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpc

import (
	"net/url"
	"strings"
)

// Params is a set of string parameters that remembers the order in which
// keys were first set, so that encoding is deterministic.
// A nil *Params is an empty set.
type Params struct {
	keys []string
	vals map[string]string
}

// NewParams returns a Params holding the given key, value pairs.
// A trailing key without a value is set to the empty string.
func NewParams(kv ...string) *Params {
	p := &Params{}
	for i := 0; i < len(kv); i += 2 {
		v := ""
		if i+1 < len(kv) {
			v = kv[i+1]
		}
		p.Set(kv[i], v)
	}
	return p
}

// Set sets key to value. A key that is already present keeps its position.
func (p *Params) Set(key, value string) {
	if p.vals == nil {
		p.vals = make(map[string]string)
	}
	if _, ok := p.vals[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.vals[key] = value
}

// Get returns the value of key and whether it is present.
func (p *Params) Get(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	v, ok := p.vals[key]
	return v, ok
}

// Del removes key.
func (p *Params) Del(key string) {
	if p == nil {
		return
	}
	if _, ok := p.vals[key]; !ok {
		return
	}
	delete(p.vals, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i:i], p.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (p *Params) Keys() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.keys...)
}

// Len returns the number of keys.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Merge sets every key of q in p, overriding existing values.
func (p *Params) Merge(q *Params) {
	if q == nil {
		return
	}
	for _, k := range q.keys {
		p.Set(k, q.vals[k])
	}
}

// Clone returns a copy of p. The clone of nil is an empty, non-nil Params.
func (p *Params) Clone() *Params {
	c := &Params{}
	c.Merge(p)
	return c
}

// Values returns p as url.Values.
func (p *Params) Values() url.Values {
	v := make(url.Values, p.Len())
	if p == nil {
		return v
	}
	for _, k := range p.keys {
		v.Set(k, p.vals[k])
	}
	return v
}

// Encode encodes p in URL form ("a=1&b=2") in insertion order.
func (p *Params) Encode() string {
	if p.Len() == 0 {
		return ""
	}
	var b strings.Builder
	for i, k := range p.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.vals[k]))
	}
	return b.String()
}
