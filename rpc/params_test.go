// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpc

import (
	"reflect"
	"testing"
)

func TestParams(t *testing.T) {
	p := NewParams("b", "2", "a", "1", "c")
	if got, want := p.Encode(), "b=2&a=1&c="; got != want {
		t.Errorf("Encode = %q, want %q", got, want)
	}
	p.Set("b", "two words")
	p.Del("a")
	p.Set("a", "&")
	if got, want := p.Encode(), "b=two+words&c=&a=%26"; got != want {
		t.Errorf("Encode = %q, want %q", got, want)
	}
	if got, want := p.Keys(), []string{"b", "c", "a"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Keys = %v, want %v", got, want)
	}

	c := p.Clone()
	c.Set("d", "4")
	if p.Len() != 3 || c.Len() != 4 {
		t.Errorf("Len: original %d, clone %d", p.Len(), c.Len())
	}
	if v := c.Values(); v.Get("b") != "two words" || v.Get("d") != "4" {
		t.Errorf("Values = %v", v)
	}
}

func TestNilParams(t *testing.T) {
	var p *Params
	if p.Len() != 0 || p.Encode() != "" || p.Keys() != nil {
		t.Error("nil Params is not empty")
	}
	if _, ok := p.Get("x"); ok {
		t.Error("nil Params has a key")
	}
	p.Del("x")
	if c := p.Clone(); c == nil || c.Len() != 0 {
		t.Errorf("Clone of nil = %v", c)
	}
	q := NewParams()
	q.Merge(p)
	if q.Len() != 0 {
		t.Error("Merge of nil added keys")
	}
}
