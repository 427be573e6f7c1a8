// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpc

import (
	"net/http"
)

// Call describes one query made through Client.DoQuery or Client.Start.
// Form, Body and File are sent only with POST and PUT.
type Call struct {
	// Query is the query to send. The empty query repeats the last one.
	Query string

	// Method is GET, POST or PUT. The default is GET.
	Method string

	// Form holds body fields. Body is a raw body, used if Form is nil.
	Form *Params
	Body string

	// File names a file to upload: gzip-compressed by PUT, or as the
	// multipart field "file" by POST.
	File string

	// Options override the client's request options for this call.
	Options *Params

	// Header overrides the client's headers for this call.
	Header http.Header

	// Slot names the call for asynchronous strategies.
	Slot string
}

// Request describes a single HTTP exchange, ready for the engine.
type Request struct {
	// URL is the endpoint without a query string.
	// The empty URL is the server URL of the client.
	URL    string
	Method string

	// Params are encoded after "?".
	Params *Params

	Form *Params
	Body string
	File string

	// Header is merged over the client headers.
	Header http.Header
}

// build assembles the Request for call from the client defaults.
// It records the query as the last one sent.
func (c *Client) build(call *Call) *Request {
	c.mu.Lock()
	defer c.mu.Unlock()

	query := call.Query
	if query == "" {
		query = c.query
	} else {
		c.query = query
	}

	req := &Request{
		URL:    c.ep.String(),
		Method: call.Method,
		Params: NewParams(),
		Form:   call.Form,
		Body:   call.Body,
		File:   call.File,
		Header: call.Header,
	}
	if c.queryName == "" {
		req.URL += query
	} else {
		req.Params.Set(c.queryName, query)
	}
	if c.user.ok {
		req.Params.Set("user", c.user.value)
	}
	if c.pass.ok {
		req.Params.Set("pass", c.pass.value)
	}
	req.Params.Merge(c.options)
	req.Params.Merge(call.Options)
	return req
}
