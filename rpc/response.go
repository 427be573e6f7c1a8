// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	gjson "github.com/gorilla/rpc/v2/json"
	"github.com/gorilla/rpc/v2/json2"

	"miniapi.io/errors"
)

// maxErrorBody is the number of body bytes kept in an HTTP error.
const maxErrorBody = 2048

// Response is the normalized result of a call.
type Response struct {
	// URL is the final URL the request was sent to.
	URL string

	// Code is the HTTP status, or zero if the transport failed.
	Code int

	// TransportErr is the transport error, or the empty string.
	TransportErr string

	Body []byte
	Info Info
}

func normalize(url string, out RawOutcome) *Response {
	return &Response{
		URL:          url,
		Code:         out.Code,
		TransportErr: out.Err,
		Body:         out.Body,
		Info:         out.Info,
	}
}

// OK reports whether the transport succeeded with a 2xx status.
func (r *Response) OK() bool {
	return r.TransportErr == "" && r.Code >= 200 && r.Code < 300
}

// Err returns nil if the call succeeded, an IO error if the transport
// failed and an HTTP error holding the status and the start of the body
// otherwise.
func (r *Response) Err() error {
	const op errors.Op = "rpc.Response"
	if r.TransportErr != "" {
		return errors.E(op, errors.IO, errors.Str(r.TransportErr))
	}
	if r.OK() {
		return nil
	}
	body := r.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return errors.E(op, errors.HTTP, errors.Errorf("%d %s: %s", r.Code, http.StatusText(r.Code), body))
}

// String returns the body.
func (r *Response) String() string {
	return string(r.Body)
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v interface{}) error {
	const op errors.Op = "rpc.Decode"
	if err := json.Unmarshal(r.Body, v); err != nil {
		return errors.E(op, errors.Invalid, err)
	}
	return nil
}

// RPCError is an error reported by a server in a JSON-RPC 2.0 response.
type RPCError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("%d %s: %v", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}

// DecodeJSONRPC2 decodes a JSON-RPC 2.0 response body, storing the result
// in reply. An error reported by the server is returned as an *RPCError
// wrapped in an errors.Error.
func (r *Response) DecodeJSONRPC2(reply interface{}) error {
	const op errors.Op = "rpc.DecodeJSONRPC2"
	err := json2.DecodeClientResponse(bytes.NewReader(r.Body), reply)
	if err == nil {
		return nil
	}
	if e, ok := err.(*json2.Error); ok {
		return errors.E(op, &RPCError{Code: int(e.Code), Message: e.Message, Data: e.Data})
	}
	return errors.E(op, errors.Invalid, err)
}

// DecodeJSONRPC1 decodes a JSON-RPC 1.0 response body, storing the result
// in reply. The response id must be a number or null.
func (r *Response) DecodeJSONRPC1(reply interface{}) error {
	const op errors.Op = "rpc.DecodeJSONRPC1"
	if err := gjson.DecodeClientResponse(bytes.NewReader(r.Body), reply); err != nil {
		return errors.E(op, err)
	}
	return nil
}
