// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strconv"

	"github.com/kr/pretty"

	"miniapi.io/config"
	"miniapi.io/errors"
)

// Mode selects how outcomes are written.
type Mode string

// Response modes.
const (
	ModeHTML     Mode = config.ModeHTML
	ModeHTTP     Mode = config.ModeHTTP
	ModeJSONRPC1 Mode = config.ModeJSONRPC1
	ModeJSONRPC2 Mode = config.ModeJSONRPC2
)

// StatusHeader carries "<code> <message>" in http mode.
const StatusHeader = "Miniapi-Status"

// Encode writes o to w in the given mode. An unknown mode is written
// as html.
func Encode(w http.ResponseWriter, mode Mode, o Outcome) error {
	const op errors.Op = "server.Encode"
	var (
		body   []byte
		ctype  string
		status = http.StatusOK
		err    error
	)
	switch mode {
	case ModeJSONRPC2:
		ctype = "application/json"
		if o.Kind == KindResult {
			body, err = jsonObject("jsonrpc", "2.0", "result", o.Result, "id", o.ID)
		} else {
			body, err = jsonObject("jsonrpc", "2.0", "error", o.Err, "id", o.ID)
		}
	case ModeJSONRPC1:
		ctype = "application/json"
		if o.Kind == KindResult {
			body, err = jsonObject("result", o.Result, "error", nil, "id", o.ID)
		} else {
			body, err = jsonObject("result", nil, "error", o.Err, "id", o.ID)
		}
	case ModeHTTP:
		ctype = "text/html; charset=utf-8"
		if o.Kind == KindResult {
			w.Header().Set(StatusHeader, "200 OK")
			body = []byte("<pre>" + text(o.Result))
		} else {
			line := strconv.Itoa(o.Err.Code) + " " + o.Err.Message
			w.Header().Set(StatusHeader, line)
			status = httpStatus(o.Err.Code)
			body = []byte("<H1>" + line + "</H1><pre>" + text(o.Err.Data))
		}
	default:
		ctype = "text/html; charset=utf-8"
		key := "result"
		data := o.Result
		if o.Kind != KindResult {
			key, data = "error", errorMap(o.Err)
		}
		dump := pretty.Sprint(map[string]interface{}{key: data, "id": o.ID})
		body = []byte("<pre>" + html.EscapeString(dump))
	}
	if err != nil {
		return errors.E(op, errors.Internal, err)
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		return errors.E(op, errors.IO, err)
	}
	return nil
}

// jsonObject encodes the key, value pairs kv as a JSON object, keeping
// their order.
func jsonObject(kv ...interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i := 0; i+1 < len(kv); i += 2 {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(kv[i])
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(kv[i+1])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// httpStatus maps a code to the HTTP status used in http mode.
func httpStatus(code int) int {
	switch {
	case code >= 100 && code <= 599:
		return code
	case code == CodeInvalidRequest:
		return http.StatusBadRequest
	case code == CodeMethodNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// text formats v for the http mode body.
func text(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case float64, int, int64, bool:
		return fmt.Sprint(v)
	}
	return pretty.Sprint(v)
}

func errorMap(e *Error) map[string]interface{} {
	m := map[string]interface{}{"code": e.Code, "message": e.Message}
	if e.Data != nil {
		m["data"] = e.Data
	}
	return m
}
