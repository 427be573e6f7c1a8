// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"math"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"miniapi.io/errors"
	"miniapi.io/serverutil"
)

// Limits on inbound bodies.
const (
	maxBodySize   = 10 << 20
	maxMemoryForm = 32 << 20
)

// Request is the per-request context a Handler works from.
type Request struct {
	// IP, URI, UA and Host describe the caller and what it asked for.
	IP   string
	URI  string
	UA   string
	Host string

	// Method, Params and ID are the envelope fields, set once the
	// dispatcher has read them.
	Method string
	Params interface{}
	ID     interface{}

	// HTTP is the inbound request. For PUT requests its Body is the
	// request body, already decoded if it was gzip-encoded.
	HTTP *http.Request

	// Stdout receives output outside the structured reply.
	// Anything written to it turns a result into an error.
	Stdout io.Writer

	values map[string]interface{} // Inbound parameters.
	fields map[string]interface{} // Parameters read by ReadParams; nil if absent.
	order  []string
}

// NewRequest reads the parameters of an inbound request: the URL query
// and, for POST, a url-encoded, multipart or JSON body. Body values
// override query values. Keys of the form name[a][b] build nested maps
// and name[] appends to a list.
func NewRequest(r *http.Request) (*Request, error) {
	const op errors.Op = "server.NewRequest"
	req := &Request{
		IP:     serverutil.Host(r.RemoteAddr),
		URI:    r.RequestURI,
		UA:     r.UserAgent(),
		Host:   r.Host,
		HTTP:   r,
		Stdout: ioutil.Discard,
		values: make(map[string]interface{}),
		fields: make(map[string]interface{}),
	}
	if req.URI == "" {
		req.URI = r.URL.RequestURI()
	}
	setValues(req.values, r.URL.Query())

	if r.Body == nil || r.Body == http.NoBody {
		return req, nil
	}
	if strings.EqualFold(r.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			return req, errors.E(op, errors.Invalid, err)
		}
		r.Body = &gzipBody{Reader: zr, body: r.Body}
		r.Header.Del("Content-Encoding")
		r.ContentLength = -1
	}
	if r.Method != http.MethodPost {
		return req, nil
	}
	if err := readBody(req.values, r); err != nil {
		return req, errors.E(op, errors.Invalid, err)
	}
	return req, nil
}

type gzipBody struct {
	*gzip.Reader
	body io.Closer
}

func (b *gzipBody) Close() error {
	b.Reader.Close()
	return b.body.Close()
}

func readBody(values map[string]interface{}, r *http.Request) error {
	ctype, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		ctype = "application/x-www-form-urlencoded"
	}
	switch ctype {
	case "application/json":
		var m map[string]interface{}
		dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
		dec.UseNumber()
		if err := dec.Decode(&m); err != nil && err != io.EOF {
			return err
		}
		for k, v := range m {
			values[k] = v
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxMemoryForm); err != nil {
			return err
		}
		setValues(values, r.MultipartForm.Value)
	default:
		data, err := ioutil.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			return err
		}
		form, err := url.ParseQuery(string(data))
		if err != nil {
			return err
		}
		setValues(values, form)
	}
	return nil
}

// setValues stores form values in m. For plain keys the last value wins.
func setValues(m map[string]interface{}, form url.Values) {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range form[k] {
			setValue(m, k, v)
		}
	}
}

func setValue(m map[string]interface{}, key string, v interface{}) {
	i := strings.IndexByte(key, '[')
	if i <= 0 || !strings.HasSuffix(key, "]") {
		m[key] = v
		return
	}
	name, rest := key[:i], key[i:]
	var path []string
	for rest != "" {
		j := strings.IndexByte(rest, ']')
		if rest[0] != '[' || j < 0 {
			m[key] = v
			return
		}
		path = append(path, rest[1:j])
		rest = rest[j+1:]
	}
	m[name] = setPath(m[name], path, v)
}

func setPath(cur interface{}, path []string, v interface{}) interface{} {
	if len(path) == 0 {
		return v
	}
	key, rest := path[0], path[1:]
	if key == "" {
		list, _ := cur.([]interface{})
		return append(list, setPath(nil, rest, v))
	}
	m, ok := cur.(map[string]interface{})
	if !ok {
		m = make(map[string]interface{})
		if list, ok := cur.([]interface{}); ok {
			for i, x := range list {
				m[strconv.Itoa(i)] = x
			}
		}
	}
	m[key] = setPath(m[key], rest, v)
	return m
}

// Value returns an inbound parameter whether or not it has been read
// by ReadParams.
func (r *Request) Value(name string) (interface{}, bool) {
	v, ok := r.values[name]
	return v, ok
}

// ReadParams checks that every required parameter is present and returns
// the names of those that are missing. If none is missing, the required
// and optional parameters are recorded for Field and Fields; absent
// optional parameters are recorded as absent.
func (r *Request) ReadParams(required, optional []string) (missing []string) {
	for _, name := range required {
		if _, ok := r.values[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return missing
	}
	for _, name := range append(append([]string(nil), required...), optional...) {
		if name == "" {
			continue
		}
		if _, ok := r.fields[name]; !ok {
			r.order = append(r.order, name)
		}
		r.fields[name] = r.values[name]
	}
	return nil
}

// Field returns a parameter recorded by ReadParams and whether it was present.
func (r *Request) Field(name string) (interface{}, bool) {
	v := r.fields[name]
	return v, v != nil
}

// Fields returns the caller description and the recorded parameters,
// with nil for absent ones.
func (r *Request) Fields() map[string]interface{} {
	m := map[string]interface{}{
		"ip":   r.IP,
		"uri":  r.URI,
		"ua":   r.UA,
		"host": r.Host,
	}
	for _, name := range r.order {
		m[name] = r.fields[name]
	}
	return m
}

// String returns the inbound parameter name as a string, or the empty
// string if it is absent or not a scalar.
func (r *Request) String(name string) string {
	return scalar(r.values[name])
}

func scalar(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "1"
		}
		return ""
	case nil, map[string]interface{}, []interface{}:
		return ""
	}
	return fmt.Sprint(v)
}

// Number returns v as a number if it is one or is a string holding one.
func Number(v interface{}) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// syncBuffer is the guarded output of a handler. Handlers may hand
// Stdout to goroutines of their own.
type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	b.buf = append(b.buf, p...)
	b.mu.Unlock()
	return len(p), nil
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
