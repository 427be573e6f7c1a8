// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpc

import (
	"compress/gzip"
	"io"
	"io/ioutil"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"miniapi.io/errors"
)

// openUpload opens the named file for upload.
func openUpload(name string) (*os.File, error) {
	f, err := os.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.E(errors.NotExist, err)
		}
		return nil, errors.E(errors.IO, err)
	}
	return f, nil
}

// gzipFile returns the gzip-compressed contents of the named file and
// their length, or zero if the length is not known in advance.
// A file named *.gz is sent as it is. Otherwise the file is compressed
// while it is sent or, if buffered is set, into a temporary file first.
// Both ways produce the same bytes.
func (e *Engine) gzipFile(name string, buffered bool) (io.Reader, int64, error) {
	f, err := openUpload(name)
	if err != nil {
		return nil, 0, err
	}
	if strings.HasSuffix(name, ".gz") {
		e.onClose(func() { f.Close() })
		return f, fileSize(f), nil
	}
	if !buffered {
		pr, pw := e.pipe()
		go func() {
			defer f.Close()
			pw.CloseWithError(compress(pw, f))
		}()
		return pr, 0, nil
	}

	defer f.Close()
	tmp, err := ioutil.TempFile("", "miniapi-upload-*.gz")
	if err != nil {
		return nil, 0, errors.E(errors.IO, err)
	}
	e.onClose(func() {
		tmp.Close()
		os.Remove(tmp.Name())
	})
	if err := compress(tmp, f); err != nil {
		return nil, 0, errors.E(errors.IO, err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, 0, errors.E(errors.IO, err)
	}
	return tmp, fileSize(tmp), nil
}

func compress(w io.Writer, r io.Reader) error {
	zw := gzip.NewWriter(w)
	if _, err := io.Copy(zw, r); err != nil {
		return err
	}
	return zw.Close()
}

func fileSize(f *os.File) int64 {
	fi, err := f.Stat()
	if err != nil {
		return 0
	}
	return fi.Size()
}

// multipart returns a multipart/form-data body holding the form fields
// and the named file as the field "file", and its content type.
func (e *Engine) multipart(form *Params, name string) (io.Reader, string, error) {
	f, err := openUpload(name)
	if err != nil {
		return nil, "", err
	}
	pr, pw := e.pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		defer f.Close()
		pw.CloseWithError(writeMultipart(mw, form, f))
	}()
	return pr, mw.FormDataContentType(), nil
}

func writeMultipart(mw *multipart.Writer, form *Params, f *os.File) error {
	for _, k := range form.Keys() {
		v, _ := form.Get(k)
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("file", filepath.Base(f.Name()))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}
	return mw.Close()
}

// pipe returns a connected reader and writer. The reader is closed when
// the engine is closed, which stops any writer still running.
func (e *Engine) pipe() (*io.PipeReader, *io.PipeWriter) {
	pr, pw := io.Pipe()
	e.onClose(func() { pr.Close() })
	return pr, pw
}
