// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"fmt"
	"runtime/debug"

	"miniapi.io/log"
)

// Protocol error codes and messages.
const (
	CodeAccessDenied     = 403
	CodeTooManyRequests  = 429
	CodeInvalidRequest   = -32600
	CodeMethodNotFound   = -32601
	CodeIncorrectResult  = -32001
	CodeUnexpectedError  = -32000
	CodeUnexpectedOutput = 500

	// CodeDefault is the code of a handler error that does not set one.
	CodeDefault = 500
)

// Kind classifies an Outcome.
type Kind int

// Kinds of Outcome.
const (
	KindResult    Kind = iota // The handler returned a result.
	KindError                 // An application or dispatch error.
	KindMalformed             // The request or the reply broke the protocol.
)

func (k Kind) String() string {
	switch k {
	case KindResult:
		return "result"
	case KindError:
		return "error"
	case KindMalformed:
		return "malformed"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Outcome is the classified result of dispatching one request.
type Outcome struct {
	Kind   Kind
	Result interface{}
	Err    *Error // Set unless Kind is KindResult.
	ID     interface{}
}

func resultOutcome(result, id interface{}) Outcome {
	return Outcome{Kind: KindResult, Result: result, ID: id}
}

func errorOutcome(code int, message string, data, id interface{}) Outcome {
	return Outcome{Kind: KindError, Err: &Error{Code: code, Message: message, Data: data}, ID: id}
}

func malformedOutcome(code int, message string, data, id interface{}) Outcome {
	return Outcome{Kind: KindMalformed, Err: &Error{Code: code, Message: message, Data: data}, ID: id}
}

// invoke calls h with req under a guard. Output written to req.Stdout is
// captured and returned, and a panic in h is recovered and returned as
// fault.
func invoke(h Handler, req *Request) (reply Reply, output string, fault interface{}) {
	buf := &syncBuffer{}
	req.Stdout = buf
	defer func() {
		if p := recover(); p != nil {
			log.Error.Printf("rpc/server: panic in %s: %v\n%s", req.Method, p, debug.Stack())
			reply, output, fault = Reply{}, buf.String(), p
		}
	}()
	reply = h(req)
	return reply, buf.String(), nil
}

// classify turns what a handler did into an Outcome. In order of
// precedence: a panic, an error reply, a reply without a result, stray
// output, and finally the result.
func classify(reply Reply, output string, fault, id interface{}) Outcome {
	switch {
	case fault != nil:
		return errorOutcome(CodeUnexpectedError, "Unexpected error", output+fmt.Sprint(fault), id)
	case reply.Error != nil && reply.Error.Message != "":
		code := reply.Error.Code
		if code == 0 {
			code = CodeDefault
		}
		return errorOutcome(code, reply.Error.Message, reply.Error.Data, id)
	case reply.Result == nil:
		return malformedOutcome(CodeIncorrectResult, "Incorrect result", reply, id)
	case output != "":
		return errorOutcome(CodeUnexpectedOutput, "Unexpected output", output, id)
	}
	return resultOutcome(reply.Result, id)
}
