// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package example provides demonstration methods, registered under the
// source name "example". Each shows one kind of outcome.
package example // import "miniapi.io/rpc/server/example"

import (
	"fmt"
	"strconv"

	"github.com/kr/pretty"

	"miniapi.io/log"
	"miniapi.io/rpc/server"
)

// Source is the source name the methods are registered under.
const Source = "example"

// Methods maps each method name to its handler.
var Methods = map[string]server.Handler{
	"test":  Test,
	"test1": Test1,
	"test2": Test2,
	"test3": Test3,
	"test4": Test4,
	"sum":   Sum,
	"div":   Div,
}

func init() {
	if err := server.RegisterSource(Source, Methods); err != nil {
		log.Fatalf("example: %v", err)
	}
}

// Test completes normally.
func Test(req *server.Request) server.Reply {
	return server.Reply{Result: "Test normal complete"}
}

// Test1 writes to its output, which spoils its result.
func Test1(req *server.Request) server.Reply {
	fmt.Fprint(req.Stdout, "bla bla bla")
	return server.Reply{Result: "Test with unexpected output"}
}

// Test2 divides 1 by the integer parameter d, which defaults to zero.
func Test2(req *server.Request) server.Reply {
	d, _ := strconv.Atoi(req.String("d"))
	return server.Reply{Result: 1 / d}
}

// Test3 reports an error.
func Test3(req *server.Request) server.Reply {
	return server.Reply{Error: &server.Error{Message: "Test error report"}}
}

// Test4 echoes the request.
func Test4(req *server.Request) server.Reply {
	return server.Reply{Result: pretty.Sprint(req.Fields())}
}

// Sum adds params[a] and params[b].
func Sum(req *server.Request) server.Reply {
	params, _ := req.Params.(map[string]interface{})
	a, okA := server.Number(params["a"])
	b, okB := server.Number(params["b"])
	if !okA || !okB {
		return server.Reply{Error: &server.Error{Message: "Need parametes params[a] and params[b], both must be numeric"}}
	}
	return server.Reply{Result: a + b}
}

// Div divides the request parameters a and b. Dividing by zero panics.
func Div(req *server.Request) server.Reply {
	a, okA := server.Number(req.String("a"))
	b, okB := server.Number(req.String("b"))
	if !okA || !okB {
		return server.Reply{Error: &server.Error{Message: "Need a and b http-parametes, it must be numeric"}}
	}
	if b == 0 {
		panic("Division by zero")
	}
	return server.Reply{Result: a / b}
}
