// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package rpc is a client for miniapi servers.

Every call is a single HTTP request. The method name travels either as
the last path element or, when the client has a query name, as a query
parameter; by default the parameter is "query". Credentials and client
options are added as further query parameters. POST and PUT carry a
url-encoded form, a multipart form with a "file" field, or for PutFile a
gzip stream sent with

	Content-Type: application/x-www-form-urlencoded
	Content-Encoding: gzip

A call is carried by an Engine from Built through AwaitingTransport and
Normalized to Done. The Strategy decides whether the transport call is
made inline (Sync) or in the background (Slots). Neither retries.

The server side of the protocol is in package miniapi.io/rpc/server.
*/
package rpc // import "miniapi.io/rpc"
