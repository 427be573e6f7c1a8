// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpc

// Compress uploads to a temporary file before sending them.
const defaultBufferedUploads = true
