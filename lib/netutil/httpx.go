// Copyright 2026 The RTAV Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides bounded HTTP response reading.
//
// The helpers exist so that no response body read is ever unbounded: a
// misbehaving signaling endpoint must not be able to exhaust client
// memory. They are for one-shot API responses (the SDP answer, error
// bodies), not for streaming transfers.
package netutil

import "io"

// MaxResponseSize is the bound on response body reads: 16 MB. An SDP
// answer is a few kilobytes and error bodies are smaller still; the limit
// is generous so it never interferes with a legitimate response.
const MaxResponseSize int64 = 16 << 20

// ReadResponse reads a response body up to MaxResponseSize bytes. Use
// instead of io.ReadAll when reading HTTP response bodies.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// ErrorBody reads an HTTP error response body and returns it as a string
// for diagnostic error messages. Read errors are silently ignored; a
// partial or empty body is still useful in an error message.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, MaxResponseSize))
	return string(data)
}
