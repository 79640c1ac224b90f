// Copyright 2026 The RTAV Authors
// SPDX-License-Identifier: Apache-2.0

// Package signaling exchanges SDP descriptions with the realtime service.
//
// The exchange is one HTTP round-trip: [Client.CreateCall] posts the local
// offer and the session configuration as a multipart form (an "sdp" part
// with content type application/sdp and a "session" part with content type
// application/json) to POST <base>/v1/realtime/calls, authenticated with a
// bearer credential. A 2xx response carries the remote answer SDP in the
// body and, optionally, a server-assigned session identifier in the
// X-Session-Id header, returned together as [CallAnswer].
//
// Failures keep their shape: non-2xx responses become [CallError] with the
// status code and verbatim body for diagnostics; network-level failures
// are wrapped and propagated. The client never retries. TLS trust is a
// caller decision via ClientConfig.InsecureHostPolicy; [PrivateHostPolicy]
// approves loopback and RFC 1918 targets for self-signed local
// deployments.
package signaling
