// Copyright 2026 The RTAV Authors
// SPDX-License-Identifier: Apache-2.0

// Package realtime drives one conversation turn with a realtime inference
// service over a WebRTC data channel.
//
// The protocol is push-driven: after signaling establishes the call, the
// service announces the session (session.created), confirms configuration
// (session.updated), streams response fragments (delta events), and marks
// completion (response.done or error). [Machine] consumes these events in
// delivery order and emits the three client messages (session.update,
// conversation.item.create, response.create), each gated on a specific
// inbound event and each sent at most once per session. The configure and
// submit gates are explicit boolean latches rather than state checks
// because the service may repeat confirmation events; a duplicate
// session.updated must confirm, not re-submit.
//
// [Router] parses raw frames, drops malformed or binary ones without
// destabilizing the session, and dispatches sequentially from a single
// goroutine. [Driver.Run] orchestrates the whole turn: transport setup via
// the transport package, the SDP exchange via the signaling package, event
// processing, a bounded completion wait (default 60 seconds), and
// unconditional idempotent teardown.
//
// Failure surfaces are typed: [ProtocolError] for server error events,
// [TimeoutError] for an exhausted completion wait, [ErrConnectionLost]
// for transport failure before completion. Setup failures (negotiation,
// signaling) propagate from their packages unchanged.
package realtime
