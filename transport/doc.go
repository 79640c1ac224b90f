// Copyright 2026 The RTAV Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport wraps pion/webrtc for one-shot realtime calls.
//
// [Peer] owns a single outbound PeerConnection. The call flow mirrors the
// service's signaling model: open the control data channel first (so the
// offer carries a data channel section), generate a complete offer with
// [Peer.CreateOffer] (vanilla ICE: candidate gathering settles before the
// SDP is returned, bounded by a fixed grace period), exchange it over HTTP
// signaling, then apply the answer with [Peer.ApplyAnswer]. A sendrecv
// audio transceiver is always present because the service requires an
// audio media section in the offer; media flows on the transport itself
// and never passes through this package.
//
// [Channel] exposes the control data channel as discrete messages rather
// than a byte stream: the realtime protocol is JSON text frames and SCTP
// message boundaries are the natural framing. Inbound frames arrive
// ordered and reliable on [Channel.Messages].
//
// [Peer.ConnectionStates] surfaces asynchronous connection state
// transitions; Failed and Disconnected are terminal for a call and the
// driver treats them as implicit completion. [Peer.Close] is idempotent
// and safe to invoke concurrently from watchdog timers or signal handlers.
package transport
