// Copyright 2026 The RTAV Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pion/webrtc/v4"

	"github.com/rtav-io/rtav-go/transport"
)

// Router classifies inbound frames by their type discriminator and feeds
// them to the machine. Dispatch is strictly sequential in channel delivery
// order: Run is the only goroutine that mutates session state, which is
// what lets the machine trust event ordering (session.created before
// session.updated) without further synchronization.
type Router struct {
	machine *Machine
	logger  *slog.Logger
}

// NewRouter creates a router feeding machine.
func NewRouter(machine *Machine, logger *slog.Logger) *Router {
	return &Router{machine: machine, logger: logger}
}

// Route parses one frame and dispatches it. Malformed payloads are logged
// and dropped; they never terminate the session. Binary frames are skipped
// because the protocol carries only structured text control messages, with
// media out-of-band on the transport.
func (r *Router) Route(message transport.Message) {
	if !message.IsText {
		r.logger.Debug("binary frame skipped", "bytes", len(message.Data))
		return
	}

	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message.Data, &envelope); err != nil {
		r.logger.Warn("malformed message dropped", "error", err)
		return
	}
	if envelope.Type == "" {
		r.logger.Warn("message without type discriminator dropped")
		return
	}

	r.machine.HandleEvent(ServerEvent{
		Type:    envelope.Type,
		Payload: json.RawMessage(message.Data),
	})
}

// Run consumes inbound frames and connection state transitions until the
// session completes, the message channel closes, or ctx is cancelled.
// Connection failure and disconnection are forwarded to the machine as
// implicit completion triggers.
func (r *Router) Run(ctx context.Context, messages <-chan transport.Message, states <-chan webrtc.PeerConnectionState) {
	for {
		select {
		case message, ok := <-messages:
			if !ok {
				// Channel closed under us without a protocol-level
				// completion: same treatment as a lost connection.
				r.machine.HandleConnectionState("channel closed")
				return
			}
			r.Route(message)
		case state := <-states:
			switch state {
			case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateDisconnected:
				r.machine.HandleConnectionState(state.String())
				return
			}
		case <-r.machine.Done():
			return
		case <-ctx.Done():
			return
		}
	}
}
