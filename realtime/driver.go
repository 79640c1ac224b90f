// Copyright 2026 The RTAV Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/rtav-io/rtav-go/signaling"
	"github.com/rtav-io/rtav-go/transport"
)

// DefaultCompletionTimeout bounds the wait for a response after the call
// is established.
const DefaultCompletionTimeout = 60 * time.Second

// channelLabel is the control data channel label expected by the service.
const channelLabel = "realtime"

// TimeoutError reports that no completion event arrived within the
// configured bound. The session was torn down gracefully; this is distinct
// from a protocol-level error event.
type TimeoutError struct {
	Wait time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("realtime: no completion within %s", e.Wait)
}

// DriverConfig holds the collaborators for a Driver.
type DriverConfig struct {
	// Signaling performs the SDP exchange. Required.
	Signaling *signaling.Client
	// ICEServers configures candidate gathering. Empty means host
	// candidates only.
	ICEServers []webrtc.ICEServer
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Driver orchestrates one end-to-end conversation turn: transport setup,
// signaling exchange, event processing, bounded completion wait, and
// teardown. A Driver is reusable; each Run call is an independent session.
type Driver struct {
	signaling  *signaling.Client
	iceServers []webrtc.ICEServer
	logger     *slog.Logger
}

// NewDriver creates a Driver.
func NewDriver(config DriverConfig) (*Driver, error) {
	if config.Signaling == nil {
		return nil, fmt.Errorf("realtime: signaling client is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		signaling:  config.Signaling,
		iceServers: config.ICEServers,
		logger:     logger,
	}, nil
}

// CallParams describes one conversation turn.
type CallParams struct {
	// Session is the session configuration sent during signaling and
	// confirmed over the data channel.
	Session SessionConfig
	// Prompt is the user message submitted once the session is configured.
	Prompt string
	// CompletionTimeout bounds the wait for response.done or error after
	// the call is established. Zero means DefaultCompletionTimeout.
	CompletionTimeout time.Duration
	// Sink receives streamed content as it arrives. Optional.
	Sink StreamSink
}

// CallResult is the outcome of one conversation turn. It is returned
// alongside in-session errors (protocol error, timeout, cancellation) so
// callers still see the partial transcript; setup failures return nil.
type CallResult struct {
	// SessionID is the server-assigned session identifier: the one from
	// the session.created event when available, otherwise the signaling
	// response header.
	SessionID string
	// Transcript is the accumulated response text.
	Transcript string
}

// Run performs one conversation turn. It blocks until the session
// completes, the completion timeout elapses, or ctx is cancelled; in every
// case the transport is torn down before returning. Teardown failures are
// logged, never propagated over an already-failing path.
func (d *Driver) Run(ctx context.Context, params CallParams) (*CallResult, error) {
	if err := params.Session.Validate(); err != nil {
		return nil, err
	}
	if params.Prompt == "" {
		return nil, fmt.Errorf("realtime: prompt is required")
	}
	timeout := params.CompletionTimeout
	if timeout <= 0 {
		timeout = DefaultCompletionTimeout
	}

	peer, err := transport.NewPeer(transport.PeerConfig{ICEServers: d.iceServers}, d.logger)
	if err != nil {
		return nil, fmt.Errorf("realtime: transport setup: %w", err)
	}
	defer d.closePeer(peer)

	channel, err := peer.OpenChannel(channelLabel)
	if err != nil {
		return nil, fmt.Errorf("realtime: opening control channel: %w", err)
	}

	offerSDP, err := peer.CreateOffer(ctx)
	if err != nil {
		return nil, fmt.Errorf("realtime: creating offer: %w", err)
	}

	sessionJSON, err := json.Marshal(params.Session)
	if err != nil {
		return nil, fmt.Errorf("realtime: encoding session configuration: %w", err)
	}

	answer, err := d.signaling.CreateCall(ctx, offerSDP, sessionJSON)
	if err != nil {
		return nil, err
	}

	if err := peer.ApplyAnswer(answer.SDP); err != nil {
		return nil, fmt.Errorf("realtime: applying answer: %w", err)
	}

	machine := NewMachine(params.Session, params.Prompt, channel, params.Sink, d.logger)
	router := NewRouter(machine, d.logger)

	routerCtx, stopRouter := context.WithCancel(ctx)
	defer stopRouter()
	routerDone := make(chan struct{})
	go func() {
		defer close(routerDone)
		router.Run(routerCtx, channel.Messages(), peer.ConnectionStates())
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var sessionErr error
	select {
	case <-machine.Done():
		sessionErr = machine.Err()
	case <-timer.C:
		d.logger.Warn("completion wait timed out", "timeout", timeout)
		sessionErr = &TimeoutError{Wait: timeout}
	case <-ctx.Done():
		d.logger.Info("call cancelled", "cause", ctx.Err())
		sessionErr = ctx.Err()
	}

	// Stop the router and wait for it so no handler runs concurrently
	// with teardown.
	stopRouter()
	<-routerDone

	result := &CallResult{
		SessionID:  machine.SessionID(),
		Transcript: machine.Transcript(),
	}
	if result.SessionID == "" {
		result.SessionID = answer.SessionID
	}
	return result, sessionErr
}

// closePeer releases transport resources. Close is idempotent, and its
// failure is logged rather than propagated: by the time teardown runs the
// call outcome is already decided.
func (d *Driver) closePeer(peer *transport.Peer) {
	if err := peer.Close(); err != nil {
		d.logger.Warn("closing peer connection", "error", err)
	}
}
