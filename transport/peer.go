// Copyright 2026 The RTAV Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
)

// iceGatherTimeout is the maximum time to wait for ICE candidate gathering
// to complete before the offer SDP is considered final.
const iceGatherTimeout = 15 * time.Second

// PeerConfig holds settings for creating a Peer.
type PeerConfig struct {
	// ICEServers is the list of STUN/TURN servers for candidate gathering.
	// Empty means host candidates only, which is sufficient for loopback
	// and same-LAN targets.
	ICEServers []webrtc.ICEServer
}

// Peer wraps a single outbound webrtc.PeerConnection for one realtime call.
//
// The lifecycle is strictly one-shot: OpenChannel (before the offer, so the
// SDP carries a data channel section), CreateOffer, ApplyAnswer, then Close.
// Connection establishment uses vanilla ICE: all candidates are gathered
// before CreateOffer returns, so signaling requires exactly one round-trip.
//
// Close is idempotent and safe to call from any goroutine, including a
// signal handler racing the event loop.
type Peer struct {
	connection *webrtc.PeerConnection
	logger     *slog.Logger

	// states carries connection state transitions for the driver. Buffered
	// so pion's callback goroutine never blocks on a slow consumer.
	states chan webrtc.PeerConnectionState

	closed    chan struct{}
	closeOnce sync.Once
}

// NewPeer creates the underlying PeerConnection and registers state
// monitoring. A sendrecv audio transceiver is added because the realtime
// service rejects offers without an audio media section; the audio itself
// flows out-of-band on the transport and is not handled here.
func NewPeer(config PeerConfig, logger *slog.Logger) (*Peer, error) {
	settingEngine := webrtc.SettingEngine{}
	settingEngine.SetIncludeLoopbackCandidate(true)

	// Default codecs and interceptors are required for the audio media
	// section; a bare MediaEngine cannot negotiate the transceiver.
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("registering codecs: %w", err)
	}
	interceptorRegistry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, interceptorRegistry); err != nil {
		return nil, fmt.Errorf("registering interceptors: %w", err)
	}

	api := webrtc.NewAPI(
		webrtc.WithSettingEngine(settingEngine),
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithInterceptorRegistry(interceptorRegistry),
	)
	connection, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers: config.ICEServers,
	})
	if err != nil {
		return nil, fmt.Errorf("creating PeerConnection: %w", err)
	}

	peer := &Peer{
		connection: connection,
		logger:     logger,
		states:     make(chan webrtc.PeerConnectionState, 16),
		closed:     make(chan struct{}),
	}

	if _, err := connection.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio,
		webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionSendrecv},
	); err != nil {
		connection.Close()
		return nil, fmt.Errorf("adding audio transceiver: %w", err)
	}

	connection.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		logger.Info("remote media track received",
			"kind", track.Kind().String(),
			"id", track.ID(),
		)
	})

	connection.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		logger.Info("connection state change", "state", state.String())
		select {
		case peer.states <- state:
		case <-peer.closed:
		default:
			// A full buffer means the consumer is gone; dropping a
			// transition is preferable to blocking pion's callback.
		}
	})

	return peer, nil
}

// OpenChannel creates an ordered, reliable data channel with the given
// label. Must be called before CreateOffer so that pion includes a data
// channel section in the SDP.
func (p *Peer) OpenChannel(label string) (*Channel, error) {
	ordered := true
	dataChannel, err := p.connection.CreateDataChannel(label, &webrtc.DataChannelInit{
		Ordered: &ordered,
	})
	if err != nil {
		return nil, fmt.Errorf("creating data channel %s: %w", label, err)
	}
	return newChannel(dataChannel, p.logger), nil
}

// CreateOffer generates the local SDP offer and waits for ICE candidate
// gathering to settle (vanilla ICE). The returned SDP is complete and
// ready for the signaling exchange.
func (p *Peer) CreateOffer(ctx context.Context) (string, error) {
	offer, err := p.connection.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("creating SDP offer: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(p.connection)
	if err := p.connection.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("setting local description: %w", err)
	}

	select {
	case <-gatherComplete:
	case <-time.After(iceGatherTimeout):
		return "", fmt.Errorf("ICE gathering timed out after %s", iceGatherTimeout)
	case <-ctx.Done():
		return "", ctx.Err()
	case <-p.closed:
		return "", ErrPeerClosed
	}

	return p.connection.LocalDescription().SDP, nil
}

// ApplyAnswer sets the remote answer description received from the
// signaling exchange. After this returns, ICE connectivity checks run and
// the data channel opens asynchronously.
func (p *Peer) ApplyAnswer(sdp string) error {
	answer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  sdp,
	}
	if err := p.connection.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("setting remote description: %w", err)
	}
	return nil
}

// ConnectionStates returns the stream of connection state transitions.
// The driver watches for Failed and Disconnected, which terminate the
// session even when no protocol-level completion event was observed.
func (p *Peer) ConnectionStates() <-chan webrtc.PeerConnectionState {
	return p.states
}

// Close shuts down the PeerConnection and releases transport resources.
// Safe to call multiple times and from multiple goroutines concurrently;
// only the first call closes, the rest return nil.
func (p *Peer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.closed)
		err = p.connection.Close()
	})
	return err
}
