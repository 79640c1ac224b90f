// Copyright 2026 The RTAV Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// answeringPeer is the remote side of a call for tests: a raw pion peer
// that accepts the offer, answers it, and hands the inbound data channel
// to the test.
type answeringPeer struct {
	connection *webrtc.PeerConnection
	channels   chan *webrtc.DataChannel
}

func newAnsweringPeer(t *testing.T) *answeringPeer {
	t.Helper()

	settingEngine := webrtc.SettingEngine{}
	settingEngine.SetIncludeLoopbackCandidate(true)
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		t.Fatalf("registering codecs: %v", err)
	}
	api := webrtc.NewAPI(
		webrtc.WithSettingEngine(settingEngine),
		webrtc.WithMediaEngine(mediaEngine),
	)

	connection, err := api.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		t.Fatalf("creating answering peer: %v", err)
	}
	t.Cleanup(func() { connection.Close() })

	answerer := &answeringPeer{
		connection: connection,
		channels:   make(chan *webrtc.DataChannel, 1),
	}
	connection.OnDataChannel(func(dataChannel *webrtc.DataChannel) {
		answerer.channels <- dataChannel
	})
	return answerer
}

// answer applies the offer and returns the complete answer SDP.
func (a *answeringPeer) answer(t *testing.T, offerSDP string) string {
	t.Helper()

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offerSDP}
	if err := a.connection.SetRemoteDescription(offer); err != nil {
		t.Fatalf("setting remote offer: %v", err)
	}

	answer, err := a.connection.CreateAnswer(nil)
	if err != nil {
		t.Fatalf("creating answer: %v", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(a.connection)
	if err := a.connection.SetLocalDescription(answer); err != nil {
		t.Fatalf("setting local answer: %v", err)
	}
	select {
	case <-gatherComplete:
	case <-time.After(15 * time.Second):
		t.Fatal("answer ICE gathering timed out")
	}

	return a.connection.LocalDescription().SDP
}

// TestPeer_OfferCarriesMediaSections checks the offer shape without any
// network round-trip: the service requires both an audio section and a
// data channel section.
func TestPeer_OfferCarriesMediaSections(t *testing.T) {
	peer, err := NewPeer(PeerConfig{}, testLogger())
	if err != nil {
		t.Fatalf("NewPeer error: %v", err)
	}
	defer peer.Close()

	if _, err := peer.OpenChannel("realtime"); err != nil {
		t.Fatalf("OpenChannel error: %v", err)
	}

	offer, err := peer.CreateOffer(context.Background())
	if err != nil {
		t.Fatalf("CreateOffer error: %v", err)
	}

	if !strings.Contains(offer, "m=audio") {
		t.Error("offer has no audio media section")
	}
	if !strings.Contains(offer, "m=application") {
		t.Error("offer has no data channel section")
	}
}

// TestPeer_ChannelRoundTrip establishes a loopback call and exchanges
// frames in both directions over the control channel.
func TestPeer_ChannelRoundTrip(t *testing.T) {
	peer, err := NewPeer(PeerConfig{}, testLogger())
	if err != nil {
		t.Fatalf("NewPeer error: %v", err)
	}
	defer peer.Close()

	channel, err := peer.OpenChannel("realtime")
	if err != nil {
		t.Fatalf("OpenChannel error: %v", err)
	}
	if channel.Label() != "realtime" {
		t.Errorf("Label = %q, want realtime", channel.Label())
	}

	offer, err := peer.CreateOffer(context.Background())
	if err != nil {
		t.Fatalf("CreateOffer error: %v", err)
	}

	answerer := newAnsweringPeer(t)
	if err := peer.ApplyAnswer(answerer.answer(t, offer)); err != nil {
		t.Fatalf("ApplyAnswer error: %v", err)
	}

	// Wait for the channel to open on both sides.
	select {
	case <-channel.Opened():
	case <-time.After(30 * time.Second):
		t.Fatal("data channel did not open")
	}

	var remote *webrtc.DataChannel
	select {
	case remote = <-answerer.channels:
	case <-time.After(30 * time.Second):
		t.Fatal("answering peer saw no data channel")
	}

	// Remote to local.
	received := make(chan string, 4)
	go func() {
		for message := range channel.Messages() {
			if message.IsText {
				received <- string(message.Data)
			}
		}
	}()
	if err := remote.SendText(`{"type":"session.created"}`); err != nil {
		t.Fatalf("remote SendText error: %v", err)
	}
	select {
	case frame := <-received:
		if frame != `{"type":"session.created"}` {
			t.Errorf("frame = %q", frame)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("inbound frame not delivered")
	}

	// Local to remote.
	remoteReceived := make(chan string, 4)
	remote.OnMessage(func(message webrtc.DataChannelMessage) {
		remoteReceived <- string(message.Data)
	})
	if err := channel.Send([]byte(`{"type":"response.create"}`)); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	select {
	case frame := <-remoteReceived:
		if frame != `{"type":"response.create"}` {
			t.Errorf("frame = %q", frame)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("outbound frame not delivered")
	}
}

// TestPeer_ConnectionStates verifies that state transitions are observable
// on the states channel during a successful loopback connect.
func TestPeer_ConnectionStates(t *testing.T) {
	peer, err := NewPeer(PeerConfig{}, testLogger())
	if err != nil {
		t.Fatalf("NewPeer error: %v", err)
	}
	defer peer.Close()

	channel, err := peer.OpenChannel("realtime")
	if err != nil {
		t.Fatalf("OpenChannel error: %v", err)
	}

	offer, err := peer.CreateOffer(context.Background())
	if err != nil {
		t.Fatalf("CreateOffer error: %v", err)
	}
	answerer := newAnsweringPeer(t)
	if err := peer.ApplyAnswer(answerer.answer(t, offer)); err != nil {
		t.Fatalf("ApplyAnswer error: %v", err)
	}

	select {
	case <-channel.Opened():
	case <-time.After(30 * time.Second):
		t.Fatal("data channel did not open")
	}

	deadline := time.After(30 * time.Second)
	for {
		select {
		case state := <-peer.ConnectionStates():
			if state == webrtc.PeerConnectionStateConnected {
				return
			}
		case <-deadline:
			t.Fatal("never observed the connected state")
		}
	}
}

// TestPeer_CloseIdempotent closes the peer from several goroutines at
// once; every call must return without error or panic.
func TestPeer_CloseIdempotent(t *testing.T) {
	peer, err := NewPeer(PeerConfig{}, testLogger())
	if err != nil {
		t.Fatalf("NewPeer error: %v", err)
	}

	var waitGroup sync.WaitGroup
	for i := 0; i < 8; i++ {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			if err := peer.Close(); err != nil {
				t.Errorf("Close error: %v", err)
			}
		}()
	}
	waitGroup.Wait()

	if err := peer.Close(); err != nil {
		t.Errorf("Close after close error: %v", err)
	}
}

// TestPeer_CreateOfferAfterClose verifies the closed peer fails fast
// rather than hanging in the gathering wait.
func TestPeer_CreateOfferAfterClose(t *testing.T) {
	peer, err := NewPeer(PeerConfig{}, testLogger())
	if err != nil {
		t.Fatalf("NewPeer error: %v", err)
	}
	if _, err := peer.OpenChannel("realtime"); err != nil {
		t.Fatalf("OpenChannel error: %v", err)
	}
	peer.Close()

	if _, err := peer.CreateOffer(context.Background()); err == nil {
		t.Error("CreateOffer succeeded on a closed peer")
	}
}
