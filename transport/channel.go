// Copyright 2026 The RTAV Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"log/slog"

	"github.com/pion/webrtc/v4"
)

// ErrPeerClosed is returned from transport operations after Close.
var ErrPeerClosed = errors.New("transport: peer closed")

// inboundBuffer bounds the number of undelivered inbound messages. The
// protocol is request/stream shaped (one outbound trigger, a burst of
// delta events back), so a modest buffer absorbs delivery jitter without
// letting a stalled consumer accumulate unbounded memory.
const inboundBuffer = 256

// Message is one frame received on a data channel. The realtime protocol
// carries only structured text control frames; binary frames can still
// arrive from a misbehaving remote and are surfaced with IsText false so
// the router can skip them.
type Message struct {
	Data   []byte
	IsText bool
}

// Channel wraps a pion data channel as a message-oriented endpoint.
//
// Unlike a stream transport there is no Detach here: protocol events are
// discrete JSON frames and SCTP message boundaries are exactly the framing
// the router needs. Inbound frames are delivered in SCTP order on the
// Messages channel, which is closed when the data channel or the peer
// connection closes.
type Channel struct {
	dataChannel *webrtc.DataChannel
	logger      *slog.Logger

	inbound chan Message
	opened  chan struct{}
}

func newChannel(dataChannel *webrtc.DataChannel, logger *slog.Logger) *Channel {
	channel := &Channel{
		dataChannel: dataChannel,
		logger:      logger,
		inbound:     make(chan Message, inboundBuffer),
		opened:      make(chan struct{}),
	}

	dataChannel.OnOpen(func() {
		logger.Info("data channel opened", "label", dataChannel.Label())
		close(channel.opened)
	})

	dataChannel.OnMessage(func(message webrtc.DataChannelMessage) {
		channel.inbound <- Message{
			Data:   message.Data,
			IsText: message.IsString,
		}
	})

	dataChannel.OnClose(func() {
		logger.Info("data channel closed", "label", dataChannel.Label())
		close(channel.inbound)
	})

	return channel
}

// Label returns the data channel label.
func (c *Channel) Label() string {
	return c.dataChannel.Label()
}

// Opened returns a channel that is closed once the data channel is open
// and Send will succeed.
func (c *Channel) Opened() <-chan struct{} {
	return c.opened
}

// Send writes one text frame. Returns an error if the channel is not open.
func (c *Channel) Send(payload []byte) error {
	return c.dataChannel.SendText(string(payload))
}

// Messages returns the ordered stream of inbound frames. The channel is
// closed when the data channel closes; ranging over it is the router's
// main loop.
func (c *Channel) Messages() <-chan Message {
	return c.inbound
}
