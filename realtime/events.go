// Copyright 2026 The RTAV Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import "encoding/json"

// Server event types consumed from the data channel. Types not listed here
// still flow through the router; the machine forwards them to diagnostics
// without a state change.
const (
	EventSessionCreated   = "session.created"
	EventSessionUpdated   = "session.updated"
	EventResponseCreated  = "response.created"
	EventOutputTextDelta  = "response.output_text.delta"
	EventTextDelta        = "response.text.delta"
	EventOutputImageDelta = "response.output_image.delta"
	EventImageDelta       = "response.image.delta"
	EventResponseDone     = "response.done"
	EventError            = "error"
)

// Client event types produced on the data channel.
const (
	eventSessionUpdate          = "session.update"
	eventConversationItemCreate = "conversation.item.create"
	eventResponseCreate         = "response.create"
)

// ServerEvent is one decoded protocol event: the type discriminator plus
// the complete raw frame. Payload stays raw because the vocabulary is
// open-ended; each handler decodes only the fields it needs.
type ServerEvent struct {
	Type    string
	Payload json.RawMessage
}

// sessionCreatedPayload extracts the server-assigned session identifier.
type sessionCreatedPayload struct {
	Session struct {
		ID string `json:"id"`
	} `json:"session"`
}

// deltaPayload extracts the incremental content of a delta event.
type deltaPayload struct {
	Delta string `json:"delta"`
}

// errorPayload extracts the diagnostic fields of a protocol error event.
// The error object is vendor-shaped; only code and message are relied on.
type errorPayload struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// sessionUpdateEvent configures the session after creation.
type sessionUpdateEvent struct {
	Type    string          `json:"type"`
	Session json.RawMessage `json:"session"`
}

// conversationItemCreateEvent submits one user message with a single text
// content part.
type conversationItemCreateEvent struct {
	Type string           `json:"type"`
	Item conversationItem `json:"item"`
}

type conversationItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Content []itemContent `json:"content"`
}

type itemContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// responseCreateEvent triggers response generation. The payload is just
// the type discriminator.
type responseCreateEvent struct {
	Type string `json:"type"`
}

func newConversationItemCreate(text string) conversationItemCreateEvent {
	return conversationItemCreateEvent{
		Type: eventConversationItemCreate,
		Item: conversationItem{
			Type: "message",
			Role: "user",
			Content: []itemContent{
				{Type: "input_text", Text: text},
			},
		},
	}
}
