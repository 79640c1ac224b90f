// Copyright 2026 The RTAV Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"encoding/json"
	"fmt"
)

// SessionConfig describes the session to establish: which model answers,
// how it should behave, and which voice (and optionally avatar face)
// renders the response. The same object is sent twice, in the signaling
// request's session part and in the session.update event; the service
// tolerates the overlap.
//
// Extra carries vendor-specific fields verbatim. The protocol schema is
// open: unknown fields must pass through without validation, so Extra is
// merged into the marshaled object as-is. Named fields win on collision.
type SessionConfig struct {
	// Model is the model identifier, e.g. "gpt-5.2".
	Model string
	// Instructions is the system prompt for the session.
	Instructions string
	// Voice selects the output voice. Vendor-specific identifier.
	Voice string
	// Face selects the avatar for video-capable services. Optional.
	Face string
	// Extra is an opaque passthrough of additional session fields.
	Extra map[string]any
}

// MarshalJSON renders the vendor session object. The "type":"realtime"
// discriminator is always present; empty optional fields are omitted.
func (c SessionConfig) MarshalJSON() ([]byte, error) {
	object := make(map[string]any, len(c.Extra)+5)
	for key, value := range c.Extra {
		object[key] = value
	}
	object["type"] = "realtime"
	if c.Model != "" {
		object["model"] = c.Model
	}
	if c.Instructions != "" {
		object["instructions"] = c.Instructions
	}
	if c.Voice != "" {
		object["voice"] = c.Voice
	}
	if c.Face != "" {
		object["face"] = c.Face
	}
	return json.Marshal(object)
}

// Validate checks the fields required before any network activity.
func (c SessionConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("realtime: session model is required")
	}
	return nil
}
