// Copyright 2026 The RTAV Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"encoding/json"
	"io"
)

// WriterSink streams text deltas to an io.Writer and renders media deltas
// as single progress markers. This is the sink behind the CLI's live
// console output; write errors are ignored because a broken console must
// not abort an in-flight session.
type WriterSink struct {
	// Text receives every text delta verbatim, unbuffered.
	Text io.Writer
	// MediaMarker, when non-empty, is written once per media delta as a
	// progress indicator. The payload itself is discarded: rendering video
	// frames is out of scope, the marker only shows that frames flow.
	MediaMarker string
}

func (s *WriterSink) TextDelta(delta string) {
	io.WriteString(s.Text, delta)
}

func (s *WriterSink) MediaDelta(string, json.RawMessage) {
	if s.MediaMarker != "" {
		io.WriteString(s.Text, s.MediaMarker)
	}
}
