// Copyright 2026 The RTAV Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// State is the session lifecycle position.
type State int

const (
	// StateAwaitingSession is the initial state, before the service has
	// announced the session.
	StateAwaitingSession State = iota
	// StateConfiguring means session.update has been sent and the machine
	// is waiting for the service to confirm it.
	StateConfiguring
	// StateReady means the configuration is confirmed and the user message
	// has been submitted but the response has not been triggered yet. The
	// machine passes through this state within a single confirmation
	// event; it is observable only between the two emissions.
	StateReady
	// StateResponding means response generation has been triggered and
	// delta events are expected.
	StateResponding
	// StateDone is terminal: the completion signal is set and no further
	// transition occurs.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitingSession:
		return "awaiting-session"
	case StateConfiguring:
		return "configuring"
	case StateReady:
		return "ready"
	case StateResponding:
		return "responding"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrConnectionLost reports that the transport failed or disconnected
// before the session reached a protocol-level completion.
var ErrConnectionLost = errors.New("realtime: connection lost before completion")

// ProtocolError is a server-reported error event. The session ends cleanly
// in StateDone; the message is surfaced verbatim for diagnostics.
type ProtocolError struct {
	Code    string
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("realtime: server error %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("realtime: server error: %s", e.Message)
}

// Sender writes one outbound protocol frame. Implemented by
// transport.Channel; tests substitute an in-memory recorder.
type Sender interface {
	Send(payload []byte) error
}

// StreamSink receives caller-visible streamed content as it arrives.
// TextDelta is called once per non-empty text fragment, in delivery order.
// MediaDelta forwards image/video fragments opaquely; the machine does not
// interpret them. Both are called from the single event-processing
// goroutine and must not block.
type StreamSink interface {
	TextDelta(delta string)
	MediaDelta(eventType string, payload json.RawMessage)
}

// Machine is the session state machine. It consumes protocol events in
// channel delivery order, emits the configure and submit messages exactly
// once each, accumulates the streamed transcript, and owns the one-shot
// completion signal.
//
// HandleEvent and HandleConnectionState must be called from a single
// goroutine (the router's). The accessors are safe from any goroutine.
type Machine struct {
	config SessionConfig
	prompt string
	sender Sender
	sink   StreamSink
	logger *slog.Logger

	mu         sync.Mutex
	state      State
	sessionID  string
	transcript strings.Builder
	// configured and submitted gate the two side-effecting emissions
	// independently of state: the service may repeat confirmation events
	// (session.updated has been observed to arrive more than once) and a
	// repeat must never re-trigger a send.
	configured bool
	submitted  bool
	err        error

	done     chan struct{}
	doneOnce sync.Once
}

// NewMachine creates a session state machine. prompt is the user message
// submitted after the session is configured. sink may be nil when the
// caller only wants the accumulated transcript.
func NewMachine(config SessionConfig, prompt string, sender Sender, sink StreamSink, logger *slog.Logger) *Machine {
	if sink == nil {
		sink = nopSink{}
	}
	return &Machine{
		config: config,
		prompt: prompt,
		sender: sender,
		sink:   sink,
		logger: logger,
		state:  StateAwaitingSession,
		done:   make(chan struct{}),
	}
}

// HandleEvent applies one inbound protocol event. Events arriving after
// completion are ignored; unrecognized types are logged and ignored.
func (m *Machine) HandleEvent(event ServerEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateDone {
		m.logger.Debug("event after completion ignored", "type", event.Type)
		return
	}

	switch event.Type {
	case EventSessionCreated:
		m.handleSessionCreated(event)
	case EventSessionUpdated:
		m.handleSessionUpdated()
	case EventResponseCreated:
		m.logger.Info("response started")
	case EventOutputTextDelta, EventTextDelta:
		m.handleTextDelta(event)
	case EventOutputImageDelta, EventImageDelta:
		m.sink.MediaDelta(event.Type, event.Payload)
	case EventResponseDone:
		m.logger.Info("response complete", "session_id", m.sessionID)
		m.completeLocked(nil)
	case EventError:
		m.handleError(event)
	default:
		m.logger.Debug("unhandled event", "type", event.Type, "state", m.state.String())
	}
}

func (m *Machine) handleSessionCreated(event ServerEvent) {
	if m.state != StateAwaitingSession {
		m.logger.Warn("duplicate session.created ignored", "state", m.state.String())
		return
	}

	var payload sessionCreatedPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		m.logger.Warn("session.created payload not decodable", "error", err)
	}
	m.sessionID = payload.Session.ID
	m.logger.Info("session created", "session_id", m.sessionID)

	sessionJSON, err := json.Marshal(m.config)
	if err != nil {
		m.completeLocked(fmt.Errorf("encoding session configuration: %w", err))
		return
	}
	if err := m.send(sessionUpdateEvent{Type: eventSessionUpdate, Session: sessionJSON}); err != nil {
		m.completeLocked(fmt.Errorf("sending session.update: %w", err))
		return
	}
	m.configured = true
	m.state = StateConfiguring
}

// handleSessionUpdated runs the single-submission gate. The first
// confirmation after configuration submits the user message and triggers
// the response; every later confirmation is a redundant echo and must not
// emit anything.
func (m *Machine) handleSessionUpdated() {
	if !m.configured {
		// Confirmation for a configuration that was never sent: the
		// service announced session.updated before session.created was
		// processed. Nothing to submit against; ignore.
		m.logger.Warn("session.updated before session.created ignored")
		return
	}
	if m.submitted {
		m.logger.Info("session updated again, message already submitted")
		return
	}

	m.logger.Info("session configured, submitting message")
	m.submitted = true

	if err := m.send(newConversationItemCreate(m.prompt)); err != nil {
		m.completeLocked(fmt.Errorf("sending conversation.item.create: %w", err))
		return
	}
	m.state = StateReady

	if err := m.send(responseCreateEvent{Type: eventResponseCreate}); err != nil {
		m.completeLocked(fmt.Errorf("sending response.create: %w", err))
		return
	}
	m.state = StateResponding
}

func (m *Machine) handleTextDelta(event ServerEvent) {
	var payload deltaPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		m.logger.Warn("delta payload not decodable", "type", event.Type, "error", err)
		return
	}
	// Empty deltas are valid no-ops; granularity is the service's choice.
	if payload.Delta == "" {
		return
	}
	m.transcript.WriteString(payload.Delta)
	m.sink.TextDelta(payload.Delta)
}

func (m *Machine) handleError(event ServerEvent) {
	var payload errorPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		m.logger.Warn("error payload not decodable", "error", err)
	}
	message := payload.Error.Message
	if message == "" {
		message = "unknown error"
	}
	m.logger.Error("server error event", "code", payload.Error.Code, "message", message)
	m.completeLocked(&ProtocolError{Code: payload.Error.Code, Message: message})
}

// HandleConnectionState reacts to transport state transitions. A failed or
// disconnected connection completes the session even though no
// protocol-level response.done or error event was observed.
func (m *Machine) HandleConnectionState(state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateDone {
		return
	}
	m.logger.Warn("connection lost", "state", state, "session_state", m.state.String())
	m.completeLocked(fmt.Errorf("%w (connection %s)", ErrConnectionLost, state))
}

// Fail records err and sets the completion signal. Used by the driver for
// failures originating outside the event stream.
func (m *Machine) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateDone {
		return
	}
	m.completeLocked(err)
}

// completeLocked sets the one-shot completion signal and moves to
// StateDone. Caller holds m.mu. Later calls keep the first recorded error.
func (m *Machine) completeLocked(err error) {
	m.state = StateDone
	m.doneOnce.Do(func() {
		m.err = err
		close(m.done)
	})
}

func (m *Machine) send(message any) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encoding outbound event: %w", err)
	}
	return m.sender.Send(payload)
}

// Done returns the completion signal channel. It is closed exactly once,
// whether the session ended in success, a server error, a transport
// failure, or an emission failure.
func (m *Machine) Done() <-chan struct{} {
	return m.done
}

// Err returns the session failure, or nil for a successful completion.
// Only meaningful after Done is closed.
func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// State returns the current lifecycle state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SessionID returns the server-assigned session identifier, empty until
// session.created has been processed.
func (m *Machine) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Transcript returns the text accumulated from delta events so far.
func (m *Machine) Transcript() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transcript.String()
}

// nopSink discards streamed content.
type nopSink struct{}

func (nopSink) TextDelta(string)                   {}
func (nopSink) MediaDelta(string, json.RawMessage) {}
