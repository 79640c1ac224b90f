// Copyright 2026 The RTAV Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

const testOfferSDP = "v=0\r\no=- 0 0 IN IP4 127.0.0.1\r\nm=application 9 UDP/DTLS/SCTP webrtc-datachannel\r\n"

// capturedPart is one multipart form part as received by the test server.
type capturedPart struct {
	contentType string
	body        string
}

// TestCreateCall_Success verifies the whole request shape (path, method,
// bearer header, part names and content types) and the answer extraction.
func TestCreateCall_Success(t *testing.T) {
	var (
		gotPath   string
		gotMethod string
		gotAuth   string
		gotParts  map[string]capturedPart
	)

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		gotPath = request.URL.Path
		gotMethod = request.Method
		gotAuth = request.Header.Get("Authorization")

		gotParts = make(map[string]capturedPart)
		reader, err := request.MultipartReader()
		if err != nil {
			t.Errorf("request is not multipart: %v", err)
			http.Error(writer, "bad request", http.StatusBadRequest)
			return
		}
		for {
			part, err := reader.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Errorf("reading part: %v", err)
				break
			}
			body, _ := io.ReadAll(part)
			mediaType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
			gotParts[part.FormName()] = capturedPart{contentType: mediaType, body: string(body)}
		}

		writer.Header().Set("X-Session-Id", "call-42")
		writer.WriteHeader(http.StatusCreated)
		io.WriteString(writer, "v=0\r\nanswer\r\n")
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{
		BaseURL: server.URL,
		APIKey:  "secret-key",
		Logger:  testLogger(),
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	answer, err := client.CreateCall(context.Background(), testOfferSDP, []byte(`{"type":"realtime","model":"gpt-5.2"}`))
	if err != nil {
		t.Fatalf("CreateCall error: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if gotPath != "/v1/realtime/calls" {
		t.Errorf("path = %q, want /v1/realtime/calls", gotPath)
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("Authorization = %q, want bearer credential", gotAuth)
	}

	sdpPart, ok := gotParts["sdp"]
	if !ok {
		t.Fatal("request has no sdp part")
	}
	if sdpPart.contentType != "application/sdp" {
		t.Errorf("sdp part content type = %q, want application/sdp", sdpPart.contentType)
	}
	if sdpPart.body != testOfferSDP {
		t.Errorf("sdp part body = %q, want offer SDP", sdpPart.body)
	}

	sessionPart, ok := gotParts["session"]
	if !ok {
		t.Fatal("request has no session part")
	}
	if sessionPart.contentType != "application/json" {
		t.Errorf("session part content type = %q, want application/json", sessionPart.contentType)
	}

	if answer.SDP != "v=0\r\nanswer\r\n" {
		t.Errorf("answer SDP = %q", answer.SDP)
	}
	if answer.SessionID != "call-42" {
		t.Errorf("SessionID = %q, want call-42", answer.SessionID)
	}
}

// TestCreateCall_Rejection verifies that a non-2xx status becomes a
// structured CallError with the body verbatim.
func TestCreateCall_Rejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusForbidden)
		io.WriteString(writer, "invalid token")
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{
		BaseURL: server.URL,
		APIKey:  "wrong-key",
		Logger:  testLogger(),
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	_, err = client.CreateCall(context.Background(), testOfferSDP, []byte(`{}`))

	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("err = %v, want *CallError", err)
	}
	if callErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", callErr.StatusCode)
	}
	if callErr.Body != "invalid token" {
		t.Errorf("Body = %q, want %q", callErr.Body, "invalid token")
	}
}

// TestCreateCall_NetworkFailure verifies that a transport-level failure
// propagates as a wrapped error, not a CallError.
func TestCreateCall_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	serverURL := server.URL
	server.Close()

	client, err := NewClient(ClientConfig{
		BaseURL: serverURL,
		APIKey:  "key",
		Logger:  testLogger(),
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	_, err = client.CreateCall(context.Background(), testOfferSDP, []byte(`{}`))
	if err == nil {
		t.Fatal("CreateCall succeeded against a closed server")
	}
	var callErr *CallError
	if errors.As(err, &callErr) {
		t.Errorf("network failure surfaced as CallError: %v", err)
	}
}

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient(ClientConfig{APIKey: "key"}); err == nil {
		t.Error("NewClient accepted an empty BaseURL")
	}
	if _, err := NewClient(ClientConfig{BaseURL: "https://api.rtav.io"}); err == nil {
		t.Error("NewClient accepted an empty APIKey")
	}
}

// TestCreateCall_InsecurePolicy exercises the TLS trust exemption against
// a self-signed local server: the call must fail without the policy and
// succeed with it.
func TestCreateCall_InsecurePolicy(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusCreated)
		io.WriteString(writer, "v=0\r\nanswer\r\n")
	}))
	defer server.Close()

	strict, err := NewClient(ClientConfig{
		BaseURL: server.URL,
		APIKey:  "key",
		Logger:  testLogger(),
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if _, err := strict.CreateCall(context.Background(), testOfferSDP, []byte(`{}`)); err == nil {
		t.Error("CreateCall trusted a self-signed certificate without a policy")
	}

	relaxed, err := NewClient(ClientConfig{
		BaseURL:            server.URL,
		APIKey:             "key",
		InsecureHostPolicy: PrivateHostPolicy,
		Logger:             testLogger(),
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	answer, err := relaxed.CreateCall(context.Background(), testOfferSDP, []byte(`{}`))
	if err != nil {
		t.Fatalf("CreateCall with private-host policy failed: %v", err)
	}
	if answer.SDP == "" {
		t.Error("answer SDP is empty")
	}
}
