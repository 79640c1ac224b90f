// Copyright 2026 The RTAV Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/rtav-io/rtav-go/lib/netutil"
)

// callsPath is the realtime call creation endpoint, relative to the
// service base URL.
const callsPath = "/v1/realtime/calls"

// sessionIDHeader carries the server-assigned session identifier on a
// successful call creation response.
const sessionIDHeader = "X-Session-Id"

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the base URL of the realtime service (e.g., "https://api.rtav.io").
	BaseURL string
	// APIKey is the bearer credential sent on every request.
	APIKey string
	// HTTPClient is used for all requests. If nil, a client is built from
	// the default transport, with TLS verification disabled only when
	// InsecureHostPolicy approves the target host.
	HTTPClient *http.Client
	// InsecureHostPolicy decides whether TLS certificate verification may
	// be skipped for the given host. Nil means verification is always on.
	// [PrivateHostPolicy] approves loopback and private-network targets,
	// matching local deployments with self-signed certificates. The client
	// never relaxes trust on its own.
	InsecureHostPolicy func(host string) bool
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Client performs the one-shot signaling exchange with the realtime
// service. It is stateless between calls and safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// CallAnswer is the successful result of a signaling exchange.
type CallAnswer struct {
	// SDP is the remote answer description.
	SDP string
	// SessionID is the server-assigned call identifier from the response
	// header, when the service provides one. The protocol-level session
	// identifier still arrives later in the session.created event.
	SessionID string
}

// CallError is a structured non-2xx response from the signaling endpoint.
// Callers can use errors.As to extract the status and diagnostic body:
//
//	var callErr *signaling.CallError
//	if errors.As(err, &callErr) {
//	    if callErr.StatusCode == http.StatusForbidden { ... }
//	}
type CallError struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int
	// Body is the response body, verbatim. Usually diagnostic text,
	// sometimes JSON; surfaced as-is for the caller.
	Body string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("signaling: call creation failed (%d): %s", e.StatusCode, e.Body)
}

// NewClient creates a signaling client. BaseURL and APIKey are required;
// credential validation happens here, before any network activity.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("signaling: BaseURL is required")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("signaling: APIKey is required")
	}

	parsed, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("signaling: invalid BaseURL %q: %w", config.BaseURL, err)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
		if config.InsecureHostPolicy != nil && config.InsecureHostPolicy(parsed.Hostname()) {
			logger.Warn("TLS certificate verification disabled for private target",
				"host", parsed.Hostname(),
			)
			httpClient.Transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			}
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		apiKey:     config.APIKey,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// CreateCall submits the local offer SDP and the session configuration,
// returning the remote answer description. The request is a multipart
// form with an "sdp" part (application/sdp) and a "session" part
// (application/json), authenticated with the bearer credential.
//
// Non-2xx responses surface as *CallError with the body verbatim.
// Network-level failures (DNS, TLS, timeout) are wrapped and propagated
// unchanged. There are no retries at this layer; retry policy belongs to
// the caller.
func (c *Client) CreateCall(ctx context.Context, offerSDP string, sessionJSON []byte) (*CallAnswer, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	if err := writeFormPart(form, "sdp", "application/sdp", []byte(offerSDP)); err != nil {
		return nil, fmt.Errorf("signaling: encoding sdp part: %w", err)
	}
	if err := writeFormPart(form, "session", "application/json", sessionJSON); err != nil {
		return nil, fmt.Errorf("signaling: encoding session part: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("signaling: finalizing form: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+callsPath, &body)
	if err != nil {
		return nil, fmt.Errorf("signaling: building request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+c.apiKey)
	request.Header.Set("Content-Type", form.FormDataContentType())

	c.logger.Info("creating realtime call", "url", c.baseURL+callsPath)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("signaling: posting offer: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, &CallError{
			StatusCode: response.StatusCode,
			Body:       netutil.ErrorBody(response.Body),
		}
	}

	answerSDP, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("signaling: reading answer: %w", err)
	}

	answer := &CallAnswer{
		SDP:       string(answerSDP),
		SessionID: response.Header.Get(sessionIDHeader),
	}
	if answer.SessionID != "" {
		c.logger.Info("realtime call created", "session_id", answer.SessionID)
	}
	return answer, nil
}

// writeFormPart adds one form field with an explicit content type. The
// service distinguishes the parts by both name and content type, so the
// default text/plain from multipart.Writer.WriteField is not usable here.
func writeFormPart(form *multipart.Writer, name, contentType string, payload []byte) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q`, name))
	header.Set("Content-Type", contentType)
	part, err := form.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = part.Write(payload)
	return err
}
