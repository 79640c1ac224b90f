// Copyright 2026 The RTAV Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides call profile loading for RTAV binaries.
//
// A profile is loaded from a single YAML file specified by:
//   - the --config flag passed to the command, or
//   - the RTAV_CONFIG environment variable
//
// There is no automatic discovery and environment variables do not
// override profile values; flags do. This keeps the effective
// configuration deterministic and auditable. The API credential is
// deliberately not a profile field: it comes from RTAV_API_KEY only, so
// profiles can be committed to version control.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile is the call profile for one realtime target.
type Profile struct {
	// BaseURL is the realtime service base URL.
	BaseURL string `yaml:"base_url"`

	// Model is the model identifier to request.
	Model string `yaml:"model"`

	// Instructions is the system prompt for the session.
	Instructions string `yaml:"instructions"`

	// Voice is the vendor-specific output voice identifier.
	Voice string `yaml:"voice"`

	// Face is the avatar identifier for video-capable services. Optional.
	Face string `yaml:"face"`

	// CompletionTimeout bounds the wait for a response after the call is
	// established, as a Go duration string ("45s"). Empty means the
	// driver default.
	CompletionTimeout string `yaml:"completion_timeout"`

	// AllowInsecurePrivate skips TLS certificate verification when the
	// target host is loopback or a private-network address. Only for
	// local deployments with self-signed certificates.
	AllowInsecurePrivate bool `yaml:"allow_insecure_private"`

	// SessionExtra carries vendor-specific session fields passed through
	// verbatim.
	SessionExtra map[string]any `yaml:"session_extra"`
}

// Default returns the default profile. These defaults are a base that the
// profile file and flags refine; BaseURL and Model already point at the
// hosted service so a bare invocation works.
func Default() Profile {
	return Profile{
		BaseURL:      "https://api.rtav.io",
		Model:        "gpt-5.2",
		Instructions: "You are a helpful assistant. Keep your responses concise.",
	}
}

// Load loads the profile from the RTAV_CONFIG environment variable, or
// returns Default when it is unset. Use LoadFile when the path comes from
// a flag.
func Load() (Profile, error) {
	path := os.Getenv("RTAV_CONFIG")
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads the profile from path, merging over Default. Unknown
// fields are an error: a typo in a profile must fail loudly, not silently
// fall back to a default.
func LoadFile(path string) (Profile, error) {
	profile := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("config: reading profile: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&profile); err != nil && err != io.EOF {
		return Profile{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return profile, nil
}

// Timeout parses the CompletionTimeout field. Empty yields zero, which
// callers treat as "use the default".
func (p Profile) Timeout() (time.Duration, error) {
	if p.CompletionTimeout == "" {
		return 0, nil
	}
	timeout, err := time.ParseDuration(p.CompletionTimeout)
	if err != nil {
		return 0, fmt.Errorf("config: invalid completion_timeout %q: %w", p.CompletionTimeout, err)
	}
	if timeout <= 0 {
		return 0, fmt.Errorf("config: completion_timeout must be positive, got %q", p.CompletionTimeout)
	}
	return timeout, nil
}
