// Copyright 2026 The RTAV Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"strings"
	"testing"
)

func TestReadResponse(t *testing.T) {
	data, err := ReadResponse(strings.NewReader("v=0\r\no=- 0 0 IN IP4 127.0.0.1\r\n"))
	if err != nil {
		t.Fatalf("ReadResponse error: %v", err)
	}
	if !strings.HasPrefix(string(data), "v=0") {
		t.Errorf("data = %q, want SDP prefix", string(data))
	}
}

func TestErrorBody(t *testing.T) {
	body := ErrorBody(strings.NewReader("invalid token"))
	if body != "invalid token" {
		t.Errorf("body = %q, want %q", body, "invalid token")
	}
}

func TestErrorBodyEmpty(t *testing.T) {
	if body := ErrorBody(strings.NewReader("")); body != "" {
		t.Errorf("body = %q, want empty", body)
	}
}
