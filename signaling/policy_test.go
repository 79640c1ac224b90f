// Copyright 2026 The RTAV Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import "testing"

func TestPrivateHostPolicy(t *testing.T) {
	cases := []struct {
		host string
		want bool
	}{
		{"localhost", true},
		{"127.0.0.1", true},
		{"127.8.8.8", true},
		{"::1", true},
		{"10.0.0.1", true},
		{"172.16.0.1", true},
		{"172.31.255.1", true},
		{"192.168.1.5", true},
		{"172.32.0.1", false},
		{"8.8.8.8", false},
		{"2001:db8::1", false},
		{"api.rtav.io", false},
		// Hostname that might resolve privately is still rejected.
		{"router.local", false},
		{"", false},
	}

	for _, testCase := range cases {
		if got := PrivateHostPolicy(testCase.host); got != testCase.want {
			t.Errorf("PrivateHostPolicy(%q) = %v, want %v", testCase.host, got, testCase.want)
		}
	}
}
