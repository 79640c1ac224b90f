// Copyright 2026 The RTAV Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import "net"

// PrivateHostPolicy reports whether host is a loopback or private-network
// target. It is the standard InsecureHostPolicy for development setups
// where a local deployment serves a self-signed certificate: "localhost",
// 127.0.0.0/8, ::1, and the RFC 1918 ranges (10/8, 172.16/12, 192.168/16).
//
// Hostnames other than "localhost" are never approved, even if they would
// resolve to a private address: resolution is attacker-influenced, the
// literal address is not.
func PrivateHostPolicy(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate()
}
