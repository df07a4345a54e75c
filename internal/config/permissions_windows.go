// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

//go:build windows

package config

import "log/slog"

// WarnInsecurePermissions only reports the plaintext keys on Windows; file
// access there is governed by ACLs, not mode bits.
func WarnInsecurePermissions(path string, plaintextKeys []string) {
	if path != "" && len(plaintextKeys) > 0 {
		slog.Debug("config file holds plaintext API keys", "path", path, "keys", plaintextKeys)
	}
}
