// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

//go:build !windows

package config

import (
	"log/slog"
	"os"
)

// WarnInsecurePermissions logs when the config file at path can be read by
// group or others. It warns only if the file holds plaintext API keys
// (see PlaintextSecretKeys); otherwise the finding is logged at debug.
func WarnInsecurePermissions(path string, plaintextKeys []string) {
	if path == "" {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		slog.Debug("could not stat config file for permission check", "path", path, "error", err)
		return
	}
	if info.Mode().Perm()&0o044 == 0 {
		return
	}

	if len(plaintextKeys) == 0 {
		slog.Debug("config file is readable by other users but holds no plaintext keys",
			"path", path, "mode", info.Mode())
		return
	}
	slog.Warn("config file with plaintext API keys is readable by other users",
		"path", path,
		"mode", info.Mode(),
		"keys", plaintextKeys,
		"hint", "chmod 0600 or move the keys to keyring:// with `shopkeep secret set`",
	)
}
