// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

// Package health holds the wire types for provider health reporting.
package health

import "time"

// Metrics is a point-in-time view of a provider's recent call outcomes.
type Metrics struct {
	FailureCount  int64      `json:"failure_count"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	CooldownUntil *time.Time `json:"cooldown_until,omitempty"`
	Available     bool       `json:"available"`
}

// ProviderStatus pairs a provider name with its metrics.
type ProviderStatus struct {
	Name string `json:"name"`
	Metrics
}
