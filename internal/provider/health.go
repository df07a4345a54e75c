// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package provider

import (
	"sync"
	"time"

	"github.com/shopkeep-dev/shopkeep/pkg/health"
)

// DefaultHealthCooldown is how long a provider is reported unavailable
// after a failed call.
const DefaultHealthCooldown = 30 * time.Second

// HealthTracker records call outcomes for one provider. It starts healthy;
// a failure marks it unavailable until the cooldown elapses or a call
// succeeds.
type HealthTracker struct {
	mu           sync.RWMutex
	healthy      bool
	failedAt     time.Time
	lastError    string
	cooldown     time.Duration
	failureCount int64
	now          func() time.Time
}

func NewHealthTracker(cooldown time.Duration) *HealthTracker {
	if cooldown <= 0 {
		cooldown = DefaultHealthCooldown
	}
	return &HealthTracker{healthy: true, cooldown: cooldown, now: time.Now}
}

func (h *HealthTracker) availableLocked() bool {
	return h.healthy || h.now().Sub(h.failedAt) >= h.cooldown
}

func (h *HealthTracker) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.availableLocked()
}

// Record updates the tracker with the outcome of one call.
func (h *HealthTracker) Record(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		h.healthy = true
		return
	}
	h.healthy = false
	h.failedAt = h.now()
	h.lastError = err.Error()
	h.failureCount++
}

// Metrics returns a snapshot safe to serialise.
func (h *HealthTracker) Metrics() health.Metrics {
	h.mu.RLock()
	defer h.mu.RUnlock()

	m := health.Metrics{
		FailureCount: h.failureCount,
		Available:    h.availableLocked(),
		LastError:    h.lastError,
	}
	if h.failureCount > 0 {
		t := h.failedAt
		m.LastFailureAt = &t
	}
	if !h.healthy {
		until := h.failedAt.Add(h.cooldown)
		m.CooldownUntil = &until
	}
	return m
}
