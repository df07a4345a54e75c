// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package guard

import (
	"slices"
	"strings"

	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

// Mode decides what happens to text that matched a rule.
type Mode string

const (
	ModeBlock  Mode = "block"
	ModeFlag   Mode = "flag"
	ModeRedact Mode = "redact"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeBlock, ModeFlag, ModeRedact:
		return true
	default:
		return false
	}
}

// ParseMode parses a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", shoperr.Errorf(shoperr.CodeConfigValidateInvalidValue, "invalid guard mode %q (want block, flag or redact)", s)
	}
	return m, nil
}

const redactedMarker = "[REDACTED]"

// Apply resolves res under mode. Flag returns original untouched; redact
// returns the normalized content with every match replaced; block
// returns blockedCode.
func Apply(mode Mode, original string, res Result, blockedCode shoperr.Code) (string, error) {
	if !res.Threat {
		return original, nil
	}

	switch mode {
	case ModeBlock:
		return "", shoperr.New(blockedCode, "content rejected by guard rule "+res.Matches[0].Rule,
			shoperr.Field("matches", len(res.Matches)),
			shoperr.Field("rules", strings.Join(res.Rules(), ",")))
	case ModeFlag:
		return original, nil
	case ModeRedact:
		return redact(res.Content, res.Matches), nil
	default:
		return "", shoperr.Errorf(shoperr.CodeGuardScanFailure, "unknown guard mode %q", mode)
	}
}

// redact merges overlapping matches and replaces each span with the
// marker.
func redact(content string, matches []Match) string {
	sorted := slices.DeleteFunc(slices.Clone(matches), func(m Match) bool {
		return m.Location < 0 || m.Length < 0 || m.Location > len(content)
	})
	if len(sorted) == 0 {
		return content
	}
	slices.SortFunc(sorted, func(a, b Match) int { return a.Location - b.Location })

	type span struct{ start, end int }
	spans := []span{{sorted[0].Location, sorted[0].Location + sorted[0].Length}}
	for _, m := range sorted[1:] {
		last := &spans[len(spans)-1]
		end := m.Location + m.Length
		if m.Location <= last.end {
			last.end = max(last.end, end)
			continue
		}
		spans = append(spans, span{m.Location, end})
	}

	var b strings.Builder
	b.Grow(len(content))
	pos := 0
	for _, s := range spans {
		b.WriteString(content[pos:s.start])
		b.WriteString(redactedMarker)
		pos = min(s.end, len(content))
	}
	b.WriteString(content[pos:])
	return b.String()
}
