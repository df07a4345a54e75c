// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

// Package guard screens text on its way into and out of the language
// model: prompt injection in descriptions and questions, credentials in
// generated output.
package guard

import (
	"context"
	"log/slog"

	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

// Config selects the mode applied at each stage.
type Config struct {
	InputMode  Mode
	OutputMode Mode
	// Rules defaults to DefaultRules when nil.
	Rules []Rule
}

// Guard applies a Scanner with per-stage modes.
type Guard struct {
	scanner    *Scanner
	inputMode  Mode
	outputMode Mode
}

// New builds a Guard. Empty modes default to flag for input and redact
// for output.
func New(cfg Config) (*Guard, error) {
	in, err := modeOr(cfg.InputMode, ModeFlag)
	if err != nil {
		return nil, err
	}
	out, err := modeOr(cfg.OutputMode, ModeRedact)
	if err != nil {
		return nil, err
	}
	rules := cfg.Rules
	if rules == nil {
		rules = DefaultRules()
	}
	s, err := NewScanner(rules)
	if err != nil {
		return nil, err
	}
	return &Guard{scanner: s, inputMode: in, outputMode: out}, nil
}

func modeOr(m, fallback Mode) (Mode, error) {
	if m == "" {
		return fallback, nil
	}
	return ParseMode(string(m))
}

// Input screens a caller-supplied field before it reaches a prompt.
func (g *Guard) Input(ctx context.Context, field, text string) (string, error) {
	return g.check(ctx, StageInput, g.inputMode, field, text, shoperr.CodeGuardInputBlocked)
}

// Output screens model-generated text before it is stored or returned.
func (g *Guard) Output(ctx context.Context, text string) (string, error) {
	return g.check(ctx, StageOutput, g.outputMode, "output", text, shoperr.CodeGuardOutputBlocked)
}

func (g *Guard) check(ctx context.Context, stage Stage, mode Mode, field, text string, blocked shoperr.Code) (string, error) {
	res, err := g.scanner.Scan(text, stage)
	if err != nil {
		return "", err
	}
	if res.Threat {
		slog.WarnContext(ctx, "guard rule matched",
			"stage", stage, "field", field, "mode", mode, "rules", res.Rules())
	}
	out, err := Apply(mode, text, res, blocked)
	if err != nil {
		return "", shoperr.With(err, shoperr.Field("field", field))
	}
	return out, nil
}
