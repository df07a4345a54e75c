// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

//go:build !tesseract

package tesseract

import (
	"context"
	"image"

	"github.com/shopkeep-dev/shopkeep/internal/ocr"
	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

// Available reports whether this binary was built with Tesseract.
const Available = false

var _ ocr.Engine = (*Engine)(nil)

// Engine stands in when the binary is built without the "tesseract" tag.
// Every Recognize call fails with an engine-unavailable error.
type Engine struct{}

func New(_ []string) (*Engine, error) {
	return &Engine{}, nil
}

func (e *Engine) Recognize(context.Context, image.Image) ([]ocr.Detection, error) {
	return nil, shoperr.New(shoperr.CodeOCREngineUnavailable,
		"ocr engine unavailable: rebuild with -tags tesseract")
}

func (e *Engine) Close() error { return nil }
