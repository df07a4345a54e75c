// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

//go:build tesseract

// Package tesseract is the Tesseract OCR engine. Building it needs the
// tesseract and leptonica libraries and the "tesseract" build tag.
package tesseract

import (
	"bytes"
	"context"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"

	"github.com/shopkeep-dev/shopkeep/internal/ocr"
	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

// Available reports whether this binary was built with Tesseract.
const Available = true

var _ ocr.Engine = (*Engine)(nil)

// Engine recognises text line by line. gosseract clients are not safe for
// concurrent use, so each call gets its own.
type Engine struct {
	languages []string
}

func New(languages []string) (*Engine, error) {
	if len(languages) == 0 {
		languages = []string{"kor", "eng"}
	}
	return &Engine{languages: languages}, nil
}

func (e *Engine) Recognize(ctx context.Context, img image.Image) ([]ocr.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, shoperr.Wrap(err, shoperr.CodeOCREngineFailure, "encoding image for tesseract")
	}

	client := gosseract.NewClient()
	defer func() { _ = client.Close() }()

	if err := client.SetLanguage(e.languages...); err != nil {
		return nil, shoperr.Wrap(err, shoperr.CodeOCREngineFailure, "setting tesseract languages")
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, shoperr.Wrap(err, shoperr.CodeOCREngineFailure, "loading image into tesseract")
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, shoperr.Wrap(err, shoperr.CodeOCREngineFailure, "running tesseract")
	}

	out := make([]ocr.Detection, 0, len(boxes))
	for _, b := range boxes {
		r := b.Box
		out = append(out, ocr.Detection{
			Text:       b.Word,
			Confidence: b.Confidence / 100,
			Box: [4]ocr.Point{
				{X: float64(r.Min.X), Y: float64(r.Min.Y)},
				{X: float64(r.Max.X), Y: float64(r.Min.Y)},
				{X: float64(r.Max.X), Y: float64(r.Max.Y)},
				{X: float64(r.Min.X), Y: float64(r.Max.Y)},
			},
		})
	}
	return out, nil
}

func (e *Engine) Close() error { return nil }
