// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package ocr_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/shopkeep-dev/shopkeep/internal/certificate"
	"github.com/shopkeep-dev/shopkeep/internal/ocr"
	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	lines  []string
	err    error
	bounds image.Rectangle
	top    color.Color
	calls  int
}

func (f *fakeEngine) Recognize(_ context.Context, img image.Image) ([]ocr.Detection, error) {
	f.calls++
	f.bounds = img.Bounds()
	f.top = img.At(0, 0)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]ocr.Detection, len(f.lines))
	for i, l := range f.lines {
		out[i] = ocr.Detection{Text: l, Confidence: 0.9}
	}
	return out, nil
}

func (f *fakeEngine) Close() error { return nil }

// testImage is red in the upper half and blue in the lower half.
func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: 255, A: 255}
			if y >= h/2 {
				c = color.RGBA{B: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h)))
	return buf.Bytes()
}

func TestExtractText_CropsUpperHalfAndJoinsLines(t *testing.T) {
	engine := &fakeEngine{lines: []string{"상호(법인명) ABC상사", "123-45-67890"}}
	svc := ocr.NewService(engine)

	res, err := svc.ExtractText(context.Background(), ocr.Upload{
		Filename:    "cert.png",
		ContentType: "image/png",
		Data:        pngBytes(t, 40, 30),
	})
	require.NoError(t, err)

	assert.Equal(t, "상호(법인명) ABC상사\n123-45-67890", res.Text)
	assert.Len(t, res.Detections, 2)
	assert.Equal(t, image.Rect(0, 0, 40, 15), engine.bounds)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, engine.top)
}

func TestExtractText_DecodesBMP(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, testImage(8, 8)))

	engine := &fakeEngine{lines: []string{"ok"}}
	res, err := ocr.NewService(engine).ExtractText(context.Background(), ocr.Upload{
		Filename:    "cert.bmp",
		ContentType: "image/bmp",
		Data:        buf.Bytes(),
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
	assert.Equal(t, image.Rect(0, 0, 8, 4), engine.bounds)
}

func TestExtractText_SniffsMissingContentType(t *testing.T) {
	engine := &fakeEngine{lines: []string{"x"}}
	_, err := ocr.NewService(engine).ExtractText(context.Background(), ocr.Upload{
		Filename: "cert",
		Data:     pngBytes(t, 4, 4),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, engine.calls)
}

func TestValidate(t *testing.T) {
	svc := ocr.NewService(&fakeEngine{}, ocr.WithMaxUploadBytes(1024))
	assert.Equal(t, int64(1024), svc.MaxUploadBytes())

	tests := []struct {
		name string
		up   ocr.Upload
		code shoperr.Code
	}{
		{name: "empty", up: ocr.Upload{ContentType: "image/png"}, code: shoperr.CodeOCRUploadTypeInvalid},
		{name: "too large", up: ocr.Upload{ContentType: "image/png", Data: make([]byte, 1025)}, code: shoperr.CodeOCRUploadTooLarge},
		{name: "pdf", up: ocr.Upload{ContentType: "application/pdf", Data: []byte("%PDF-1.4")}, code: shoperr.CodeOCRUploadTypeInvalid},
		{name: "sniffed text", up: ocr.Upload{Data: []byte("hello")}, code: shoperr.CodeOCRUploadTypeInvalid},
		{name: "jpeg with params", up: ocr.Upload{ContentType: "image/jpeg; charset=binary", Data: []byte{1}}},
		{name: "gif", up: ocr.Upload{ContentType: "IMAGE/GIF", Data: []byte{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Validate(tt.up)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, shoperr.HasCode(err, tt.code), "got %s", shoperr.CodeOf(err))
			assert.Equal(t, 400, shoperr.HTTPStatus(err))
		})
	}
}

func TestExtractText_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("undecodable", func(t *testing.T) {
		engine := &fakeEngine{}
		_, err := ocr.NewService(engine).ExtractText(ctx, ocr.Upload{ContentType: "image/png", Data: []byte("not a png")})
		assert.True(t, shoperr.HasCode(err, shoperr.CodeOCRImageDecodeInvalid))
		assert.Zero(t, engine.calls)
	})

	t.Run("one pixel high", func(t *testing.T) {
		_, err := ocr.NewService(&fakeEngine{}).ExtractText(ctx, ocr.Upload{ContentType: "image/png", Data: pngBytes(t, 4, 1)})
		assert.True(t, shoperr.IsInvalidInput(err))
	})

	t.Run("engine error", func(t *testing.T) {
		engine := &fakeEngine{err: errors.New("segfault")}
		_, err := ocr.NewService(engine).ExtractText(ctx, ocr.Upload{ContentType: "image/png", Data: pngBytes(t, 4, 4), Filename: "a.png"})
		require.Error(t, err)
		assert.True(t, shoperr.HasCode(err, shoperr.CodeOCREngineFailure))
		assert.Equal(t, 502, shoperr.HTTPStatus(err))
		assert.Equal(t, "a.png", shoperr.FieldsOf(err)["filename"])
	})

	t.Run("coded engine error kept", func(t *testing.T) {
		engine := &fakeEngine{err: shoperr.New(shoperr.CodeOCREngineUnavailable, "no tesseract")}
		_, err := ocr.NewService(engine).ExtractText(ctx, ocr.Upload{ContentType: "image/png", Data: pngBytes(t, 4, 4)})
		assert.True(t, shoperr.HasCode(err, shoperr.CodeOCREngineUnavailable))
	})
}

func TestExtractBusinessInfo(t *testing.T) {
	engine := &fakeEngine{lines: []string{
		"사업자등록증",
		"상호(법인명) ABC상사",
		"등록번호 123-45-67890",
		"성명(대표자) 홍길동",
		"개업일 2020년 3월 5일",
	}}
	info, err := ocr.NewService(engine).ExtractBusinessInfo(context.Background(), ocr.Upload{
		ContentType: "image/png",
		Data:        pngBytes(t, 10, 10),
	})
	require.NoError(t, err)
	assert.Equal(t, certificate.BusinessInfo{
		CompanyName:    "ABC상사",
		BusinessNumber: "1234567890",
		Representative: "홍길동",
		OpeningDate:    "20200305",
		Parsed:         true,
	}, info)
}

func TestExtractBusinessInfo_NothingFound(t *testing.T) {
	info, err := ocr.NewService(&fakeEngine{}).ExtractBusinessInfo(context.Background(), ocr.Upload{
		ContentType: "image/png",
		Data:        pngBytes(t, 10, 10),
	})
	require.NoError(t, err)
	assert.False(t, info.Parsed)
}
