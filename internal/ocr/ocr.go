// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

// Package ocr validates uploaded certificate images, runs them through an
// OCR engine and hands the text to the certificate extractor.
package ocr

import (
	"bytes"
	"context"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	_ "golang.org/x/image/bmp"

	"github.com/shopkeep-dev/shopkeep/internal/certificate"
	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

// DefaultMaxUploadBytes is the largest accepted upload.
const DefaultMaxUploadBytes int64 = 10 << 20

// AllowedContentTypes lists the accepted image media types.
var AllowedContentTypes = []string{"image/jpeg", "image/png", "image/gif", "image/bmp"}

// Point is a pixel coordinate in the cropped image.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Detection is one recognised text region. Box runs clockwise from the
// top-left corner.
type Detection struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Box        [4]Point `json:"bbox"`
}

// Engine recognises text in an image.
type Engine interface {
	Recognize(ctx context.Context, img image.Image) ([]Detection, error)
	Close() error
}

// Upload is an uploaded image file.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Result is the text recognised in an upload.
type Result struct {
	Text       string      `json:"text"`
	Detections []Detection `json:"results"`
}

// Service runs OCR on certificate uploads.
type Service struct {
	engine   Engine
	maxBytes int64
}

// Option configures a Service.
type Option func(*Service)

// WithMaxUploadBytes overrides DefaultMaxUploadBytes.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

func NewService(engine Engine, opts ...Option) *Service {
	s := &Service{engine: engine, maxBytes: DefaultMaxUploadBytes}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxUploadBytes reports the upload size limit.
func (s *Service) MaxUploadBytes() int64 { return s.maxBytes }

// ExtractText validates and decodes the upload, crops it to the upper
// half where certificate fields are printed, and joins the recognised
// lines with newlines.
func (s *Service) ExtractText(ctx context.Context, up Upload) (*Result, error) {
	if err := s.Validate(up); err != nil {
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(up.Data))
	if err != nil {
		return nil, shoperr.Wrap(err, shoperr.CodeOCRImageDecodeInvalid, "decoding image",
			shoperr.Field("filename", up.Filename))
	}

	cropped, err := upperHalf(img)
	if err != nil {
		return nil, err
	}
	slog.Debug("ocr image decoded",
		"filename", up.Filename, "format", format,
		"size", img.Bounds().Size().String(), "cropped", cropped.Bounds().Size().String())

	detections, err := s.engine.Recognize(ctx, cropped)
	if err != nil {
		if shoperr.CodeOf(err) == "" {
			err = shoperr.Wrap(err, shoperr.CodeOCREngineFailure, "recognising text")
		}
		return nil, shoperr.With(err, shoperr.Field("filename", up.Filename))
	}

	lines := make([]string, 0, len(detections))
	for _, d := range detections {
		lines = append(lines, d.Text)
	}
	return &Result{
		Text:       strings.TrimSpace(strings.Join(lines, "\n")),
		Detections: detections,
	}, nil
}

// ExtractBusinessInfo runs OCR on the upload and extracts the certificate
// fields from the text.
func (s *Service) ExtractBusinessInfo(ctx context.Context, up Upload) (certificate.BusinessInfo, error) {
	res, err := s.ExtractText(ctx, up)
	if err != nil {
		return certificate.BusinessInfo{}, err
	}
	info := certificate.Extract(res.Text)
	slog.Info("certificate processed", "filename", up.Filename, "parsed", info.Parsed, "lines", len(res.Detections))
	return info, nil
}

// Validate checks the upload size and media type without decoding it.
func (s *Service) Validate(up Upload) error {
	if len(up.Data) == 0 {
		return shoperr.New(shoperr.CodeOCRUploadTypeInvalid, "uploaded file is empty",
			shoperr.Field("filename", up.Filename))
	}
	if int64(len(up.Data)) > s.maxBytes {
		return shoperr.New(shoperr.CodeOCRUploadTooLarge, "uploaded file exceeds the size limit",
			shoperr.Field("filename", up.Filename),
			shoperr.Field("size", len(up.Data)),
			shoperr.Field("limit", s.maxBytes))
	}

	ct := mediaType(up)
	for _, allowed := range AllowedContentTypes {
		if ct == allowed {
			return nil
		}
	}
	return shoperr.New(shoperr.CodeOCRUploadTypeInvalid,
		"unsupported file type "+ct+", expected one of "+strings.Join(AllowedContentTypes, ", "),
		shoperr.Field("filename", up.Filename))
}

// mediaType prefers the declared content type and sniffs the data when
// none was sent.
func mediaType(up Upload) string {
	ct := up.ContentType
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(up.Data)
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(ct)
	}
	if mt == "image/x-ms-bmp" {
		return "image/bmp"
	}
	return mt
}

func upperHalf(img image.Image) (*image.RGBA, error) {
	b := img.Bounds()
	h := b.Dy() / 2
	if b.Dx() == 0 || h == 0 {
		return nil, shoperr.Errorf(shoperr.CodeOCRImageDecodeInvalid, "image too small: %s", b.Size())
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), h))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst, nil
}
