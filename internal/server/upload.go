// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shopkeep-dev/shopkeep/internal/ocr"
)

const (
	uploadPath      = "/company/ocr"
	uploadFormField = "file"
	// multipartOverhead allows for boundaries and part headers on top of
	// the file itself.
	multipartOverhead = 1 << 20
)

func (s *Server) registerUploadRoute() {
	s.router.Post(uploadPath, s.handleCertificateUpload)

	// The handler reads the multipart body itself, so the operation is
	// added to the OpenAPI document by hand.
	s.api.OpenAPI().AddOperation(&huma.Operation{
		OperationID: "extract-business-info",
		Method:      http.MethodPost,
		Path:        uploadPath,
		Summary:     "Extract business registration certificate fields",
		Description: "Upload a photo of a business registration certificate (jpeg, png, gif or bmp). The upper half is OCR'd and the company name, registration number, representative and opening date are extracted.",
		Tags:        []string{"company"},
		RequestBody: &huma.RequestBody{
			Required: true,
			Content: map[string]*huma.MediaType{
				"multipart/form-data": {
					Schema: &huma.Schema{
						Type:     "object",
						Required: []string{uploadFormField},
						Properties: map[string]*huma.Schema{
							uploadFormField: {
								Type:        "string",
								Format:      "binary",
								Description: "Certificate image",
							},
						},
					},
				},
			},
		},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Extracted fields; parsed is false when none were found",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{
							Type: "object",
							Properties: map[string]*huma.Schema{
								"company_name":        {Type: "string"},
								"business_number":     {Type: "string", Description: "Digits only"},
								"representative_name": {Type: "string"},
								"opening_date":        {Type: "string", Description: "YYYYMMDD"},
								"parsed":              {Type: "boolean"},
							},
						},
					},
				},
			},
			"400": {Description: "Missing file, unsupported type or file too large"},
			"502": {Description: "OCR engine failure"},
		},
	})
}

func (s *Server) handleCertificateUpload(w http.ResponseWriter, r *http.Request) {
	certs := s.services.Certificates()
	limit := certs.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeProblem(w, http.StatusBadRequest, "uploaded file exceeds the size limit")
			return
		}
		writeProblem(w, http.StatusBadRequest, "multipart form field \"file\" is required")
		return
	}
	defer func() { _ = file.Close() }()

	// Read one byte past the limit so oversize files are rejected by the
	// service rather than silently truncated.
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "reading uploaded file: "+err.Error())
		return
	}

	info, err := certs.ExtractBusinessInfo(r.Context(), ocr.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		se := apiError("extracting business info", err)
		writeProblem(w, se.GetStatus(), se.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(info); err != nil {
		slog.Warn("failed to write ocr response", "error", err)
	}
}
