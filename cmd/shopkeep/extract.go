// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package main

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shopkeep-dev/shopkeep/internal/certificate"
	"github.com/shopkeep-dev/shopkeep/internal/ocr"
	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [text-file]",
		Short: "Extract business certificate fields locally",
		Long:  "Extract company name, business number, representative and opening date from certificate text (a file or stdin), or from an image with --image. Runs without a server.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExtract,
	}
	cmd.Flags().String("image", "", "run OCR on this image instead of reading text")
	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	var (
		info certificate.BusinessInfo
		err  error
	)
	if path, _ := cmd.Flags().GetString("image"); path != "" {
		info, err = extractFromImage(cmd, path)
	} else {
		info, err = extractFromText(cmd, args)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(info)
}

func extractFromText(cmd *cobra.Command, args []string) (certificate.BusinessInfo, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return certificate.BusinessInfo{}, shoperr.Errorf(shoperr.CodeCLIInputInvalid, "reading certificate text: %w", err)
	}
	return certificate.Extract(string(data)), nil
}

func extractFromImage(cmd *cobra.Command, path string) (certificate.BusinessInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return certificate.BusinessInfo{}, shoperr.Errorf(shoperr.CodeCLIInputInvalid, "reading image: %w", err)
	}

	engine, err := newOCREngine(viper.GetStringSlice("ocr.languages"))
	if err != nil {
		return certificate.BusinessInfo{}, shoperr.Wrapf(err, shoperr.CodeCLISetupFailure, "creating ocr engine")
	}
	defer func() { _ = engine.Close() }()

	svc := ocr.NewService(engine, ocr.WithMaxUploadBytes(viper.GetInt64("ocr.max_upload_bytes")))
	return svc.ExtractBusinessInfo(commandContext(cmd), ocr.Upload{
		Filename:    filepath.Base(path),
		ContentType: http.DetectContentType(data),
		Data:        data,
	})
}
