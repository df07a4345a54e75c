// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopkeep-dev/shopkeep/internal/certificate"
	"github.com/shopkeep-dev/shopkeep/internal/knowledge"
	"github.com/shopkeep-dev/shopkeep/internal/ocr"
	"github.com/shopkeep-dev/shopkeep/internal/server"
	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

func main() {
	spec, err := generateSpec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outPath := "api/openapi/spec.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, spec, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing spec: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI spec written to %s\n", outPath)
}

// generateSpec builds a server with every route registered and returns the
// OpenAPI document huma derives from the handler types.
func generateSpec() ([]byte, error) {
	svc, err := server.NewServices(stubKnowledge{}, stubCertificates{})
	if err != nil {
		return nil, shoperr.Wrapf(err, shoperr.CodeCLISetupFailure, "creating services")
	}

	srv, err := server.New(server.Config{
		ListenAddr: "127.0.0.1:0",
		Services:   svc,
	})
	if err != nil {
		return nil, shoperr.Errorf(shoperr.CodeCLISetupFailure, "creating server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}

// No-op stubs; handlers are never invoked during generation.

type stubKnowledge struct{}

func (stubKnowledge) Register(context.Context, string, string) (*knowledge.Registration, error) {
	return nil, nil
}

func (stubKnowledge) Ask(context.Context, string, string) (*knowledge.Answer, error) {
	return nil, nil
}

func (stubKnowledge) Forget(context.Context, string) (int, error) { return 0, nil }

type stubCertificates struct{}

func (stubCertificates) ExtractBusinessInfo(context.Context, ocr.Upload) (certificate.BusinessInfo, error) {
	return certificate.BusinessInfo{}, nil
}

func (stubCertificates) MaxUploadBytes() int64 { return ocr.DefaultMaxUploadBytes }
