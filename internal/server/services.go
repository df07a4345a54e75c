// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package server

import (
	"context"

	"github.com/shopkeep-dev/shopkeep/internal/certificate"
	"github.com/shopkeep-dev/shopkeep/internal/knowledge"
	"github.com/shopkeep-dev/shopkeep/internal/ocr"
	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
	"github.com/shopkeep-dev/shopkeep/pkg/health"
)

// KnowledgeService registers stores and answers questions about them.
type KnowledgeService interface {
	Register(ctx context.Context, storeID, description string) (*knowledge.Registration, error)
	Ask(ctx context.Context, storeID, question string) (*knowledge.Answer, error)
	Forget(ctx context.Context, storeID string) (int, error)
}

// CertificateService reads business registration certificates.
type CertificateService interface {
	ExtractBusinessInfo(ctx context.Context, up ocr.Upload) (certificate.BusinessInfo, error)
	MaxUploadBytes() int64
}

// ProviderStatusService reports model provider health.
type ProviderStatusService interface {
	Status() []health.ProviderStatus
}

// Services holds dependencies injected into route handlers.
// Each field is an interface so subsystems can be mocked in tests.
type Services struct {
	knowledge    KnowledgeService
	certificates CertificateService
	providers    ProviderStatusService // optional; nil = no provider status in service info
}

// NewServices validates and bundles the route dependencies. The optional
// providers argument enables provider status in GET /.
func NewServices(k KnowledgeService, certs CertificateService, providers ...ProviderStatusService) (*Services, error) {
	if k == nil {
		return nil, shoperr.New(shoperr.CodeServerConfigInvalid, "knowledge service is required")
	}
	if certs == nil {
		return nil, shoperr.New(shoperr.CodeServerConfigInvalid, "certificate service is required")
	}
	if len(providers) > 1 {
		return nil, shoperr.New(shoperr.CodeServerConfigInvalid, "at most one provider status service may be supplied")
	}
	s := &Services{knowledge: k, certificates: certs}
	if len(providers) > 0 && providers[0] != nil {
		s.providers = providers[0]
	}
	return s, nil
}

func (s *Services) Knowledge() KnowledgeService { return s.knowledge }

func (s *Services) Certificates() CertificateService { return s.certificates }

// Providers returns the provider status service, or nil.
func (s *Services) Providers() ProviderStatusService { return s.providers }
