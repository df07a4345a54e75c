// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package server

import (
	"context"
	"net/http"
	"sort"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shopkeep-dev/shopkeep/pkg/health"
)

func (s *Server) registerSystemRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "service-info",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Service information",
		Tags:        []string{"system"},
	}, s.handleServiceInfo)

	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*HealthResponse, error) {
		return &HealthResponse{Body: HealthBody{Status: "healthy"}}, nil
	})
}

func (s *Server) registerStoreRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "register-store",
		Method:      http.MethodPost,
		Path:        "/store/register",
		Summary:     "Register a store description",
		Description: "Splits the description into sentences with the language model, embeds them and replaces anything indexed for the store before.",
		Tags:        []string{"store"},
		Errors:      []int{http.StatusBadRequest, http.StatusBadGateway},
	}, s.handleRegisterStore)

	huma.Register(s.api, huma.Operation{
		OperationID: "ask-store",
		Method:      http.MethodPost,
		Path:        "/store/question",
		Summary:     "Ask a question about a store",
		Tags:        []string{"store"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusBadGateway},
	}, s.handleAskStore)

	huma.Register(s.api, huma.Operation{
		OperationID: "forget-store",
		Method:      http.MethodDelete,
		Path:        "/store/{store_id}",
		Summary:     "Delete everything indexed for a store",
		Tags:        []string{"store"},
	}, s.handleForgetStore)
}

// HealthBody is the JSON body of the health endpoint response.
type HealthBody struct {
	Status string `json:"status" example:"healthy" doc:"Health status"`
}

// HealthResponse wraps the health check response.
type HealthResponse struct {
	Body HealthBody
}

// Endpoint is one documented route.
type Endpoint struct {
	Method  string `json:"method"`
	Path    string `json:"path"`
	Summary string `json:"summary,omitempty"`
}

type serviceInfoOutput struct {
	Body struct {
		Service   string                  `json:"service"`
		Version   string                  `json:"version"`
		Build     BuildInfo               `json:"build"`
		Endpoints []Endpoint              `json:"endpoints"`
		Providers []health.ProviderStatus `json:"providers,omitempty"`
	}
}

type registerStoreInput struct {
	Body struct {
		StoreID     string `json:"store_id" minLength:"1" doc:"Caller-assigned store identifier"`
		Description string `json:"description" minLength:"1" doc:"Free-text store description"`
	}
}

type registerStoreOutput struct {
	Body struct {
		StoreID         string   `json:"store_id"`
		ParsedSentences []string `json:"parsed_sentences" doc:"Sentences indexed for the store, in order"`
		Message         string   `json:"message"`
	}
}

type askStoreInput struct {
	Body struct {
		StoreID  string `json:"store_id" minLength:"1"`
		Question string `json:"question" minLength:"1"`
	}
}

type askStoreOutput struct {
	Body struct {
		StoreID  string `json:"store_id"`
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
}

type forgetStoreInput struct {
	StoreID string `path:"store_id"`
}

type forgetStoreOutput struct {
	Body struct {
		StoreID string `json:"store_id"`
		Deleted int    `json:"deleted" doc:"Number of sentences removed"`
	}
}

func (s *Server) handleServiceInfo(_ context.Context, _ *struct{}) (*serviceInfoOutput, error) {
	out := &serviceInfoOutput{}
	out.Body.Service = serviceName
	out.Body.Version = s.cfg.Build.Version
	out.Body.Build = s.cfg.Build
	out.Body.Endpoints = s.endpoints()
	if s.services != nil && s.services.Providers() != nil {
		out.Body.Providers = s.services.Providers().Status()
	}
	return out, nil
}

// endpoints lists the operations in the OpenAPI document, sorted by path.
func (s *Server) endpoints() []Endpoint {
	paths := s.api.OpenAPI().Paths
	keys := make([]string, 0, len(paths))
	for p := range paths {
		keys = append(keys, p)
	}
	sort.Strings(keys)

	var out []Endpoint
	for _, p := range keys {
		item := paths[p]
		for _, op := range []*huma.Operation{item.Get, item.Post, item.Put, item.Patch, item.Delete} {
			if op != nil {
				out = append(out, Endpoint{Method: op.Method, Path: p, Summary: op.Summary})
			}
		}
	}
	return out
}

func (s *Server) handleRegisterStore(ctx context.Context, input *registerStoreInput) (*registerStoreOutput, error) {
	reg, err := s.services.Knowledge().Register(ctx, input.Body.StoreID, input.Body.Description)
	if err != nil {
		return nil, apiError("registering store", err)
	}
	out := &registerStoreOutput{}
	out.Body.StoreID = reg.StoreID
	out.Body.ParsedSentences = reg.Sentences
	out.Body.Message = reg.Message
	return out, nil
}

func (s *Server) handleAskStore(ctx context.Context, input *askStoreInput) (*askStoreOutput, error) {
	ans, err := s.services.Knowledge().Ask(ctx, input.Body.StoreID, input.Body.Question)
	if err != nil {
		return nil, apiError("answering question", err)
	}
	out := &askStoreOutput{}
	out.Body.StoreID = ans.StoreID
	out.Body.Question = ans.Question
	out.Body.Answer = ans.Answer
	return out, nil
}

func (s *Server) handleForgetStore(ctx context.Context, input *forgetStoreInput) (*forgetStoreOutput, error) {
	n, err := s.services.Knowledge().Forget(ctx, input.StoreID)
	if err != nil {
		return nil, apiError("deleting store", err)
	}
	out := &forgetStoreOutput{}
	out.Body.StoreID = input.StoreID
	out.Body.Deleted = n
	return out, nil
}
