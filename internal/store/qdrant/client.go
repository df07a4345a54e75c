// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

// Package qdrant implements the sentence index on a Qdrant collection via
// its REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

const defaultTimeout = 15 * time.Second

type client struct {
	base   string
	apiKey string
	http   *http.Client
}

func newClient(baseURL, apiKey string, timeout time.Duration) *client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &client{
		base:   strings.TrimRight(baseURL, "/"),
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
	}
}

// apiError is returned for non-2xx responses.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return "qdrant: HTTP " + http.StatusText(e.Status) + ": " + e.Body
}

func (c *client) do(ctx context.Context, method, path string, query url.Values, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, shoperr.Wrapf(err, shoperr.CodeStoreInvalidInput, "qdrant: encoding request")
		}
		body = bytes.NewReader(data)
	}

	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return 0, shoperr.Wrapf(err, shoperr.CodeStoreInvalidInput, "qdrant: building request")
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, shoperr.Wrapf(err, shoperr.CodeStoreUpstreamFailure, "qdrant: %s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return resp.StatusCode, shoperr.Wrap(&apiError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))},
			shoperr.CodeStoreUpstreamFailure, method+" "+path, shoperr.FieldBackend("qdrant"))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, shoperr.Wrapf(err, shoperr.CodeStoreUpstreamFailure, "qdrant: decoding %s response", path)
		}
	}
	return resp.StatusCode, nil
}
