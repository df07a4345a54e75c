// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shopkeep Contributors

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	shoperr "github.com/shopkeep-dev/shopkeep/pkg/errors"
)

// defaultHTTPClient is shared by the client commands. Model calls are
// slow, so the timeout is generous.
var defaultHTTPClient = &http.Client{
	Timeout: 3 * time.Minute,
}

// apiClient talks to a running shopkeep server.
type apiClient struct {
	baseURL string
	http    *http.Client
}

// newAPIClient accepts host:port or a full http(s) URL.
func newAPIClient(addr string) *apiClient {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &apiClient{
		baseURL: strings.TrimRight(base, "/"),
		http:    defaultHTTPClient,
	}
}

// problem is the error body returned by the server.
type problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func (c *apiClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return shoperr.Errorf(shoperr.CodeCLIRequestFailure, "encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return shoperr.Errorf(shoperr.CodeCLIRequestFailure, "building request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isDialError(err) {
			return shoperr.Errorf(shoperr.CodeCLIServerNotRunning,
				"shopkeep server is not running at %s (connection refused)", c.baseURL)
		}
		return shoperr.Errorf(shoperr.CodeCLIRequestFailure, "request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var p problem
		if json.Unmarshal(raw, &p) == nil && p.Detail != "" {
			return shoperr.Errorf(shoperr.CodeCLIRequestFailure, "server returned %d: %s", resp.StatusCode, p.Detail)
		}
		return shoperr.Errorf(shoperr.CodeCLIRequestFailure, "server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return shoperr.Errorf(shoperr.CodeCLIResponseInvalid, "invalid response: %w", err)
	}
	return nil
}

// isDialError returns true if err is a net dial error (connection refused, etc.).
func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
