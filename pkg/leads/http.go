// Package leads implements the lead store collaborator: an HTTP client against
// the CRM service in production and an in-memory store for development and
// tests.
package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/protocol"
)

const requestTimeout = 10 * time.Second

// HTTPLeadStore talks to the CRM's internal lead API.
type HTTPLeadStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPLeadStore(baseURL, apiKey string) *HTTPLeadStore {
	return &HTTPLeadStore{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

func (s *HTTPLeadStore) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	var lead models.Lead

	err := s.do(ctx, http.MethodGet, "/leads/"+url.PathEscape(id), nil, &lead)
	if err != nil {
		return nil, err
	}

	return &lead, nil
}

func (s *HTTPLeadStore) UpdateLead(ctx context.Context, id string, partial map[string]any) error {
	return s.do(ctx, http.MethodPatch, "/leads/"+url.PathEscape(id), partial, nil)
}

func (s *HTTPLeadStore) AddTag(ctx context.Context, id, tag string) error {
	return s.do(ctx, http.MethodPost, "/leads/"+url.PathEscape(id)+"/tags",
		map[string]any{"tag": tag}, nil)
}

func (s *HTTPLeadStore) RemoveTag(ctx context.Context, id, tag string) error {
	return s.do(ctx, http.MethodDelete,
		"/leads/"+url.PathEscape(id)+"/tags/"+url.PathEscape(tag), nil, nil)
}

func (s *HTTPLeadStore) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader

	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}

		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build lead store request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("lead store request failed: %w", err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("lead store: %s %s returned 404", method, path)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("lead store: %s %s returned status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode lead store response: %w", err)
		}
	}

	return nil
}

var _ protocol.LeadStore = (*HTTPLeadStore)(nil)
