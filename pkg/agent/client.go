// Package agent implements the AI-conversation collaborator client. The agent
// service owns prompting and model calls; the engine only hands it the
// conversation context and merges the reply back.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/leadfuse/leadfuse/pkg/protocol"
)

const requestTimeout = 30 * time.Second

type HTTPAgentClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPAgentClient(baseURL, apiKey string) *HTTPAgentClient {
	return &HTTPAgentClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

func (c *HTTPAgentClient) Advance(ctx context.Context, req protocol.AgentRequest) (*protocol.AgentReply, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal agent request: %w", err)
	}

	endpoint := c.baseURL + "/agents/" + url.PathEscape(req.AgentID) + "/advance"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build agent request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("agent request failed: %w", err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("agent service returned status %d", resp.StatusCode)
	}

	var reply protocol.AgentReply

	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("failed to decode agent reply: %w", err)
	}

	return &reply, nil
}

var _ protocol.AgentClient = (*HTTPAgentClient)(nil)
