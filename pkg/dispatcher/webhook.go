package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/leadfuse/leadfuse/pkg/protocol"
)

const webhookTimeout = 10 * time.Second

// HTTPWebhookCaller fires outbound webhook POSTs. The response body is
// discarded; a non-2xx status is an error so the node records the failure.
type HTTPWebhookCaller struct {
	client *http.Client
	logger *slog.Logger
}

func NewHTTPWebhookCaller(logger *slog.Logger) *HTTPWebhookCaller {
	return &HTTPWebhookCaller{
		client: &http.Client{Timeout: webhookTimeout},
		logger: logger.With("module", "webhook_caller"),
	}
}

func (c *HTTPWebhookCaller) PostWebhook(ctx context.Context, url string, headers map[string]string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	c.logger.DebugContext(ctx, "webhook delivered", "url", url, "status", resp.StatusCode)

	return nil
}

var _ protocol.WebhookCaller = (*HTTPWebhookCaller)(nil)
