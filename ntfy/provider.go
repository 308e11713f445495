package ntfy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

type Notifier interface {
	Send(ctx context.Context, msg Notification) error
}

type HTTPNotifier struct {
	endpoint string

	client      *http.Client
	logger      *slog.Logger
	credentials TokenCredentialProvider
}

func NewHTTPNotifier(endpoint string, client *http.Client, logger *slog.Logger) *HTTPNotifier {
	return &HTTPNotifier{
		endpoint: endpoint,
		client:   client,
		logger:   logger,
	}
}

func (n *HTTPNotifier) SetCredentialProvider(provider TokenCredentialProvider) {
	n.credentials = provider
}

// Send publishes msg with the JSON publishing API, which posts to the
// server root and names the topic in the body.
func (n *HTTPNotifier) Send(ctx context.Context, msg Notification) error {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	if n.credentials != nil {
		token, err := n.credentials.Retrieve(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	n.logger.Debug("Sending notification", "topic", msg.Topic)
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			n.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("failed to send notification, status code: %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	n.logger.Info("Notification sent successfully", "topic", msg.Topic)

	return nil
}
