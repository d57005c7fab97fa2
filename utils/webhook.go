package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// WebhookClient POSTs JSON payloads to one configured URL.
type WebhookClient struct {
	client *resty.Client
	url    string
}

func NewWebhookClient(url string, timeout time.Duration) *WebhookClient {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)
	return &WebhookClient{client: client, url: url}
}

func (w *WebhookClient) Post(ctx context.Context, payload any) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", w.url, err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook %s: status %d", w.url, resp.StatusCode())
	}
	return nil
}
