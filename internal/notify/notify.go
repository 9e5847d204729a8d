package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// WebhookNotifier posts notification texts to an external callback, the
// messaging front end that owns delivery to the customer.
type WebhookNotifier struct {
	client *http.Client
	url    string
}

// NewWebhookNotifier creates new WebhookNotifier instance
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		url: url,
	}
}

type notification struct {
	CustomerKey string `json:"customer_key"`
	Text        string `json:"text"`
}

// Notify posts the notification to the callback endpoint
func (n *WebhookNotifier) Notify(ctx context.Context, customerKey, text string) error {
	body, err := json.Marshal(notification{CustomerKey: customerKey, Text: text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("notify: callback returned %s", resp.Status)
	}

	return nil
}

// LogNotifier writes notifications to the log, for setups without a
// callback endpoint.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates new LogNotifier instance
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the notification
func (n *LogNotifier) Notify(_ context.Context, customerKey, text string) error {
	n.logger.Info("notification", zap.String("customer", customerKey), zap.String("text", text))
	return nil
}
