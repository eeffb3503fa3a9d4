package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"
)

const deliveryTimeout = 10 * time.Second

// SlackAlerter posts to a Slack incoming webhook.
type SlackAlerter struct {
	url    string
	client *http.Client
}

func NewSlackAlerter(url string) *SlackAlerter {
	return &SlackAlerter{url: url, client: &http.Client{Timeout: deliveryTimeout}}
}

func (s *SlackAlerter) Send(ctx context.Context, a Alert) error {
	return postJSON(ctx, s.client, s.url, struct {
		Text string `json:"text"`
	}{Text: slackText(a)})
}

func slackText(a Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s* `%s`\n%s", slackEmoji(a.Type), a.Title, a.subject(), a.Message)
	keys := make([]string, 0, len(a.Fields))
	for k := range a.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n> %s: %s", k, a.Fields[k])
	}
	return b.String()
}

func slackEmoji(t AlertType) string {
	switch t {
	case AlertTypeRecovery:
		return ":large_green_circle:"
	case AlertTypeWorkerRestart:
		return ":arrows_counterclockwise:"
	case AlertTypeUnhealthy:
		return ":red_circle:"
	case AlertTypeDBPool:
		return ":rotating_light:"
	}
	return ":warning:"
}

// WebhookAlerter posts the alert as a JSON document.
type WebhookAlerter struct {
	url    string
	client *http.Client
	now    func() time.Time
}

func NewWebhookAlerter(url string) *WebhookAlerter {
	return &WebhookAlerter{url: url, client: &http.Client{Timeout: deliveryTimeout}, now: time.Now}
}

type webhookPayload struct {
	Type    AlertType         `json:"type"`
	Chain   string            `json:"chain,omitempty"`
	Scope   string            `json:"scope,omitempty"`
	Title   string            `json:"title"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	SentAt  time.Time         `json:"sent_at"`
}

func (w *WebhookAlerter) Send(ctx context.Context, a Alert) error {
	return postJSON(ctx, w.client, w.url, webhookPayload{
		Type:    a.Type,
		Chain:   a.Chain,
		Scope:   a.Scope,
		Title:   a.Title,
		Message: a.Message,
		Fields:  a.Fields,
		SentAt:  w.now().UTC(),
	})
}

func postJSON(ctx context.Context, client *http.Client, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post alert: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("alert endpoint returned %s", resp.Status)
	}
	return nil
}
