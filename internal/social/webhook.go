package social

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// WebhookPublisher relays publish and engagement calls to one automation
// webhook (Zapier, Buffer, or anything speaking the same small protocol).
type WebhookPublisher struct {
	url       string
	authToken string
	http      *http.Client
}

func NewWebhookPublisher(url, authToken string, timeout time.Duration) *WebhookPublisher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &WebhookPublisher{
		url:       strings.TrimSpace(url),
		authToken: authToken,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *WebhookPublisher) Name() string {
	return "webhook"
}

func (p *WebhookPublisher) Publish(ctx context.Context, platform, content string, hashtags []string) (PublishResult, error) {
	payload := map[string]any{
		"action":   "publish",
		"platform": platform,
		"content":  content,
		"hashtags": hashtags,
	}

	var out struct {
		ExternalID string `json:"externalId"`
	}
	if err := p.call(ctx, payload, &out); err != nil {
		return PublishResult{}, err
	}
	if out.ExternalID == "" {
		return PublishResult{}, errors.New("webhook relay returned no externalId")
	}
	return PublishResult{ExternalID: out.ExternalID, PublishedAt: time.Now().UTC()}, nil
}

func (p *WebhookPublisher) Engagement(ctx context.Context, platform, externalID string) (Engagement, error) {
	payload := map[string]any{
		"action":     "engagement",
		"platform":   platform,
		"externalId": externalID,
	}

	var out Engagement
	if err := p.call(ctx, payload, &out); err != nil {
		return Engagement{}, err
	}
	return out, nil
}

func (p *WebhookPublisher) call(ctx context.Context, payload any, out any) error {
	if p.url == "" {
		return errors.New("PUBLISHER_WEBHOOK_URL is required for webhook publisher")
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.authToken)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		bodySnippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook relay error: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(bodySnippet)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
