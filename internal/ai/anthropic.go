package ai

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

type AnthropicClient struct {
	apiKey         string
	baseURL        string
	model          string
	version        string
	requestTimeout time.Duration
	maxRetries     int
	retryBase      time.Duration
	http           *http.Client
}

func NewAnthropicClient(apiKey, baseURL, model, version string, requestTimeout time.Duration, maxRetries int, retryBase time.Duration) *AnthropicClient {
	if requestTimeout <= 0 {
		requestTimeout = 20 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if maxRetries > 5 {
		maxRetries = 5
	}
	if retryBase <= 0 {
		retryBase = 400 * time.Millisecond
	}
	if version == "" {
		version = "2023-06-01"
	}

	return &AnthropicClient{
		apiKey:         apiKey,
		baseURL:        strings.TrimRight(baseURL, "/"),
		model:          model,
		version:        version,
		requestTimeout: requestTimeout,
		maxRetries:     maxRetries,
		retryBase:      retryBase,
		http: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

func (c *AnthropicClient) Name() string {
	return "anthropic"
}

func (c *AnthropicClient) Complete(ctx context.Context, system, user string) (string, error) {
	if c.apiKey == "" {
		return "", newGenerationError(c.Name(), ErrInvalid, errors.New("ANTHROPIC_API_KEY is required for anthropic provider"))
	}
	ctx, cancel := contextWithDefaultTimeout(ctx, c.requestTimeout)
	defer cancel()

	requestBody := map[string]any{
		"model":      c.model,
		"max_tokens": 1024,
		"system":     system,
		"messages": []map[string]string{
			{"role": "user", "content": user},
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", newGenerationError(c.Name(), ErrInvalid, err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(jsonBody))
		if err != nil {
			return "", newGenerationError(c.Name(), ErrInvalid, err)
		}
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", c.version)
		req.Header.Set("Content-Type", "application/json")

		content, retryable, err := c.messagesOnce(req)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retryable || attempt >= c.maxRetries {
			break
		}

		wait := retryDelay(c.retryBase, attempt)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return "", lastErr
}

func (c *AnthropicClient) messagesOnce(req *http.Request) (string, bool, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", false, err
		}
		return "", true, newGenerationError(c.Name(), ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		bodySnippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		message := strings.TrimSpace(string(bodySnippet))
		if message == "" {
			message = fmt.Sprintf("status %d", resp.StatusCode)
		}
		statusErr := fmt.Errorf("status=%d body=%s", resp.StatusCode, message)
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return "", true, newGenerationError(c.Name(), ErrQuota, statusErr)
		case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == 529:
			return "", true, newGenerationError(c.Name(), ErrTransient, statusErr)
		default:
			return "", false, newGenerationError(c.Name(), ErrInvalid, statusErr)
		}
	}

	var out struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", true, newGenerationError(c.Name(), ErrTransient, err)
	}

	var text string
	for _, block := range out.Content {
		if block.Type == "text" {
			text = strings.TrimSpace(block.Text)
			break
		}
	}
	if text == "" {
		return "", false, newGenerationError(c.Name(), ErrInvalid, errors.New("no text content in response"))
	}
	return text, false, nil
}
