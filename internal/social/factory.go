package social

import "postloop/backend/internal/config"

func NewFromConfig(cfg config.Config) Publisher {
	if cfg.PublisherDriver == "webhook" {
		return NewWebhookPublisher(cfg.PublisherWebhookURL, cfg.PublisherAuthToken, cfg.GenRequestTimeout)
	}
	return NewMockPublisher()
}
