package social

import (
	"context"
	"time"
)

type PublishResult struct {
	ExternalID  string
	PublishedAt time.Time
}

type Engagement struct {
	Likes          int     `json:"likes"`
	Comments       int     `json:"comments"`
	Shares         int     `json:"shares"`
	Clicks         int     `json:"clicks"`
	EngagementRate float64 `json:"engagementRate"`
}

// Publisher is the boundary to whatever actually posts content. The core
// never talks to platform APIs directly; a relay or a mock sits behind this.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, platform, content string, hashtags []string) (PublishResult, error)
	Engagement(ctx context.Context, platform, externalID string) (Engagement, error)
}
