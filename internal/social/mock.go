package social

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"
)

// MockPublisher fakes publishing and derives stable pseudo-engagement from
// the external ID, so local runs and tests behave the same every time.
type MockPublisher struct{}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (p *MockPublisher) Name() string {
	return "mock"
}

func (p *MockPublisher) Publish(_ context.Context, platform, content string, _ []string) (PublishResult, error) {
	return PublishResult{
		ExternalID:  fmt.Sprintf("mock-%s-%d", platform, stableHash(content)%100000),
		PublishedAt: time.Now().UTC(),
	}, nil
}

func (p *MockPublisher) Engagement(_ context.Context, platform, externalID string) (Engagement, error) {
	seed := stableHash(platform + "/" + externalID)
	likes := int(seed%200) + 5
	comments := int(seed/7%40) + 1
	shares := int(seed / 13 % 25)
	clicks := int(seed/3%300) + 10

	rate := float64(likes+comments*2+shares*3) / 100.0
	return Engagement{
		Likes:          likes,
		Comments:       comments,
		Shares:         shares,
		Clicks:         clicks,
		EngagementRate: rate,
	}, nil
}

func stableHash(value string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(value))
	return h.Sum64()
}
