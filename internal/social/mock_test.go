package social

import (
	"context"
	"testing"
)

func TestMockPublisherIsDeterministic(t *testing.T) {
	publisher := NewMockPublisher()
	ctx := context.Background()

	first, err := publisher.Publish(ctx, "twitter", "same body", nil)
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	second, err := publisher.Publish(ctx, "twitter", "same body", nil)
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if first.ExternalID != second.ExternalID {
		t.Fatalf("same content must map to the same external id")
	}

	engagementA, err := publisher.Engagement(ctx, "twitter", first.ExternalID)
	if err != nil {
		t.Fatalf("engagement failed: %v", err)
	}
	engagementB, _ := publisher.Engagement(ctx, "twitter", first.ExternalID)
	if engagementA != engagementB {
		t.Fatalf("engagement must be stable per external id")
	}
	if engagementA.EngagementRate <= 0 {
		t.Fatalf("expected positive engagement rate, got %f", engagementA.EngagementRate)
	}
}
