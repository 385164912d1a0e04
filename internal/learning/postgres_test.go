package learning

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"postloop/backend/internal/db"
)

func migrationDirForTests(t *testing.T) string {
	t.Helper()
	dir, err := filepath.Abs(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("resolve migrations dir: %v", err)
	}
	return dir
}

func TestPGStoreProfileRoundtripIntegration(t *testing.T) {
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, databaseURL)
	if err != nil {
		t.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, migrationDirForTests(t)); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}

	store := NewPGStore(pool)
	tenant := fmt.Sprintf("roundtrip-%d", time.Now().UnixNano())

	if _, err := store.LoadProfile(ctx, tenant); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}

	profile := DefaultProfile(tenant)
	profile.PreferredHashtags = []string{"#growth", "#ship"}
	profile.LearningHistory.TotalPostsObserved = 7
	profile.LearningHistory.AverageEngagementRate = 3.25
	if err := store.SaveProfile(ctx, profile); err != nil {
		t.Fatalf("save profile failed: %v", err)
	}

	loaded, err := store.LoadProfile(ctx, tenant)
	if err != nil {
		t.Fatalf("load profile failed: %v", err)
	}
	if loaded.LearningHistory.TotalPostsObserved != 7 {
		t.Fatalf("expected 7 observed posts, got %d", loaded.LearningHistory.TotalPostsObserved)
	}
	if len(loaded.PreferredHashtags) != 2 || loaded.PreferredHashtags[0] != "#growth" {
		t.Fatalf("hashtags did not roundtrip: %v", loaded.PreferredHashtags)
	}

	loaded.LearningHistory.TotalPostsObserved = 8
	if err := store.SaveProfile(ctx, loaded); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	again, err := store.LoadProfile(ctx, tenant)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if again.LearningHistory.TotalPostsObserved != 8 {
		t.Fatalf("upsert did not update profile")
	}
}

func TestPGStoreFeedbackEventsIntegration(t *testing.T) {
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, databaseURL)
	if err != nil {
		t.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, migrationDirForTests(t)); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}

	store := NewPGStore(pool)
	tenant := fmt.Sprintf("events-%d", time.Now().UnixNano())
	observedAt := time.Now().UTC().Truncate(time.Microsecond)

	first := FeedbackEvent{
		PostID:    "post-1",
		Content:   "first post #alpha",
		Platforms: []string{"twitter"},
		Performance: Performance{
			Likes:          10,
			EngagementRate: 3.0,
		},
		ObservedAt: observedAt,
	}
	if err := store.AppendFeedbackEvent(ctx, tenant, first); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	second := first
	second.PostID = "post-2"
	second.Platforms = []string{"linkedin"}
	second.ObservedAt = observedAt.Add(time.Minute)
	if err := store.AppendFeedbackEvent(ctx, tenant, second); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	err = store.AppendFeedbackEvent(ctx, tenant, first)
	var storeErr *StoreError
	if !errors.As(err, &storeErr) || storeErr.Kind != StoreConflict {
		t.Fatalf("expected conflict on duplicate event, got %v", err)
	}

	events, err := store.QueryFeedbackEvents(ctx, EventFilter{Tenant: tenant})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].PostID != "post-1" || events[1].PostID != "post-2" {
		t.Fatalf("expected observed_at ordering, got %v then %v", events[0].PostID, events[1].PostID)
	}

	linkedinOnly, err := store.QueryFeedbackEvents(ctx, EventFilter{Tenant: tenant, Platform: "linkedin"})
	if err != nil {
		t.Fatalf("filtered query failed: %v", err)
	}
	if len(linkedinOnly) != 1 || linkedinOnly[0].PostID != "post-2" {
		t.Fatalf("platform filter broken: %+v", linkedinOnly)
	}
}
