package main

import (
	"context"
	"log"
	"time"

	"postloop/backend/internal/config"
	"postloop/backend/internal/db"
	"postloop/backend/internal/learning"
	"postloop/backend/internal/observability"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	store := learning.NewPGStore(pool)
	logger := observability.NewLogger("seed")
	learner := learning.NewLearner(store, logger, nil)

	if _, err := store.LoadProfile(ctx, cfg.DefaultTenant); err != nil {
		if err := store.SaveProfile(ctx, learning.DefaultProfile(cfg.DefaultTenant)); err != nil {
			log.Fatalf("seed default profile failed: %v", err)
		}
	}

	samples := []learning.FeedbackEvent{
		{
			PostID:    "seed-post-1",
			Content:   "Five small habits that compound into real focus. #productivity #deepwork",
			Platforms: []string{"twitter", "linkedin"},
			Performance: learning.Performance{
				Likes: 64, Comments: 12, Shares: 9, Clicks: 140, EngagementRate: 4.1,
			},
			DebateUsed: true,
			ObservedAt: time.Now().UTC().Add(-72 * time.Hour),
		},
		{
			PostID:    "seed-post-2",
			Content:   "A quick before/after of our onboarding flow rewrite.",
			Platforms: []string{"instagram"},
			Performance: learning.Performance{
				Likes: 22, Comments: 3, Shares: 1, Clicks: 30, EngagementRate: 1.4,
			},
			ObservedAt: time.Now().UTC().Add(-48 * time.Hour),
		},
		{
			PostID:    "seed-post-3",
			Content:   "What we learned shipping weekly for a year. #shipping #startup",
			Platforms: []string{"twitter"},
			Performance: learning.Performance{
				Likes: 88, Comments: 19, Shares: 14, Clicks: 210, EngagementRate: 5.2,
			},
			DebateUsed: true,
			ObservedAt: time.Now().UTC().Add(-24 * time.Hour),
		},
	}

	seeded := 0
	for _, event := range samples {
		if err := learner.IngestFeedback(ctx, cfg.DefaultTenant, event); err != nil {
			log.Printf("seed feedback %s skipped: %v", event.PostID, err)
			continue
		}
		seeded++
	}

	log.Printf("seed completed: tenant=%s feedback_events=%d", cfg.DefaultTenant, seeded)
}
