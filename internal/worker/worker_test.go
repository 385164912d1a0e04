package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"postloop/backend/internal/config"
	"postloop/backend/internal/db"
	"postloop/backend/internal/learning"
	"postloop/backend/internal/observability"
	"postloop/backend/internal/social"
)

func migrationDirForTests(t *testing.T) string {
	t.Helper()
	dir, err := filepath.Abs(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("resolve migrations dir: %v", err)
	}
	return dir
}

func TestCollectEngagementJobIntegration(t *testing.T) {
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

	cfg := config.Load()
	cfg.DatabaseURL = databaseURL
	cfg.MigrationsDir = migrationDirForTests(t)
	if err := db.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}

	tenant := fmt.Sprintf("worker-%d", time.Now().UnixNano())

	var postID string
	err = pool.QueryRow(ctx, `
		INSERT INTO posts (tenant, topic, content, hashtags, platforms, status, debate_used, external_ids, published_at)
		VALUES ($1, 'worker test', 'published body #worker', '{"#worker"}', '{"twitter"}', 'PUBLISHED', TRUE,
		        '{"twitter":"mock-twitter-42"}'::jsonb, NOW())
		RETURNING id::text
	`, tenant).Scan(&postID)
	if err != nil {
		t.Fatalf("insert post failed: %v", err)
	}

	if _, err := pool.Exec(ctx, `
		INSERT INTO jobs (job_type, post_id, tenant, status, available_at)
		VALUES ('collect_engagement', $1, $2, 'PENDING', NOW() - INTERVAL '1 minute')
	`, postID, tenant); err != nil {
		t.Fatalf("insert job failed: %v", err)
	}

	logger := observability.NewLogger("worker-test")
	metrics := observability.NewWorkerMetrics()
	store := learning.NewPGStore(pool)
	learner := learning.NewLearner(store, logger, metrics)
	w := New(cfg, pool, social.NewMockPublisher(), learner, metrics)

	deadline := time.Now().Add(10 * time.Second)
	var status string
	for time.Now().Before(deadline) {
		if err := w.processOne(ctx); err != nil {
			t.Fatalf("processOne failed: %v", err)
		}
		err = pool.QueryRow(ctx, `
			SELECT status FROM jobs WHERE post_id=$1 AND tenant=$2
		`, postID, tenant).Scan(&status)
		if err != nil {
			t.Fatalf("job status lookup failed: %v", err)
		}
		if status == "DONE" {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if status != "DONE" {
		t.Fatalf("expected job DONE, got %s", status)
	}

	profile, err := store.LoadProfile(ctx, tenant)
	if err != nil {
		t.Fatalf("load profile failed: %v", err)
	}
	if profile.LearningHistory.TotalPostsObserved != 1 {
		t.Fatalf("expected 1 observed post after collection, got %d", profile.LearningHistory.TotalPostsObserved)
	}

	events, err := store.QueryFeedbackEvents(ctx, learning.EventFilter{Tenant: tenant})
	if err != nil {
		t.Fatalf("query events failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 feedback event, got %d", len(events))
	}
	if events[0].PostID != postID || !events[0].DebateUsed {
		t.Fatalf("event not built from the post: %+v", events[0])
	}
}

func TestUnsupportedJobTypeFailsPermanentlyIntegration(t *testing.T) {
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

	cfg := config.Load()
	cfg.MigrationsDir = migrationDirForTests(t)
	if err := db.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}

	tenant := fmt.Sprintf("badjob-%d", time.Now().UnixNano())

	var postID string
	err = pool.QueryRow(ctx, `
		INSERT INTO posts (tenant, topic, content, platforms, status)
		VALUES ($1, 'bad job', 'body', '{"twitter"}', 'DRAFT')
		RETURNING id::text
	`, tenant).Scan(&postID)
	if err != nil {
		t.Fatalf("insert post failed: %v", err)
	}

	var jobID int64
	err = pool.QueryRow(ctx, `
		INSERT INTO jobs (job_type, post_id, tenant, status, available_at)
		VALUES ('unknown_type', $1, $2, 'PENDING', NOW() - INTERVAL '1 minute')
		RETURNING id
	`, postID, tenant).Scan(&jobID)
	if err != nil {
		t.Fatalf("insert job failed: %v", err)
	}

	logger := observability.NewLogger("worker-test")
	metrics := observability.NewWorkerMetrics()
	learner := learning.NewLearner(learning.NewPGStore(pool), logger, metrics)
	w := New(cfg, pool, social.NewMockPublisher(), learner, metrics)

	deadline := time.Now().Add(10 * time.Second)
	var status string
	var attempts int
	for time.Now().Before(deadline) {
		if err := w.processOne(ctx); err != nil {
			t.Fatalf("processOne failed: %v", err)
		}
		if err := pool.QueryRow(ctx, `
			SELECT status, attempts FROM jobs WHERE id=$1
		`, jobID).Scan(&status, &attempts); err != nil {
			t.Fatalf("job lookup failed: %v", err)
		}
		if status == "FAILED" && attempts >= cfg.JobMaxAttempts {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if status != "FAILED" || attempts < cfg.JobMaxAttempts {
		t.Fatalf("expected permanent failure, got status=%s attempts=%d", status, attempts)
	}
}
