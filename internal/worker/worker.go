package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"postloop/backend/internal/config"
	"postloop/backend/internal/learning"
	"postloop/backend/internal/observability"
	"postloop/backend/internal/social"
)

type Worker struct {
	cfg       config.Config
	db        *pgxpool.Pool
	publisher social.Publisher
	learner   *learning.Learner
	metrics   *observability.WorkerMetrics
}

type permanentError struct {
	message string
}

func (e permanentError) Error() string {
	return e.message
}

func New(cfg config.Config, db *pgxpool.Pool, publisher social.Publisher, learner *learning.Learner, metrics *observability.WorkerMetrics) *Worker {
	return &Worker{
		cfg:       cfg,
		db:        db,
		publisher: publisher,
		learner:   learner,
		metrics:   metrics,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.WorkerPollEvery)
	defer ticker.Stop()

	for {
		if err := w.processOne(ctx); err != nil {
			log.Printf("worker process error: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) processOne(ctx context.Context) error {
	tx, err := w.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var (
		jobID   int64
		jobType string
		postID  string
		tenant  string
	)

	err = tx.QueryRow(ctx, `
		SELECT id, job_type, post_id::text, tenant
		FROM jobs
		WHERE status IN ('PENDING', 'FAILED')
		  AND attempts < $1
		  AND available_at <= NOW()
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`, w.cfg.JobMaxAttempts).Scan(&jobID, &jobType, &postID, &tenant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE jobs
		SET status='PROCESSING', locked_at=NOW(), updated_at=NOW()
		WHERE id=$1
	`, jobID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	started := time.Now()
	taskCtx, cancel := context.WithTimeout(ctx, w.cfg.WorkerTaskTimeout)
	defer cancel()

	if jobType != "collect_engagement" {
		w.metrics.ObserveJobProcessed(jobType, "failed", time.Since(started))
		return w.markJobFailed(ctx, jobID, permanentError{message: fmt.Sprintf("unsupported job type: %s", jobType)})
	}

	err = w.executeCollectEngagement(taskCtx, postID, tenant)
	if err == nil {
		w.metrics.ObserveJobProcessed(jobType, "done", time.Since(started))
		return w.markJobDone(ctx, jobID)
	}

	w.metrics.ObserveJobProcessed(jobType, "failed", time.Since(started))
	return w.markJobFailed(ctx, jobID, err)
}

// executeCollectEngagement pulls platform metrics for a published post,
// aggregates them into one FeedbackEvent, and feeds the learner.
func (w *Worker) executeCollectEngagement(ctx context.Context, postID, tenant string) error {
	var (
		content     string
		status      string
		platforms   []string
		debateUsed  bool
		externalRaw []byte
	)
	err := w.db.QueryRow(ctx, `
		SELECT content, status, platforms, debate_used, external_ids
		FROM posts
		WHERE id=$1 AND tenant=$2
	`, postID, tenant).Scan(&content, &status, &platforms, &debateUsed, &externalRaw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return permanentError{message: "post not found"}
		}
		return err
	}
	if status != "PUBLISHED" {
		return permanentError{message: "post is not published"}
	}

	externalIDs := map[string]string{}
	if len(externalRaw) > 0 {
		if err := json.Unmarshal(externalRaw, &externalIDs); err != nil {
			return permanentError{message: "post has unreadable external ids"}
		}
	}
	if len(externalIDs) == 0 {
		return permanentError{message: "post has no external ids"}
	}

	var (
		total    learning.Performance
		sampled  int
		rateSum  float64
		observed []string
	)
	for _, platform := range platforms {
		externalID, exists := externalIDs[platform]
		if !exists || externalID == "" {
			continue
		}
		engagement, err := w.publisher.Engagement(ctx, platform, externalID)
		if err != nil {
			return fmt.Errorf("engagement lookup for %s: %w", platform, err)
		}
		w.metrics.IncEngagementCollected(platform)

		total.Likes += engagement.Likes
		total.Comments += engagement.Comments
		total.Shares += engagement.Shares
		total.Clicks += engagement.Clicks
		rateSum += engagement.EngagementRate
		sampled++
		observed = append(observed, platform)
	}
	if sampled == 0 {
		return permanentError{message: "no platform reported engagement"}
	}
	total.EngagementRate = rateSum / float64(sampled)

	err = w.learner.IngestFeedback(ctx, tenant, learning.FeedbackEvent{
		PostID:      postID,
		Content:     content,
		Platforms:   observed,
		Performance: total,
		DebateUsed:  debateUsed,
		ObservedAt:  time.Now().UTC(),
	})
	if err != nil {
		var storeErr *learning.StoreError
		if errors.As(err, &storeErr) && storeErr.Kind == learning.StoreConflict {
			return permanentError{message: "feedback already recorded for post"}
		}
		return err
	}
	return nil
}

func (w *Worker) markJobDone(ctx context.Context, jobID int64) error {
	_, err := w.db.Exec(ctx, `
		UPDATE jobs
		SET status='DONE', error=NULL, locked_at=NULL, updated_at=NOW()
		WHERE id=$1
	`, jobID)
	if err == nil {
		log.Printf("job %d completed", jobID)
	}
	return err
}

func (w *Worker) markJobFailed(ctx context.Context, jobID int64, failure error) error {
	var perm permanentError
	if errors.As(failure, &perm) {
		_, err := w.db.Exec(ctx, `
			UPDATE jobs
			SET status='FAILED', attempts=$2, error=$3, locked_at=NULL, updated_at=NOW()
			WHERE id=$1
		`, jobID, w.cfg.JobMaxAttempts, failure.Error())
		if err == nil {
			log.Printf("job %d permanently failed: %s", jobID, failure.Error())
		}
		return err
	}

	w.metrics.IncrementJobRetry("collect_engagement")
	_, err := w.db.Exec(ctx, `
		UPDATE jobs
		SET status='FAILED', attempts=attempts+1, error=$2, locked_at=NULL,
		    available_at=NOW() + make_interval(secs => $3), updated_at=NOW()
		WHERE id=$1
	`, jobID, failure.Error(), w.cfg.JobRetryBase.Seconds())
	if err == nil {
		log.Printf("job %d failed and will retry: %s", jobID, failure.Error())
	}
	return err
}
