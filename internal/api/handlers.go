package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"postloop/backend/internal/debate"
	"postloop/backend/internal/learning"
	"postloop/backend/internal/observability"
	"postloop/backend/internal/safety"
)

type Post struct {
	ID                 string            `json:"id"`
	Tenant             string            `json:"tenant"`
	Topic              string            `json:"topic"`
	Content            string            `json:"content"`
	Hashtags           []string          `json:"hashtags"`
	ImagePrompt        string            `json:"image_prompt"`
	Platforms          []string          `json:"platforms"`
	Status             string            `json:"status"`
	DebateUsed         bool              `json:"debate_used"`
	ConsensusReached   bool              `json:"consensus_reached"`
	ConsensusUncertain bool              `json:"consensus_uncertain"`
	ExternalIDs        map[string]string `json:"external_ids,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	PublishedAt        *time.Time        `json:"published_at,omitempty"`
}

func (s *Server) handleRunDebate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic          string   `json:"topic"`
		Platforms      []string `json:"platforms"`
		Tone           string   `json:"tone"`
		BusinessGoals  string   `json:"business_goals"`
		TargetAudience string   `json:"target_audience"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		writeBadRequest(w, "topic is required")
		return
	}
	platforms := normalizePlatforms(req.Platforms)
	if len(platforms) == 0 {
		writeBadRequest(w, "at least one platform is required")
		return
	}

	tenant := s.tenantFrom(r)
	result, err := s.engine.Run(r.Context(), debate.Request{
		Tenant:         tenant,
		Topic:          req.Topic,
		Platforms:      platforms,
		Tone:           strings.TrimSpace(req.Tone),
		BusinessGoals:  strings.TrimSpace(req.BusinessGoals),
		TargetAudience: strings.TrimSpace(req.TargetAudience),
		Preferences:    s.learner.PreferenceContextFor(r.Context(), tenant),
	})
	if err != nil {
		var failed *debate.FailedError
		if errors.As(err, &failed) {
			s.logger.Error("debate_failed", observability.Fields{
				"tenant": tenant,
				"stage":  failed.Stage,
				"error":  failed.Err.Error(),
			})
			writeBadGateway(w, "content generation failed at "+failed.Stage)
			return
		}
		writeBadRequest(w, err.Error())
		return
	}

	if err := safety.ValidateContent(result.FinalContent, s.cfg.ContentMaxLen); err != nil {
		s.logger.Warn("debate_content_rejected", observability.Fields{
			"tenant":     tenant,
			"session_id": result.SessionID,
			"reason":     err.Error(),
		})
		writeUnprocessable(w, "generated content rejected: "+err.Error())
		return
	}

	var post Post
	err = s.db.QueryRow(r.Context(), `
		INSERT INTO posts (tenant, topic, content, hashtags, image_prompt, platforms, status, debate_used, consensus, consensus_uncertain)
		VALUES ($1, $2, $3, $4, $5, $6, 'DRAFT', TRUE, $7, $8)
		RETURNING id::text, created_at
	`, tenant, req.Topic, result.FinalContent, result.Hashtags, result.ImagePrompt, platforms,
		result.ConsensusReached, result.ConsensusUncertain,
	).Scan(&post.ID, &post.CreatedAt)
	if err != nil {
		s.logger.Error("draft_insert_failed", observability.Fields{"tenant": tenant, "error": err.Error()})
		writeInternalError(w, "failed to store draft")
		return
	}

	post.Tenant = tenant
	post.Topic = req.Topic
	post.Content = result.FinalContent
	post.Hashtags = result.Hashtags
	post.ImagePrompt = result.ImagePrompt
	post.Platforms = platforms
	post.Status = "DRAFT"
	post.DebateUsed = true
	post.ConsensusReached = result.ConsensusReached
	post.ConsensusUncertain = result.ConsensusUncertain

	writeJSON(w, http.StatusCreated, map[string]any{
		"post":   post,
		"result": result,
	})
}

func (s *Server) handlePublishPost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(postID); err != nil {
		writeBadRequest(w, "invalid post id")
		return
	}
	tenant := s.tenantFrom(r)

	post, err := s.loadPost(r.Context(), tenant, postID)
	if errors.Is(err, pgx.ErrNoRows) {
		writeNotFound(w, "post not found")
		return
	}
	if err != nil {
		writeInternalError(w, "failed to load post")
		return
	}
	if post.Status != "DRAFT" {
		writeConflict(w, "post is not in DRAFT status")
		return
	}

	externalIDs := map[string]string{}
	for _, platform := range post.Platforms {
		result, err := s.publisher.Publish(r.Context(), platform, post.Content, post.Hashtags)
		if err != nil {
			s.logger.Error("publish_failed", observability.Fields{
				"tenant":   tenant,
				"post_id":  postID,
				"platform": platform,
				"error":    err.Error(),
			})
			writeBadGateway(w, "publish failed on "+platform)
			return
		}
		externalIDs[platform] = result.ExternalID
	}

	externalJSON, err := json.Marshal(externalIDs)
	if err != nil {
		writeInternalError(w, "failed to encode publish results")
		return
	}

	tx, err := s.db.Begin(r.Context())
	if err != nil {
		writeInternalError(w, "failed to update post")
		return
	}
	defer tx.Rollback(r.Context())

	var publishedAt time.Time
	err = tx.QueryRow(r.Context(), `
		UPDATE posts
		SET status='PUBLISHED', external_ids=$3::jsonb, published_at=NOW(), updated_at=NOW()
		WHERE id=$1 AND tenant=$2
		RETURNING published_at
	`, postID, tenant, externalJSON).Scan(&publishedAt)
	if err != nil {
		writeInternalError(w, "failed to update post")
		return
	}

	if _, err := tx.Exec(r.Context(), `
		INSERT INTO jobs (job_type, post_id, tenant, status, available_at)
		VALUES ('collect_engagement', $1, $2, 'PENDING', NOW() + make_interval(secs => $3))
	`, postID, tenant, s.cfg.EngagementDelay.Seconds()); err != nil {
		writeInternalError(w, "failed to schedule engagement collection")
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		writeInternalError(w, "failed to update post")
		return
	}

	post.Status = "PUBLISHED"
	post.ExternalIDs = externalIDs
	post.PublishedAt = &publishedAt
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) loadPost(ctx context.Context, tenant, postID string) (Post, error) {
	var (
		post        Post
		externalRaw []byte
	)
	err := s.db.QueryRow(ctx, `
		SELECT id::text, tenant, topic, content, hashtags, image_prompt, platforms, status,
		       debate_used, consensus, consensus_uncertain, external_ids, created_at, published_at
		FROM posts
		WHERE id=$1 AND tenant=$2
	`, postID, tenant).Scan(
		&post.ID, &post.Tenant, &post.Topic, &post.Content, &post.Hashtags, &post.ImagePrompt,
		&post.Platforms, &post.Status, &post.DebateUsed, &post.ConsensusReached,
		&post.ConsensusUncertain, &externalRaw, &post.CreatedAt, &post.PublishedAt,
	)
	if err != nil {
		return Post{}, err
	}

	if len(externalRaw) > 0 {
		_ = json.Unmarshal(externalRaw, &post.ExternalIDs)
	}
	return post, nil
}

func (s *Server) handleIngestFeedback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PostID      string               `json:"postId"`
		Content     string               `json:"content"`
		Platforms   []string             `json:"platforms"`
		Performance learning.Performance `json:"performance"`
		UserRating  int                  `json:"userRating"`
		Issues      []string             `json:"issues"`
		DebateUsed  bool                 `json:"debateUsed"`
		ObservedAt  time.Time            `json:"observedAt"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.PostID) == "" {
		writeBadRequest(w, "postId is required")
		return
	}
	if req.UserRating < 0 || req.UserRating > 5 {
		writeBadRequest(w, "userRating must be between 1 and 5 when provided")
		return
	}

	tenant := s.tenantFrom(r)
	err := s.learner.IngestFeedback(r.Context(), tenant, learning.FeedbackEvent{
		PostID:      req.PostID,
		Content:     req.Content,
		Platforms:   normalizePlatforms(req.Platforms),
		Performance: req.Performance,
		UserRating:  req.UserRating,
		Issues:      req.Issues,
		DebateUsed:  req.DebateUsed,
		ObservedAt:  req.ObservedAt,
	})
	if err != nil {
		var storeErr *learning.StoreError
		if errors.As(err, &storeErr) {
			if storeErr.Kind == learning.StoreConflict {
				writeConflict(w, "feedback event already recorded")
				return
			}
			writeServiceUnavailable(w, "preference store unavailable")
			return
		}
		writeBadRequest(w, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

func (s *Server) handleGetInsights(w http.ResponseWriter, r *http.Request) {
	insights, err := s.learner.PerformanceInsights(r.Context(), s.tenantFrom(r))
	if err != nil {
		writeServiceUnavailable(w, "preference store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, insights)
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	profile, err := s.learner.ProfileFor(r.Context(), s.tenantFrom(r))
	if err != nil {
		writeServiceUnavailable(w, "preference store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleUpdateThresholds(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MinEngagementRate  *float64                            `json:"minEngagementRate"`
		PerPlatformTargets map[string]learning.PlatformTargets `json:"perPlatformTargets"`
	}
	if err := decodeJSONAllowEmpty(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if req.MinEngagementRate == nil && len(req.PerPlatformTargets) == 0 {
		writeBadRequest(w, "nothing to update")
		return
	}

	profile, err := s.learner.UpdateThresholds(r.Context(), s.tenantFrom(r), req.MinEngagementRate, req.PerPlatformTargets)
	if err != nil {
		var storeErr *learning.StoreError
		if errors.As(err, &storeErr) {
			writeServiceUnavailable(w, "preference store unavailable")
			return
		}
		writeBadRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func normalizePlatforms(platforms []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(platforms))
	for _, platform := range platforms {
		clean := strings.ToLower(strings.TrimSpace(platform))
		if clean == "" {
			continue
		}
		if _, exists := seen[clean]; exists {
			continue
		}
		seen[clean] = struct{}{}
		out = append(out, clean)
	}
	return out
}
