package learning

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"postloop/backend/internal/ai/prompts"
	"postloop/backend/internal/observability"
)

var hashtagPattern = regexp.MustCompile(`#\w+`)

type Metrics interface {
	IncFeedbackIngested(result string)
}

type noopMetrics struct{}

func (noopMetrics) IncFeedbackIngested(string) {}

// Learner owns the per-tenant preference profiles. Writes for one tenant
// are serialized through a per-tenant mutex; reads go straight to the store.
type Learner struct {
	store   Store
	logger  *observability.Logger
	metrics Metrics

	mu          sync.Mutex
	tenantLocks map[string]*sync.Mutex
}

func NewLearner(store Store, logger *observability.Logger, metrics Metrics) *Learner {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Learner{
		store:       store,
		logger:      logger,
		metrics:     metrics,
		tenantLocks: map[string]*sync.Mutex{},
	}
}

func (l *Learner) lockFor(tenant string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, exists := l.tenantLocks[tenant]
	if !exists {
		lock = &sync.Mutex{}
		l.tenantLocks[tenant] = lock
	}
	return lock
}

// IngestFeedback appends the event to the log and folds it into the
// tenant's profile. Duplicate submissions are the caller's problem; the
// learner treats every event as a new observation.
func (l *Learner) IngestFeedback(ctx context.Context, tenant string, event FeedbackEvent) error {
	if strings.TrimSpace(tenant) == "" {
		return errors.New("tenant is required")
	}
	if strings.TrimSpace(event.PostID) == "" {
		return errors.New("postId is required")
	}
	if event.ObservedAt.IsZero() {
		event.ObservedAt = time.Now().UTC()
	}

	if err := l.store.AppendFeedbackEvent(ctx, tenant, event); err != nil {
		l.metrics.IncFeedbackIngested("store_error")
		return fmt.Errorf("append feedback event: %w", err)
	}

	lock := l.lockFor(tenant)
	lock.Lock()
	defer lock.Unlock()

	profile, err := l.store.LoadProfile(ctx, tenant)
	if errors.Is(err, ErrProfileNotFound) {
		profile = DefaultProfile(tenant)
		err = nil
	}
	if err != nil {
		l.metrics.IncFeedbackIngested("store_error")
		return fmt.Errorf("load profile: %w", err)
	}

	applyFeedback(&profile, event)

	if err := l.store.SaveProfile(ctx, profile); err != nil {
		l.metrics.IncFeedbackIngested("store_error")
		return fmt.Errorf("save profile: %w", err)
	}

	l.metrics.IncFeedbackIngested("ok")
	l.logger.Info("feedback_ingested", observability.Fields{
		"tenant":          tenant,
		"post_id":         event.PostID,
		"engagement_rate": event.Performance.EngagementRate,
		"posts_observed":  profile.LearningHistory.TotalPostsObserved,
	})
	return nil
}

func applyFeedback(profile *Profile, event FeedbackEvent) {
	history := &profile.LearningHistory
	oldMean := history.AverageEngagementRate

	history.TotalPostsObserved++
	history.AverageEngagementRate = oldMean +
		(event.Performance.EngagementRate-oldMean)/float64(history.TotalPostsObserved)
	if oldMean != 0 {
		history.ImprovementRate = (history.AverageEngagementRate - oldMean) / oldMean
	} else {
		history.ImprovementRate = 0
	}
	history.LastUpdated = time.Now().UTC()

	if event.Performance.EngagementRate > profile.EngagementThresholds.MinEngagementRate {
		reinforce(profile, event)
	}

	switch {
	case event.UserRating > 0 && event.UserRating <= 2:
		profile.ToneVocabulary.Avoided = appendUnique(profile.ToneVocabulary.Avoided, event.Issues)
	case event.UserRating >= 4:
		// Positive ratings confirm the current vocabulary; nothing is removed.
	}
}

// reinforce pulls the profile toward a post that beat the engagement
// threshold: harvest its hashtags and drag length targets toward its length
// with a 2:1 recency bias.
func reinforce(profile *Profile, event FeedbackEvent) {
	tags := hashtagPattern.FindAllString(event.Content, -1)
	profile.PreferredHashtags = appendUnique(profile.PreferredHashtags, tags)

	contentLength := len([]rune(event.Content))
	if profile.ContentLengthTarget == nil {
		profile.ContentLengthTarget = map[string]int{}
	}
	for _, platform := range event.Platforms {
		key := strings.ToLower(strings.TrimSpace(platform))
		if key == "" {
			continue
		}
		old, exists := profile.ContentLengthTarget[key]
		if !exists {
			old = contentLength
		}
		profile.ContentLengthTarget[key] = int(math.Round(float64(old+2*contentLength) / 3))
	}
}

func appendUnique(existing []string, additions []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, item := range existing {
		seen[strings.ToLower(item)] = struct{}{}
	}
	for _, item := range additions {
		clean := strings.TrimSpace(item)
		if clean == "" {
			continue
		}
		lower := strings.ToLower(clean)
		if _, exists := seen[lower]; exists {
			continue
		}
		seen[lower] = struct{}{}
		existing = append(existing, clean)
	}
	return existing
}

// ProfileFor returns the stored profile, or defaults when none exists.
func (l *Learner) ProfileFor(ctx context.Context, tenant string) (Profile, error) {
	profile, err := l.store.LoadProfile(ctx, tenant)
	if errors.Is(err, ErrProfileNotFound) {
		return DefaultProfile(tenant), nil
	}
	if err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// PreferenceContextFor shapes the profile into prompt parameters. Store
// trouble degrades to defaults so content generation never blocks on the
// learner.
func (l *Learner) PreferenceContextFor(ctx context.Context, tenant string) prompts.Preferences {
	profile, err := l.ProfileFor(ctx, tenant)
	if err != nil {
		l.logger.Warn("preference_context_fallback", observability.Fields{
			"tenant": tenant,
			"error":  err.Error(),
		})
		profile = DefaultProfile(tenant)
	}

	hashtags := profile.PreferredHashtags
	if len(hashtags) > 10 {
		hashtags = hashtags[:10]
	}
	return prompts.Preferences{
		PreferredTones:    profile.ToneVocabulary.Preferred,
		AvoidedWords:      profile.ToneVocabulary.Avoided,
		PreferredHashtags: hashtags,
		LengthTargets:     profile.ContentLengthTarget,
	}
}

// UpdateThresholds tunes engagement thresholds under the tenant lock.
func (l *Learner) UpdateThresholds(ctx context.Context, tenant string, minRate *float64, perPlatform map[string]PlatformTargets) (Profile, error) {
	if minRate != nil && *minRate < 0 {
		return Profile{}, errors.New("minEngagementRate cannot be negative")
	}

	lock := l.lockFor(tenant)
	lock.Lock()
	defer lock.Unlock()

	profile, err := l.ProfileFor(ctx, tenant)
	if err != nil {
		return Profile{}, err
	}

	if minRate != nil {
		profile.EngagementThresholds.MinEngagementRate = *minRate
	}
	if profile.EngagementThresholds.PerPlatformTargets == nil {
		profile.EngagementThresholds.PerPlatformTargets = map[string]PlatformTargets{}
	}
	for platform, targets := range perPlatform {
		key := strings.ToLower(strings.TrimSpace(platform))
		if key == "" {
			continue
		}
		profile.EngagementThresholds.PerPlatformTargets[key] = targets
	}

	if err := l.store.SaveProfile(ctx, profile); err != nil {
		return Profile{}, fmt.Errorf("save profile: %w", err)
	}
	return profile, nil
}
