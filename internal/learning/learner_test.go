package learning

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"
)

func newTestLearner() (*Learner, *MemoryStore) {
	store := NewMemoryStore()
	return NewLearner(store, nil, nil), store
}

func event(postID string, rate float64) FeedbackEvent {
	return FeedbackEvent{
		PostID:    postID,
		Content:   "post body for " + postID,
		Platforms: []string{"twitter"},
		Performance: Performance{
			EngagementRate: rate,
		},
		ObservedAt: time.Now().UTC(),
	}
}

func TestRunningMeanOverThreeEvents(t *testing.T) {
	learner, store := newTestLearner()
	ctx := context.Background()

	for idx, rate := range []float64{1.0, 3.0, 5.0} {
		if err := learner.IngestFeedback(ctx, "default", event(string(rune('a'+idx)), rate)); err != nil {
			t.Fatalf("ingest failed: %v", err)
		}
	}

	profile, err := store.LoadProfile(ctx, "default")
	if err != nil {
		t.Fatalf("load profile failed: %v", err)
	}
	if profile.LearningHistory.TotalPostsObserved != 3 {
		t.Fatalf("expected 3 observed posts, got %d", profile.LearningHistory.TotalPostsObserved)
	}
	if math.Abs(profile.LearningHistory.AverageEngagementRate-3.0) > 1e-9 {
		t.Fatalf("expected running mean 3.0, got %f", profile.LearningHistory.AverageEngagementRate)
	}
}

func TestRunningMeanMatchesArithmeticMeanOnRandomSequence(t *testing.T) {
	learner, store := newTestLearner()
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	sum := 0.0
	count := 100
	for i := 0; i < count; i++ {
		rate := rng.Float64() * 10
		sum += rate
		if err := learner.IngestFeedback(ctx, "default", event(string(rune('a'+i%26))+"-"+time.Now().String(), rate)); err != nil {
			t.Fatalf("ingest failed: %v", err)
		}
	}

	profile, _ := store.LoadProfile(ctx, "default")
	want := sum / float64(count)
	if math.Abs(profile.LearningHistory.AverageEngagementRate-want) > 1e-9 {
		t.Fatalf("running mean %f diverged from arithmetic mean %f", profile.LearningHistory.AverageEngagementRate, want)
	}
	if profile.LearningHistory.TotalPostsObserved != count {
		t.Fatalf("expected %d observations, got %d", count, profile.LearningHistory.TotalPostsObserved)
	}
}

func TestHighEngagementReinforcesHashtagsAndLength(t *testing.T) {
	learner, store := newTestLearner()
	ctx := context.Background()

	hot := FeedbackEvent{
		PostID:    "hot",
		Content:   "Great launch recap #startup #GoLang #startup",
		Platforms: []string{"twitter"},
		Performance: Performance{
			EngagementRate: 8.0,
		},
		ObservedAt: time.Now().UTC(),
	}
	if err := learner.IngestFeedback(ctx, "default", hot); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	profile, _ := store.LoadProfile(ctx, "default")
	if len(profile.PreferredHashtags) != 2 {
		t.Fatalf("expected 2 unique hashtags, got %v", profile.PreferredHashtags)
	}
	if profile.PreferredHashtags[0] != "#startup" || profile.PreferredHashtags[1] != "#GoLang" {
		t.Fatalf("expected discovery order preserved, got %v", profile.PreferredHashtags)
	}

	contentLen := len([]rune(hot.Content))
	want := int(math.Round(float64(280+2*contentLen) / 3))
	if profile.ContentLengthTarget["twitter"] != want {
		t.Fatalf("expected length target %d, got %d", want, profile.ContentLengthTarget["twitter"])
	}
}

func TestLowEngagementSkipsReinforcement(t *testing.T) {
	learner, store := newTestLearner()
	ctx := context.Background()

	cold := FeedbackEvent{
		PostID:    "cold",
		Content:   "quiet post #nobody",
		Platforms: []string{"twitter"},
		Performance: Performance{
			EngagementRate: 1.0,
		},
		ObservedAt: time.Now().UTC(),
	}
	if err := learner.IngestFeedback(ctx, "default", cold); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	profile, _ := store.LoadProfile(ctx, "default")
	if len(profile.PreferredHashtags) != 0 {
		t.Fatalf("below-threshold event must not harvest hashtags: %v", profile.PreferredHashtags)
	}
	if profile.ContentLengthTarget["twitter"] != 280 {
		t.Fatalf("below-threshold event must not move length target, got %d", profile.ContentLengthTarget["twitter"])
	}
	if profile.LearningHistory.TotalPostsObserved != 1 {
		t.Fatalf("the event still counts toward history")
	}
}

func TestLowRatingRecordsAvoidedTerms(t *testing.T) {
	learner, store := newTestLearner()
	ctx := context.Background()

	bad := event("bad", 0.5)
	bad.UserRating = 1
	bad.Issues = []string{"clickbait", "salesy", "Clickbait"}
	if err := learner.IngestFeedback(ctx, "default", bad); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	profile, _ := store.LoadProfile(ctx, "default")
	if len(profile.ToneVocabulary.Avoided) != 2 {
		t.Fatalf("expected 2 unique avoided terms, got %v", profile.ToneVocabulary.Avoided)
	}
}

func TestHighRatingKeepsVocabularyIntact(t *testing.T) {
	learner, store := newTestLearner()
	ctx := context.Background()

	good := event("good", 4.0)
	good.UserRating = 5
	if err := learner.IngestFeedback(ctx, "default", good); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	profile, _ := store.LoadProfile(ctx, "default")
	defaults := DefaultProfile("default")
	if len(profile.ToneVocabulary.Preferred) != len(defaults.ToneVocabulary.Preferred) {
		t.Fatalf("a high rating must not remove preferred vocabulary")
	}
	if len(profile.ToneVocabulary.Avoided) != 0 {
		t.Fatalf("a high rating must not add avoided terms")
	}
}

func TestConcurrentIngestKeepsExactMean(t *testing.T) {
	learner, store := newTestLearner()
	ctx := context.Background()

	workers := 8
	perWorker := 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				e := event("concurrent", 2.0)
				if err := learner.IngestFeedback(ctx, "default", e); err != nil {
					t.Errorf("ingest failed: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	profile, _ := store.LoadProfile(ctx, "default")
	if profile.LearningHistory.TotalPostsObserved != workers*perWorker {
		t.Fatalf("lost updates: expected %d observations, got %d", workers*perWorker, profile.LearningHistory.TotalPostsObserved)
	}
	if math.Abs(profile.LearningHistory.AverageEngagementRate-2.0) > 1e-9 {
		t.Fatalf("expected mean 2.0, got %f", profile.LearningHistory.AverageEngagementRate)
	}
}

func TestUpdateThresholds(t *testing.T) {
	learner, _ := newTestLearner()
	ctx := context.Background()

	minRate := 3.5
	profile, err := learner.UpdateThresholds(ctx, "default", &minRate, map[string]PlatformTargets{
		"Twitter": {Likes: 80, Comments: 16},
	})
	if err != nil {
		t.Fatalf("update thresholds failed: %v", err)
	}
	if profile.EngagementThresholds.MinEngagementRate != 3.5 {
		t.Fatalf("min rate not applied: %f", profile.EngagementThresholds.MinEngagementRate)
	}
	if profile.EngagementThresholds.PerPlatformTargets["twitter"].Likes != 80 {
		t.Fatalf("platform key not normalized: %+v", profile.EngagementThresholds.PerPlatformTargets)
	}

	negative := -1.0
	if _, err := learner.UpdateThresholds(ctx, "default", &negative, nil); err == nil {
		t.Fatalf("expected rejection of negative threshold")
	}
}
