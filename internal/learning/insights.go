package learning

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"postloop/backend/internal/common"
)

// minEventsForInsights is the floor below which aggregates are too noisy to
// recommend anything.
const minEventsForInsights = 10

type PostSummary struct {
	PostID         string   `json:"postId"`
	Preview        string   `json:"preview"`
	Platforms      []string `json:"platforms"`
	EngagementRate float64  `json:"engagementRate"`
}

type DebateSplit struct {
	DebateMean     float64 `json:"debateMean"`
	NonDebateMean  float64 `json:"nonDebateMean"`
	DebateCount    int     `json:"debateCount"`
	NonDebateCount int     `json:"nonDebateCount"`
}

type Trends struct {
	EngagementByPlatform  map[string]float64 `json:"engagementByPlatform"`
	EngagementByTimeOfDay map[int]float64    `json:"engagementByTimeOfDay"`
	DebateVsNonDebate     DebateSplit        `json:"debateVsNonDebate"`
}

type Insights struct {
	SufficientData  bool          `json:"sufficientData"`
	EventsObserved  int           `json:"eventsObserved"`
	TopPerforming   []PostSummary `json:"topPerforming"`
	WorstPerforming []PostSummary `json:"worstPerforming"`
	Trends          Trends        `json:"trends"`
	Recommendations []string      `json:"recommendations"`
}

// PerformanceInsights aggregates the feedback log into trends and a fixed
// rule table of recommendations. Thin history is a signal, not an error.
func (l *Learner) PerformanceInsights(ctx context.Context, tenant string) (Insights, error) {
	events, err := l.store.QueryFeedbackEvents(ctx, EventFilter{Tenant: tenant})
	if err != nil {
		return Insights{}, fmt.Errorf("query feedback events: %w", err)
	}

	if len(events) < minEventsForInsights {
		return Insights{
			SufficientData: false,
			EventsObserved: len(events),
			Recommendations: []string{
				"Not enough historical data for recommendations yet. Keep posting and collecting feedback.",
			},
		}, nil
	}

	trends := computeTrends(events)
	profile, err := l.ProfileFor(ctx, tenant)
	if err != nil {
		return Insights{}, err
	}

	return Insights{
		SufficientData:  true,
		EventsObserved:  len(events),
		TopPerforming:   rankEvents(events, true, 3),
		WorstPerforming: rankEvents(events, false, 3),
		Trends:          trends,
		Recommendations: buildRecommendations(trends, profile),
	}, nil
}

func computeTrends(events []FeedbackEvent) Trends {
	trends := Trends{
		EngagementByPlatform:  map[string]float64{},
		EngagementByTimeOfDay: map[int]float64{},
	}

	var debateSum, nonDebateSum float64
	for _, event := range events {
		for _, platform := range event.Platforms {
			key := strings.ToLower(strings.TrimSpace(platform))
			if key == "" {
				continue
			}
			trends.EngagementByPlatform[key] += event.Performance.EngagementRate
		}
		trends.EngagementByTimeOfDay[event.ObservedAt.Hour()] += event.Performance.EngagementRate

		if event.DebateUsed {
			debateSum += event.Performance.EngagementRate
			trends.DebateVsNonDebate.DebateCount++
		} else {
			nonDebateSum += event.Performance.EngagementRate
			trends.DebateVsNonDebate.NonDebateCount++
		}
	}

	if trends.DebateVsNonDebate.DebateCount > 0 {
		trends.DebateVsNonDebate.DebateMean = debateSum / float64(trends.DebateVsNonDebate.DebateCount)
	}
	if trends.DebateVsNonDebate.NonDebateCount > 0 {
		trends.DebateVsNonDebate.NonDebateMean = nonDebateSum / float64(trends.DebateVsNonDebate.NonDebateCount)
	}
	return trends
}

func rankEvents(events []FeedbackEvent, best bool, limit int) []PostSummary {
	sorted := make([]FeedbackEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if best {
			return sorted[i].Performance.EngagementRate > sorted[j].Performance.EngagementRate
		}
		return sorted[i].Performance.EngagementRate < sorted[j].Performance.EngagementRate
	})

	if limit > len(sorted) {
		limit = len(sorted)
	}
	out := make([]PostSummary, 0, limit)
	for _, event := range sorted[:limit] {
		out = append(out, PostSummary{
			PostID:         event.PostID,
			Preview:        common.TruncateRunes(event.Content, 80),
			Platforms:      event.Platforms,
			EngagementRate: event.Performance.EngagementRate,
		})
	}
	return out
}

func buildRecommendations(trends Trends, profile Profile) []string {
	var out []string

	if platform := bestPlatform(trends.EngagementByPlatform); platform != "" {
		out = append(out, fmt.Sprintf("Focus on %s: it carries the strongest cumulative engagement.", platform))
	}

	if hours := bestHours(trends.EngagementByTimeOfDay, 3); len(hours) > 0 {
		parts := make([]string, 0, len(hours))
		for _, hour := range hours {
			parts = append(parts, fmt.Sprintf("%02d:00", hour))
		}
		out = append(out, "Best posting hours so far: "+strings.Join(parts, ", ")+".")
	}

	split := trends.DebateVsNonDebate
	if split.DebateCount > 0 && split.NonDebateCount > 0 && split.DebateMean > split.NonDebateMean*1.2 {
		out = append(out, "Debate mode recommended: debated posts outperform regular posts by more than 20%.")
	}

	platforms := make([]string, 0, len(profile.ContentLengthTarget))
	for platform := range profile.ContentLengthTarget {
		platforms = append(platforms, platform)
	}
	sort.Strings(platforms)
	for _, platform := range platforms {
		out = append(out, fmt.Sprintf("Aim for roughly %d characters on %s.", profile.ContentLengthTarget[platform], platform))
	}

	return out
}

func bestPlatform(sums map[string]float64) string {
	best := ""
	bestSum := 0.0
	platforms := make([]string, 0, len(sums))
	for platform := range sums {
		platforms = append(platforms, platform)
	}
	sort.Strings(platforms)
	for _, platform := range platforms {
		if best == "" || sums[platform] > bestSum {
			best = platform
			bestSum = sums[platform]
		}
	}
	return best
}

func bestHours(sums map[int]float64, limit int) []int {
	hours := make([]int, 0, len(sums))
	for hour := range sums {
		hours = append(hours, hour)
	}
	sort.Slice(hours, func(i, j int) bool {
		if sums[hours[i]] != sums[hours[j]] {
			return sums[hours[i]] > sums[hours[j]]
		}
		return hours[i] < hours[j]
	})
	if limit > len(hours) {
		limit = len(hours)
	}
	return hours[:limit]
}
