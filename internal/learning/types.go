package learning

import "time"

type Performance struct {
	Likes          int     `json:"likes"`
	Comments       int     `json:"comments"`
	Shares         int     `json:"shares"`
	Clicks         int     `json:"clicks"`
	EngagementRate float64 `json:"engagementRate"`
}

// FeedbackEvent is one observed post outcome. Events are append-only;
// UserRating 0 means the user did not rate the post.
type FeedbackEvent struct {
	PostID      string      `json:"postId"`
	Content     string      `json:"content"`
	Platforms   []string    `json:"platforms"`
	Performance Performance `json:"performance"`
	UserRating  int         `json:"userRating,omitempty"`
	Issues      []string    `json:"issues,omitempty"`
	DebateUsed  bool        `json:"debateUsed"`
	ObservedAt  time.Time   `json:"observedAt"`
}

type ToneVocabulary struct {
	Preferred []string `json:"preferred"`
	Avoided   []string `json:"avoided"`
}

type PlatformTargets struct {
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
}

type EngagementThresholds struct {
	MinEngagementRate  float64                    `json:"minEngagementRate"`
	PerPlatformTargets map[string]PlatformTargets `json:"perPlatformTargets"`
}

type LearningHistory struct {
	TotalPostsObserved    int       `json:"totalPostsObserved"`
	AverageEngagementRate float64   `json:"averageEngagementRate"`
	ImprovementRate       float64   `json:"improvementRate"`
	LastUpdated           time.Time `json:"lastUpdated"`
}

// Profile is the per-tenant learned preference state. PreferredHashtags
// keeps discovery order; membership is case-insensitive set semantics.
type Profile struct {
	Tenant               string               `json:"tenant"`
	ToneVocabulary       ToneVocabulary       `json:"toneVocabulary"`
	ContentLengthTarget  map[string]int       `json:"contentLengthTarget"`
	PreferredHashtags    []string             `json:"preferredHashtags"`
	EngagementThresholds EngagementThresholds `json:"engagementThresholds"`
	LearningHistory      LearningHistory      `json:"learningHistory"`
}

// DefaultProfile seeds a tenant that has no persisted state yet. A missing
// profile is never an error.
func DefaultProfile(tenant string) Profile {
	return Profile{
		Tenant: tenant,
		ToneVocabulary: ToneVocabulary{
			Preferred: []string{"engaging", "authentic"},
		},
		ContentLengthTarget: map[string]int{
			"twitter":   280,
			"facebook":  500,
			"instagram": 300,
			"linkedin":  600,
		},
		EngagementThresholds: EngagementThresholds{
			MinEngagementRate: 2.5,
			PerPlatformTargets: map[string]PlatformTargets{
				"twitter":   {Likes: 50, Comments: 10},
				"facebook":  {Likes: 100, Comments: 20},
				"instagram": {Likes: 150, Comments: 30},
				"linkedin":  {Likes: 30, Comments: 5},
			},
		},
	}
}

func (p *Profile) clone() Profile {
	out := *p

	out.ToneVocabulary.Preferred = append([]string(nil), p.ToneVocabulary.Preferred...)
	out.ToneVocabulary.Avoided = append([]string(nil), p.ToneVocabulary.Avoided...)
	out.PreferredHashtags = append([]string(nil), p.PreferredHashtags...)

	out.ContentLengthTarget = make(map[string]int, len(p.ContentLengthTarget))
	for platform, length := range p.ContentLengthTarget {
		out.ContentLengthTarget[platform] = length
	}

	out.EngagementThresholds.PerPlatformTargets = make(map[string]PlatformTargets, len(p.EngagementThresholds.PerPlatformTargets))
	for platform, targets := range p.EngagementThresholds.PerPlatformTargets {
		out.EngagementThresholds.PerPlatformTargets[platform] = targets
	}

	return out
}
