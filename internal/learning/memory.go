package learning

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore keeps profiles and events in process memory. It backs tests
// and credential-free local runs.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	events   map[string][]FeedbackEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: map[string]Profile{},
		events:   map[string][]FeedbackEvent{},
	}
}

func (s *MemoryStore) LoadProfile(_ context.Context, tenant string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, exists := s.profiles[tenant]
	if !exists {
		return Profile{}, ErrProfileNotFound
	}
	return profile.clone(), nil
}

func (s *MemoryStore) SaveProfile(_ context.Context, profile Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[profile.Tenant] = profile.clone()
	return nil
}

func (s *MemoryStore) AppendFeedbackEvent(_ context.Context, tenant string, event FeedbackEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[tenant] = append(s.events[tenant], event)
	return nil
}

func (s *MemoryStore) QueryFeedbackEvents(_ context.Context, filter EventFilter) ([]FeedbackEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []FeedbackEvent
	for _, event := range s.events[filter.Tenant] {
		if !matchesFilter(event, filter) {
			continue
		}
		out = append(out, event)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func matchesFilter(event FeedbackEvent, filter EventFilter) bool {
	if !filter.Since.IsZero() && event.ObservedAt.Before(filter.Since) {
		return false
	}
	if filter.Platform != "" {
		found := false
		for _, platform := range event.Platforms {
			if strings.EqualFold(platform, filter.Platform) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
