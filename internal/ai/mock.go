package ai

import (
	"context"
	"fmt"
	"strings"
)

// MockClient produces deterministic output so flows can run without any
// provider credentials. Responses are keyed on the system prompt.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Name() string {
	return "mock"
}

func (m *MockClient) Complete(_ context.Context, system, user string) (string, error) {
	lowerSystem := strings.ToLower(system)
	topic := firstLine(user)

	switch {
	case strings.Contains(lowerSystem, "consensus judge"):
		return "YES", nil
	case strings.Contains(lowerSystem, "hashtag sets"):
		return `{"hashtags":["#growth","#strategy","#community","#insights","#content"]}`, nil
	case strings.Contains(lowerSystem, "image prompt"):
		return fmt.Sprintf("High-quality photograph with natural lighting illustrating %s, shallow depth of field, candid composition.", topic), nil
	case strings.Contains(lowerSystem, "critic"):
		return fmt.Sprintf(
			"The draft is serviceable but generic. I suggest opening with a concrete example. You should tighten the middle section. Key insight: specificity drives engagement on %s.",
			topic,
		), nil
	default:
		return fmt.Sprintf(
			"Here is a practical take on %s: start with the single most useful idea, back it with one concrete example, and close with a question that invites replies.",
			topic,
		), nil
	}
}

func firstLine(value string) string {
	for _, line := range strings.Split(value, "\n") {
		clean := strings.TrimSpace(line)
		if clean != "" {
			return clean
		}
	}
	return "the topic"
}
