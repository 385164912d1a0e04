package debate

import (
	"strings"
	"testing"
)

func TestExtractSuggestionsMatchesCueWordsAndCaps(t *testing.T) {
	critique := strings.Join([]string{
		"I suggest starting with a number.",
		"This line has no cue at all.",
		"You should shorten the second sentence.",
		"You could add a question.",
		"I recommend one concrete example.",
		"Maybe you should vary the rhythm.",
		"You should also trim hashtags.",
	}, "\n")

	suggestions := extractSuggestions(critique)
	if len(suggestions) != 5 {
		t.Fatalf("expected cap of 5 suggestions, got %d", len(suggestions))
	}
	for _, suggestion := range suggestions {
		if strings.Contains(suggestion, "no cue") {
			t.Fatalf("line without cue word extracted: %s", suggestion)
		}
	}
}

func TestExtractInsightsUsesOwnCues(t *testing.T) {
	critique := "Key insight: brevity wins.\nImportant: post before noon.\nJust filler text here."
	insights := extractInsights(critique)
	if len(insights) != 2 {
		t.Fatalf("expected 2 insights, got %d: %v", len(insights), insights)
	}
}

func TestParseHashtagsAcceptsJSONShape(t *testing.T) {
	raw := `Sure! {"hashtags":["#one","#two","#three","#four","#five","#six"]}`
	tags := parseHashtags(raw, "launch day")
	if len(tags) != 6 {
		t.Fatalf("expected 6 tags, got %v", tags)
	}
	if tags[0] != "#one" {
		t.Fatalf("expected insertion order preserved, got %v", tags)
	}
}

func TestParseHashtagsFallsBackToTokensAndTopic(t *testing.T) {
	tags := parseHashtags("try #focus and #study", "morning study routines for finals")
	if len(tags) < 5 || len(tags) > 10 {
		t.Fatalf("expected between 5 and 10 tags, got %d: %v", len(tags), tags)
	}
	if tags[0] != "#focus" {
		t.Fatalf("scanned tokens should come first, got %v", tags)
	}
}

func TestParseHashtagsDeduplicatesCaseInsensitively(t *testing.T) {
	raw := `{"hashtags":["#Go","#go","#GO","#dev","#dev","#ship","#build","#test"]}`
	tags := parseHashtags(raw, "shipping")
	seen := map[string]bool{}
	for _, tag := range tags {
		lower := strings.ToLower(tag)
		if seen[lower] {
			t.Fatalf("duplicate tag %s in %v", tag, tags)
		}
		seen[lower] = true
	}
}

func TestParseHashtagsClampsAtTen(t *testing.T) {
	raw := `{"hashtags":["#a1","#a2","#a3","#a4","#a5","#a6","#a7","#a8","#a9","#a10","#a11","#a12"]}`
	tags := parseHashtags(raw, "topic")
	if len(tags) != 10 {
		t.Fatalf("expected clamp at 10 tags, got %d", len(tags))
	}
}

func TestIsConsensusYes(t *testing.T) {
	cases := []struct {
		answer string
		want   bool
	}{
		{"YES", true},
		{"yes, absolutely", true},
		{"  Yes", true},
		{"NO", false},
		{"not yet", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := isConsensusYes(tc.answer); got != tc.want {
			t.Fatalf("isConsensusYes(%q) = %t, want %t", tc.answer, got, tc.want)
		}
	}
}
