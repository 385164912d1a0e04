package debate

import (
	"encoding/json"
	"regexp"
	"strings"
)

const maxExtracted = 5

var (
	suggestionCues = []string{"suggest", "recommend", "could", "should"}
	insightCues    = []string{"insight", "important", "key", "note"}

	hashtagTokenPattern = regexp.MustCompile(`#\w+`)
	wordPattern         = regexp.MustCompile(`[A-Za-z0-9]+`)
)

// extractSuggestions pulls critique lines that carry an actionable cue word.
func extractSuggestions(critique string) []string {
	return extractByCues(critique, suggestionCues)
}

// extractInsights pulls critique lines that flag an observation worth keeping.
func extractInsights(critique string) []string {
	return extractByCues(critique, insightCues)
}

func extractByCues(text string, cues []string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		clean := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*0123456789. "))
		if clean == "" {
			continue
		}
		lower := strings.ToLower(clean)
		for _, cue := range cues {
			if strings.Contains(lower, cue) {
				out = append(out, clean)
				break
			}
		}
		if len(out) >= maxExtracted {
			break
		}
	}
	return out
}

// parseHashtags accepts the JSON shape the prompt asks for, falls back to
// scanning for #tokens, and finally derives tags from the topic so the
// result always lands between 5 and 10 entries.
func parseHashtags(raw, topic string) []string {
	tags := hashtagsFromJSON(raw)
	if len(tags) == 0 {
		tags = hashtagTokenPattern.FindAllString(raw, -1)
	}

	tags = dedupeHashtags(tags)
	if len(tags) < 5 {
		tags = dedupeHashtags(append(tags, deriveHashtags(topic)...))
	}
	if len(tags) > 10 {
		tags = tags[:10]
	}
	return tags
}

func hashtagsFromJSON(raw string) []string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil
	}

	var payload struct {
		Hashtags []string `json:"hashtags"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return nil
	}
	return payload.Hashtags
}

func dedupeHashtags(tags []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		clean := strings.TrimSpace(tag)
		if clean == "" {
			continue
		}
		if !strings.HasPrefix(clean, "#") {
			clean = "#" + clean
		}
		lower := strings.ToLower(clean)
		if _, exists := seen[lower]; exists {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, clean)
	}
	return out
}

var fillerHashtags = []string{"#content", "#social", "#community", "#growth", "#today"}

func deriveHashtags(topic string) []string {
	var out []string
	for _, word := range wordPattern.FindAllString(topic, -1) {
		if len(word) < 4 {
			continue
		}
		out = append(out, "#"+strings.ToLower(word))
		if len(out) >= 5 {
			return out
		}
	}
	return append(out, fillerHashtags...)
}

// isConsensusYes interprets the judge's forced-choice answer. Anything that
// does not clearly start with YES counts as NO.
func isConsensusYes(answer string) bool {
	clean := strings.ToUpper(strings.TrimSpace(answer))
	return strings.HasPrefix(clean, "YES")
}
