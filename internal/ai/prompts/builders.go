package prompts

import (
	"fmt"
	"sort"
	"strings"
)

// Preferences carries learned tenant style signals into the prompts. All
// fields are optional; an empty value renders as "none".
type Preferences struct {
	PreferredTones    []string
	AvoidedWords      []string
	PreferredHashtags []string
	LengthTargets     map[string]int
}

type ChatPrompt struct {
	System string
	User   string
}

func Proposal(topic string, platforms []string, tone, goals, audience string, prefs Preferences) ChatPrompt {
	system := "You draft one social media post on the given topic. Keep output non-spam, no links, and no hashtag stuffing."
	user := fmt.Sprintf(
		"Topic: %s\nTarget platforms: %s\nRequested tone: %s\nBusiness goals: %s\nTarget audience: %s\nPreferred tones: %s\nWords to avoid: %s\nHashtags that performed well: %s\nLength targets per platform: %s\nOutput rules: one post body only, no preamble, respect the shortest platform length target.",
		topic,
		formatStringList(platforms),
		orNone(tone),
		orNone(goals),
		orNone(audience),
		formatStringList(prefs.PreferredTones),
		formatStringList(prefs.AvoidedWords),
		formatStringList(prefs.PreferredHashtags),
		formatLengthTargets(prefs.LengthTargets),
	)
	return ChatPrompt{System: system, User: user}
}

func Critique(topic, proposal string) ChatPrompt {
	system := "You are a blunt content critic. Point out weaknesses in the draft and suggest concrete improvements. Mark key observations with words like 'suggest', 'should' or 'insight'."
	user := fmt.Sprintf(
		"Topic: %s\nDraft under review:\n%s\nOutput rules: short prose, each suggestion on its own line, no rewritten draft.",
		topic,
		proposal,
	)
	return ChatPrompt{System: system, User: user}
}

func Refinement(topic, proposal, critique string, suggestions []string, prefs Preferences) ChatPrompt {
	system := "You revise a social media draft based on critique. Keep the original topic intent intact."
	user := fmt.Sprintf(
		"Topic: %s\nCurrent draft:\n%s\nCritique:\n%s\nActionable suggestions: %s\nWords to avoid: %s\nOutput rules: the revised post body only, no commentary.",
		topic,
		proposal,
		critique,
		formatStringList(suggestions),
		formatStringList(prefs.AvoidedWords),
	)
	return ChatPrompt{System: system, User: user}
}

func Consensus(topic, proposal, critique string) ChatPrompt {
	system := "You are a consensus judge. Answer with exactly one word, YES or NO, and nothing else."
	user := fmt.Sprintf(
		"Topic: %s\nLatest draft:\n%s\nLatest critique:\n%s\nQuestion: is the draft good enough to publish as-is? Answer YES or NO.",
		topic,
		proposal,
		critique,
	)
	return ChatPrompt{System: system, User: user}
}

func Hashtags(topic, content string, prefs Preferences) ChatPrompt {
	system := `You generate hashtag sets. Respond with JSON only, in the form {"hashtags":["#one","#two"]}.`
	user := fmt.Sprintf(
		"Topic: %s\nFinal post:\n%s\nHashtags that performed well before: %s\nOutput rules: between 5 and 10 hashtags, each starting with #, JSON object only.",
		topic,
		content,
		formatStringList(prefs.PreferredHashtags),
	)
	return ChatPrompt{System: system, User: user}
}

func ImagePrompt(topic, content string) ChatPrompt {
	system := "You write one image prompt for a text-to-image model. Prefer high-quality photography with natural lighting over illustrations."
	user := fmt.Sprintf(
		"Topic: %s\nPost the image accompanies:\n%s\nOutput rules: one prompt sentence describing a photorealistic scene, no camera brand names.",
		topic,
		content,
	)
	return ChatPrompt{System: system, User: user}
}

func formatStringList(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, " | ")
}

func formatLengthTargets(targets map[string]int) string {
	if len(targets) == 0 {
		return "none"
	}
	platforms := make([]string, 0, len(targets))
	for platform := range targets {
		platforms = append(platforms, platform)
	}
	sort.Strings(platforms)

	parts := make([]string, 0, len(platforms))
	for _, platform := range platforms {
		parts = append(parts, fmt.Sprintf("%s=%d", platform, targets[platform]))
	}
	return strings.Join(parts, " | ")
}

func orNone(value string) string {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return "none"
	}
	return clean
}
