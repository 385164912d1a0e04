package debate

import (
	"time"

	"github.com/google/uuid"

	"postloop/backend/internal/ai/prompts"
)

const (
	AgentProposer = "proposer"
	AgentCritic   = "critic"
	AgentSystem   = "system"
)

const (
	TurnTopic      = "topic"
	TurnProposal   = "proposal"
	TurnCritique   = "critique"
	TurnRefinement = "refinement"
	TurnConsensus  = "consensus"
	TurnSummary    = "summary"
)

// TurnRecord is one append-only transcript entry. Round 0 holds the topic
// announcement and the seed proposal.
type TurnRecord struct {
	Agent string    `json:"agent"`
	Type  string    `json:"type"`
	Round int       `json:"round"`
	Text  string    `json:"text"`
	At    time.Time `json:"at"`
}

type Request struct {
	Tenant         string
	Topic          string
	Platforms      []string
	Tone           string
	BusinessGoals  string
	TargetAudience string
	Preferences    prompts.Preferences
}

type Result struct {
	SessionID          string       `json:"sessionId"`
	FinalContent       string       `json:"finalContent"`
	Hashtags           []string     `json:"hashtags"`
	ImagePrompt        string       `json:"imagePrompt"`
	Insights           []string     `json:"insights"`
	ConsensusReached   bool         `json:"consensusReached"`
	ConsensusUncertain bool         `json:"consensusUncertain"`
	Rounds             int          `json:"rounds"`
	Transcript         []TurnRecord `json:"transcript"`
}

// session is the engine's mutable working state for a single run.
type session struct {
	id                 string
	topic              string
	platforms          []string
	tone               string
	goals              string
	audience           string
	prefs              prompts.Preferences
	round              int
	maxRounds          int
	currentProposal    string
	transcript         []TurnRecord
	insights           []string
	consensusReached   bool
	consensusUncertain bool
}

func newSession(req Request, maxRounds int) *session {
	if maxRounds <= 0 {
		maxRounds = 3
	}
	s := &session{
		id:        uuid.NewString(),
		topic:     req.Topic,
		platforms: req.Platforms,
		tone:      req.Tone,
		goals:     req.BusinessGoals,
		audience:  req.TargetAudience,
		prefs:     req.Preferences,
		maxRounds: maxRounds,
	}
	s.record(AgentSystem, TurnTopic, "Debate topic: "+req.Topic)
	return s
}

func (s *session) record(agent, turnType, text string) {
	s.transcript = append(s.transcript, TurnRecord{
		Agent: agent,
		Type:  turnType,
		Round: s.round,
		Text:  text,
		At:    time.Now().UTC(),
	})
}

func (s *session) addInsights(items []string) {
	seen := map[string]struct{}{}
	for _, existing := range s.insights {
		seen[existing] = struct{}{}
	}
	for _, item := range items {
		if _, exists := seen[item]; exists {
			continue
		}
		seen[item] = struct{}{}
		s.insights = append(s.insights, item)
	}
}

func (s *session) transcriptCopy() []TurnRecord {
	out := make([]TurnRecord, len(s.transcript))
	copy(out, s.transcript)
	return out
}
