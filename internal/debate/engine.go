package debate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"postloop/backend/internal/ai"
	"postloop/backend/internal/ai/prompts"
	"postloop/backend/internal/observability"
)

const (
	StageProposal    = "proposal"
	StageCritique    = "critique"
	StageRefinement  = "refinement"
	StageHashtags    = "hashtags"
	StageImagePrompt = "image_prompt"
)

// FailedError is the only fatal error a debate run surfaces. The partial
// transcript stays attached for diagnostics.
type FailedError struct {
	Stage      string
	Transcript []TurnRecord
	Err        error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("debate failed at %s: %v", e.Stage, e.Err)
}

func (e *FailedError) Unwrap() error {
	return e.Err
}

type Metrics interface {
	ObserveDebate(outcome string, rounds int)
	IncGenerationCall(provider, op, outcome string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveDebate(string, int)                {}
func (noopMetrics) IncGenerationCall(string, string, string) {}

type Engine struct {
	proposer  *ai.Chain
	critic    *ai.Chain
	maxRounds int
	logger    *observability.Logger
	metrics   Metrics
}

func NewEngine(proposer, critic *ai.Chain, maxRounds int, logger *observability.Logger, metrics Metrics) *Engine {
	if maxRounds <= 0 {
		maxRounds = 3
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Engine{
		proposer:  proposer,
		critic:    critic,
		maxRounds: maxRounds,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run executes one bounded debate: seed proposal, up to maxRounds
// critique/refine/consensus cycles, then hashtag and image-prompt synthesis.
func (e *Engine) Run(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return Result{}, errors.New("topic is required")
	}
	if len(req.Platforms) == 0 {
		return Result{}, errors.New("at least one platform is required")
	}

	s := newSession(req, e.maxRounds)

	seedPrompt := prompts.Proposal(s.topic, s.platforms, s.tone, s.goals, s.audience, s.prefs)
	proposal, err := e.complete(ctx, e.proposer, StageProposal, seedPrompt)
	if err != nil {
		e.metrics.ObserveDebate("failed", s.round)
		return Result{}, &FailedError{Stage: StageProposal, Transcript: s.transcriptCopy(), Err: err}
	}
	s.currentProposal = proposal
	s.record(AgentProposer, TurnProposal, proposal)

	lastCritique := ""
	for s.round = 1; s.round <= s.maxRounds; s.round++ {
		critiquePrompt := prompts.Critique(s.topic, s.currentProposal)
		critique, err := e.complete(ctx, e.critic, StageCritique, critiquePrompt)
		if err != nil {
			e.metrics.ObserveDebate("failed", s.round)
			return Result{}, &FailedError{Stage: StageCritique, Transcript: s.transcriptCopy(), Err: err}
		}
		s.record(AgentCritic, TurnCritique, critique)
		suggestions := extractSuggestions(critique)
		s.addInsights(extractInsights(critique))
		lastCritique = critique

		refinePrompt := prompts.Refinement(s.topic, s.currentProposal, critique, suggestions, s.prefs)
		refined, err := e.complete(ctx, e.proposer, StageRefinement, refinePrompt)
		if err != nil {
			e.metrics.ObserveDebate("failed", s.round)
			return Result{}, &FailedError{Stage: StageRefinement, Transcript: s.transcriptCopy(), Err: err}
		}
		s.currentProposal = refined
		s.record(AgentProposer, TurnRefinement, refined)

		e.checkConsensus(ctx, s, lastCritique)

		e.logger.Info("debate_round_complete", observability.Fields{
			"session_id": s.id,
			"round":      s.round,
			"consensus":  s.consensusReached,
		})

		if s.consensusReached {
			break
		}
	}
	if s.round > s.maxRounds {
		s.round = s.maxRounds
	}

	hashtagsPrompt := prompts.Hashtags(s.topic, s.currentProposal, s.prefs)
	rawHashtags, err := e.complete(ctx, e.proposer, StageHashtags, hashtagsPrompt)
	if err != nil {
		e.metrics.ObserveDebate("failed", s.round)
		return Result{}, &FailedError{Stage: StageHashtags, Transcript: s.transcriptCopy(), Err: err}
	}

	imagePrompt := prompts.ImagePrompt(s.topic, s.currentProposal)
	imageText, err := e.complete(ctx, e.proposer, StageImagePrompt, imagePrompt)
	if err != nil {
		e.metrics.ObserveDebate("failed", s.round)
		return Result{}, &FailedError{Stage: StageImagePrompt, Transcript: s.transcriptCopy(), Err: err}
	}

	s.record(AgentSystem, TurnSummary, fmt.Sprintf(
		"Debate finished after %d round(s); consensus=%t uncertain=%t",
		s.round, s.consensusReached, s.consensusUncertain,
	))

	outcome := "no_consensus"
	if s.consensusReached {
		outcome = "consensus"
	}
	if s.consensusUncertain {
		outcome = "consensus_uncertain"
	}
	e.metrics.ObserveDebate(outcome, s.round)

	return Result{
		SessionID:          s.id,
		FinalContent:       s.currentProposal,
		Hashtags:           parseHashtags(rawHashtags, s.topic),
		ImagePrompt:        imageText,
		Insights:           s.insights,
		ConsensusReached:   s.consensusReached,
		ConsensusUncertain: s.consensusUncertain,
		Rounds:             s.round,
		Transcript:         s.transcriptCopy(),
	}, nil
}

// checkConsensus never fails the session. A judge error means "needs more
// rounds" until round 2, after which it force-accepts so a persistently
// broken judge cannot prevent termination. The forced path is reported as
// uncertain, not as a real agreement.
func (e *Engine) checkConsensus(ctx context.Context, s *session, critique string) {
	judgePrompt := prompts.Consensus(s.topic, s.currentProposal, critique)
	answer, err := e.complete(ctx, e.critic, TurnConsensus, judgePrompt)
	if err != nil {
		if s.round >= 2 {
			s.consensusReached = true
			s.consensusUncertain = true
			s.record(AgentSystem, TurnConsensus, "accepted: judge unavailable after round 2")
		} else {
			s.record(AgentSystem, TurnConsensus, "judge unavailable, continuing")
		}
		e.logger.Warn("consensus_judge_unavailable", observability.Fields{
			"session_id": s.id,
			"round":      s.round,
			"error":      err.Error(),
		})
		return
	}

	if isConsensusYes(answer) {
		s.consensusReached = true
		s.record(AgentCritic, TurnConsensus, "YES")
		return
	}
	s.record(AgentCritic, TurnConsensus, "NO")
}

func (e *Engine) complete(ctx context.Context, chain *ai.Chain, op string, prompt prompts.ChatPrompt) (string, error) {
	text, provider, err := chain.Complete(ctx, prompt.System, prompt.User)
	if err != nil {
		e.metrics.IncGenerationCall(chain.Name(), op, "error")
		return "", err
	}
	e.metrics.IncGenerationCall(provider, op, "ok")
	return text, nil
}
