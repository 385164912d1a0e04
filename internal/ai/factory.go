package ai

import "postloop/backend/internal/config"

func clientFromConfig(cfg config.Config, provider string) Client {
	switch provider {
	case "openai":
		return NewOpenAIClient(
			cfg.OpenAIAPIKey,
			cfg.OpenAIBaseURL,
			cfg.OpenAIModel,
			cfg.GenRequestTimeout,
			cfg.GenMaxRetries,
			cfg.GenRetryBase,
		)
	case "anthropic":
		return NewAnthropicClient(
			cfg.AnthropicAPIKey,
			cfg.AnthropicBaseURL,
			cfg.AnthropicModel,
			cfg.AnthropicVersion,
			cfg.GenRequestTimeout,
			cfg.GenMaxRetries,
			cfg.GenRetryBase,
		)
	default:
		return NewMockClient()
	}
}

func fallbackFor(provider string) string {
	switch provider {
	case "anthropic":
		return "openai"
	case "openai":
		return "anthropic"
	default:
		return ""
	}
}

// ProposerChainFromConfig builds the proposer chain: the configured primary
// followed by the opposite hosted provider as fallback.
func ProposerChainFromConfig(cfg config.Config) *Chain {
	primary := clientFromConfig(cfg, cfg.ProposerProvider)
	if fallback := fallbackFor(cfg.ProposerProvider); fallback != "" {
		return NewChain("proposer", primary, clientFromConfig(cfg, fallback))
	}
	return NewChain("proposer", primary)
}

// CriticChainFromConfig builds the critic chain the same way.
func CriticChainFromConfig(cfg config.Config) *Chain {
	primary := clientFromConfig(cfg, cfg.CriticProvider)
	if fallback := fallbackFor(cfg.CriticProvider); fallback != "" {
		return NewChain("critic", primary, clientFromConfig(cfg, fallback))
	}
	return NewChain("critic", primary)
}
