package ai

import (
	"context"
	"errors"
	"fmt"
)

// Chain tries each client in order and returns the first success. There is
// no retry loop at this level; per-call retries live inside the clients.
type Chain struct {
	name    string
	clients []Client
}

func NewChain(name string, clients ...Client) *Chain {
	kept := make([]Client, 0, len(clients))
	for _, client := range clients {
		if client != nil {
			kept = append(kept, client)
		}
	}
	return &Chain{name: name, clients: kept}
}

func (c *Chain) Name() string {
	return c.name
}

// Complete returns the generated text and the name of the provider that
// produced it. All providers failing yields the last provider's error.
func (c *Chain) Complete(ctx context.Context, system, user string) (string, string, error) {
	if len(c.clients) == 0 {
		return "", "", fmt.Errorf("%s chain has no providers", c.name)
	}

	var lastErr error
	for _, client := range c.clients {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}

		text, err := client.Complete(ctx, system, user)
		if err == nil {
			return text, client.Name(), nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", "", err
		}
	}
	return "", "", fmt.Errorf("%s chain exhausted: %w", c.name, lastErr)
}
