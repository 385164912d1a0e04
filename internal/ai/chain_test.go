package ai

import (
	"context"
	"errors"
	"testing"
)

type stubClient struct {
	name  string
	text  string
	err   error
	calls int
}

func (c *stubClient) Name() string {
	return c.name
}

func (c *stubClient) Complete(_ context.Context, _, _ string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return c.text, nil
}

func TestChainReturnsFirstSuccess(t *testing.T) {
	primary := &stubClient{name: "primary", text: "from primary"}
	fallback := &stubClient{name: "fallback", text: "from fallback"}
	chain := NewChain("proposer", primary, fallback)

	text, provider, err := chain.Complete(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if text != "from primary" || provider != "primary" {
		t.Fatalf("expected primary result, got %q from %q", text, provider)
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback must not be called when primary succeeds")
	}
}

func TestChainFallsThroughOnFailure(t *testing.T) {
	primary := &stubClient{name: "primary", err: newGenerationError("primary", ErrTransient, errors.New("down"))}
	fallback := &stubClient{name: "fallback", text: "from fallback"}
	chain := NewChain("proposer", primary, fallback)

	text, provider, err := chain.Complete(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("complete failed despite working fallback: %v", err)
	}
	if text != "from fallback" || provider != "fallback" {
		t.Fatalf("expected fallback result, got %q from %q", text, provider)
	}
}

func TestChainSurfacesLastErrorWhenExhausted(t *testing.T) {
	quotaErr := newGenerationError("fallback", ErrQuota, errors.New("limit"))
	chain := NewChain("proposer",
		&stubClient{name: "primary", err: newGenerationError("primary", ErrTransient, errors.New("down"))},
		&stubClient{name: "fallback", err: quotaErr},
	)

	_, _, err := chain.Complete(context.Background(), "sys", "user")
	if err == nil {
		t.Fatalf("expected error when every provider fails")
	}
	if KindOf(err) != ErrQuota {
		t.Fatalf("expected the last provider's error kind, got %q", KindOf(err))
	}
}

func TestChainStopsOnCancelledContext(t *testing.T) {
	client := &stubClient{name: "primary", text: "unused"}
	chain := NewChain("proposer", client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := chain.Complete(ctx, "sys", "user")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if client.calls != 0 {
		t.Fatalf("no provider should run after cancellation")
	}
}

func TestChainWithNoProvidersErrors(t *testing.T) {
	chain := NewChain("empty")
	if _, _, err := chain.Complete(context.Background(), "sys", "user"); err == nil {
		t.Fatalf("expected error for empty chain")
	}
}

func TestKindOfNonGenerationError(t *testing.T) {
	if kind := KindOf(errors.New("plain")); kind != "" {
		t.Fatalf("expected empty kind for plain error, got %q", kind)
	}
}
