package common

import "testing"

func TestTruncateRunes(t *testing.T) {
	if got := TruncateRunes("  hello world  ", 5); got != "hello" {
		t.Fatalf("expected %q, got %q", "hello", got)
	}
	if got := TruncateRunes("short", 10); got != "short" {
		t.Fatalf("expected unchanged value, got %q", got)
	}
	if got := TruncateRunes("anything", 0); got != "anything" {
		t.Fatalf("zero limit means no truncation, got %q", got)
	}
}

func TestFirstNonEmptyLine(t *testing.T) {
	if got := FirstNonEmptyLine("\n  \nsecond line\nthird"); got != "second line" {
		t.Fatalf("expected %q, got %q", "second line", got)
	}
	if got := FirstNonEmptyLine("  \n \n"); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}
