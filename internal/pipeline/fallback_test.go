package pipeline

import (
	"context"
	"errors"
	"testing"
)

func TestWithFallbackPrefersPrimary(t *testing.T) {
	var secondaryCalled bool
	out := WithFallback(context.Background(),
		func(context.Context) (string, error) { return "primary", nil },
		func(context.Context) (string, error) {
			secondaryCalled = true
			return "secondary", nil
		},
		func() string { return "mock" },
	)

	if out.Tier != TierPrimary || out.Value != "primary" {
		t.Fatalf("expected primary result, got tier=%s value=%s", out.Tier, out.Value)
	}
	if secondaryCalled {
		t.Fatal("secondary must not run after primary succeeds")
	}
	if len(out.Errors) != 0 {
		t.Fatalf("expected no tier errors, got %v", out.Errors)
	}
}

func TestWithFallbackFallsThroughInOrder(t *testing.T) {
	primaryErr := errors.New("native library missing")
	out := WithFallback(context.Background(),
		func(context.Context) (int, error) { return 0, primaryErr },
		func(context.Context) (int, error) { return 2, nil },
		func() int { return 3 },
	)

	if out.Tier != TierSecondary || out.Value != 2 {
		t.Fatalf("expected secondary result, got tier=%s value=%d", out.Tier, out.Value)
	}
	if !errors.Is(out.Errors[TierPrimary], primaryErr) {
		t.Fatalf("expected primary error recorded, got %v", out.Errors[TierPrimary])
	}
}

func TestWithFallbackMockIsTerminal(t *testing.T) {
	out := WithFallback[string](context.Background(),
		nil,
		func(context.Context) (string, error) { panic("index out of range") },
		func() string { return "input" },
	)

	if !out.Degraded() || out.Value != "input" {
		t.Fatalf("expected mock passthrough, got tier=%s value=%s", out.Tier, out.Value)
	}
	if !errors.Is(out.Errors[TierPrimary], ErrBackendUnavailable) {
		t.Fatalf("expected nil primary to be unavailable, got %v", out.Errors[TierPrimary])
	}
	if out.Errors[TierSecondary] == nil {
		t.Fatal("expected recovered panic to be recorded for secondary")
	}
}
