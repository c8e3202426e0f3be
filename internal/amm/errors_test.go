package amm

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := ErrInsufficientLiquidity.Wrap("output %d >= reserve %d", 10, 5)
	if !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected kind match")
	}
	if errors.Is(err, ErrZeroAmount) {
		t.Fatalf("unexpected match against other kind")
	}

	wrapped := fmt.Errorf("execute swap: %w", err)
	if !errors.Is(wrapped, ErrInsufficientLiquidity) {
		t.Fatalf("expected match through wrap")
	}
	if KindOf(wrapped) != KindInsufficientLiquidity {
		t.Fatalf("kind mismatch: %s", KindOf(wrapped))
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatalf("plain error should have no kind")
	}
}

func TestErrorWithCause(t *testing.T) {
	cause := errors.New("ledger down")
	err := ErrArithmeticOverflow.WithCause(cause)
	if !errors.Is(err, cause) {
		t.Fatalf("cause not reachable")
	}
	if ErrArithmeticOverflow.Cause != nil {
		t.Fatalf("sentinel mutated")
	}
}

func TestParseDirection(t *testing.T) {
	cases := map[string]Direction{
		"x-to-y": XToY,
		"XY":     XToY,
		"y-to-x": YToX,
		" yx ":   YToX,
	}
	for input, want := range cases {
		got, err := ParseDirection(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %s want %s", input, got, want)
		}
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Fatalf("expected error")
	}
	if XToY.Reverse() != YToX || YToX.Reverse() != XToY {
		t.Fatalf("reverse mismatch")
	}
}

func TestSignerMatchesOwner(t *testing.T) {
	auth := SignerMatchesOwner{}
	if err := auth.Authorize(context.Background(), Authorization{Signer: "a"}, OpSwap, "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := auth.Authorize(context.Background(), Authorization{Signer: "a"}, OpSwap, "b")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := auth.Authorize(context.Background(), Authorization{}, OpSwap, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for empty signer, got %v", err)
	}
}
