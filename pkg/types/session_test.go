package types

import "testing"

func TestSessionFlags(t *testing.T) {
	var s Session
	if s.SignedIn() || s.HasCart() {
		t.Fatalf("empty session should have no tokens")
	}

	s = Session{AuthToken: "  "}
	if s.SignedIn() {
		t.Fatalf("blank auth token should not count as signed in")
	}

	bound := s.WithCartToken("cart-1")
	if !bound.HasCart() || bound.CartToken != "cart-1" {
		t.Fatalf("expected cart token on copy, got %+v", bound)
	}
	if s.HasCart() {
		t.Fatalf("WithCartToken must not mutate the receiver")
	}
}
