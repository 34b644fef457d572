package enums

import "testing"

func TestParseOrderState(t *testing.T) {
	for _, state := range validOrderStates {
		got, err := ParseOrderState(string(state))
		if err != nil {
			t.Fatalf("parse %q: %v", state, err)
		}
		if got != state || !got.IsValid() {
			t.Fatalf("unexpected round trip for %q", state)
		}
	}

	if _, err := ParseOrderState("returned"); err == nil {
		t.Fatal("expected unknown state to fail")
	}
	if OrderState("awaiting_return").IsValid() {
		t.Fatal("unknown state reported valid")
	}
}
