package env

import "testing"

func TestGet(t *testing.T) {
	t.Setenv("ISSUANCE_TEST_KNOB", "on")
	if got := Get("ISSUANCE_TEST_KNOB", "off"); got != "on" {
		t.Fatalf("expected set value, got %q", got)
	}

	t.Setenv("ISSUANCE_TEST_KNOB", "   ")
	if got := Get("ISSUANCE_TEST_KNOB", "off"); got != "off" {
		t.Fatalf("expected fallback for blank value, got %q", got)
	}

	if got := Get("ISSUANCE_TEST_MISSING", "off"); got != "off" {
		t.Fatalf("expected fallback for unset key, got %q", got)
	}
}
