package instance

import "testing"

func TestGetIDPrefersExplicitWorkerID(t *testing.T) {
	t.Setenv("WORKER_ID", "reconciler-2")
	t.Setenv("DYNO", "worker.1")
	if got := GetID(); got != "reconciler-2" {
		t.Fatalf("expected WORKER_ID to win, got %q", got)
	}
}

func TestGetIDFallsBackToDyno(t *testing.T) {
	t.Setenv("WORKER_ID", "")
	t.Setenv("DYNO", "web.1")
	if got := GetID(); got != "web.1" {
		t.Fatalf("expected DYNO fallback, got %q", got)
	}
}

func TestGetIDDefaultsToLocal(t *testing.T) {
	t.Setenv("WORKER_ID", "")
	t.Setenv("DYNO", "")
	if got := GetID(); got != "local" {
		t.Fatalf("expected local default, got %q", got)
	}
}
