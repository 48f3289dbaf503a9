package health

import "testing"

func TestStatusDegradedWithoutOpenAI(t *testing.T) {
	svc := NewService(false, nil)
	report := svc.Status()
	if report.Status != "degraded" {
		t.Fatalf("expected degraded, got %q", report.Status)
	}
	if report.OpenAIInitialized || report.LocalIndexLoaded {
		t.Fatalf("unexpected component flags: %+v", report)
	}
	if svc.Ready() {
		t.Fatal("service must not be ready without an API key")
	}
}

func TestStatusDegradedWithoutIndex(t *testing.T) {
	svc := NewService(true, nil)
	report := svc.Status()
	if report.Status != "degraded" {
		t.Fatalf("expected degraded, got %q", report.Status)
	}
	// Queries still work without the framework index, just without local
	// grounding.
	if !svc.Ready() {
		t.Fatal("service should still serve retrieval endpoints")
	}
}
