package smoketest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

// fastBackoff keeps retry tests quick.
var fastBackoff = wait.Backoff{
	Duration: time.Millisecond,
	Factor:   1.5,
	Steps:    4,
}

func newTestRunner(t *testing.T, healthy bool) *Runner {
	server := newFakeServer(t, healthy)
	runner := NewRunner(NewClient(server.URL), "mistral-7b-instruct-v0.2")
	runner.healthBackoff = fastBackoff
	return runner
}

func TestRunAllChecksPass(t *testing.T) {
	runner := newTestRunner(t, true)

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(report.Checks) != 5 {
		t.Fatalf("expected 5 checks, got %d", len(report.Checks))
	}
	if report.Failed() != 0 {
		t.Errorf("expected 0 failures, got %d", report.Failed())
	}

	wantOrder := []string{"health", "models", "completion", "chat", "metrics"}
	for i, name := range wantOrder {
		if report.Checks[i].Name != name {
			t.Errorf("check[%d] = %q, want %q", i, report.Checks[i].Name, name)
		}
	}
}

func TestRunAbortsWhenHealthGateFails(t *testing.T) {
	runner := newTestRunner(t, false)

	report, err := runner.Run(context.Background())
	if err == nil {
		t.Fatal("Run() should fail when the health gate never passes")
	}

	if len(report.Checks) != 1 {
		t.Errorf("expected only the health check to be recorded, got %d checks", len(report.Checks))
	}
	if report.Checks[0].Passed {
		t.Error("health check should be marked failed")
	}
}

func TestRunContinuesPastIndividualFailures(t *testing.T) {
	// Healthy /health but everything else broken.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	runner := NewRunner(NewClient(server.URL), "mistral-7b-instruct-v0.2")
	runner.healthBackoff = fastBackoff

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v, per-check failures must not abort the run", err)
	}

	if len(report.Checks) != 5 {
		t.Fatalf("expected all 5 checks to run, got %d", len(report.Checks))
	}
	if report.Failed() != 4 {
		t.Errorf("expected 4 failures, got %d", report.Failed())
	}
}

func TestHealthGateRetries(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		// Healthy on the third attempt, like a server still loading the model.
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	runner := NewRunner(NewClient(server.URL), "test")
	runner.healthBackoff = fastBackoff

	result := runner.runHealthGate(context.Background())
	if !result.Passed {
		t.Errorf("health gate should pass after retries: %v", result.Err)
	}
	if calls.Load() < 3 {
		t.Errorf("expected at least 3 health attempts, got %d", calls.Load())
	}
}

func TestReportPrint(t *testing.T) {
	report := &Report{
		Endpoint: "https://llama.apps.example.com",
		Checks: []CheckResult{
			{Name: "health", Passed: true, Duration: 120 * time.Millisecond},
			{Name: "completion", Passed: false, Duration: time.Second, Err: context.DeadlineExceeded},
		},
	}

	var buf bytes.Buffer
	report.Print(&buf)
	out := buf.String()

	if !strings.Contains(out, "[PASS] health") {
		t.Errorf("missing health pass line:\n%s", out)
	}
	if !strings.Contains(out, "[FAIL] completion") {
		t.Errorf("missing completion fail line:\n%s", out)
	}
	if !strings.Contains(out, "1/2 checks passed") {
		t.Errorf("missing summary line:\n%s", out)
	}
}
