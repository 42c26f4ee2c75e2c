package smoketest

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

// DefaultPrompt is the canonical completion payload exercised against a fresh
// deployment.
const DefaultPrompt = "The capital of France is"

// DefaultNPredict caps the completion length for the smoke run.
const DefaultNPredict = 50

// DefaultHealthBackoff retries the health gate while the server finishes
// loading the model.
var DefaultHealthBackoff = wait.Backoff{
	Duration: 2 * time.Second,
	Factor:   2.0,
	Cap:      30 * time.Second,
	Steps:    6,
}

// CheckResult records the outcome of a single check.
type CheckResult struct {
	Name     string
	Passed   bool
	Duration time.Duration
	Detail   string
	Err      error
}

// Report aggregates the results of a smoke-test run.
type Report struct {
	Endpoint string
	Checks   []CheckResult
}

// Failed returns the number of failed checks.
func (r *Report) Failed() int {
	n := 0
	for _, c := range r.Checks {
		if !c.Passed {
			n++
		}
	}
	return n
}

// Print writes a per-check summary.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "Smoke test against %s\n", r.Endpoint)
	for _, c := range r.Checks {
		status := "PASS"
		if !c.Passed {
			status = "FAIL"
		}
		line := fmt.Sprintf("  [%s] %-16s %8s", status, c.Name, c.Duration.Round(time.Millisecond))
		if c.Detail != "" {
			line += "  " + c.Detail
		}
		if c.Err != nil {
			line += "  " + c.Err.Error()
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "%d/%d checks passed\n", len(r.Checks)-r.Failed(), len(r.Checks))
}

// Runner executes the fixed check sequence against a deployed server.
type Runner struct {
	client        *Client
	tokens        *TokenCounter
	healthBackoff wait.Backoff
	modelName     string
}

// NewRunner creates a runner for the given endpoint.
func NewRunner(client *Client, modelName string) *Runner {
	return &Runner{
		client:        client,
		tokens:        NewTokenCounter(),
		healthBackoff: DefaultHealthBackoff,
		modelName:     modelName,
	}
}

// Run executes the check sequence. The health gate must pass before anything
// else runs; after that every check runs regardless of earlier failures, and
// per-check failures are recorded rather than aborting the run.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{Endpoint: r.client.baseURL}

	healthResult := r.runHealthGate(ctx)
	report.Checks = append(report.Checks, healthResult)
	if !healthResult.Passed {
		return report, fmt.Errorf("health check failed, aborting: %w", healthResult.Err)
	}

	report.Checks = append(report.Checks,
		r.runModels(ctx),
		r.runCompletion(ctx),
		r.runChatCompletion(ctx),
		r.runMetrics(ctx),
	)

	return report, nil
}

// runHealthGate probes /health with exponential backoff; a fresh deployment
// may still be loading the model when the smoke test starts.
func (r *Runner) runHealthGate(ctx context.Context) CheckResult {
	start := time.Now()

	err := wait.ExponentialBackoffWithContext(ctx, r.healthBackoff, func(ctx context.Context) (bool, error) {
		if healthErr := r.client.Health(ctx); healthErr != nil {
			log.Printf("Health check not ready yet: %v", healthErr)
			return false, nil
		}
		return true, nil
	})

	result := CheckResult{Name: "health", Duration: time.Since(start)}
	if err != nil {
		result.Err = fmt.Errorf("server never became healthy: %w", err)
		return result
	}
	result.Passed = true
	return result
}

func (r *Runner) runModels(ctx context.Context) CheckResult {
	start := time.Now()
	models, err := r.client.ListModels(ctx)
	result := CheckResult{Name: "models", Duration: time.Since(start)}
	if err != nil {
		result.Err = err
		return result
	}

	result.Passed = true
	ids := make([]string, 0, len(models.Data))
	for _, m := range models.Data {
		ids = append(ids, m.ID)
	}
	result.Detail = fmt.Sprintf("%d model(s): %s", len(models.Data), strings.Join(ids, ", "))
	return result
}

func (r *Runner) runCompletion(ctx context.Context) CheckResult {
	start := time.Now()
	completion, err := r.client.Completion(ctx, CompletionRequest{
		Prompt:   DefaultPrompt,
		NPredict: DefaultNPredict,
	})
	result := CheckResult{Name: "completion", Duration: time.Since(start)}
	if err != nil {
		result.Err = err
		return result
	}

	result.Passed = true
	result.Detail = fmt.Sprintf("%d tokens predicted (~%d by local count)",
		completion.TokensPredicted, r.tokens.CountTokens(completion.Content))
	return result
}

func (r *Runner) runChatCompletion(ctx context.Context) CheckResult {
	start := time.Now()
	chat, err := r.client.ChatCompletion(ctx, ChatCompletionRequest{
		Model: r.modelName,
		Messages: []ChatMessage{
			{Role: "user", Content: "What is the capital of France? Answer in one word."},
		},
		MaxTokens: 32,
	})
	result := CheckResult{Name: "chat", Duration: time.Since(start)}
	if err != nil {
		result.Err = err
		return result
	}

	result.Passed = true
	if len(chat.Choices) > 0 {
		content := chat.Choices[0].Message.Content
		result.Detail = fmt.Sprintf("%d completion tokens (~%d by local count)",
			chat.Usage.CompletionTokens, r.tokens.CountTokens(content))
	}
	return result
}

func (r *Runner) runMetrics(ctx context.Context) CheckResult {
	start := time.Now()
	body, err := r.client.Metrics(ctx)
	result := CheckResult{Name: "metrics", Duration: time.Since(start)}
	if err != nil {
		result.Err = err
		return result
	}

	result.Passed = true
	result.Detail = fmt.Sprintf("%d bytes of exposition", len(body))
	return result
}
