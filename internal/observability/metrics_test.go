package observability

import (
	"strings"
	"testing"
	"time"
)

func TestAPIMetricsRender(t *testing.T) {
	m := NewAPIMetrics()
	m.ObserveHTTPRequest("/content/debate", "post", 201, 1200*time.Millisecond)
	m.ObserveHTTPRequest("/content/debate", "POST", 201, 300*time.Millisecond)
	m.ObserveDebate("consensus", 2)
	m.ObserveDebate("consensus_uncertain", 2)
	m.IncGenerationCall("openai", "proposal", "ok")
	m.IncFeedbackIngested("ok")
	m.IncRateLimited("debate")

	out := m.Render()

	if !strings.Contains(out, `http_requests_total{method="POST",route="/content/debate",status="201"} 2`) {
		t.Fatalf("http counter missing or wrong:\n%s", out)
	}
	if !strings.Contains(out, `debates_total{outcome="consensus_uncertain"} 1`) {
		t.Fatalf("debate outcome counter missing:\n%s", out)
	}
	if !strings.Contains(out, `debate_rounds_count 2`) {
		t.Fatalf("debate rounds histogram missing:\n%s", out)
	}
	if !strings.Contains(out, `generation_calls_total{op="proposal",outcome="ok",provider="openai"} 1`) {
		t.Fatalf("generation counter missing:\n%s", out)
	}
	if !strings.Contains(out, `rate_limit_events_total{endpoint="debate"} 1`) {
		t.Fatalf("rate limit counter missing:\n%s", out)
	}
}

func TestHistogramBucketsAreCumulative(t *testing.T) {
	m := NewWorkerMetrics()
	m.ObserveJobProcessed("collect_engagement", "done", 20*time.Millisecond)
	m.ObserveJobProcessed("collect_engagement", "done", 2*time.Second)

	out := m.Render()
	if !strings.Contains(out, `job_duration_seconds_bucket{le="+Inf",type="collect_engagement"} 2`) {
		t.Fatalf("+Inf bucket should hold every observation:\n%s", out)
	}
	if !strings.Contains(out, `jobs_processed_total{status="done",type="collect_engagement"} 2`) {
		t.Fatalf("processed counter missing:\n%s", out)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var apiMetrics *APIMetrics
	apiMetrics.ObserveDebate("consensus", 1)
	if apiMetrics.Render() != "" {
		t.Fatalf("nil metrics should render empty")
	}

	var workerMetrics *WorkerMetrics
	workerMetrics.IncrementJobRetry("collect_engagement")
	if workerMetrics.Render() != "" {
		t.Fatalf("nil metrics should render empty")
	}
}
