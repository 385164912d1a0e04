package observability

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

var defaultDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

var debateRoundBuckets = []float64{1, 2, 3, 4, 5}

type histogram struct {
	buckets []float64
	counts  []uint64
	count   uint64
	sum     float64
}

func newHistogram(buckets []float64) *histogram {
	copyBuckets := make([]float64, len(buckets))
	copy(copyBuckets, buckets)
	return &histogram{
		buckets: copyBuckets,
		counts:  make([]uint64, len(copyBuckets)),
	}
}

func (h *histogram) observe(value float64) {
	if h == nil {
		return
	}
	if value < 0 {
		value = 0
	}
	for idx, bucket := range h.buckets {
		if value <= bucket {
			h.counts[idx]++
			break
		}
	}
	h.count++
	h.sum += value
}

type httpRequestKey struct {
	route  string
	method string
	status string
}

type httpDurationKey struct {
	route  string
	method string
}

type generationCallKey struct {
	provider string
	op       string
	outcome  string
}

type APIMetrics struct {
	mu              sync.RWMutex
	httpRequests    map[httpRequestKey]uint64
	httpDurations   map[httpDurationKey]*histogram
	debatesTotal    map[string]uint64
	debateRounds    *histogram
	generationCalls map[generationCallKey]uint64
	feedbackEvents  map[string]uint64
	rateLimited     map[string]uint64
}

func NewAPIMetrics() *APIMetrics {
	return &APIMetrics{
		httpRequests:    map[httpRequestKey]uint64{},
		httpDurations:   map[httpDurationKey]*histogram{},
		debatesTotal:    map[string]uint64{},
		debateRounds:    newHistogram(debateRoundBuckets),
		generationCalls: map[generationCallKey]uint64{},
		feedbackEvents:  map[string]uint64{},
		rateLimited:     map[string]uint64{},
	}
}

func (m *APIMetrics) ObserveHTTPRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := httpRequestKey{
		route:  normalizeMetricValue(route, "unknown"),
		method: normalizeMetricValue(strings.ToUpper(strings.TrimSpace(method)), "UNKNOWN"),
		status: normalizeMetricValue(strconv.Itoa(status), "0"),
	}
	durationKey := httpDurationKey{route: key.route, method: key.method}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.httpRequests[key]++
	h, exists := m.httpDurations[durationKey]
	if !exists {
		h = newHistogram(defaultDurationBuckets)
		m.httpDurations[durationKey] = h
	}
	h.observe(duration.Seconds())
}

func (m *APIMetrics) ObserveDebate(outcome string, rounds int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debatesTotal[normalizeMetricValue(outcome, "unknown")]++
	m.debateRounds.observe(float64(rounds))
}

func (m *APIMetrics) IncGenerationCall(provider, op, outcome string) {
	if m == nil {
		return
	}
	key := generationCallKey{
		provider: normalizeMetricValue(provider, "unknown"),
		op:       normalizeMetricValue(op, "unknown"),
		outcome:  normalizeMetricValue(outcome, "unknown"),
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generationCalls[key]++
}

func (m *APIMetrics) IncFeedbackIngested(result string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedbackEvents[normalizeMetricValue(result, "unknown")]++
}

func (m *APIMetrics) IncRateLimited(endpoint string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimited[normalizeMetricValue(endpoint, "unknown")]++
}

func (m *APIMetrics) Render() string {
	if m == nil {
		return ""
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var sb strings.Builder

	sb.WriteString("# HELP http_requests_total Total HTTP requests handled by API.\n")
	sb.WriteString("# TYPE http_requests_total counter\n")
	requestKeys := make([]httpRequestKey, 0, len(m.httpRequests))
	for key := range m.httpRequests {
		requestKeys = append(requestKeys, key)
	}
	sort.Slice(requestKeys, func(i, j int) bool {
		if requestKeys[i].route != requestKeys[j].route {
			return requestKeys[i].route < requestKeys[j].route
		}
		if requestKeys[i].method != requestKeys[j].method {
			return requestKeys[i].method < requestKeys[j].method
		}
		return requestKeys[i].status < requestKeys[j].status
	})
	for _, key := range requestKeys {
		writeCounterLine(&sb, "http_requests_total", map[string]string{
			"route":  key.route,
			"method": key.method,
			"status": key.status,
		}, m.httpRequests[key])
	}

	sb.WriteString("# HELP http_request_duration_seconds HTTP request latency in seconds.\n")
	sb.WriteString("# TYPE http_request_duration_seconds histogram\n")
	durationKeys := make([]httpDurationKey, 0, len(m.httpDurations))
	for key := range m.httpDurations {
		durationKeys = append(durationKeys, key)
	}
	sort.Slice(durationKeys, func(i, j int) bool {
		if durationKeys[i].route != durationKeys[j].route {
			return durationKeys[i].route < durationKeys[j].route
		}
		return durationKeys[i].method < durationKeys[j].method
	})
	for _, key := range durationKeys {
		renderHistogramSeries(&sb, "http_request_duration_seconds", map[string]string{
			"route":  key.route,
			"method": key.method,
		}, m.httpDurations[key])
	}

	sb.WriteString("# HELP debates_total Completed debate sessions by outcome.\n")
	sb.WriteString("# TYPE debates_total counter\n")
	outcomes := sortedKeys(m.debatesTotal)
	for _, outcome := range outcomes {
		writeCounterLine(&sb, "debates_total", map[string]string{"outcome": outcome}, m.debatesTotal[outcome])
	}

	sb.WriteString("# HELP debate_rounds Rounds used per completed debate session.\n")
	sb.WriteString("# TYPE debate_rounds histogram\n")
	renderHistogramSeries(&sb, "debate_rounds", map[string]string{}, m.debateRounds)

	sb.WriteString("# HELP generation_calls_total Text generation calls by provider, operation and outcome.\n")
	sb.WriteString("# TYPE generation_calls_total counter\n")
	callKeys := make([]generationCallKey, 0, len(m.generationCalls))
	for key := range m.generationCalls {
		callKeys = append(callKeys, key)
	}
	sort.Slice(callKeys, func(i, j int) bool {
		if callKeys[i].provider != callKeys[j].provider {
			return callKeys[i].provider < callKeys[j].provider
		}
		if callKeys[i].op != callKeys[j].op {
			return callKeys[i].op < callKeys[j].op
		}
		return callKeys[i].outcome < callKeys[j].outcome
	})
	for _, key := range callKeys {
		writeCounterLine(&sb, "generation_calls_total", map[string]string{
			"provider": key.provider,
			"op":       key.op,
			"outcome":  key.outcome,
		}, m.generationCalls[key])
	}

	sb.WriteString("# HELP feedback_events_total Feedback ingestions by result.\n")
	sb.WriteString("# TYPE feedback_events_total counter\n")
	for _, result := range sortedKeys(m.feedbackEvents) {
		writeCounterLine(&sb, "feedback_events_total", map[string]string{"result": result}, m.feedbackEvents[result])
	}

	sb.WriteString("# HELP rate_limit_events_total Rate-limit rejections by endpoint.\n")
	sb.WriteString("# TYPE rate_limit_events_total counter\n")
	for _, endpoint := range sortedKeys(m.rateLimited) {
		writeCounterLine(&sb, "rate_limit_events_total", map[string]string{"endpoint": endpoint}, m.rateLimited[endpoint])
	}

	return sb.String()
}

type jobProcessedKey struct {
	jobType string
	status  string
}

type WorkerMetrics struct {
	mu             sync.RWMutex
	jobsProcessed  map[jobProcessedKey]uint64
	jobDurations   map[string]*histogram
	jobRetries     map[string]uint64
	engagement     map[string]uint64
	feedbackEvents map[string]uint64
}

func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		jobsProcessed:  map[jobProcessedKey]uint64{},
		jobDurations:   map[string]*histogram{},
		jobRetries:     map[string]uint64{},
		engagement:     map[string]uint64{},
		feedbackEvents: map[string]uint64{},
	}
}

func (m *WorkerMetrics) ObserveJobProcessed(jobType, status string, duration time.Duration) {
	if m == nil {
		return
	}
	cleanType := normalizeMetricValue(jobType, "unknown")
	cleanStatus := normalizeMetricValue(status, "unknown")

	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobsProcessed[jobProcessedKey{jobType: cleanType, status: cleanStatus}]++
	h, exists := m.jobDurations[cleanType]
	if !exists {
		h = newHistogram(defaultDurationBuckets)
		m.jobDurations[cleanType] = h
	}
	h.observe(duration.Seconds())
}

func (m *WorkerMetrics) IncrementJobRetry(jobType string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobRetries[normalizeMetricValue(jobType, "unknown")]++
}

func (m *WorkerMetrics) IncEngagementCollected(platform string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engagement[normalizeMetricValue(platform, "unknown")]++
}

func (m *WorkerMetrics) IncFeedbackIngested(result string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedbackEvents[normalizeMetricValue(result, "unknown")]++
}

func (m *WorkerMetrics) Render() string {
	if m == nil {
		return ""
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var sb strings.Builder

	sb.WriteString("# HELP jobs_processed_total Total processed jobs by type and status.\n")
	sb.WriteString("# TYPE jobs_processed_total counter\n")
	processedKeys := make([]jobProcessedKey, 0, len(m.jobsProcessed))
	for key := range m.jobsProcessed {
		processedKeys = append(processedKeys, key)
	}
	sort.Slice(processedKeys, func(i, j int) bool {
		if processedKeys[i].jobType != processedKeys[j].jobType {
			return processedKeys[i].jobType < processedKeys[j].jobType
		}
		return processedKeys[i].status < processedKeys[j].status
	})
	for _, key := range processedKeys {
		writeCounterLine(&sb, "jobs_processed_total", map[string]string{
			"type":   key.jobType,
			"status": key.status,
		}, m.jobsProcessed[key])
	}

	sb.WriteString("# HELP job_duration_seconds Job processing latency in seconds.\n")
	sb.WriteString("# TYPE job_duration_seconds histogram\n")
	for _, jobType := range sortedHistogramKeys(m.jobDurations) {
		renderHistogramSeries(&sb, "job_duration_seconds", map[string]string{"type": jobType}, m.jobDurations[jobType])
	}

	sb.WriteString("# HELP job_retries_total Total retries scheduled by job type.\n")
	sb.WriteString("# TYPE job_retries_total counter\n")
	for _, jobType := range sortedKeys(m.jobRetries) {
		writeCounterLine(&sb, "job_retries_total", map[string]string{"type": jobType}, m.jobRetries[jobType])
	}

	sb.WriteString("# HELP engagement_collections_total Engagement snapshots pulled by platform.\n")
	sb.WriteString("# TYPE engagement_collections_total counter\n")
	for _, platform := range sortedKeys(m.engagement) {
		writeCounterLine(&sb, "engagement_collections_total", map[string]string{"platform": platform}, m.engagement[platform])
	}

	sb.WriteString("# HELP feedback_events_total Feedback ingestions by result.\n")
	sb.WriteString("# TYPE feedback_events_total counter\n")
	for _, result := range sortedKeys(m.feedbackEvents) {
		writeCounterLine(&sb, "feedback_events_total", map[string]string{"result": result}, m.feedbackEvents[result])
	}

	return sb.String()
}

func writeCounterLine(sb *strings.Builder, name string, labels map[string]string, value uint64) {
	sb.WriteString(name)
	sb.WriteString(formatLabels(labels))
	sb.WriteString(" ")
	sb.WriteString(strconv.FormatUint(value, 10))
	sb.WriteString("\n")
}

func renderHistogramSeries(sb *strings.Builder, metricName string, labels map[string]string, h *histogram) {
	if sb == nil || h == nil {
		return
	}

	cumulative := uint64(0)
	for idx, bucket := range h.buckets {
		cumulative += h.counts[idx]
		withLE := cloneLabels(labels)
		withLE["le"] = strconv.FormatFloat(bucket, 'g', -1, 64)
		sb.WriteString(metricName)
		sb.WriteString("_bucket")
		sb.WriteString(formatLabels(withLE))
		sb.WriteString(" ")
		sb.WriteString(strconv.FormatUint(cumulative, 10))
		sb.WriteString("\n")
	}

	withInf := cloneLabels(labels)
	withInf["le"] = "+Inf"
	sb.WriteString(metricName)
	sb.WriteString("_bucket")
	sb.WriteString(formatLabels(withInf))
	sb.WriteString(" ")
	sb.WriteString(strconv.FormatUint(h.count, 10))
	sb.WriteString("\n")

	sb.WriteString(metricName)
	sb.WriteString("_sum")
	sb.WriteString(formatLabels(labels))
	sb.WriteString(" ")
	sb.WriteString(strconv.FormatFloat(h.sum, 'g', -1, 64))
	sb.WriteString("\n")

	sb.WriteString(metricName)
	sb.WriteString("_count")
	sb.WriteString(formatLabels(labels))
	sb.WriteString(" ")
	sb.WriteString(strconv.FormatUint(h.count, 10))
	sb.WriteString("\n")
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+`="`+escapeLabelValue(labels[key])+`"`)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func cloneLabels(labels map[string]string) map[string]string {
	out := make(map[string]string, len(labels))
	for key, value := range labels {
		out[key] = value
	}
	return out
}

func escapeLabelValue(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, "\n", `\n`, `"`, `\"`)
	return replacer.Replace(value)
}

func normalizeMetricValue(value, fallback string) string {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return fallback
	}
	return clean
}

func sortedKeys(values map[string]uint64) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortedHistogramKeys(values map[string]*histogram) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
