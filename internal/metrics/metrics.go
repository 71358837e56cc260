package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Metric names recorded by the loader and HTTP layer
const (
	BackupLoadsTotal           = "backup_loads_total"
	BackupLoadFailuresTotal    = "backup_load_failures_total"
	BackupLoadsSupersededTotal = "backup_loads_superseded_total"
	BackupNormalizeDuration    = "backup_normalize_duration"
	BackupSizeBytes            = "backup_size_bytes"
	SessionMessages            = "session_messages"
	FilterQueriesTotal         = "filter_queries_total"
	HTTPRequestsTotal          = "http_requests_total"
	HTTPRequestsActive         = "http_requests_active"
	HTTPRequestDuration        = "http_request_duration"
	HTTPResponsesTotal         = "http_responses_total"
	WebsocketConnectionsActive = "websocket_connections_active"
	JournalRejectedTotal       = "journal_rejected_total"
)

const maxTimerSamples = 1000

// MetricType represents the type of metric
type MetricType string

const (
	Counter MetricType = "counter"
	Timer   MetricType = "timer"
	Gauge   MetricType = "gauge"
)

// Metric represents a single metric with its metadata
type Metric struct {
	Name        string            `json:"name"`
	Type        MetricType        `json:"type"`
	Value       float64           `json:"value"`
	Labels      map[string]string `json:"labels,omitempty"`
	Description string            `json:"description,omitempty"`
	LastUpdate  time.Time         `json:"last_update"`
}

// TimerMetric stores timing information
type TimerMetric struct {
	Count   int64   `json:"count"`
	Sum     float64 `json:"sum_ms"`
	Min     float64 `json:"min_ms"`
	Max     float64 `json:"max_ms"`
	Average float64 `json:"avg_ms"`
	P95     float64 `json:"p95_ms,omitempty"`
	P99     float64 `json:"p99_ms,omitempty"`
	samples []float64
}

// Snapshot is a point-in-time copy of the registry
type Snapshot struct {
	Counters map[string]Metric      `json:"counters"`
	Timers   map[string]TimerMetric `json:"timers"`
	Gauges   map[string]Metric      `json:"gauges"`
	UptimeMs int64                  `json:"uptime_ms"`
	Taken    int64                  `json:"timestamp"`
}

// Registry manages all metrics in memory
type Registry struct {
	mu        sync.RWMutex
	counters  map[string]*Metric
	timers    map[string]*TimerMetric
	gauges    map[string]*Metric
	startTime time.Time
}

// NewRegistry creates a new metrics registry
func NewRegistry() *Registry {
	return &Registry{
		counters:  make(map[string]*Metric),
		timers:    make(map[string]*TimerMetric),
		gauges:    make(map[string]*Metric),
		startTime: time.Now(),
	}
}

var globalRegistry = NewRegistry()

// GetRegistry returns the global registry instance
func GetRegistry() *Registry {
	return globalRegistry
}

// IncrementCounter increments a counter metric
func (r *Registry) IncrementCounter(name string, labels map[string]string, description string) {
	r.AddToCounter(name, 1, labels, description)
}

// AddToCounter adds a value to a counter metric
func (r *Registry) AddToCounter(name string, value float64, labels map[string]string, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := metricKey(name, labels)
	if counter, exists := r.counters[key]; exists {
		counter.Value += value
		counter.LastUpdate = time.Now()
		return
	}
	r.counters[key] = &Metric{
		Name:        name,
		Type:        Counter,
		Value:       value,
		Labels:      copyLabels(labels),
		Description: description,
		LastUpdate:  time.Now(),
	}
}

// RecordTimer records a timing measurement
func (r *Registry) RecordTimer(name string, duration time.Duration, labels map[string]string, description string) {
	r.RecordValue(name, float64(duration.Nanoseconds())/1e6, labels, description)
}

// RecordValue records a raw sample into a timer-style distribution
func (r *Registry) RecordValue(name string, value float64, labels map[string]string, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := metricKey(name, labels)
	timer, exists := r.timers[key]
	if !exists {
		r.timers[key] = &TimerMetric{
			Count:   1,
			Sum:     value,
			Min:     value,
			Max:     value,
			Average: value,
			samples: []float64{value},
		}
		return
	}

	timer.Count++
	timer.Sum += value
	timer.samples = append(timer.samples, value)
	if value < timer.Min {
		timer.Min = value
	}
	if value > timer.Max {
		timer.Max = value
	}
	timer.Average = timer.Sum / float64(timer.Count)

	if len(timer.samples) > maxTimerSamples {
		timer.samples = timer.samples[len(timer.samples)-maxTimerSamples:]
	}
	if len(timer.samples) >= 10 {
		timer.P95 = percentile(timer.samples, 0.95)
		timer.P99 = percentile(timer.samples, 0.99)
	}
}

// SetGauge sets a gauge metric value
func (r *Registry) SetGauge(name string, value float64, labels map[string]string, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gauges[metricKey(name, labels)] = &Metric{
		Name:        name,
		Type:        Gauge,
		Value:       value,
		Labels:      copyLabels(labels),
		Description: description,
		LastUpdate:  time.Now(),
	}
}

// Snapshot copies every metric out of the registry
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		Counters: make(map[string]Metric, len(r.counters)),
		Timers:   make(map[string]TimerMetric, len(r.timers)),
		Gauges:   make(map[string]Metric, len(r.gauges)),
		UptimeMs: time.Since(r.startTime).Milliseconds(),
		Taken:    time.Now().Unix(),
	}
	for key, counter := range r.counters {
		snap.Counters[key] = *counter
	}
	for key, timer := range r.timers {
		t := *timer
		t.samples = nil
		snap.Timers[key] = t
	}
	for key, gauge := range r.gauges {
		snap.Gauges[key] = *gauge
	}
	return snap
}

// Reset drops every metric. Used by tests.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counters = make(map[string]*Metric)
	r.timers = make(map[string]*TimerMetric)
	r.gauges = make(map[string]*Metric)
	r.startTime = time.Now()
}

// metricKey builds a stable key from the name and sorted labels
func metricKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteString("_")
		b.WriteString(k)
		b.WriteString(":")
		b.WriteString(labels[k])
	}
	return b.String()
}

func percentile(samples []float64, p float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

func copyLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}

	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

// Convenience functions for global registry

// IncrementCounter increments a counter in the global registry
func IncrementCounter(name string, labels map[string]string, description string) {
	globalRegistry.IncrementCounter(name, labels, description)
}

// AddToCounter adds to a counter in the global registry
func AddToCounter(name string, value float64, labels map[string]string, description string) {
	globalRegistry.AddToCounter(name, value, labels, description)
}

// RecordTimer records timing in the global registry
func RecordTimer(name string, duration time.Duration, labels map[string]string, description string) {
	globalRegistry.RecordTimer(name, duration, labels, description)
}

// RecordValue records a sample in the global registry
func RecordValue(name string, value float64, labels map[string]string, description string) {
	globalRegistry.RecordValue(name, value, labels, description)
}

// SetGauge sets a gauge in the global registry
func SetGauge(name string, value float64, labels map[string]string, description string) {
	globalRegistry.SetGauge(name, value, labels, description)
}

// GetSnapshot returns a snapshot of the global registry
func GetSnapshot() Snapshot {
	return globalRegistry.Snapshot()
}
