// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from a shpetl run.
//
// The package is intentionally minimal:
//
//   - It exposes a narrow interface (Backend) for counters, gauges and
//     timing data (histograms).
//   - It provides a global, pluggable backend that defaults to a no-op
//     implementation, so metrics are always safe to call even when no real
//     backend is configured.
//   - Concrete metric systems (Prometheus Pushgateway, Datadog) live in
//     subpackages, mirroring the storage backends.
//
// The reader, the enrichment pipeline hooks and the loader report through
// the helpers below; nothing else in the codebase imports a metrics system.
package metrics

import (
	"sync"
	"time"
)

// Metric names shared by every backend.
const (
	StepTotal           = "shpetl_step_total"
	StepDurationSeconds = "shpetl_step_duration_seconds"
	RecordsTotal        = "shpetl_records_total"
	BatchesTotal        = "shpetl_batches_total"
	StageErrorsTotal    = "shpetl_stage_errors_total"
	ReadProgress        = "shpetl_read_progress_ratio"
)

// Record kinds used with RecordRows.
const (
	KindRead     = "read"
	KindInserted = "inserted"
	KindDeduped  = "deduped"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// SetGauge sets a gauge to value.
	SetGauge(name string, value float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) SetGauge(name string, value float64, labels Labels)         {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStep is a convenience for the common pattern:
// measure latency + success/failure per run step (open, schema, load).
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRows increments the record counter for the given job and kind.
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RecordsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordBatches increments a batch-level counter for the given job.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(BatchesTotal, float64(delta), Labels{
		"job": job,
	})
}

// RecordStageError counts a stage failure absorbed by the tolerant policy.
func RecordStageError(job, stage string) {
	current().IncCounter(StageErrorsTotal, 1, Labels{
		"job":   job,
		"stage": stage,
	})
}

// SetProgress publishes the read progress of a job as a 0..1 fraction.
func SetProgress(job string, fraction float64) {
	current().SetGauge(ReadProgress, fraction, Labels{
		"job": job,
	})
}
