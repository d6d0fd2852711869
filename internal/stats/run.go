// Package stats tracks monotonic counters for one ingestion run and
// persists them alongside the run's log.
package stats

import (
	"encoding/json"
	"os"
	"sync/atomic"
	"time"
)

// Run holds one ingestion run's counters. Every field is an atomic so
// C2-C5 could someday run per-page in parallel without a rework of this
// type, even though today's producer is a single goroutine.
type Run struct {
	PagesSeen      atomic.Int64
	PagesSkipped   atomic.Int64
	PagesFailed    atomic.Int64
	ChunksCreated  atomic.Int64
	ChunksIngested atomic.Int64
	BatchesWritten atomic.Int64

	startedAt time.Time
	peakRSS   atomic.Int64 // bytes, sampled by the caller via runtime.MemStats
}

// NewRun starts a fresh Run with its clock running.
func NewRun() *Run {
	return &Run{startedAt: time.Now()}
}

// RecordPeakRSS updates the high-water mark if bytes exceeds it.
func (r *Run) RecordPeakRSS(bytes int64) {
	for {
		cur := r.peakRSS.Load()
		if bytes <= cur {
			return
		}
		if r.peakRSS.CompareAndSwap(cur, bytes) {
			return
		}
	}
}

// Snapshot is the JSON-serializable view of a Run, written to
// processing_stats.json.
type Snapshot struct {
	PagesSeen      int64   `json:"pages_seen"`
	PagesSkipped   int64   `json:"pages_skipped"`
	PagesFailed    int64   `json:"pages_failed"`
	ChunksCreated  int64   `json:"chunks_created"`
	ChunksIngested int64   `json:"chunks_ingested"`
	BatchesWritten int64   `json:"batches_written"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	PeakMemoryMB   float64 `json:"peak_memory_mb"`
}

// Snapshot captures the current counter values and elapsed time.
func (r *Run) Snapshot() Snapshot {
	return Snapshot{
		PagesSeen:      r.PagesSeen.Load(),
		PagesSkipped:   r.PagesSkipped.Load(),
		PagesFailed:    r.PagesFailed.Load(),
		ChunksCreated:  r.ChunksCreated.Load(),
		ChunksIngested: r.ChunksIngested.Load(),
		BatchesWritten: r.BatchesWritten.Load(),
		ElapsedSeconds: time.Since(r.startedAt).Seconds(),
		PeakMemoryMB:   float64(r.peakRSS.Load()) / (1024 * 1024),
	}
}

// WriteFile persists the run's current snapshot as processing_stats.json,
// so the caller can write the latest counters to disk even when a run
// ends by interrupt rather than completion.
func (r *Run) WriteFile(path string) error {
	data, err := json.MarshalIndent(r.Snapshot(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
