package biz

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	indexbiz "github.com/lk2023060901/media-index-backend/internal/index/biz"
)

// Window bounds one ingestion run: the stream to crawl, the newest message
// id to start from, and the id at or below which crawling stops.
type Window struct {
	StreamID     string `json:"stream_id"`
	EndMessageID int64  `json:"end_message_id"`
	Skip         int64  `json:"skip"`
}

// Status is the lifecycle state of an ingestion run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Counters classifies every scanned message into exactly one outcome.
type Counters struct {
	Scanned     int64 `json:"scanned"`
	Saved       int64 `json:"saved"`
	Duplicate   int64 `json:"duplicate"`
	Deleted     int64 `json:"deleted"`
	Skipped     int64 `json:"skipped"`
	Unsupported int64 `json:"unsupported"`
	Errored     int64 `json:"errored"`
}

// Report is the final account of a run. Reason is empty for a clean
// completion and explains early termination otherwise.
type Report struct {
	RunID     string             `json:"run_id"`
	Status    Status             `json:"status"`
	Window    Window             `json:"window"`
	Partition indexbiz.Partition `json:"partition"`
	Counters  Counters           `json:"counters"`
	Reason    string             `json:"reason,omitempty"`
	Elapsed   time.Duration      `json:"elapsed"`
}

// Run is the handle returned to the caller of Ingest. It exposes live
// status and counters while the run goroutine executes, a cancel switch,
// and the final report once Done is closed.
type Run struct {
	ID        string
	Window    Window
	Partition indexbiz.Partition

	cancel  context.CancelFunc
	done    chan struct{}
	started time.Time

	mu       sync.Mutex
	status   Status
	counters Counters
	report   *Report
}

func newRun(id string, w Window, p indexbiz.Partition, cancel context.CancelFunc) *Run {
	return &Run{
		ID:        id,
		Window:    w,
		Partition: p,
		cancel:    cancel,
		done:      make(chan struct{}),
		started:   time.Now(),
		status:    StatusRunning,
	}
}

// Cancel requests cooperative termination. The run observes it between
// items; Done closes once the final report is written.
func (r *Run) Cancel() {
	r.cancel()
}

// Done is closed after the final report is published.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

func (r *Run) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Snapshot returns the live counters.
func (r *Run) Snapshot() Counters {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters
}

// Report returns the final report, or nil while the run is still going.
func (r *Run) Report() *Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.report
}

func (r *Run) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.report != nil {
		return r.report.Elapsed
	}
	return time.Since(r.started)
}

func (r *Run) setCounters(c Counters) {
	r.mu.Lock()
	r.counters = c
	r.mu.Unlock()
}

func (r *Run) finish(status Status, reason string, c Counters) *Report {
	r.mu.Lock()
	r.counters = c
	r.status = status
	r.report = &Report{
		RunID:     r.ID,
		Status:    status,
		Window:    r.Window,
		Partition: r.Partition,
		Counters:  c,
		Reason:    reason,
		Elapsed:   time.Since(r.started),
	}
	report := r.report
	r.mu.Unlock()
	close(r.done)
	return report
}

// FormatElapsed renders a duration as the largest non-zero day/hour/minute
// units followed by seconds, e.g. "2h 5m 33s".
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d.Seconds())
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || len(parts) > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || len(parts) > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))
	return strings.Join(parts, " ")
}
