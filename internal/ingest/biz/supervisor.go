package biz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	indexbiz "github.com/lk2023060901/media-index-backend/internal/index/biz"
	apperrors "github.com/lk2023060901/media-index-backend/internal/pkg/errors"
	"github.com/lk2023060901/media-index-backend/internal/pkg/metrics"
)

// Options tunes the ingestion pipeline.
type Options struct {
	// MediaTypes is the allow-list of provider media types. Empty allows
	// nothing, so the caller must configure at least one.
	MediaTypes []string
	// Extensions is the allow-list of file extensions (without the dot).
	// Empty allows every extension.
	Extensions []string
	// CheckpointInterval is the number of scanned messages between
	// progress notifications.
	CheckpointInterval int
}

// Supervisor owns the ingestion run state machine. At most one run is
// active at a time; starting a second one is rejected, not queued. The
// per-run cancel token lives on the Run handle, never in package state.
type Supervisor struct {
	indexer    *indexbiz.Indexer
	source     MessageSource
	sink       NotificationSink
	mediaTypes map[string]struct{}
	extensions map[string]struct{}
	checkpoint int
	logger     *zap.Logger

	mu     sync.Mutex
	active *Run
}

func NewSupervisor(indexer *indexbiz.Indexer, source MessageSource, sink NotificationSink, opts Options, logger *zap.Logger) *Supervisor {
	mediaTypes := make(map[string]struct{}, len(opts.MediaTypes))
	for _, t := range opts.MediaTypes {
		mediaTypes[strings.ToLower(t)] = struct{}{}
	}
	extensions := make(map[string]struct{}, len(opts.Extensions))
	for _, e := range opts.Extensions {
		extensions[strings.ToLower(strings.TrimPrefix(e, "."))] = struct{}{}
	}
	checkpoint := opts.CheckpointInterval
	if checkpoint <= 0 {
		checkpoint = 25
	}

	return &Supervisor{
		indexer:    indexer,
		source:     source,
		sink:       sink,
		mediaTypes: mediaTypes,
		extensions: extensions,
		checkpoint: checkpoint,
		logger:     logger,
	}
}

// Ingest validates the window, claims the single run slot and starts the
// crawl on its own goroutine. The returned handle reports live progress
// and, after Done closes, the final report. The passed context only covers
// the call itself; the run detaches from it.
func (s *Supervisor) Ingest(ctx context.Context, w Window, p indexbiz.Partition) (*Run, error) {
	if w.StreamID == "" || w.EndMessageID <= 0 || w.Skip < 0 || w.Skip >= w.EndMessageID {
		return nil, apperrors.New(apperrors.ErrInvalidWindow,
			fmt.Sprintf("stream=%q end=%d skip=%d", w.StreamID, w.EndMessageID, w.Skip))
	}
	if _, ok := indexbiz.ParsePartition(string(p)); !ok {
		return nil, apperrors.New(apperrors.ErrUnknownPartition, string(p))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil && s.active.Status() == StatusRunning {
		return nil, apperrors.New(apperrors.ErrRunActive, s.active.ID)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	run := newRun(uuid.NewString(), w, p, cancel)
	s.active = run

	s.logger.Info("ingestion run started",
		zap.String("run_id", run.ID),
		zap.String("stream", w.StreamID),
		zap.Int64("end_message_id", w.EndMessageID),
		zap.Int64("skip", w.Skip),
		zap.String("partition", string(p)),
	)

	go s.execute(runCtx, run)
	return run, nil
}

// Active returns the current run handle. The handle outlives completion so
// callers can read the last report; nil means no run was ever started.
func (s *Supervisor) Active() *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// CancelActive cancels the running ingestion, if any.
func (s *Supervisor) CancelActive() (*Run, error) {
	s.mu.Lock()
	run := s.active
	s.mu.Unlock()

	if run == nil || run.Status() != StatusRunning {
		return nil, apperrors.New(apperrors.ErrNoActiveRun)
	}
	run.Cancel()
	return run, nil
}

func (s *Supervisor) execute(ctx context.Context, run *Run) {
	var counters Counters

	iter, err := s.source.Messages(ctx, run.Window)
	if err != nil {
		s.finish(ctx, run, StatusFailed, fmt.Sprintf("source unavailable: %v", err), counters)
		return
	}

	for {
		select {
		case <-ctx.Done():
			s.finish(ctx, run, StatusCancelled, "cancelled by operator", counters)
			return
		default:
		}

		msg, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			s.finish(ctx, run, StatusCompleted, "", counters)
			return
		}
		var rl *RateLimitError
		if errors.As(err, &rl) {
			s.logger.Warn("source rate limit, backing off before stopping",
				zap.String("run_id", run.ID),
				zap.Duration("retry_after", rl.RetryAfter),
			)
			s.sleep(ctx, rl.RetryAfter)
			s.finish(ctx, run, StatusCompleted, "stopped early: source rate limit", counters)
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				s.finish(ctx, run, StatusCancelled, "cancelled by operator", counters)
				return
			}
			s.finish(ctx, run, StatusFailed, fmt.Sprintf("source failure: %v", err), counters)
			return
		}

		counters.Scanned++
		s.classify(ctx, run, msg, &counters)
		run.setCounters(counters)

		if counters.Scanned%int64(s.checkpoint) == 0 {
			s.sink.Notify(ctx, fmt.Sprintf(
				"ingestion progress: scanned=%d saved=%d duplicate=%d deleted=%d skipped=%d unsupported=%d errored=%d",
				counters.Scanned, counters.Saved, counters.Duplicate, counters.Deleted,
				counters.Skipped, counters.Unsupported, counters.Errored,
			))
		}
	}
}

// classify routes one message into exactly one counter, saving it when it
// qualifies.
func (s *Supervisor) classify(ctx context.Context, run *Run, msg *StreamMessage, c *Counters) {
	if msg.Empty {
		c.Deleted++
		return
	}
	if msg.Media == nil {
		c.Skipped++
		return
	}
	if _, ok := s.mediaTypes[strings.ToLower(msg.Media.Type)]; !ok {
		c.Unsupported++
		return
	}
	if msg.Media.FileName == "" || !s.extensionAllowed(msg.Media.FileName) {
		c.Unsupported++
		return
	}

	result, err := s.indexer.Save(ctx, run.Partition, &indexbiz.Media{
		FileRef:  msg.Media.FileRef,
		FileName: msg.Media.FileName,
		FileSize: msg.Media.FileSize,
		Caption:  msg.Caption,
	})
	if err != nil {
		s.logger.Warn("message not indexed",
			zap.String("run_id", run.ID),
			zap.Int64("message_id", msg.ID),
			zap.Error(err),
		)
	}

	switch result {
	case indexbiz.PutCreated:
		c.Saved++
	case indexbiz.PutDuplicate:
		c.Duplicate++
	default:
		c.Errored++
	}
}

func (s *Supervisor) extensionAllowed(name string) bool {
	if len(s.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return false
	}
	_, ok := s.extensions[ext]
	return ok
}

func (s *Supervisor) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (s *Supervisor) finish(ctx context.Context, run *Run, status Status, reason string, c Counters) {
	report := run.finish(status, reason, c)

	metrics.IngestRuns.WithLabelValues(string(status)).Inc()
	metrics.IngestedMessages.WithLabelValues("saved").Add(float64(c.Saved))
	metrics.IngestedMessages.WithLabelValues("duplicate").Add(float64(c.Duplicate))
	metrics.IngestedMessages.WithLabelValues("deleted").Add(float64(c.Deleted))
	metrics.IngestedMessages.WithLabelValues("skipped").Add(float64(c.Skipped))
	metrics.IngestedMessages.WithLabelValues("unsupported").Add(float64(c.Unsupported))
	metrics.IngestedMessages.WithLabelValues("errored").Add(float64(c.Errored))

	s.logger.Info("ingestion run finished",
		zap.String("run_id", run.ID),
		zap.String("status", string(status)),
		zap.String("reason", reason),
		zap.Int64("scanned", c.Scanned),
		zap.Int64("saved", c.Saved),
		zap.Int64("duplicate", c.Duplicate),
		zap.Int64("errored", c.Errored),
		zap.Duration("elapsed", report.Elapsed),
	)

	text := fmt.Sprintf(
		"ingestion %s in %s: scanned=%d saved=%d duplicate=%d deleted=%d skipped=%d unsupported=%d errored=%d",
		status, FormatElapsed(report.Elapsed), c.Scanned, c.Saved, c.Duplicate,
		c.Deleted, c.Skipped, c.Unsupported, c.Errored,
	)
	if reason != "" {
		text += " (" + reason + ")"
	}
	s.sink.Notify(context.WithoutCancel(ctx), text)
}
