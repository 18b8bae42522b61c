package biz

import (
	"context"
	"fmt"
	"time"
)

// StreamMessage is one entry of a stream's history as reported by the
// gateway. A tombstone (Empty) marks a deleted message; Media is nil when
// the message carries no attachment.
type StreamMessage struct {
	ID      int64
	Empty   bool
	Media   *StreamMedia
	Caption string
}

// StreamMedia describes the attachment of a stream message.
type StreamMedia struct {
	Type     string
	FileRef  string
	FileName string
	FileSize int64
}

// MessageIterator pulls stream messages one at a time, newest first.
// Next returns io.EOF when the window is exhausted.
type MessageIterator interface {
	Next(ctx context.Context) (*StreamMessage, error)
}

// MessageSource opens iterators over a stream's history. The gateway
// client implements this; tests substitute in-memory sources.
type MessageSource interface {
	Messages(ctx context.Context, w Window) (MessageIterator, error)
}

// RateLimitError is returned by a source when the upstream throttles the
// crawl. The supervisor sleeps RetryAfter and then ends the run.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by source, retry after %s", e.RetryAfter)
}
