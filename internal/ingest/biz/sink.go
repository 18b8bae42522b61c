package biz

import "context"

// NotificationSink receives progress and completion notices from a run.
// Delivery is fire-and-forget; implementations handle their own failures.
type NotificationSink interface {
	Notify(ctx context.Context, text string)
}
