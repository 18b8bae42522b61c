package data

import (
	"context"

	"github.com/lk2023060901/media-index-backend/internal/index/biz"
)

// disabledStore stands in for a partition with no configured endpoint: it
// never errors out of a fan-out path, reads as empty and rejects writes.
type disabledStore struct{}

// NewDisabledStore returns the neutral store used for unconfigured
// partitions.
func NewDisabledStore() biz.Store {
	return disabledStore{}
}

func (disabledStore) Enabled() bool {
	return false
}

func (disabledStore) Put(ctx context.Context, rec *biz.MediaRecord) biz.PutResult {
	return biz.PutFailed
}

func (disabledStore) Get(ctx context.Context, id string) (*biz.MediaRecord, error) {
	return nil, nil
}

func (disabledStore) Search(ctx context.Context, pattern string, includeCaption bool) ([]*biz.MediaRecord, error) {
	return nil, nil
}

func (disabledStore) Count(ctx context.Context) (int64, error) {
	return 0, nil
}

func (disabledStore) SizeBytes(ctx context.Context) (int64, error) {
	return 0, nil
}
