package biz

import (
	"context"

	"go.uber.org/zap"

	"github.com/lk2023060901/media-index-backend/internal/index/fileid"
	apperrors "github.com/lk2023060901/media-index-backend/internal/pkg/errors"
)

// Indexer is the write-path use case: derive identity, normalize, insert.
type Indexer struct {
	set    *PartitionSet
	logger *zap.Logger
}

func NewIndexer(set *PartitionSet, logger *zap.Logger) *Indexer {
	return &Indexer{set: set, logger: logger}
}

// Save derives the canonical id for the media and inserts it into the
// target partition. The result classifies the outcome for the caller's
// counters; the error carries detail for failed outcomes and is nil for
// created and duplicate.
func (ix *Indexer) Save(ctx context.Context, p Partition, m *Media) (PutResult, error) {
	store, ok := ix.set.Store(p)
	if !ok {
		return PutFailed, apperrors.New(apperrors.ErrUnknownPartition, string(p))
	}

	id, err := fileid.CanonicalID(m.FileRef)
	if err != nil {
		ix.logger.Warn("undecodable file reference",
			zap.String("file_name", m.FileName),
			zap.Error(err),
		)
		return PutFailed, apperrors.Wrap(err, apperrors.ErrIdentityDecode)
	}

	rec := &MediaRecord{
		ID:        id,
		FileName:  NormalizeText(m.FileName),
		FileSize:  m.FileSize,
		Caption:   NormalizeText(m.Caption),
		Partition: p,
	}

	result := store.Put(ctx, rec)
	if result == PutCreated {
		ix.logger.Info("indexed file",
			zap.String("partition", string(p)),
			zap.String("file_name", rec.FileName),
		)
	}
	return result, nil
}
