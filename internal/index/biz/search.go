package biz

import (
	"context"

	"go.uber.org/zap"

	apperrors "github.com/lk2023060901/media-index-backend/internal/pkg/errors"
)

// EndOfResults is the pagination end sentinel: no further pages exist.
// It is never a valid offset.
const EndOfResults = -1

// SearchPage is one window of a federated result set.
type SearchPage struct {
	Files []*MediaRecord
	// NextOffset is the offset of the following page, or EndOfResults.
	NextOffset int
	Total      int
}

// PartitionStats reports one partition's live usage.
type PartitionStats struct {
	Partition     Partition
	Records       int64
	Bytes         int64
	CapacityBytes int64
	Enabled       bool
}

// Utilization is the used fraction of the capacity ceiling, clamped to 1.
func (s PartitionStats) Utilization() float64 {
	if s.CapacityBytes <= 0 {
		return 0
	}
	u := float64(s.Bytes) / float64(s.CapacityBytes)
	if u > 1 {
		return 1
	}
	return u
}

// SearchEngine serves keyword search, point lookups and statistics over one
// or all partitions. Reads are unsynchronized with ingestion: a search may
// observe a partially ingested run.
type SearchEngine struct {
	set        *PartitionSet
	useCaption bool
	logger     *zap.Logger
}

func NewSearchEngine(set *PartitionSet, useCaption bool, logger *zap.Logger) *SearchEngine {
	return &SearchEngine{
		set:        set,
		useCaption: useCaption,
		logger:     logger,
	}
}

// targets resolves the partition argument: a named partition queries it
// alone, the empty string fans out over all partitions in fixed order, and
// an unknown name degrades to an empty target list.
func (e *SearchEngine) targets(partition string) []Partition {
	if partition == "" {
		return e.set.Ordered()
	}
	if p, ok := ParsePartition(partition); ok {
		return []Partition{p}
	}
	return nil
}

// collect runs the pattern against every target partition and concatenates
// results partition-major. Per-partition failures degrade to empty results.
func (e *SearchEngine) collect(ctx context.Context, pattern string, partitions []Partition) []*MediaRecord {
	var results []*MediaRecord
	for _, p := range partitions {
		store, ok := e.set.Store(p)
		if !ok {
			continue
		}
		recs, err := store.Search(ctx, pattern, e.useCaption)
		if err != nil {
			e.logger.Warn("partition search failed",
				zap.String("partition", string(p)),
				zap.Error(err),
			)
			continue
		}
		results = append(results, recs...)
	}
	return results
}

// Search returns one page of matches with a stable offset cursor. The page
// is a window over the concatenated partition results; NextOffset is
// EndOfResults once the window reaches the end.
func (e *SearchEngine) Search(ctx context.Context, keyword, partition string, offset, limit int) (*SearchPage, error) {
	if limit < 1 {
		return nil, apperrors.New(apperrors.ErrInvalidParams, "limit must be >= 1")
	}
	if offset < 0 {
		offset = 0
	}

	pattern := BuildPattern(keyword)
	results := e.collect(ctx, pattern, e.targets(partition))
	total := len(results)

	if offset >= total {
		return &SearchPage{Files: []*MediaRecord{}, NextOffset: EndOfResults, Total: total}, nil
	}

	end := offset + limit
	next := end
	if end >= total {
		end = total
		next = EndOfResults
	}

	return &SearchPage{
		Files:      results[offset:end],
		NextOffset: next,
		Total:      total,
	}, nil
}

// CountsByPartition returns live per-partition match counts for a keyword,
// in fan-out order, for the dashboard's grouped results panel.
func (e *SearchEngine) CountsByPartition(ctx context.Context, keyword string) (map[Partition]int, int) {
	pattern := BuildPattern(keyword)
	counts := make(map[Partition]int, len(e.set.Ordered()))
	total := 0
	for _, p := range e.set.Ordered() {
		n := len(e.collect(ctx, pattern, []Partition{p}))
		counts[p] = n
		total += n
	}
	return counts, total
}

// GetRecord looks the id up across partitions in fan-out order; the first
// hit wins.
func (e *SearchEngine) GetRecord(ctx context.Context, id string) (*MediaRecord, error) {
	for _, p := range e.set.Ordered() {
		store, ok := e.set.Store(p)
		if !ok {
			continue
		}
		rec, err := store.Get(ctx, id)
		if err != nil {
			e.logger.Warn("partition lookup failed",
				zap.String("partition", string(p)),
				zap.Error(err),
			)
			continue
		}
		if rec != nil {
			return rec, nil
		}
	}
	return nil, apperrors.New(apperrors.ErrFileNotFound, id)
}

// Stats re-queries one partition's live record count and byte usage.
func (e *SearchEngine) Stats(ctx context.Context, partition string) (*PartitionStats, error) {
	p, ok := ParsePartition(partition)
	if !ok {
		return nil, apperrors.New(apperrors.ErrUnknownPartition, partition)
	}
	return e.statsFor(ctx, p), nil
}

func (e *SearchEngine) statsFor(ctx context.Context, p Partition) *PartitionStats {
	desc, _ := e.set.Descriptor(p)
	stats := &PartitionStats{
		Partition:     p,
		CapacityBytes: desc.CapacityBytes,
		Enabled:       desc.Enabled,
	}

	store, ok := e.set.Store(p)
	if !ok || !store.Enabled() {
		return stats
	}

	if n, err := store.Count(ctx); err == nil {
		stats.Records = n
	} else {
		e.logger.Warn("partition count failed", zap.String("partition", string(p)), zap.Error(err))
	}
	if b, err := store.SizeBytes(ctx); err == nil {
		stats.Bytes = b
	} else {
		e.logger.Warn("partition size query failed", zap.String("partition", string(p)), zap.Error(err))
	}
	return stats
}

// AggregateStats sums live usage over all partitions; disabled partitions
// contribute zero.
func (e *SearchEngine) AggregateStats(ctx context.Context) (*PartitionStats, []*PartitionStats) {
	perPartition := make([]*PartitionStats, 0, len(e.set.Ordered()))
	agg := &PartitionStats{Partition: "", Enabled: true}
	for _, p := range e.set.Ordered() {
		s := e.statsFor(ctx, p)
		perPartition = append(perPartition, s)
		agg.Records += s.Records
		agg.Bytes += s.Bytes
		agg.CapacityBytes += s.CapacityBytes
	}
	return agg, perPartition
}
