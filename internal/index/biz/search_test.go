package biz

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore matches LIKE patterns in memory so engine behavior can be
// tested without a database.
type fakeStore struct {
	recs       []*MediaRecord
	enabled    bool
	searchErr  error
	putResults []PutResult
}

func (f *fakeStore) Enabled() bool { return f.enabled }

func (f *fakeStore) Put(ctx context.Context, rec *MediaRecord) PutResult {
	if !f.enabled {
		return PutFailed
	}
	if len(f.putResults) > 0 {
		r := f.putResults[0]
		f.putResults = f.putResults[1:]
		return r
	}
	for _, existing := range f.recs {
		if existing.ID == rec.ID {
			return PutDuplicate
		}
	}
	f.recs = append(f.recs, rec)
	return PutCreated
}

func (f *fakeStore) Get(ctx context.Context, id string) (*MediaRecord, error) {
	for _, rec := range f.recs {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) Search(ctx context.Context, pattern string, includeCaption bool) ([]*MediaRecord, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	re := likeToRegexp(pattern)
	var out []*MediaRecord
	for _, rec := range f.recs {
		if re.MatchString(strings.ToLower(rec.FileName)) {
			out = append(out, rec)
			continue
		}
		if includeCaption && re.MatchString(strings.ToLower(rec.Caption)) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeStore) Count(ctx context.Context) (int64, error) {
	return int64(len(f.recs)), nil
}

func (f *fakeStore) SizeBytes(ctx context.Context) (int64, error) {
	var total int64
	for _, rec := range f.recs {
		total += rec.FileSize
	}
	return total, nil
}

// likeToRegexp translates an engine LIKE pattern ("%" gaps, backslash
// escapes) into a regexp for the in-memory fake.
func likeToRegexp(pattern string) *regexp.Regexp {
	var sb strings.Builder
	sb.WriteString("(?s)^")
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '%':
			sb.WriteString(".*")
		case '\\':
			i++
			if i < len(pattern) {
				sb.WriteString(regexp.QuoteMeta(string(pattern[i])))
			}
		default:
			sb.WriteString(regexp.QuoteMeta(string(pattern[i])))
		}
	}
	sb.WriteString("$")
	return regexp.MustCompile(sb.String())
}

func rec(id, name string, p Partition) *MediaRecord {
	return &MediaRecord{ID: id, FileName: name, FileSize: 100, Partition: p}
}

func newTestEngine(useCaption bool) (*SearchEngine, map[Partition]*fakeStore) {
	primary := &fakeStore{enabled: true, recs: []*MediaRecord{
		rec("p1", "Avatar 2009 mkv", PartitionPrimary),
		rec("p2", "Avatar 2022 mkv", PartitionPrimary),
		rec("p3", "Dune 2021 mp4", PartitionPrimary),
	}}
	cloud := &fakeStore{enabled: true, recs: []*MediaRecord{
		rec("c1", "Avatar 2022 webrip mkv", PartitionCloud),
		rec("c2", "Inception 2010 mkv", PartitionCloud),
	}}
	archive := &fakeStore{enabled: false}

	fakes := map[Partition]*fakeStore{
		PartitionPrimary: primary,
		PartitionCloud:   cloud,
		PartitionArchive: archive,
	}
	stores := map[Partition]Store{
		PartitionPrimary: primary,
		PartitionCloud:   cloud,
		PartitionArchive: archive,
	}
	descriptors := map[Partition]PartitionDescriptor{
		PartitionPrimary: {Name: PartitionPrimary, CapacityBytes: 1000, Enabled: true},
		PartitionCloud:   {Name: PartitionCloud, CapacityBytes: 500, Enabled: true},
		PartitionArchive: {Name: PartitionArchive, Enabled: false},
	}

	engine := NewSearchEngine(NewPartitionSet(stores, descriptors), useCaption, zap.NewNop())
	return engine, fakes
}

func TestSearchEmptyKeywordListsAllPartitionOrdered(t *testing.T) {
	engine, _ := newTestEngine(false)

	page, err := engine.Search(context.Background(), "", "", 0, 100)
	require.NoError(t, err)

	assert.Equal(t, 5, page.Total)
	assert.Equal(t, EndOfResults, page.NextOffset)

	// partition-major order: all primary records before any cloud record
	ids := make([]string, len(page.Files))
	for i, f := range page.Files {
		ids[i] = f.ID
	}
	assert.Equal(t, []string{"p1", "p2", "p3", "c1", "c2"}, ids)

	agg, _ := engine.AggregateStats(context.Background())
	assert.Equal(t, int64(page.Total), agg.Records)
}

func TestSearchPaginationCursor(t *testing.T) {
	engine, _ := newTestEngine(false)
	ctx := context.Background()

	first, err := engine.Search(ctx, "", "", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, first.Total)
	assert.Equal(t, 2, first.NextOffset)
	assert.Len(t, first.Files, 2)

	second, err := engine.Search(ctx, "", "", first.NextOffset, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, second.NextOffset)
	assert.Len(t, second.Files, 2)

	// no overlap, no gap
	assert.Equal(t, "p1", first.Files[0].ID)
	assert.Equal(t, "p2", first.Files[1].ID)
	assert.Equal(t, "p3", second.Files[0].ID)
	assert.Equal(t, "c1", second.Files[1].ID)

	last, err := engine.Search(ctx, "", "", second.NextOffset, 2)
	require.NoError(t, err)
	assert.Equal(t, EndOfResults, last.NextOffset)
	assert.Len(t, last.Files, 1)
	assert.Equal(t, "c2", last.Files[0].ID)
}

func TestSearchOffsetAtOrPastEnd(t *testing.T) {
	engine, _ := newTestEngine(false)

	page, err := engine.Search(context.Background(), "", "", 5, 2)
	require.NoError(t, err)
	assert.Empty(t, page.Files)
	assert.Equal(t, EndOfResults, page.NextOffset)
	assert.Equal(t, 5, page.Total)

	page, err = engine.Search(context.Background(), "", "", 50, 2)
	require.NoError(t, err)
	assert.Empty(t, page.Files)
	assert.Equal(t, EndOfResults, page.NextOffset)
}

func TestSearchKeywordWithGap(t *testing.T) {
	engine, _ := newTestEngine(false)

	page, err := engine.Search(context.Background(), "avatar mkv", "", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	for _, f := range page.Files {
		assert.Contains(t, strings.ToLower(f.FileName), "avatar")
	}
}

func TestSearchSinglePartition(t *testing.T) {
	engine, _ := newTestEngine(false)

	page, err := engine.Search(context.Background(), "avatar", "cloud", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, "c1", page.Files[0].ID)
}

func TestSearchUnknownPartitionIsEmptyNotError(t *testing.T) {
	engine, _ := newTestEngine(false)

	page, err := engine.Search(context.Background(), "avatar", "glacier", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Files)
	assert.Equal(t, 0, page.Total)
	assert.Equal(t, EndOfResults, page.NextOffset)
}

func TestSearchCaptionFilter(t *testing.T) {
	withCaption, fakes := newTestEngine(true)
	fakes[PartitionPrimary].recs = append(fakes[PartitionPrimary].recs,
		&MediaRecord{ID: "p4", FileName: "release final", Caption: "Avatar extended cut", Partition: PartitionPrimary})

	page, err := withCaption.Search(context.Background(), "avatar", "primary", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)

	withoutCaption, fakes2 := newTestEngine(false)
	fakes2[PartitionPrimary].recs = append(fakes2[PartitionPrimary].recs,
		&MediaRecord{ID: "p4", FileName: "release final", Caption: "Avatar extended cut", Partition: PartitionPrimary})

	page, err = withoutCaption.Search(context.Background(), "avatar", "primary", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestSearchPartitionFailureDegrades(t *testing.T) {
	engine, fakes := newTestEngine(false)
	fakes[PartitionCloud].searchErr = errors.New("connection refused")

	page, err := engine.Search(context.Background(), "", "", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
}

func TestCountsByPartition(t *testing.T) {
	engine, _ := newTestEngine(false)

	counts, total := engine.CountsByPartition(context.Background(), "avatar")
	assert.Equal(t, 2, counts[PartitionPrimary])
	assert.Equal(t, 1, counts[PartitionCloud])
	assert.Equal(t, 0, counts[PartitionArchive])
	assert.Equal(t, 3, total)
}

func TestGetRecordScansPartitionsInOrder(t *testing.T) {
	engine, _ := newTestEngine(false)

	rec, err := engine.GetRecord(context.Background(), "c2")
	require.NoError(t, err)
	assert.Equal(t, "Inception 2010 mkv", rec.FileName)

	_, err = engine.GetRecord(context.Background(), "missing")
	require.Error(t, err)
}

func TestStatsDisabledPartitionContributesZero(t *testing.T) {
	engine, _ := newTestEngine(false)

	stats, err := engine.Stats(context.Background(), "archive")
	require.NoError(t, err)
	assert.False(t, stats.Enabled)
	assert.Zero(t, stats.Records)
	assert.Zero(t, stats.Bytes)

	agg, per := engine.AggregateStats(context.Background())
	assert.Equal(t, int64(5), agg.Records)
	assert.Len(t, per, 3)

	_, err = engine.Stats(context.Background(), "glacier")
	assert.Error(t, err)
}

func TestUtilization(t *testing.T) {
	s := PartitionStats{Bytes: 250, CapacityBytes: 1000}
	assert.InDelta(t, 0.25, s.Utilization(), 1e-9)

	s = PartitionStats{Bytes: 2000, CapacityBytes: 1000}
	assert.Equal(t, 1.0, s.Utilization())

	s = PartitionStats{Bytes: 10, CapacityBytes: 0}
	assert.Zero(t, s.Utilization())
}
