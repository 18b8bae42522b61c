package biz

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/lk2023060901/media-index-backend/internal/pkg/errors"
)

// encodeFileRef serializes a provider reference the way the upstream
// client does: little-endian fields, version trailer, zero-RLE, URL-safe
// base64.
func encodeFileRef(fileType, dcID uint32, mediaID, accessHash int64) string {
	var payload []byte
	payload = binary.LittleEndian.AppendUint32(payload, fileType)
	payload = binary.LittleEndian.AppendUint32(payload, dcID)
	payload = binary.LittleEndian.AppendUint64(payload, uint64(mediaID))
	payload = binary.LittleEndian.AppendUint64(payload, uint64(accessHash))
	payload = append(payload, 32, 4)

	var packed []byte
	for i := 0; i < len(payload); {
		if payload[i] != 0 {
			packed = append(packed, payload[i])
			i++
			continue
		}
		n := 0
		for i < len(payload) && payload[i] == 0 && n < 255 {
			n++
			i++
		}
		packed = append(packed, 0, byte(n))
	}
	return base64.RawURLEncoding.EncodeToString(packed)
}

func newTestIndexer() (*Indexer, map[Partition]*fakeStore) {
	primary := &fakeStore{enabled: true}
	cloud := &fakeStore{enabled: true}
	archive := &fakeStore{enabled: false}

	stores := map[Partition]Store{
		PartitionPrimary: primary,
		PartitionCloud:   cloud,
		PartitionArchive: archive,
	}
	descriptors := map[Partition]PartitionDescriptor{
		PartitionPrimary: {Name: PartitionPrimary, Enabled: true},
		PartitionCloud:   {Name: PartitionCloud, Enabled: true},
		PartitionArchive: {Name: PartitionArchive},
	}

	ix := NewIndexer(NewPartitionSet(stores, descriptors), zap.NewNop())
	return ix, map[Partition]*fakeStore{
		PartitionPrimary: primary,
		PartitionCloud:   cloud,
		PartitionArchive: archive,
	}
}

func TestIndexerSaveNormalizesAndStores(t *testing.T) {
	ix, fakes := newTestIndexer()

	media := &Media{
		FileRef:  encodeFileRef(5, 2, 123456, 789),
		FileName: "The.Matrix.1999_x264.mkv",
		FileSize: 2048,
		Caption:  "classic-scifi",
	}

	result, err := ix.Save(context.Background(), PartitionPrimary, media)
	require.NoError(t, err)
	assert.Equal(t, PutCreated, result)

	require.Len(t, fakes[PartitionPrimary].recs, 1)
	stored := fakes[PartitionPrimary].recs[0]
	assert.Equal(t, "The Matrix 1999 x264 mkv", stored.FileName)
	assert.Equal(t, "classic scifi", stored.Caption)
	assert.Equal(t, int64(2048), stored.FileSize)
	assert.Equal(t, PartitionPrimary, stored.Partition)
	assert.NotEmpty(t, stored.ID)
}

func TestIndexerSaveSameRefIsDuplicate(t *testing.T) {
	ix, fakes := newTestIndexer()
	ctx := context.Background()

	media := &Media{FileRef: encodeFileRef(4, 1, 42, 77), FileName: "a.mp4", FileSize: 10}

	result, err := ix.Save(ctx, PartitionPrimary, media)
	require.NoError(t, err)
	assert.Equal(t, PutCreated, result)

	result, err = ix.Save(ctx, PartitionPrimary, media)
	require.NoError(t, err)
	assert.Equal(t, PutDuplicate, result)

	assert.Len(t, fakes[PartitionPrimary].recs, 1)
}

func TestIndexerSaveBadReference(t *testing.T) {
	ix, fakes := newTestIndexer()

	media := &Media{FileRef: "not-a-valid-ref!!!", FileName: "a.mp4"}

	result, err := ix.Save(context.Background(), PartitionPrimary, media)
	assert.Equal(t, PutFailed, result)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrIdentityDecode, apperrors.ExtractCode(err))
	assert.Empty(t, fakes[PartitionPrimary].recs)
}

func TestIndexerSaveUnknownPartition(t *testing.T) {
	ix, _ := newTestIndexer()

	media := &Media{FileRef: encodeFileRef(4, 1, 1, 1), FileName: "a.mp4"}

	result, err := ix.Save(context.Background(), Partition("glacier"), media)
	assert.Equal(t, PutFailed, result)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrUnknownPartition, apperrors.ExtractCode(err))
}

func TestIndexerSaveDisabledPartitionFails(t *testing.T) {
	ix, _ := newTestIndexer()

	media := &Media{FileRef: encodeFileRef(4, 1, 1, 1), FileName: "a.mp4"}

	result, err := ix.Save(context.Background(), PartitionArchive, media)
	require.NoError(t, err)
	assert.Equal(t, PutFailed, result)
}
