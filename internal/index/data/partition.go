package data

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lk2023060901/media-index-backend/internal/index/biz"
	"github.com/lk2023060901/media-index-backend/internal/pkg/database"
)

// MediaRecordPO is the persisted form of a media record.
type MediaRecordPO struct {
	ID        string    `gorm:"primaryKey;size:64"`
	FileName  string    `gorm:"size:512;not null"`
	FileSize  int64     `gorm:"not null"`
	Caption   string    `gorm:"type:text"`
	Partition string    `gorm:"size:16;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (MediaRecordPO) TableName() string {
	return "media_records"
}

// PartitionStore implements biz.Store over one partition's database.
type PartitionStore struct {
	db        *gorm.DB
	partition biz.Partition
	driver    string
	logger    *zap.Logger
}

// NewPartitionStore migrates the collection schema and builds the file name
// text index. Index creation failures are logged and tolerated (the index
// typically already exists).
func NewPartitionStore(db *gorm.DB, driver string, p biz.Partition, logger *zap.Logger) (*PartitionStore, error) {
	log := logger.With(zap.String("partition", string(p)))

	if err := db.AutoMigrate(&MediaRecordPO{}); err != nil {
		return nil, err
	}

	if err := db.Exec(
		"CREATE INDEX IF NOT EXISTS idx_media_records_file_name ON media_records (file_name)",
	).Error; err != nil {
		log.Warn("file name index creation skipped", zap.Error(err))
	}

	return &PartitionStore{
		db:        db,
		partition: p,
		driver:    driver,
		logger:    log,
	}, nil
}

func (s *PartitionStore) Enabled() bool {
	return true
}

// Put inserts the record. Re-ingesting an existing id is a duplicate, not
// an overwrite; all other persistence failures are logged and reported as
// PutFailed, never raised.
func (s *PartitionStore) Put(ctx context.Context, rec *biz.MediaRecord) biz.PutResult {
	po := &MediaRecordPO{
		ID:        rec.ID,
		FileName:  rec.FileName,
		FileSize:  rec.FileSize,
		Caption:   rec.Caption,
		Partition: string(rec.Partition),
	}

	err := s.db.WithContext(ctx).Create(po).Error
	if err == nil {
		return biz.PutCreated
	}
	if database.IsDuplicateKeyError(err) {
		return biz.PutDuplicate
	}

	s.logger.Error("insert failed",
		zap.String("file_name", rec.FileName),
		zap.Error(err),
	)
	return biz.PutFailed
}

func (s *PartitionStore) Get(ctx context.Context, id string) (*biz.MediaRecord, error) {
	var po MediaRecordPO
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&po).Error
	if database.IsRecordNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.toRecord(&po), nil
}

// Search matches the LIKE pattern against lower-cased file names, and
// captions as well when includeCaption is set (OR semantics). Results come
// back in insertion order so pagination cursors stay stable.
func (s *PartitionStore) Search(ctx context.Context, pattern string, includeCaption bool) ([]*biz.MediaRecord, error) {
	q := s.db.WithContext(ctx).Model(&MediaRecordPO{})
	if includeCaption {
		q = q.Where(
			`LOWER(file_name) LIKE ? ESCAPE '\' OR LOWER(caption) LIKE ? ESCAPE '\'`,
			pattern, pattern,
		)
	} else {
		q = q.Where(`LOWER(file_name) LIKE ? ESCAPE '\'`, pattern)
	}

	var pos []MediaRecordPO
	if err := q.Order("created_at").Order("id").Find(&pos).Error; err != nil {
		return nil, err
	}

	recs := make([]*biz.MediaRecord, len(pos))
	for i := range pos {
		recs[i] = s.toRecord(&pos[i])
	}
	return recs, nil
}

func (s *PartitionStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&MediaRecordPO{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// SizeBytes reports the storage footprint through the driver's own
// accounting: relation size on PostgreSQL, page count times page size on
// SQLite.
func (s *PartitionStore) SizeBytes(ctx context.Context) (int64, error) {
	var size int64
	var err error
	switch s.driver {
	case database.DriverPostgres:
		err = s.db.WithContext(ctx).
			Raw("SELECT pg_total_relation_size('media_records')").
			Scan(&size).Error
	case database.DriverSQLite:
		err = s.db.WithContext(ctx).
			Raw("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()").
			Scan(&size).Error
	}
	if err != nil {
		return 0, err
	}
	return size, nil
}

func (s *PartitionStore) toRecord(po *MediaRecordPO) *biz.MediaRecord {
	return &biz.MediaRecord{
		ID:        po.ID,
		FileName:  po.FileName,
		FileSize:  po.FileSize,
		Caption:   po.Caption,
		Partition: biz.Partition(po.Partition),
	}
}
