package data

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lk2023060901/media-index-backend/internal/conf"
	"github.com/lk2023060901/media-index-backend/internal/index/biz"
	"github.com/lk2023060901/media-index-backend/internal/pkg/database"
)

// NewPartitionSet connects every configured partition and resolves the
// name-to-store mapping once. A partition without an endpoint, or whose
// endpoint cannot be reached at startup, degrades to the neutral disabled
// store instead of failing the process.
func NewPartitionSet(cfg *conf.PartitionsConfig, logger *zap.Logger) (*biz.PartitionSet, func(), error) {
	partitionConfigs := map[biz.Partition]conf.PartitionConfig{
		biz.PartitionPrimary: cfg.Primary,
		biz.PartitionCloud:   cfg.Cloud,
		biz.PartitionArchive: cfg.Archive,
	}

	stores := make(map[biz.Partition]biz.Store, len(partitionConfigs))
	descriptors := make(map[biz.Partition]biz.PartitionDescriptor, len(partitionConfigs))
	var handles []*gorm.DB

	for _, p := range biz.PartitionOrder {
		pc := partitionConfigs[p]
		desc := biz.PartitionDescriptor{Name: p, CapacityBytes: pc.CapacityBytes}

		if pc.Endpoint == "" {
			logger.Info("partition disabled", zap.String("partition", string(p)))
			stores[p] = NewDisabledStore()
			descriptors[p] = desc
			continue
		}

		db, driver, err := database.Open(pc.Endpoint, logger.With(zap.String("partition", string(p))))
		if err != nil {
			logger.Error("partition unavailable, running disabled",
				zap.String("partition", string(p)),
				zap.Error(err),
			)
			stores[p] = NewDisabledStore()
			descriptors[p] = desc
			continue
		}

		store, err := NewPartitionStore(db, driver, p, logger)
		if err != nil {
			logger.Error("partition schema setup failed, running disabled",
				zap.String("partition", string(p)),
				zap.Error(err),
			)
			_ = database.Close(db)
			stores[p] = NewDisabledStore()
			descriptors[p] = desc
			continue
		}

		handles = append(handles, db)
		desc.Enabled = true
		stores[p] = store
		descriptors[p] = desc
	}

	cleanup := func() {
		for _, db := range handles {
			_ = database.Close(db)
		}
	}

	return biz.NewPartitionSet(stores, descriptors), cleanup, nil
}
