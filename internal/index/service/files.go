package service

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lk2023060901/media-index-backend/internal/index/biz"
	"github.com/lk2023060901/media-index-backend/internal/pkg/metrics"
	"github.com/lk2023060901/media-index-backend/internal/pkg/response"
)

// FilesService serves search, point lookup and statistics endpoints.
type FilesService struct {
	engine       *biz.SearchEngine
	defaultLimit int
	logger       *zap.Logger
}

func NewFilesService(engine *biz.SearchEngine, defaultLimit int, logger *zap.Logger) *FilesService {
	if defaultLimit < 1 {
		defaultLimit = 10
	}
	return &FilesService{
		engine:       engine,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

type FileResponse struct {
	ID        string `json:"id"`
	FileName  string `json:"file_name"`
	FileSize  int64  `json:"file_size"`
	Caption   string `json:"caption,omitempty"`
	Partition string `json:"partition"`
}

// SearchResponse renders one result page. NextOffset is null on the last
// page.
type SearchResponse struct {
	Files      []*FileResponse `json:"files"`
	NextOffset *int            `json:"next_offset"`
	Total      int             `json:"total"`
}

type CountsResponse struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

type PartitionStatsResponse struct {
	Partition     string  `json:"partition,omitempty"`
	Records       int64   `json:"records"`
	Bytes         int64   `json:"bytes"`
	CapacityBytes int64   `json:"capacity_bytes"`
	Utilization   float64 `json:"utilization"`
	Enabled       bool    `json:"enabled"`
}

type StatsResponse struct {
	Totals     *PartitionStatsResponse   `json:"totals"`
	Partitions []*PartitionStatsResponse `json:"partitions"`
}

// Search handles GET /api/v1/files.
func (s *FilesService) Search(c *gin.Context) {
	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		response.BadRequest(c, "invalid offset")
		return
	}
	limit, err := intQuery(c, "limit", s.defaultLimit)
	if err != nil || limit < 1 || limit > 100 {
		response.BadRequest(c, "limit must be between 1 and 100")
		return
	}

	page, err := s.engine.Search(c.Request.Context(), c.Query("q"), c.Query("partition"), offset, limit)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	metrics.SearchesServed.Inc()

	files := make([]*FileResponse, len(page.Files))
	for i, rec := range page.Files {
		files[i] = toFileResponse(rec)
	}

	var next *int
	if page.NextOffset != biz.EndOfResults {
		n := page.NextOffset
		next = &n
	}

	response.Success(c, &SearchResponse{
		Files:      files,
		NextOffset: next,
		Total:      page.Total,
	})
}

// Counts handles GET /api/v1/files/counts.
func (s *FilesService) Counts(c *gin.Context) {
	counts, total := s.engine.CountsByPartition(c.Request.Context(), c.Query("q"))
	metrics.SearchesServed.Inc()

	out := make(map[string]int, len(counts))
	for p, n := range counts {
		out[string(p)] = n
	}
	response.Success(c, &CountsResponse{Counts: out, Total: total})
}

// GetFile handles GET /api/v1/files/:id.
func (s *FilesService) GetFile(c *gin.Context) {
	rec, err := s.engine.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, toFileResponse(rec))
}

// Stats handles GET /api/v1/stats.
func (s *FilesService) Stats(c *gin.Context) {
	agg, per := s.engine.AggregateStats(c.Request.Context())

	partitions := make([]*PartitionStatsResponse, len(per))
	for i, p := range per {
		partitions[i] = toStatsResponse(p)
		metrics.PartitionRecords.WithLabelValues(string(p.Partition)).Set(float64(p.Records))
	}

	response.Success(c, &StatsResponse{
		Totals:     toStatsResponse(agg),
		Partitions: partitions,
	})
}

// PartitionStats handles GET /api/v1/stats/:partition.
func (s *FilesService) PartitionStats(c *gin.Context) {
	stats, err := s.engine.Stats(c.Request.Context(), c.Param("partition"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	metrics.PartitionRecords.WithLabelValues(string(stats.Partition)).Set(float64(stats.Records))
	response.Success(c, toStatsResponse(stats))
}

// RegisterRoutes mounts the file endpoints on the API group.
func (s *FilesService) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/files", s.Search)
	api.GET("/files/counts", s.Counts)
	api.GET("/files/:id", s.GetFile)
	api.GET("/stats", s.Stats)
	api.GET("/stats/:partition", s.PartitionStats)
}

func toFileResponse(rec *biz.MediaRecord) *FileResponse {
	return &FileResponse{
		ID:        rec.ID,
		FileName:  rec.FileName,
		FileSize:  rec.FileSize,
		Caption:   rec.Caption,
		Partition: string(rec.Partition),
	}
}

func toStatsResponse(s *biz.PartitionStats) *PartitionStatsResponse {
	return &PartitionStatsResponse{
		Partition:     string(s.Partition),
		Records:       s.Records,
		Bytes:         s.Bytes,
		CapacityBytes: s.CapacityBytes,
		Utilization:   s.Utilization(),
		Enabled:       s.Enabled,
	}
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
