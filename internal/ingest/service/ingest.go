package service

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	indexbiz "github.com/lk2023060901/media-index-backend/internal/index/biz"
	"github.com/lk2023060901/media-index-backend/internal/ingest/biz"
	apperrors "github.com/lk2023060901/media-index-backend/internal/pkg/errors"
	"github.com/lk2023060901/media-index-backend/internal/pkg/response"
)

// IngestService exposes run control over HTTP: start, cancel, inspect.
type IngestService struct {
	supervisor *biz.Supervisor
	logger     *zap.Logger
}

func NewIngestService(supervisor *biz.Supervisor, logger *zap.Logger) *IngestService {
	return &IngestService{
		supervisor: supervisor,
		logger:     logger,
	}
}

type StartRunRequest struct {
	StreamID     string `json:"stream_id" binding:"required"`
	EndMessageID int64  `json:"end_message_id" binding:"required"`
	Skip         int64  `json:"skip"`
	Partition    string `json:"partition"`
}

type RunResponse struct {
	RunID     string       `json:"run_id"`
	Status    string       `json:"status"`
	Window    biz.Window   `json:"window"`
	Partition string       `json:"partition"`
	Counters  biz.Counters `json:"counters"`
	Elapsed   string       `json:"elapsed"`
	Reason    string       `json:"reason,omitempty"`
}

// StartRun handles POST /api/v1/ingest/runs. The run executes in the
// background; the reply only carries the handle id.
func (s *IngestService) StartRun(c *gin.Context) {
	var req StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	partition := indexbiz.PartitionPrimary
	if req.Partition != "" {
		p, ok := indexbiz.ParsePartition(req.Partition)
		if !ok {
			response.BadRequest(c, "unknown partition: "+req.Partition)
			return
		}
		partition = p
	}

	window := biz.Window{
		StreamID:     req.StreamID,
		EndMessageID: req.EndMessageID,
		Skip:         req.Skip,
	}

	run, err := s.supervisor.Ingest(c.Request.Context(), window, partition)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Accepted(c, gin.H{"run_id": run.ID})
}

// ActiveRun handles GET /api/v1/ingest/runs/active. It reports the running
// ingestion, or the last finished one when no run is active.
func (s *IngestService) ActiveRun(c *gin.Context) {
	run := s.supervisor.Active()
	if run == nil {
		response.HandleError(c, apperrors.New(apperrors.ErrNoActiveRun))
		return
	}
	response.Success(c, toRunResponse(run))
}

// CancelRun handles DELETE /api/v1/ingest/runs/active.
func (s *IngestService) CancelRun(c *gin.Context) {
	run, err := s.supervisor.CancelActive()
	if err != nil {
		response.HandleError(c, err)
		return
	}

	s.logger.Info("cancellation requested", zap.String("run_id", run.ID))
	response.Success(c, gin.H{"run_id": run.ID})
}

// RegisterRoutes mounts the ingestion endpoints on the API group.
func (s *IngestService) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/ingest/runs", s.StartRun)
	api.GET("/ingest/runs/active", s.ActiveRun)
	api.DELETE("/ingest/runs/active", s.CancelRun)
}

func toRunResponse(run *biz.Run) *RunResponse {
	resp := &RunResponse{
		RunID:     run.ID,
		Status:    string(run.Status()),
		Window:    run.Window,
		Partition: string(run.Partition),
		Counters:  run.Snapshot(),
		Elapsed:   biz.FormatElapsed(run.Elapsed()),
	}
	if report := run.Report(); report != nil {
		resp.Reason = report.Reason
	}
	return resp
}
