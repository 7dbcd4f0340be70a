package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/listflow/listflow/app/dto"
	"github.com/listflow/listflow/app/scheduler"
	"github.com/listflow/listflow/config"
)

type PipelineHandlerInterface interface {
	RunPipeline(c fiber.Ctx) error
	Health(c fiber.Ctx) error
}

// PipelineHandler exposes manual pipeline triggering and liveness.
type PipelineHandler struct {
	scheduler *scheduler.PipelineScheduler
	cfg       *config.Config
}

func NewPipelineHandler(sched *scheduler.PipelineScheduler, cfg *config.Config) *PipelineHandler {
	return &PipelineHandler{scheduler: sched, cfg: cfg}
}

func (h *PipelineHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *PipelineHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// RunPipeline triggers one full pipeline run outside the schedule
// @Summary Run the pipeline now
// @Description Run retention, ingestion, and sync for all active tenants under the distributed run lock
// @Tags Pipeline
// @Produce json
// @Success 200 {object} dto.APIResponse "Run summary"
// @Failure 409 {object} dto.APIResponse "Run already in progress"
// @Failure 500 {object} dto.APIResponse "Run failed"
// @Router /api/v1/pipeline/run [post]
func (h *PipelineHandler) RunPipeline(c fiber.Ctx) error {
	summary, err := h.scheduler.RunOnce(createRequestContextWithTimeout(c, "/api/v1/pipeline/run", 30*time.Minute))
	if err != nil {
		if errors.Is(err, scheduler.ErrRunInProgress) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Pipeline run already in progress", "RUN_IN_PROGRESS", nil)
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Pipeline run failed", "RUN_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Pipeline run completed", summary)
}

// Health reports service liveness
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.HealthResponse} "Service healthy"
// @Router /api/v1/health [get]
func (h *PipelineHandler) Health(c fiber.Ctx) error {
	return h.SuccessResponse(c, fiber.StatusOK, "Service healthy", dto.HealthResponse{
		Status:      "ok",
		Environment: h.cfg.Deployment.Environment,
		Version:     h.cfg.Deployment.Version,
	})
}
