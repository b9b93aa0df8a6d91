package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"nicetravel/internal/models/db_models"
	"nicetravel/internal/services"
	"nicetravel/pkg/utils"
)

type GenerationController struct {
	generationService services.GenerationServiceInterface
	streamInterval    time.Duration
	logger            *zap.Logger
}

func NewGenerationController(generationService services.GenerationServiceInterface, streamInterval time.Duration, logger *zap.Logger) *GenerationController {
	if streamInterval <= 0 {
		streamInterval = 2 * time.Second
	}
	return &GenerationController{
		generationService: generationService,
		streamInterval:    streamInterval,
		logger:            logger.With(zap.String("component", "generation_controller")),
	}
}

// StartGeneration godoc
// @Summary Start itinerary generation
// @Description Admits a background generation job for the plan and returns immediately
// @Tags Generation
// @Produce json
// @Param id path string true "Plan ID"
// @Success 202 {object} utils.APIResponse{data=response_models.GenerationStartResponse}
// @Failure 403 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Failure 422 {object} utils.APIResponse
// @Security BearerAuth
// @Router /plans/{id}/generate [post]
func (g *GenerationController) StartGeneration(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	planID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	started, err := g.generationService.InitializeGeneration(c.Request.Context(), planID, userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondWithStatus(c, http.StatusAccepted, started, "Generation started")
}

// GetGenerationStatus godoc
// @Summary Get the status of the latest generation
// @Description With sse=true the status is pushed as server-sent events until the job is terminal
// @Tags Generation
// @Produce json
// @Produce text/event-stream
// @Param id path string true "Plan ID"
// @Param sse query bool false "Stream status updates"
// @Success 200 {object} utils.APIResponse{data=response_models.GenerationStatusResponse}
// @Failure 403 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Security BearerAuth
// @Router /plans/{id}/generate/status [get]
// @Router /plans/{id}/status [get]
func (g *GenerationController) GetGenerationStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	planID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if c.Query("sse") == "true" {
		g.streamStatus(c, planID, userID)
		return
	}

	status, err := g.generationService.GetGenerationStatus(c.Request.Context(), planID, userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, status, "Generation status fetched successfully")
}

// streamStatus polls the job and emits a "status" event per poll. It ends on a
// terminal status, on an "error" event, or when the client goes away.
func (g *GenerationController) streamStatus(c *gin.Context, planID, userID uuid.UUID) {
	ctx := c.Request.Context()

	// Authorization and missing-job problems are still reported as JSON.
	first, err := g.generationService.GetGenerationStatus(ctx, planID, userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ticker := time.NewTicker(g.streamInterval)
	defer ticker.Stop()

	status := first
	for {
		c.SSEvent("status", status)
		c.Writer.Flush()
		if db_models.GenerationStatus(status.Status).IsTerminal() {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		status, err = g.generationService.GetGenerationStatus(ctx, planID, userID)
		if err != nil {
			if errors.Is(err, ctx.Err()) {
				return
			}
			g.logger.Warn("status stream poll failed",
				zap.String("plan_id", planID.String()),
				zap.Error(err),
			)
			c.SSEvent("error", gin.H{"error": err.Error()})
			c.Writer.Flush()
			return
		}
	}
}

// GetGeneratedPlan godoc
// @Summary Get the latest generated itinerary
// @Tags Generation
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} utils.APIResponse{data=response_models.GeneratedPlanResponse}
// @Failure 403 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Security BearerAuth
// @Router /plans/{id}/generated [get]
func (g *GenerationController) GetGeneratedPlan(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	planID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	generated, err := g.generationService.GetGeneratedPlan(c.Request.Context(), planID, userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, generated, "Generated plan fetched successfully")
}
