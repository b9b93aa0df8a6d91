package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"nicetravel/pkg/llm"
	"nicetravel/pkg/utils"
)

type ModelCatalog interface {
	ListModels(ctx context.Context) ([]llm.Model, error)
	GetCredits(ctx context.Context) (*llm.CreditInfo, error)
}

type LLMController struct {
	catalog ModelCatalog
}

func NewLLMController(catalog ModelCatalog) *LLMController {
	return &LLMController{catalog: catalog}
}

// ListModels godoc
// @Summary List the models offered by the configured provider
// @Tags LLM
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]llm.Model}
// @Security BearerAuth
// @Router /llm/models [get]
func (l *LLMController) ListModels(c *gin.Context) {
	models, err := l.catalog.ListModels(c.Request.Context())
	if err != nil {
		respondProviderError(c, err)
		return
	}
	utils.RespondSuccess(c, models, "Models fetched successfully")
}

// GetCredits godoc
// @Summary Remaining provider credits
// @Tags LLM
// @Produce json
// @Success 200 {object} utils.APIResponse{data=llm.CreditInfo}
// @Failure 501 {object} utils.APIResponse
// @Failure 502 {object} utils.APIResponse
// @Security BearerAuth
// @Router /llm/credits [get]
func (l *LLMController) GetCredits(c *gin.Context) {
	credits, err := l.catalog.GetCredits(c.Request.Context())
	if err != nil {
		respondProviderError(c, err)
		return
	}
	utils.RespondSuccess(c, credits, "Credits fetched successfully")
}

func respondProviderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, llm.ErrNotSupported):
		utils.RespondError(c, http.StatusNotImplemented, err.Error())
	case errors.Is(err, llm.ErrRateLimited):
		utils.RespondError(c, http.StatusTooManyRequests, "Provider rate limit reached")
	case errors.Is(err, llm.ErrAuthentication), errors.Is(err, llm.ErrServer), errors.Is(err, llm.ErrAPI):
		utils.RespondError(c, http.StatusBadGateway, "Provider request failed")
	default:
		utils.HandleServiceError(c, err)
	}
}
