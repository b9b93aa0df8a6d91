package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"nicetravel/internal/models/request_models"
	"nicetravel/internal/services"
	"nicetravel/pkg/utils"
)

type PlanController struct {
	planService services.PlanServiceInterface
}

func NewPlanController(planService services.PlanServiceInterface) *PlanController {
	return &PlanController{
		planService: planService,
	}
}

// ListPlans godoc
// @Summary List plans
// @Description Paginated list of the caller's plans
// @Tags Plans
// @Produce json
// @Param sort query string false "created_at.desc, created_at.asc, name.asc or name.desc" default(created_at.desc)
// @Param limit query int false "Page size" default(10) maximum(50)
// @Param offset query int false "Offset" default(0)
// @Param search query string false "Case-insensitive name filter"
// @Success 200 {object} utils.APIResponse{data=response_models.PlanListResponse}
// @Security BearerAuth
// @Router /plans [get]
func (p *PlanController) ListPlans(c *gin.Context) {
	var query request_models.ListPlansQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	plans, err := p.planService.ListPlans(c.Request.Context(), userID, query)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, plans, "Plans fetched successfully")
}

// CreatePlan godoc
// @Summary Create a plan
// @Tags Plans
// @Accept json
// @Produce json
// @Param request body request_models.PlanRequest true "Plan payload"
// @Success 201 {object} utils.APIResponse{data=response_models.PlanResponse}
// @Failure 400 {object} utils.APIResponse
// @Failure 422 {object} utils.APIResponse
// @Security BearerAuth
// @Router /plans [post]
func (p *PlanController) CreatePlan(c *gin.Context) {
	var req request_models.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	plan, err := p.planService.CreatePlan(c.Request.Context(), userID, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondWithStatus(c, http.StatusCreated, plan, "Plan created successfully")
}

// GetPlan godoc
// @Summary Get a plan with its places
// @Tags Plans
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} utils.APIResponse{data=response_models.PlanResponse}
// @Failure 404 {object} utils.APIResponse
// @Security BearerAuth
// @Router /plans/{id} [get]
func (p *PlanController) GetPlan(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	planID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	plan, err := p.planService.GetPlan(c.Request.Context(), userID, planID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, plan, "Plan fetched successfully")
}

// UpdatePlan godoc
// @Summary Update a plan
// @Description Any edit invalidates a generated itinerary and returns the plan to draft
// @Tags Plans
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param request body request_models.PlanRequest true "Plan payload"
// @Success 200 {object} utils.APIResponse{data=response_models.PlanResponse}
// @Failure 404 {object} utils.APIResponse
// @Failure 422 {object} utils.APIResponse
// @Security BearerAuth
// @Router /plans/{id} [put]
func (p *PlanController) UpdatePlan(c *gin.Context) {
	var req request_models.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	planID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	plan, err := p.planService.UpdatePlan(c.Request.Context(), userID, planID, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, plan, "Plan updated successfully")
}

// DeletePlan godoc
// @Summary Delete a plan
// @Tags Plans
// @Param id path string true "Plan ID"
// @Success 204
// @Failure 404 {object} utils.APIResponse
// @Security BearerAuth
// @Router /plans/{id} [delete]
func (p *PlanController) DeletePlan(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	planID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := p.planService.DeletePlan(c.Request.Context(), userID, planID); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListPlaces godoc
// @Summary List the places of a plan
// @Tags Places
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} utils.APIResponse{data=[]response_models.PlaceResponse}
// @Security BearerAuth
// @Router /plans/{id}/places [get]
func (p *PlanController) ListPlaces(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	planID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	places, err := p.planService.ListPlaces(c.Request.Context(), userID, planID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, places, "Places fetched successfully")
}

// CreatePlace godoc
// @Summary Add a place to a plan
// @Tags Places
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param request body request_models.PlaceRequest true "Place payload"
// @Success 201 {object} utils.APIResponse{data=response_models.PlaceResponse}
// @Failure 422 {object} utils.APIResponse
// @Security BearerAuth
// @Router /plans/{id}/places [post]
func (p *PlanController) CreatePlace(c *gin.Context) {
	var req request_models.PlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	planID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	place, err := p.planService.CreatePlace(c.Request.Context(), userID, planID, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondWithStatus(c, http.StatusCreated, place, "Place created successfully")
}

// UpdatePlace godoc
// @Summary Update a place
// @Tags Places
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param placeId path string true "Place ID"
// @Param request body request_models.PlaceRequest true "Place payload"
// @Success 200 {object} utils.APIResponse{data=response_models.PlaceResponse}
// @Security BearerAuth
// @Router /plans/{id}/places/{placeId} [put]
func (p *PlanController) UpdatePlace(c *gin.Context) {
	var req request_models.PlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	planID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	placeID, ok := uuidParam(c, "placeId")
	if !ok {
		return
	}

	place, err := p.planService.UpdatePlace(c.Request.Context(), userID, planID, placeID, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, place, "Place updated successfully")
}

// DeletePlace godoc
// @Summary Remove a place from a plan
// @Tags Places
// @Param id path string true "Plan ID"
// @Param placeId path string true "Place ID"
// @Success 204
// @Security BearerAuth
// @Router /plans/{id}/places/{placeId} [delete]
func (p *PlanController) DeletePlace(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	planID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	placeID, ok := uuidParam(c, "placeId")
	if !ok {
		return
	}

	if err := p.planService.DeletePlace(c.Request.Context(), userID, planID, placeID); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListTravelPreferences godoc
// @Summary List the predefined travel preferences
// @Tags Plans
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]response_models.TravelPreferenceResponse}
// @Router /travel-preferences [get]
func (p *PlanController) ListTravelPreferences(c *gin.Context) {
	prefs, err := p.planService.ListTravelPreferences(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, prefs, "Travel preferences fetched successfully")
}
