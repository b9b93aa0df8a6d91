package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nicetravel/internal/models/db_models"
	"nicetravel/internal/models/request_models"
	"nicetravel/internal/models/response_models"
	"nicetravel/internal/repositories"
	"nicetravel/pkg/utils"
)

const (
	defaultPlanListLimit = 10
	maxPlanListLimit     = 50
)

var (
	errInvalidSort = utils.NewDomainError(utils.ErrValidation, "sort must be one of created_at.desc, created_at.asc, name.asc, name.desc")
	errInvalidDate = utils.NewDomainError(utils.ErrValidation, "Dates must use the YYYY-MM-DD format")
)

type PlanServiceInterface interface {
	ListPlans(ctx context.Context, userID uuid.UUID, query request_models.ListPlansQuery) (*response_models.PlanListResponse, error)
	CreatePlan(ctx context.Context, userID uuid.UUID, req request_models.PlanRequest) (*response_models.PlanResponse, error)
	GetPlan(ctx context.Context, userID, planID uuid.UUID) (*response_models.PlanResponse, error)
	UpdatePlan(ctx context.Context, userID, planID uuid.UUID, req request_models.PlanRequest) (*response_models.PlanResponse, error)
	DeletePlan(ctx context.Context, userID, planID uuid.UUID) error

	ListPlaces(ctx context.Context, userID, planID uuid.UUID) ([]response_models.PlaceResponse, error)
	CreatePlace(ctx context.Context, userID, planID uuid.UUID, req request_models.PlaceRequest) (*response_models.PlaceResponse, error)
	UpdatePlace(ctx context.Context, userID, planID, placeID uuid.UUID, req request_models.PlaceRequest) (*response_models.PlaceResponse, error)
	DeletePlace(ctx context.Context, userID, planID, placeID uuid.UUID) error

	ListTravelPreferences(ctx context.Context) ([]response_models.TravelPreferenceResponse, error)
}

type PlanService struct {
	planRepo       repositories.PlanRepository
	preferenceRepo repositories.TravelPreferenceRepository
	logger         *zap.Logger
}

func NewPlanService(planRepo repositories.PlanRepository, preferenceRepo repositories.TravelPreferenceRepository, logger *zap.Logger) PlanServiceInterface {
	return &PlanService{
		planRepo:       planRepo,
		preferenceRepo: preferenceRepo,
		logger:         logger.With(zap.String("component", "plan")),
	}
}

func (p *PlanService) ListPlans(ctx context.Context, userID uuid.UUID, query request_models.ListPlansQuery) (*response_models.PlanListResponse, error) {
	sort := query.Sort
	if sort == "" {
		sort = "created_at.desc"
	}
	field, order, ok := strings.Cut(sort, ".")
	if !ok || (field != "created_at" && field != "name") || (order != "asc" && order != "desc") {
		return nil, errInvalidSort
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultPlanListLimit
	}
	if limit > maxPlanListLimit {
		limit = maxPlanListLimit
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	items, total, err := p.planRepo.ListPlans(ctx, repositories.PlanListFilter{
		AccountID: userID,
		Search:    strings.TrimSpace(query.Search),
		SortField: field,
		SortAsc:   order == "asc",
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	plans := make([]response_models.PlanResponse, 0, len(items))
	for _, item := range items {
		resp := toPlanResponse(&item.Plan)
		resp.PlacesCount = item.PlacesCount
		plans = append(plans, resp)
	}
	return &response_models.PlanListResponse{Plans: plans, Total: total, Limit: limit, Offset: offset}, nil
}

func (p *PlanService) CreatePlan(ctx context.Context, userID uuid.UUID, req request_models.PlanRequest) (*response_models.PlanResponse, error) {
	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	plan := &db_models.Plan{
		AccountID:         userID,
		Name:              strings.TrimSpace(req.Name),
		StartDate:         &start,
		EndDate:           &end,
		PeopleCount:       req.PeopleCount,
		Note:              strings.TrimSpace(req.Note),
		TravelPreferences: strings.TrimSpace(req.TravelPreferences),
		Status:            db_models.PlanStatusDraft,
	}
	if err := p.planRepo.CreatePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	resp := toPlanResponse(plan)
	return &resp, nil
}

func (p *PlanService) GetPlan(ctx context.Context, userID, planID uuid.UUID) (*response_models.PlanResponse, error) {
	plan, err := p.ownedPlan(ctx, userID, planID, true)
	if err != nil {
		return nil, err
	}
	resp := toPlanResponse(plan)
	return &resp, nil
}

func (p *PlanService) UpdatePlan(ctx context.Context, userID, planID uuid.UUID, req request_models.PlanRequest) (*response_models.PlanResponse, error) {
	plan, err := p.ownedPlan(ctx, userID, planID, false)
	if err != nil {
		return nil, err
	}
	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	plan.Name = strings.TrimSpace(req.Name)
	plan.StartDate = &start
	plan.EndDate = &end
	plan.PeopleCount = req.PeopleCount
	plan.Note = strings.TrimSpace(req.Note)
	plan.TravelPreferences = strings.TrimSpace(req.TravelPreferences)

	reset, err := p.planRepo.UpdatePlan(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if reset {
		p.logger.Info("generated plan edited, reset to draft", zap.String("plan_id", planID.String()))
	}

	return p.GetPlan(ctx, userID, planID)
}

func (p *PlanService) DeletePlan(ctx context.Context, userID, planID uuid.UUID) error {
	if _, err := p.ownedPlan(ctx, userID, planID, false); err != nil {
		return err
	}
	if err := p.planRepo.SoftDeletePlan(ctx, planID); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return nil
}

func (p *PlanService) ListPlaces(ctx context.Context, userID, planID uuid.UUID) ([]response_models.PlaceResponse, error) {
	plan, err := p.ownedPlan(ctx, userID, planID, true)
	if err != nil {
		return nil, err
	}
	places := make([]response_models.PlaceResponse, 0, len(plan.Places))
	for i := range plan.Places {
		places = append(places, toPlaceResponse(&plan.Places[i]))
	}
	return places, nil
}

func (p *PlanService) CreatePlace(ctx context.Context, userID, planID uuid.UUID, req request_models.PlaceRequest) (*response_models.PlaceResponse, error) {
	plan, err := p.ownedPlan(ctx, userID, planID, false)
	if err != nil {
		return nil, err
	}
	start, end, err := placeDateRange(plan, req)
	if err != nil {
		return nil, err
	}

	place := &db_models.Place{
		PlanID:    planID,
		Name:      strings.TrimSpace(req.Name),
		StartDate: start,
		EndDate:   end,
		Note:      strings.TrimSpace(req.Note),
	}
	if err := p.planRepo.CreatePlace(ctx, place); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	resp := toPlaceResponse(place)
	return &resp, nil
}

func (p *PlanService) UpdatePlace(ctx context.Context, userID, planID, placeID uuid.UUID, req request_models.PlaceRequest) (*response_models.PlaceResponse, error) {
	plan, err := p.ownedPlan(ctx, userID, planID, false)
	if err != nil {
		return nil, err
	}
	place, err := p.planRepo.FindPlace(ctx, planID, placeID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if place == nil {
		return nil, utils.ErrPlaceNotFound
	}
	start, end, err := placeDateRange(plan, req)
	if err != nil {
		return nil, err
	}

	place.Name = strings.TrimSpace(req.Name)
	place.StartDate = start
	place.EndDate = end
	place.Note = strings.TrimSpace(req.Note)
	if err := p.planRepo.UpdatePlace(ctx, place); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	resp := toPlaceResponse(place)
	return &resp, nil
}

func (p *PlanService) DeletePlace(ctx context.Context, userID, planID, placeID uuid.UUID) error {
	if _, err := p.ownedPlan(ctx, userID, planID, false); err != nil {
		return err
	}
	place, err := p.planRepo.FindPlace(ctx, planID, placeID)
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if place == nil {
		return utils.ErrPlaceNotFound
	}
	if err := p.planRepo.DeletePlace(ctx, planID, placeID); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return nil
}

func (p *PlanService) ListTravelPreferences(ctx context.Context) ([]response_models.TravelPreferenceResponse, error) {
	prefs, err := p.preferenceRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	out := make([]response_models.TravelPreferenceResponse, 0, len(prefs))
	for _, pref := range prefs {
		out = append(out, response_models.TravelPreferenceResponse{ID: pref.ID.String(), Name: pref.Name})
	}
	return out, nil
}

// ownedPlan loads a plan of userID. Plans of other users are reported as not found.
func (p *PlanService) ownedPlan(ctx context.Context, userID, planID uuid.UUID, withPlaces bool) (*db_models.Plan, error) {
	var (
		plan *db_models.Plan
		err  error
	)
	if withPlaces {
		plan, err = p.planRepo.FindPlanWithPlaces(ctx, planID)
	} else {
		plan, err = p.planRepo.FindPlan(ctx, planID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if plan == nil || plan.AccountID != userID {
		return nil, utils.ErrPlanNotFound
	}
	return plan, nil
}

func parseDateRange(startRaw, endRaw string) (time.Time, time.Time, error) {
	start, err := utils.ParseDate(startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, errInvalidDate
	}
	end, err := utils.ParseDate(endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, errInvalidDate
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, utils.ErrInvalidDateRange
	}
	return start, end, nil
}

func placeDateRange(plan *db_models.Plan, req request_models.PlaceRequest) (time.Time, time.Time, error) {
	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if plan.StartDate == nil || plan.EndDate == nil {
		return time.Time{}, time.Time{}, utils.ErrPlanMissingDates
	}
	if start.Before(dateOnly(*plan.StartDate)) || end.After(dateOnly(*plan.EndDate)) {
		return time.Time{}, time.Time{}, utils.ErrPlaceOutsidePlan
	}
	return start, end, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func toPlanResponse(plan *db_models.Plan) response_models.PlanResponse {
	resp := response_models.PlanResponse{
		ID:                plan.ID.String(),
		Name:              plan.Name,
		PeopleCount:       plan.PeopleCount,
		Note:              plan.Note,
		TravelPreferences: plan.TravelPreferences,
		Status:            string(plan.Status),
		PlacesCount:       len(plan.Places),
		CreatedAt:         utils.FormatRFC3339(plan.CreatedAt),
		UpdatedAt:         utils.FormatRFC3339(plan.UpdatedAt),
	}
	if plan.StartDate != nil {
		resp.StartDate = utils.FormatDate(*plan.StartDate)
	}
	if plan.EndDate != nil {
		resp.EndDate = utils.FormatDate(*plan.EndDate)
	}
	for i := range plan.Places {
		resp.Places = append(resp.Places, toPlaceResponse(&plan.Places[i]))
	}
	return resp
}

func toPlaceResponse(place *db_models.Place) response_models.PlaceResponse {
	return response_models.PlaceResponse{
		ID:        place.ID.String(),
		PlanID:    place.PlanID.String(),
		Name:      place.Name,
		StartDate: utils.FormatDate(place.StartDate),
		EndDate:   utils.FormatDate(place.EndDate),
		Note:      place.Note,
		CreatedAt: utils.FormatRFC3339(place.CreatedAt),
		UpdatedAt: utils.FormatRFC3339(place.UpdatedAt),
	}
}
