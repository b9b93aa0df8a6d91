package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"nicetravel/internal/models/db_models"
)

type PlanListFilter struct {
	AccountID uuid.UUID
	Search    string
	SortField string // created_at or name
	SortAsc   bool
	Limit     int
	Offset    int
}

type PlanListItem struct {
	db_models.Plan
	PlacesCount int
}

type PlanRepository interface {
	FindPlan(ctx context.Context, planID uuid.UUID) (*db_models.Plan, error)
	FindPlanWithPlaces(ctx context.Context, planID uuid.UUID) (*db_models.Plan, error)
	UpdatePlanStatus(ctx context.Context, planID uuid.UUID, status db_models.PlanStatus) error
	ListPlans(ctx context.Context, filter PlanListFilter) ([]PlanListItem, int64, error)
	CreatePlan(ctx context.Context, plan *db_models.Plan) error
	// UpdatePlan saves the editable fields. Any generation job of the plan is
	// discarded and a generated plan goes back to draft; reset reports the latter.
	UpdatePlan(ctx context.Context, plan *db_models.Plan) (reset bool, err error)
	SoftDeletePlan(ctx context.Context, planID uuid.UUID) error

	FindPlace(ctx context.Context, planID, placeID uuid.UUID) (*db_models.Place, error)
	CreatePlace(ctx context.Context, place *db_models.Place) error
	UpdatePlace(ctx context.Context, place *db_models.Place) error
	DeletePlace(ctx context.Context, planID, placeID uuid.UUID) error
}

type planRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

func (p *planRepository) FindPlan(ctx context.Context, planID uuid.UUID) (*db_models.Plan, error) {

	var plan db_models.Plan
	err := p.db.WithContext(ctx).First(&plan, "id = ?", planID).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &plan, nil
}

func (p *planRepository) FindPlanWithPlaces(ctx context.Context, planID uuid.UUID) (*db_models.Plan, error) {

	var plan db_models.Plan
	err := p.db.WithContext(ctx).
		Preload("Places", func(db *gorm.DB) *gorm.DB {
			return db.Order("start_date ASC").Order("created_at ASC")
		}).
		First(&plan, "id = ?", planID).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &plan, nil
}

func (p *planRepository) UpdatePlanStatus(ctx context.Context, planID uuid.UUID, status db_models.PlanStatus) error {
	return p.db.WithContext(ctx).
		Model(&db_models.Plan{}).
		Where("id = ?", planID).
		Update("status", status).Error
}

func (p *planRepository) ListPlans(ctx context.Context, filter PlanListFilter) ([]PlanListItem, int64, error) {
	query := p.db.WithContext(ctx).
		Model(&db_models.Plan{}).
		Where("account_id = ?", filter.AccountID)
	if filter.Search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var plans []db_models.Plan
	err := query.
		Order(clause.OrderByColumn{Column: clause.Column{Name: filter.SortField}, Desc: !filter.SortAsc}).
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&plans).Error
	if err != nil {
		return nil, 0, err
	}
	if len(plans) == 0 {
		return []PlanListItem{}, total, nil
	}

	ids := make([]uuid.UUID, 0, len(plans))
	for _, plan := range plans {
		ids = append(ids, plan.ID)
	}

	var counts []struct {
		PlanID uuid.UUID
		Total  int
	}
	err = p.db.WithContext(ctx).
		Model(&db_models.Place{}).
		Select("plan_id, COUNT(*) AS total").
		Where("plan_id IN ?", ids).
		Group("plan_id").
		Scan(&counts).Error
	if err != nil {
		return nil, 0, err
	}

	byPlan := make(map[uuid.UUID]int, len(counts))
	for _, c := range counts {
		byPlan[c.PlanID] = c.Total
	}

	items := make([]PlanListItem, 0, len(plans))
	for _, plan := range plans {
		items = append(items, PlanListItem{Plan: plan, PlacesCount: byPlan[plan.ID]})
	}
	return items, total, nil
}

func (p *planRepository) CreatePlan(ctx context.Context, plan *db_models.Plan) error {
	return p.db.WithContext(ctx).Create(plan).Error
}

func (p *planRepository) UpdatePlan(ctx context.Context, plan *db_models.Plan) (bool, error) {
	reset := false
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current db_models.Plan
		if err := tx.First(&current, "id = ?", plan.ID).Error; err != nil {
			return err
		}

		status := current.Status
		if status == db_models.PlanStatusGenerated {
			status = db_models.PlanStatusDraft
			reset = true
		}

		if err := tx.Where("plan_id = ?", plan.ID).Delete(&db_models.GenerationJob{}).Error; err != nil {
			return err
		}

		plan.Status = status
		return tx.Model(&current).Updates(map[string]interface{}{
			"name":               plan.Name,
			"start_date":         plan.StartDate,
			"end_date":           plan.EndDate,
			"people_count":       plan.PeopleCount,
			"note":               plan.Note,
			"travel_preferences": plan.TravelPreferences,
			"status":             status,
		}).Error
	})
	return reset, err
}

func (p *planRepository) SoftDeletePlan(ctx context.Context, planID uuid.UUID) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("plan_id = ?", planID).Delete(&db_models.GenerationJob{}).Error; err != nil {
			return err
		}
		if err := tx.Where("plan_id = ?", planID).Delete(&db_models.Place{}).Error; err != nil {
			return err
		}
		return tx.Delete(&db_models.Plan{}, "id = ?", planID).Error
	})
}

func (p *planRepository) FindPlace(ctx context.Context, planID, placeID uuid.UUID) (*db_models.Place, error) {
	var place db_models.Place
	err := p.db.WithContext(ctx).First(&place, "id = ? AND plan_id = ?", placeID, planID).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &place, nil
}

func (p *planRepository) CreatePlace(ctx context.Context, place *db_models.Place) error {
	return p.db.WithContext(ctx).Create(place).Error
}

func (p *planRepository) UpdatePlace(ctx context.Context, place *db_models.Place) error {
	return p.db.WithContext(ctx).
		Model(&db_models.Place{}).
		Where("id = ? AND plan_id = ?", place.ID, place.PlanID).
		Updates(map[string]interface{}{
			"name":       place.Name,
			"start_date": place.StartDate,
			"end_date":   place.EndDate,
			"note":       place.Note,
		}).Error
}

func (p *planRepository) DeletePlace(ctx context.Context, planID, placeID uuid.UUID) error {
	return p.db.WithContext(ctx).Delete(&db_models.Place{}, "id = ? AND plan_id = ?", placeID, planID).Error
}

type TravelPreferenceRepository interface {
	ListAll(ctx context.Context) ([]db_models.TravelPreference, error)
}

type travelPreferenceRepository struct {
	db *gorm.DB
}

func NewTravelPreferenceRepository(db *gorm.DB) TravelPreferenceRepository {
	return &travelPreferenceRepository{db: db}
}

func (t *travelPreferenceRepository) ListAll(ctx context.Context) ([]db_models.TravelPreference, error) {
	var prefs []db_models.TravelPreference
	if err := t.db.WithContext(ctx).Order("name ASC").Find(&prefs).Error; err != nil {
		return nil, err
	}
	return prefs, nil
}
