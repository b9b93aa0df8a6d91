package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"nicetravel/internal/models/db_models"
)

var (
	// ErrJobActive is returned by ClaimJob when the plan already has a processing job.
	ErrJobActive = errors.New("generation job already processing")
	// ErrJobNotActive is returned when a terminal write targets a job that is no
	// longer processing, e.g. because the plan was edited meanwhile.
	ErrJobNotActive = errors.New("generation job is not processing")
)

// JobUpdate describes a partial update of a processing job. Nil fields are left untouched.
type JobUpdate struct {
	Status                 *db_models.GenerationStatus
	Content                datatypes.JSON
	ClearContent           bool
	EstimatedTimeRemaining *int
}

type GenerationJobRepository interface {
	FindLatestJob(ctx context.Context, planID uuid.UUID) (*db_models.GenerationJob, error)
	FindActiveJob(ctx context.Context, planID uuid.UUID) (*db_models.GenerationJob, error)
	FindLatestCompletedJob(ctx context.Context, planID uuid.UUID) (*db_models.GenerationJob, error)
	// ClaimJob resets the plan's job to processing or creates it. It fails with
	// ErrJobActive when a processing job already exists.
	ClaimJob(ctx context.Context, planID uuid.UUID, estimateSeconds int) (*db_models.GenerationJob, error)
	// UpdateJob applies update only while the job is processing and reports
	// whether a row was written.
	UpdateJob(ctx context.Context, jobID uuid.UUID, update JobUpdate) (bool, error)
	UpdateProgress(ctx context.Context, jobID uuid.UUID, remainingSeconds int) error
	// CompleteJob stores the content and flips the plan to generated atomically.
	CompleteJob(ctx context.Context, jobID, planID uuid.UUID, content datatypes.JSON, warnings []string) error
	FailJob(ctx context.Context, jobID uuid.UUID) error
	DeleteByPlan(ctx context.Context, planID uuid.UUID) error
}

type generationJobRepository struct {
	db *gorm.DB
}

func NewGenerationJobRepository(db *gorm.DB) GenerationJobRepository {
	return &generationJobRepository{db: db}
}

func (g *generationJobRepository) FindLatestJob(ctx context.Context, planID uuid.UUID) (*db_models.GenerationJob, error) {
	return g.findOne(ctx, "plan_id = ?", planID)
}

func (g *generationJobRepository) FindActiveJob(ctx context.Context, planID uuid.UUID) (*db_models.GenerationJob, error) {
	return g.findOne(ctx, "plan_id = ? AND status = ?", planID, db_models.GenerationStatusProcessing)
}

func (g *generationJobRepository) FindLatestCompletedJob(ctx context.Context, planID uuid.UUID) (*db_models.GenerationJob, error) {
	return g.findOne(ctx, "plan_id = ? AND status = ?", planID, db_models.GenerationStatusCompleted)
}

func (g *generationJobRepository) findOne(ctx context.Context, query string, args ...interface{}) (*db_models.GenerationJob, error) {
	var job db_models.GenerationJob
	err := g.db.WithContext(ctx).
		Where(query, args...).
		Order("created_at DESC").
		First(&job).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &job, nil
}

func (g *generationJobRepository) ClaimJob(ctx context.Context, planID uuid.UUID, estimateSeconds int) (*db_models.GenerationJob, error) {
	var job db_models.GenerationJob
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reset := tx.Model(&db_models.GenerationJob{}).
			Where("plan_id = ? AND status <> ?", planID, db_models.GenerationStatusProcessing).
			Updates(map[string]interface{}{
				"status":                   db_models.GenerationStatusProcessing,
				"content":                  nil,
				"warnings":                 nil,
				"estimated_time_remaining": estimateSeconds,
				"attempt":                  gorm.Expr("attempt + 1"),
			})
		if reset.Error != nil {
			return reset.Error
		}
		if reset.RowsAffected > 0 {
			return tx.First(&job, "plan_id = ?", planID).Error
		}

		job = db_models.GenerationJob{
			PlanID:                 planID,
			Status:                 db_models.GenerationStatusProcessing,
			EstimatedTimeRemaining: estimateSeconds,
			Attempt:                1,
		}
		created := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "plan_id"}},
			DoNothing: true,
		}).Create(&job)
		if created.Error != nil {
			return created.Error
		}
		if created.RowsAffected == 0 {
			return ErrJobActive
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (g *generationJobRepository) UpdateJob(ctx context.Context, jobID uuid.UUID, update JobUpdate) (bool, error) {
	values := map[string]interface{}{}
	if update.Status != nil {
		values["status"] = *update.Status
	}
	if update.ClearContent {
		values["content"] = nil
	} else if update.Content != nil {
		values["content"] = update.Content
	}
	if update.EstimatedTimeRemaining != nil {
		values["estimated_time_remaining"] = *update.EstimatedTimeRemaining
	}
	if len(values) == 0 {
		return false, nil
	}

	res := g.db.WithContext(ctx).
		Model(&db_models.GenerationJob{}).
		Where("id = ? AND status = ?", jobID, db_models.GenerationStatusProcessing).
		Updates(values)
	return res.RowsAffected > 0, res.Error
}

func (g *generationJobRepository) UpdateProgress(ctx context.Context, jobID uuid.UUID, remainingSeconds int) error {
	status := db_models.GenerationStatusProcessing
	_, err := g.UpdateJob(ctx, jobID, JobUpdate{
		Status:                 &status,
		EstimatedTimeRemaining: &remainingSeconds,
	})
	return err
}

func (g *generationJobRepository) CompleteJob(ctx context.Context, jobID, planID uuid.UUID, content datatypes.JSON, warnings []string) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&db_models.GenerationJob{}).
			Where("id = ? AND status = ?", jobID, db_models.GenerationStatusProcessing).
			Updates(map[string]interface{}{
				"status":                   db_models.GenerationStatusCompleted,
				"content":                  content,
				"warnings":                 pq.StringArray(warnings),
				"estimated_time_remaining": 0,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrJobNotActive
		}

		return tx.Model(&db_models.Plan{}).
			Where("id = ?", planID).
			Update("status", db_models.PlanStatusGenerated).Error
	})
}

func (g *generationJobRepository) FailJob(ctx context.Context, jobID uuid.UUID) error {
	status := db_models.GenerationStatusFailed
	remaining := 0
	written, err := g.UpdateJob(ctx, jobID, JobUpdate{
		Status:                 &status,
		ClearContent:           true,
		EstimatedTimeRemaining: &remaining,
	})
	if err != nil {
		return err
	}
	if !written {
		return ErrJobNotActive
	}
	return nil
}

func (g *generationJobRepository) DeleteByPlan(ctx context.Context, planID uuid.UUID) error {
	return g.db.WithContext(ctx).Where("plan_id = ?", planID).Delete(&db_models.GenerationJob{}).Error
}
