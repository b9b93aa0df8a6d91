package db_models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GenerationStatus string

const (
	GenerationStatusProcessing GenerationStatus = "processing"
	GenerationStatusCompleted  GenerationStatus = "completed"
	GenerationStatusFailed     GenerationStatus = "failed"
)

func (s GenerationStatus) IsTerminal() bool {
	return s == GenerationStatusCompleted || s == GenerationStatusFailed
}

// GenerationJob is the single live generation record of a plan. Rows are
// hard-deleted so the plan_id unique index stays usable.
type GenerationJob struct {
	ID                     uuid.UUID        `gorm:"type:uuid;primaryKey"`
	PlanID                 uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex"`
	Status                 GenerationStatus `gorm:"size:16;not null;index"`
	EstimatedTimeRemaining int              `gorm:"not null;default:0"`
	Content                datatypes.JSON   `gorm:"type:jsonb"`
	Warnings               pq.StringArray   `gorm:"type:text"`
	Attempt                int              `gorm:"not null;default:1"`
	CreatedAt              int64            `gorm:"autoCreateTime"`
	UpdatedAt              int64            `gorm:"autoUpdateTime"`
}

func (j *GenerationJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	now := time.Now().Unix()
	j.CreatedAt = now
	j.UpdatedAt = now
	return nil
}
