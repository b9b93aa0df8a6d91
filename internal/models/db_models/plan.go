package db_models

import (
	"time"

	"github.com/google/uuid"
)

type PlanStatus string

const (
	PlanStatusDraft     PlanStatus = "draft"
	PlanStatusGenerated PlanStatus = "generated"
)

type Plan struct {
	BaseModel
	AccountID         uuid.UUID  `gorm:"type:uuid;not null;index"`
	Name              string     `gorm:"size:100;not null"`
	StartDate         *time.Time `gorm:"type:date"`
	EndDate           *time.Time `gorm:"type:date"`
	PeopleCount       int        `gorm:"not null;default:1"`
	Note              string     `gorm:"type:text"`
	TravelPreferences string     `gorm:"type:text"`
	Status            PlanStatus `gorm:"size:16;not null;default:draft;index"`
	Places            []Place    `gorm:"foreignKey:PlanID"`
}

type Place struct {
	BaseModel
	PlanID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"size:255;not null"`
	StartDate time.Time `gorm:"type:date;not null"`
	EndDate   time.Time `gorm:"type:date;not null"`
	Note      string    `gorm:"type:text"`
}

// TravelPreference is an entry of the static preference catalogue.
type TravelPreference struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name string    `gorm:"size:100;uniqueIndex;not null"`
}
