package db_models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel carries the id, unix-second timestamps and soft delete shared by
// accounts, plans and places.
type BaseModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	CreatedAt int64          `gorm:"autoCreateTime"`
	UpdatedAt int64          `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// BeforeCreate assigns a random id to rows created without one. Timestamps are
// filled by gorm from the autoCreateTime/autoUpdateTime tags.
func (b *BaseModel) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
