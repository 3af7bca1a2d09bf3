package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Barangay struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Municipality string    `json:"municipality"`
	Province     string    `json:"province"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Barangay) TableName() string { return "barangay" }
