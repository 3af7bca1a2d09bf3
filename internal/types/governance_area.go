package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	AreaTypeCore      = "core"
	AreaTypeEssential = "essential"
)

// GovernanceArea is one of the six fixed SGLGB areas. Three are core and
// three are essential; the set never changes within an assessment cycle.
type GovernanceArea struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"uniqueIndex;not null" json:"name"`
	AreaType     string    `gorm:"column:area_type;not null" json:"area_type"`
	DisplayOrder int       `gorm:"column:display_order;not null;default:0" json:"display_order"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (GovernanceArea) TableName() string { return "governance_area" }
