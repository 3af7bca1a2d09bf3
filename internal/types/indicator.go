package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Indicator is a single compliance question under a governance area. Its
// form_schema describes the answer fields and which evidence sections they
// require. ParentID builds a display hierarchy only; completion and
// classification treat every indicator independently.
type Indicator struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	GovernanceAreaID uuid.UUID       `gorm:"type:uuid;not null;index" json:"governance_area_id"`
	GovernanceArea   *GovernanceArea `gorm:"foreignKey:GovernanceAreaID;references:ID" json:"governance_area,omitempty"`
	ParentID         *uuid.UUID      `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Code             string          `gorm:"index" json:"code"`
	Name             string          `gorm:"not null" json:"name"`
	Description      string          `json:"description"`
	FormSchema       datatypes.JSON  `gorm:"column:form_schema;type:jsonb" json:"form_schema"`
	DisplayOrder     int             `gorm:"column:display_order;not null;default:0" json:"display_order"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Indicator) TableName() string { return "indicator" }
