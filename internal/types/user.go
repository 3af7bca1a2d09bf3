package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleBLGUUser     = "blgu_user"
	RoleAreaAssessor = "area_assessor"
	RoleSystemAdmin  = "system_admin"
)

type User struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email            string     `gorm:"uniqueIndex;not null" json:"email"`
	Name             string     `gorm:"not null" json:"name"`
	HashedPassword   string     `gorm:"column:hashed_password;not null" json:"-"`
	Role             string     `gorm:"not null;default:'blgu_user'" json:"role"`
	BarangayID       *uuid.UUID `gorm:"type:uuid;index" json:"barangay_id,omitempty"`
	Barangay         *Barangay  `gorm:"foreignKey:BarangayID;references:ID" json:"barangay,omitempty"`
	GovernanceAreaID *uuid.UUID `gorm:"type:uuid;index" json:"governance_area_id,omitempty"`
	IsActive         bool       `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }
