package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	AssessmentStatusDraft              = "draft"
	AssessmentStatusSubmittedForReview = "submitted_for_review"
	AssessmentStatusNeedsRework        = "needs_rework"
	AssessmentStatusValidated          = "validated"
)

const (
	ComplianceStatusPassed = "Passed"
	ComplianceStatusFailed = "Failed"
)

// Assessment is the per-barangay compliance submission for one cycle. One
// row per BLGU user, created lazily on first access. Once validated the row
// is immutable except for the cached AI insights payload.
type Assessment struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BLGUUserID  uuid.UUID `gorm:"column:blgu_user_id;type:uuid;uniqueIndex;not null" json:"blgu_user_id"`
	BLGUUser    *User     `gorm:"foreignKey:BLGUUserID;references:ID" json:"blgu_user,omitempty"`
	Status      string    `gorm:"not null;default:'draft'" json:"status"`
	ReworkCount int       `gorm:"column:rework_count;not null;default:0" json:"rework_count"`

	// PerformanceYear is the SGLGB cycle being assessed, fixed at creation.
	PerformanceYear int `gorm:"column:performance_year;not null;default:0" json:"performance_year"`

	SubmittedAt *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	ValidatedAt *time.Time `gorm:"column:validated_at" json:"validated_at,omitempty"`

	FinalComplianceStatus *string        `gorm:"column:final_compliance_status" json:"final_compliance_status,omitempty"`
	AreaResults           datatypes.JSON `gorm:"column:area_results;type:jsonb" json:"area_results,omitempty"`
	AIInsights            datatypes.JSON `gorm:"column:ai_insights;type:jsonb" json:"ai_insights,omitempty"`

	Responses []*AssessmentResponse `gorm:"foreignKey:AssessmentID;references:ID" json:"responses,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Assessment) TableName() string { return "assessment" }
