package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ValidationStatusPass        = "Pass"
	ValidationStatusFail        = "Fail"
	ValidationStatusConditional = "Conditional"
)

// AssessmentResponse is the answer payload for one indicator within an
// assessment. IsCompleted is derived state: it is recomputed inside the same
// transaction as every mutation that can change it and never accepted from
// callers.
type AssessmentResponse struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AssessmentID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_response_assessment_indicator" json:"assessment_id"`
	IndicatorID  uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_response_assessment_indicator" json:"indicator_id"`
	Indicator    *Indicator     `gorm:"foreignKey:IndicatorID;references:ID" json:"indicator,omitempty"`
	ResponseData datatypes.JSON `gorm:"column:response_data;type:jsonb" json:"response_data"`

	IsCompleted      bool    `gorm:"column:is_completed;not null;default:false" json:"is_completed"`
	RequiresRework   bool    `gorm:"column:requires_rework;not null;default:false" json:"requires_rework"`
	ValidationStatus *string `gorm:"column:validation_status" json:"validation_status,omitempty"`

	MOVs             []*MOV             `gorm:"foreignKey:ResponseID;references:ID" json:"movs,omitempty"`
	FeedbackComments []*FeedbackComment `gorm:"foreignKey:ResponseID;references:ID" json:"feedback_comments,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (AssessmentResponse) TableName() string { return "assessment_response" }
