package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	CommentTypeFeedback     = "feedback"
	CommentTypeInternalNote = "internal_note"
)

// FeedbackComment is an append-only assessor remark on a response. Internal
// notes are visible to assessors only.
type FeedbackComment struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ResponseID     uuid.UUID `gorm:"type:uuid;not null;index" json:"response_id"`
	AssessorID     uuid.UUID `gorm:"column:assessor_id;type:uuid;not null" json:"assessor_id"`
	Comment        string    `gorm:"not null" json:"comment"`
	CommentType    string    `gorm:"column:comment_type;not null;default:'feedback'" json:"comment_type"`
	IsInternalNote bool      `gorm:"column:is_internal_note;not null;default:false" json:"is_internal_note"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (FeedbackComment) TableName() string { return "feedback_comment" }
