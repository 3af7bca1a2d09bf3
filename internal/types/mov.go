package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	MOVStatusUploaded = "uploaded"
	MOVStatusDeleted  = "deleted"
)

// MOV is a Means of Verification: one evidence file attached to a response.
// The row exists only while the stored object exists; removal deletes the
// blob first and the row after, so a row never points at a missing object.
type MOV struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ResponseID       uuid.UUID `gorm:"type:uuid;not null;index" json:"response_id"`
	Filename         string    `gorm:"not null" json:"filename"`
	OriginalFilename string    `gorm:"column:original_filename" json:"original_filename"`
	FileSize         int64     `gorm:"column:file_size" json:"file_size"`
	ContentType      string    `gorm:"column:content_type" json:"content_type"`
	StoragePath      string    `gorm:"column:storage_path;not null" json:"storage_path"`
	Status           string    `gorm:"not null;default:'uploaded'" json:"status"`
	UploadedByID     uuid.UUID `gorm:"column:uploaded_by_id;type:uuid" json:"uploaded_by_id"`
	UploadedAt       time.Time `gorm:"column:uploaded_at;not null" json:"uploaded_at"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (MOV) TableName() string { return "mov" }
