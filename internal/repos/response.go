package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/barangaylink/sglgb-backend/internal/platform/logger"
	"github.com/barangaylink/sglgb-backend/internal/types"
)

type ResponseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, response *types.AssessmentResponse) (*types.AssessmentResponse, error)
	GetByID(ctx context.Context, tx *gorm.DB, responseID uuid.UUID) (*types.AssessmentResponse, error)
	GetByAssessmentAndIndicator(ctx context.Context, tx *gorm.DB, assessmentID, indicatorID uuid.UUID) (*types.AssessmentResponse, error)
	GetByAssessmentID(ctx context.Context, tx *gorm.DB, assessmentID uuid.UUID) ([]*types.AssessmentResponse, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, responseID uuid.UUID, updates map[string]interface{}) error
	MarkAllRequireRework(ctx context.Context, tx *gorm.DB, assessmentID uuid.UUID) error
	CountUnreviewed(ctx context.Context, tx *gorm.DB, assessmentID uuid.UUID) (int64, error)
}

type responseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResponseRepo(db *gorm.DB, baseLog *logger.Logger) ResponseRepo {
	repoLog := baseLog.With("repo", "ResponseRepo")
	return &responseRepo{db: db, log: repoLog}
}

func (r *responseRepo) Create(ctx context.Context, tx *gorm.DB, response *types.AssessmentResponse) (*types.AssessmentResponse, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(response).Error; err != nil {
		return nil, err
	}
	return response, nil
}

func (r *responseRepo) GetByID(ctx context.Context, tx *gorm.DB, responseID uuid.UUID) (*types.AssessmentResponse, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.AssessmentResponse
	if err := transaction.WithContext(ctx).
		Preload("Indicator").
		Preload("Indicator.GovernanceArea").
		Where("id = ?", responseID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *responseRepo) GetByAssessmentAndIndicator(ctx context.Context, tx *gorm.DB, assessmentID, indicatorID uuid.UUID) (*types.AssessmentResponse, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.AssessmentResponse
	if err := transaction.WithContext(ctx).
		Where("assessment_id = ? AND indicator_id = ?", assessmentID, indicatorID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *responseRepo) GetByAssessmentID(ctx context.Context, tx *gorm.DB, assessmentID uuid.UUID) ([]*types.AssessmentResponse, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.AssessmentResponse
	if err := transaction.WithContext(ctx).
		Preload("Indicator").
		Preload("Indicator.GovernanceArea").
		Preload("MOVs", "status = ?", types.MOVStatusUploaded).
		Where("assessment_id = ?", assessmentID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *responseRepo) UpdateFields(ctx context.Context, tx *gorm.DB, responseID uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.AssessmentResponse{}).
		Where("id = ?", responseID).
		Updates(updates).Error
}

func (r *responseRepo) MarkAllRequireRework(ctx context.Context, tx *gorm.DB, assessmentID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.AssessmentResponse{}).
		Where("assessment_id = ?", assessmentID).
		Update("requires_rework", true).Error
}

func (r *responseRepo) CountUnreviewed(ctx context.Context, tx *gorm.DB, assessmentID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.AssessmentResponse{}).
		Where("assessment_id = ? AND validation_status IS NULL", assessmentID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
