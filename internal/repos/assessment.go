package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/barangaylink/sglgb-backend/internal/platform/logger"
	"github.com/barangaylink/sglgb-backend/internal/types"
)

type AssessmentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, assessment *types.Assessment) (*types.Assessment, error)
	GetByID(ctx context.Context, tx *gorm.DB, assessmentID uuid.UUID) (*types.Assessment, error)
	GetByBLGUUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Assessment, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, assessmentID uuid.UUID, updates map[string]interface{}) error
	Touch(ctx context.Context, tx *gorm.DB, assessmentID uuid.UUID) error
	ListForGovernanceArea(ctx context.Context, tx *gorm.DB, areaID uuid.UUID, statuses []string) ([]*types.Assessment, error)
	ListValidated(ctx context.Context, tx *gorm.DB) ([]*types.Assessment, error)
}

type assessmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssessmentRepo(db *gorm.DB, baseLog *logger.Logger) AssessmentRepo {
	repoLog := baseLog.With("repo", "AssessmentRepo")
	return &assessmentRepo{db: db, log: repoLog}
}

func (r *assessmentRepo) Create(ctx context.Context, tx *gorm.DB, assessment *types.Assessment) (*types.Assessment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(assessment).Error; err != nil {
		return nil, err
	}
	return assessment, nil
}

func (r *assessmentRepo) GetByID(ctx context.Context, tx *gorm.DB, assessmentID uuid.UUID) (*types.Assessment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.Assessment
	if err := transaction.WithContext(ctx).
		Where("id = ?", assessmentID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *assessmentRepo) GetByBLGUUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Assessment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.Assessment
	if err := transaction.WithContext(ctx).
		Where("blgu_user_id = ?", userID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *assessmentRepo) UpdateFields(ctx context.Context, tx *gorm.DB, assessmentID uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Assessment{}).
		Where("id = ?", assessmentID).
		Updates(updates).Error
}

// Touch bumps updated_at so clients polling the assessment see evidence and
// response changes that do not modify the assessment row itself.
func (r *assessmentRepo) Touch(ctx context.Context, tx *gorm.DB, assessmentID uuid.UUID) error {
	return r.UpdateFields(ctx, tx, assessmentID, map[string]interface{}{
		"updated_at": time.Now().UTC(),
	})
}

// ListForGovernanceArea returns assessments having at least one response
// whose indicator belongs to the given area, in any of the given statuses.
// This is the assessor queue query.
func (r *assessmentRepo) ListForGovernanceArea(ctx context.Context, tx *gorm.DB, areaID uuid.UUID, statuses []string) ([]*types.Assessment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Assessment
	if len(statuses) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Preload("BLGUUser").
		Preload("BLGUUser.Barangay").
		Joins("JOIN assessment_response ON assessment_response.assessment_id = assessment.id").
		Joins("JOIN indicator ON indicator.id = assessment_response.indicator_id").
		Where("indicator.governance_area_id = ?", areaID).
		Where("assessment.status IN ?", statuses).
		Distinct("assessment.*").
		Order("assessment.updated_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *assessmentRepo) ListValidated(ctx context.Context, tx *gorm.DB) ([]*types.Assessment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Assessment
	if err := transaction.WithContext(ctx).
		Preload("BLGUUser").
		Where("status = ?", types.AssessmentStatusValidated).
		Order("validated_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
