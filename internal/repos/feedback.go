package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/barangaylink/sglgb-backend/internal/platform/logger"
	"github.com/barangaylink/sglgb-backend/internal/types"
)

type FeedbackRepo interface {
	Create(ctx context.Context, tx *gorm.DB, comment *types.FeedbackComment) (*types.FeedbackComment, error)
	GetByResponseID(ctx context.Context, tx *gorm.DB, responseID uuid.UUID) ([]*types.FeedbackComment, error)
	GetPublicByResponseIDs(ctx context.Context, tx *gorm.DB, responseIDs []uuid.UUID) ([]*types.FeedbackComment, error)
}

type feedbackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) FeedbackRepo {
	repoLog := baseLog.With("repo", "FeedbackRepo")
	return &feedbackRepo{db: db, log: repoLog}
}

func (r *feedbackRepo) Create(ctx context.Context, tx *gorm.DB, comment *types.FeedbackComment) (*types.FeedbackComment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

func (r *feedbackRepo) GetByResponseID(ctx context.Context, tx *gorm.DB, responseID uuid.UUID) ([]*types.FeedbackComment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.FeedbackComment
	if err := transaction.WithContext(ctx).
		Where("response_id = ?", responseID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *feedbackRepo) GetPublicByResponseIDs(ctx context.Context, tx *gorm.DB, responseIDs []uuid.UUID) ([]*types.FeedbackComment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.FeedbackComment
	if len(responseIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("response_id IN ? AND is_internal_note = ?", responseIDs, false).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
