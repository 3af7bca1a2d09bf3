package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/barangaylink/sglgb-backend/internal/platform/logger"
	"github.com/barangaylink/sglgb-backend/internal/types"
)

type MOVRepo interface {
	Create(ctx context.Context, tx *gorm.DB, mov *types.MOV) (*types.MOV, error)
	GetByID(ctx context.Context, tx *gorm.DB, movID uuid.UUID) (*types.MOV, error)
	GetByResponseID(ctx context.Context, tx *gorm.DB, responseID uuid.UUID) ([]*types.MOV, error)
	DeleteByID(ctx context.Context, tx *gorm.DB, movID uuid.UUID) error
}

type movRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMOVRepo(db *gorm.DB, baseLog *logger.Logger) MOVRepo {
	repoLog := baseLog.With("repo", "MOVRepo")
	return &movRepo{db: db, log: repoLog}
}

func (r *movRepo) Create(ctx context.Context, tx *gorm.DB, mov *types.MOV) (*types.MOV, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(mov).Error; err != nil {
		return nil, err
	}
	return mov, nil
}

func (r *movRepo) GetByID(ctx context.Context, tx *gorm.DB, movID uuid.UUID) (*types.MOV, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.MOV
	if err := transaction.WithContext(ctx).
		Where("id = ?", movID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *movRepo) GetByResponseID(ctx context.Context, tx *gorm.DB, responseID uuid.UUID) ([]*types.MOV, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.MOV
	if err := transaction.WithContext(ctx).
		Where("response_id = ? AND status = ?", responseID, types.MOVStatusUploaded).
		Order("uploaded_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteByID removes the evidence row for good. Callers must have deleted
// the stored object first; the ledger never keeps a row without its object.
func (r *movRepo) DeleteByID(ctx context.Context, tx *gorm.DB, movID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", movID).
		Delete(&types.MOV{}).Error
}
