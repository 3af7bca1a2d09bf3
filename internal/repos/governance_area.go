package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/barangaylink/sglgb-backend/internal/platform/logger"
	"github.com/barangaylink/sglgb-backend/internal/types"
)

type GovernanceAreaRepo interface {
	Create(ctx context.Context, tx *gorm.DB, area *types.GovernanceArea) (*types.GovernanceArea, error)
	GetByID(ctx context.Context, tx *gorm.DB, areaID uuid.UUID) (*types.GovernanceArea, error)
	GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.GovernanceArea, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.GovernanceArea, error)
}

type governanceAreaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGovernanceAreaRepo(db *gorm.DB, baseLog *logger.Logger) GovernanceAreaRepo {
	repoLog := baseLog.With("repo", "GovernanceAreaRepo")
	return &governanceAreaRepo{db: db, log: repoLog}
}

func (r *governanceAreaRepo) Create(ctx context.Context, tx *gorm.DB, area *types.GovernanceArea) (*types.GovernanceArea, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(area).Error; err != nil {
		return nil, err
	}
	return area, nil
}

func (r *governanceAreaRepo) GetByID(ctx context.Context, tx *gorm.DB, areaID uuid.UUID) (*types.GovernanceArea, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.GovernanceArea
	if err := transaction.WithContext(ctx).
		Where("id = ?", areaID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *governanceAreaRepo) GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.GovernanceArea, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.GovernanceArea
	if err := transaction.WithContext(ctx).
		Where("name = ?", name).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *governanceAreaRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.GovernanceArea, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.GovernanceArea
	if err := transaction.WithContext(ctx).
		Order("display_order ASC, name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
