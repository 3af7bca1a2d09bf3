package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/barangaylink/sglgb-backend/internal/platform/logger"
	"github.com/barangaylink/sglgb-backend/internal/types"
)

type IndicatorRepo interface {
	Create(ctx context.Context, tx *gorm.DB, indicator *types.Indicator) (*types.Indicator, error)
	GetByID(ctx context.Context, tx *gorm.DB, indicatorID uuid.UUID) (*types.Indicator, error)
	GetByGovernanceAreaID(ctx context.Context, tx *gorm.DB, areaID uuid.UUID) ([]*types.Indicator, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Indicator, error)
}

type indicatorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIndicatorRepo(db *gorm.DB, baseLog *logger.Logger) IndicatorRepo {
	repoLog := baseLog.With("repo", "IndicatorRepo")
	return &indicatorRepo{db: db, log: repoLog}
}

func (r *indicatorRepo) Create(ctx context.Context, tx *gorm.DB, indicator *types.Indicator) (*types.Indicator, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(indicator).Error; err != nil {
		return nil, err
	}
	return indicator, nil
}

func (r *indicatorRepo) GetByID(ctx context.Context, tx *gorm.DB, indicatorID uuid.UUID) (*types.Indicator, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.Indicator
	if err := transaction.WithContext(ctx).
		Preload("GovernanceArea").
		Where("id = ?", indicatorID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *indicatorRepo) GetByGovernanceAreaID(ctx context.Context, tx *gorm.DB, areaID uuid.UUID) ([]*types.Indicator, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Indicator
	if err := transaction.WithContext(ctx).
		Where("governance_area_id = ?", areaID).
		Order("display_order ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *indicatorRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Indicator, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Indicator
	if err := transaction.WithContext(ctx).
		Preload("GovernanceArea").
		Order("display_order ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
