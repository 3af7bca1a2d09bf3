package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/barangaylink/sglgb-backend/internal/platform/apierr"
	"github.com/barangaylink/sglgb-backend/internal/platform/logger"
	"github.com/barangaylink/sglgb-backend/internal/repos"
	"github.com/barangaylink/sglgb-backend/internal/types"
)

type IndicatorCreateInput struct {
	GovernanceAreaID uuid.UUID
	Code             string
	Name             string
	Description      string
	FormSchema       map[string]interface{}
	DisplayOrder     int
}

// CatalogService serves the fixed governance areas and their indicators,
// plus admin-side indicator management.
type CatalogService interface {
	ListAreas(ctx context.Context) ([]*types.GovernanceArea, error)
	ListIndicators(ctx context.Context, areaID uuid.UUID) ([]*types.Indicator, error)
	CreateIndicator(ctx context.Context, input IndicatorCreateInput) (*types.Indicator, error)
}

type catalogService struct {
	db            *gorm.DB
	log           *logger.Logger
	areaRepo      repos.GovernanceAreaRepo
	indicatorRepo repos.IndicatorRepo
}

func NewCatalogService(
	db *gorm.DB,
	baseLog *logger.Logger,
	areaRepo repos.GovernanceAreaRepo,
	indicatorRepo repos.IndicatorRepo,
) CatalogService {
	serviceLog := baseLog.With("service", "CatalogService")
	return &catalogService{
		db:            db,
		log:           serviceLog,
		areaRepo:      areaRepo,
		indicatorRepo: indicatorRepo,
	}
}

func (s *catalogService) ListAreas(ctx context.Context) ([]*types.GovernanceArea, error) {
	return s.areaRepo.GetAll(ctx, nil)
}

func (s *catalogService) ListIndicators(ctx context.Context, areaID uuid.UUID) ([]*types.Indicator, error) {
	if _, err := s.areaRepo.GetByID(ctx, nil, areaID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("governance area %s not found", areaID)
		}
		return nil, err
	}
	return s.indicatorRepo.GetByGovernanceAreaID(ctx, nil, areaID)
}

func (s *catalogService) CreateIndicator(ctx context.Context, input IndicatorCreateInput) (*types.Indicator, error) {
	if input.Name == "" {
		return nil, apierr.Validation("indicator name is required")
	}
	if _, err := s.areaRepo.GetByID(ctx, nil, input.GovernanceAreaID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("governance area %s not found", input.GovernanceAreaID)
		}
		return nil, err
	}

	raw, err := marshalResponseData(input.FormSchema)
	if err != nil {
		return nil, apierr.Validation("form schema must be a JSON object: %v", err)
	}
	if _, err := ParseFormSchema(datatypes.JSON(raw)); err != nil {
		return nil, apierr.Validation("invalid form schema: %v", err)
	}

	indicator := &types.Indicator{
		ID:               uuid.New(),
		GovernanceAreaID: input.GovernanceAreaID,
		Code:             input.Code,
		Name:             input.Name,
		Description:      input.Description,
		FormSchema:       datatypes.JSON(raw),
		DisplayOrder:     input.DisplayOrder,
	}
	created, err := s.indicatorRepo.Create(ctx, nil, indicator)
	if err != nil {
		return nil, fmt.Errorf("create indicator: %w", err)
	}
	s.log.Info("Indicator created", "indicator_id", created.ID, "name", created.Name)
	return created, nil
}
