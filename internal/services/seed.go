package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/barangaylink/sglgb-backend/internal/platform/logger"
	"github.com/barangaylink/sglgb-backend/internal/repos"
	"github.com/barangaylink/sglgb-backend/internal/types"
)

// SeedGovernanceAreas creates the fixed SGLGB governance areas if they do
// not exist yet. Safe to run on every startup.
func SeedGovernanceAreas(ctx context.Context, db *gorm.DB, log *logger.Logger, areaRepo repos.GovernanceAreaRepo) error {
	seed := make([]struct {
		name     string
		areaType string
	}, 0, len(CoreAreas)+len(EssentialAreas))
	for _, name := range CoreAreas {
		seed = append(seed, struct {
			name     string
			areaType string
		}{name, types.AreaTypeCore})
	}
	for _, name := range EssentialAreas {
		seed = append(seed, struct {
			name     string
			areaType string
		}{name, types.AreaTypeEssential})
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, entry := range seed {
			_, err := areaRepo.GetByName(ctx, tx, entry.name)
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("look up governance area %q: %w", entry.name, err)
			}
			area := &types.GovernanceArea{
				ID:           uuid.New(),
				Name:         entry.name,
				AreaType:     entry.areaType,
				DisplayOrder: i + 1,
			}
			if _, err := areaRepo.Create(ctx, tx, area); err != nil {
				return fmt.Errorf("create governance area %q: %w", entry.name, err)
			}
			log.Info("Governance area seeded", "name", entry.name, "area_type", entry.areaType)
		}
		return nil
	})
}
