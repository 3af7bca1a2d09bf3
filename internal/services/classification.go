package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/barangaylink/sglgb-backend/internal/platform/dbctx"
	"github.com/barangaylink/sglgb-backend/internal/platform/logger"
	"github.com/barangaylink/sglgb-backend/internal/repos"
	"github.com/barangaylink/sglgb-backend/internal/types"
)

// The six SGLGB governance areas. All three core areas must pass, plus at
// least one essential area, for a barangay to be compliant.
var (
	CoreAreas = []string{
		"Financial Administration and Sustainability",
		"Disaster Preparedness",
		"Safety, Peace and Order",
	}
	EssentialAreas = []string{
		"Social Protection and Sensitivity",
		"Business-Friendliness and Competitiveness",
		"Environmental Management",
	}
)

// ApplyThreePlusOne reduces per-area verdicts to the final compliance
// status: Passed iff every core area passed and at least one essential area
// passed.
func ApplyThreePlusOne(core []bool, essential []bool) string {
	allCore := len(core) > 0
	for _, passed := range core {
		if !passed {
			allCore = false
			break
		}
	}
	anyEssential := false
	for _, passed := range essential {
		if passed {
			anyEssential = true
			break
		}
	}
	if allCore && anyEssential {
		return types.ComplianceStatusPassed
	}
	return types.ComplianceStatusFailed
}

type ClassificationResult struct {
	AssessmentID          uuid.UUID         `json:"assessment_id"`
	FinalComplianceStatus string            `json:"final_compliance_status"`
	AreaResults           map[string]string `json:"area_results"`
}

type ClassificationService interface {
	AreaCompliance(dbc dbctx.Context, assessmentID uuid.UUID, areaName string) (bool, error)
	AreaResults(dbc dbctx.Context, assessmentID uuid.UUID) (map[string]string, error)
	Classify(dbc dbctx.Context, assessmentID uuid.UUID) (*ClassificationResult, error)
}

type classificationService struct {
	db             *gorm.DB
	log            *logger.Logger
	assessmentRepo repos.AssessmentRepo
	areaRepo       repos.GovernanceAreaRepo
	indicatorRepo  repos.IndicatorRepo
	responseRepo   repos.ResponseRepo
}

func NewClassificationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	assessmentRepo repos.AssessmentRepo,
	areaRepo repos.GovernanceAreaRepo,
	indicatorRepo repos.IndicatorRepo,
	responseRepo repos.ResponseRepo,
) ClassificationService {
	serviceLog := baseLog.With("service", "ClassificationService")
	return &classificationService{
		db:             db,
		log:            serviceLog,
		assessmentRepo: assessmentRepo,
		areaRepo:       areaRepo,
		indicatorRepo:  indicatorRepo,
		responseRepo:   responseRepo,
	}
}

// AreaCompliance reports whether every indicator under the named area has a
// response validated as Pass. An unknown area or an area with no indicators
// fails; an indicator with no response fails the area.
func (s *classificationService) AreaCompliance(dbc dbctx.Context, assessmentID uuid.UUID, areaName string) (bool, error) {
	area, err := s.areaRepo.GetByName(dbc.Ctx, dbc.Tx, areaName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load governance area %q: %w", areaName, err)
	}

	indicators, err := s.indicatorRepo.GetByGovernanceAreaID(dbc.Ctx, dbc.Tx, area.ID)
	if err != nil {
		return false, fmt.Errorf("load indicators for area %q: %w", areaName, err)
	}
	if len(indicators) == 0 {
		return false, nil
	}

	for _, indicator := range indicators {
		response, err := s.responseRepo.GetByAssessmentAndIndicator(dbc.Ctx, dbc.Tx, assessmentID, indicator.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, nil
			}
			return false, fmt.Errorf("load response for indicator %s: %w", indicator.ID, err)
		}
		if response.ValidationStatus == nil || *response.ValidationStatus != types.ValidationStatusPass {
			return false, nil
		}
	}
	return true, nil
}

// AreaResults maps every governance area name to "Passed" or "Failed".
func (s *classificationService) AreaResults(dbc dbctx.Context, assessmentID uuid.UUID) (map[string]string, error) {
	results := make(map[string]string, len(CoreAreas)+len(EssentialAreas))
	for _, areaName := range append(append([]string{}, CoreAreas...), EssentialAreas...) {
		passed, err := s.AreaCompliance(dbc, assessmentID, areaName)
		if err != nil {
			return nil, err
		}
		if passed {
			results[areaName] = types.ComplianceStatusPassed
		} else {
			results[areaName] = types.ComplianceStatusFailed
		}
	}
	return results, nil
}

// Classify computes area verdicts, applies the 3+1 rule, and persists both
// onto the assessment row. Run it inside the finalization transaction so the
// verdict lands atomically with the status flip.
func (s *classificationService) Classify(dbc dbctx.Context, assessmentID uuid.UUID) (*ClassificationResult, error) {
	if _, err := s.assessmentRepo.GetByID(dbc.Ctx, dbc.Tx, assessmentID); err != nil {
		return nil, fmt.Errorf("load assessment %s: %w", assessmentID, err)
	}

	areaResults, err := s.AreaResults(dbc, assessmentID)
	if err != nil {
		return nil, err
	}

	core := make([]bool, 0, len(CoreAreas))
	for _, name := range CoreAreas {
		core = append(core, areaResults[name] == types.ComplianceStatusPassed)
	}
	essential := make([]bool, 0, len(EssentialAreas))
	for _, name := range EssentialAreas {
		essential = append(essential, areaResults[name] == types.ComplianceStatusPassed)
	}
	status := ApplyThreePlusOne(core, essential)

	rawResults, err := json.Marshal(areaResults)
	if err != nil {
		return nil, fmt.Errorf("marshal area results: %w", err)
	}
	if err := s.assessmentRepo.UpdateFields(dbc.Ctx, dbc.Tx, assessmentID, map[string]interface{}{
		"final_compliance_status": status,
		"area_results":            rawResults,
		"updated_at":              time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("persist classification: %w", err)
	}

	s.log.Info("Assessment classified",
		"assessment_id", assessmentID,
		"final_compliance_status", status,
	)
	return &ClassificationResult{
		AssessmentID:          assessmentID,
		FinalComplianceStatus: status,
		AreaResults:           areaResults,
	}, nil
}
