package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/barangaylink/sglgb-backend/internal/platform/apierr"
	"github.com/barangaylink/sglgb-backend/internal/platform/dbctx"
	"github.com/barangaylink/sglgb-backend/internal/platform/logger"
	"github.com/barangaylink/sglgb-backend/internal/repos"
	"github.com/barangaylink/sglgb-backend/internal/types"
)

type SubmissionViolation struct {
	IndicatorID   uuid.UUID `json:"indicator_id"`
	IndicatorName string    `json:"indicator_name"`
	Reason        string    `json:"reason"`
}

type SubmissionValidation struct {
	IsValid    bool                  `json:"is_valid"`
	Violations []SubmissionViolation `json:"violations"`
}

type AssessmentService interface {
	GetOrCreateForUser(ctx context.Context, blguUserID uuid.UUID) (*types.Assessment, error)
	GetByID(ctx context.Context, assessmentID uuid.UUID) (*types.Assessment, error)
	GetWithResponses(ctx context.Context, assessmentID uuid.UUID) (*types.Assessment, []*types.AssessmentResponse, error)
	GetResponse(ctx context.Context, responseID uuid.UUID) (*types.AssessmentResponse, error)
	CreateResponse(ctx context.Context, assessmentID, indicatorID uuid.UUID, data map[string]interface{}) (*types.AssessmentResponse, error)
	UpdateResponse(ctx context.Context, responseID uuid.UUID, data map[string]interface{}) (*types.AssessmentResponse, error)
	Submit(ctx context.Context, assessmentID uuid.UUID) (*SubmissionValidation, error)
	ListValidated(ctx context.Context) ([]*types.Assessment, error)
	RecomputeCompletion(dbc dbctx.Context, responseID uuid.UUID) (bool, error)
}

type assessmentService struct {
	db              *gorm.DB
	log             *logger.Logger
	assessmentRepo  repos.AssessmentRepo
	responseRepo    repos.ResponseRepo
	indicatorRepo   repos.IndicatorRepo
	movRepo         repos.MOVRepo
	performanceYear int
}

func NewAssessmentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	assessmentRepo repos.AssessmentRepo,
	responseRepo repos.ResponseRepo,
	indicatorRepo repos.IndicatorRepo,
	movRepo repos.MOVRepo,
	performanceYear int,
) AssessmentService {
	serviceLog := baseLog.With("service", "AssessmentService")
	return &assessmentService{
		db:              db,
		log:             serviceLog,
		assessmentRepo:  assessmentRepo,
		responseRepo:    responseRepo,
		indicatorRepo:   indicatorRepo,
		movRepo:         movRepo,
		performanceYear: performanceYear,
	}
}

// GetOrCreateForUser returns the BLGU user's assessment, creating the draft
// row on first access. One assessment per user per cycle.
func (s *assessmentService) GetOrCreateForUser(ctx context.Context, blguUserID uuid.UUID) (*types.Assessment, error) {
	existing, err := s.assessmentRepo.GetByBLGUUserID(ctx, nil, blguUserID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load assessment for user: %w", err)
	}

	assessment := &types.Assessment{
		ID:              uuid.New(),
		BLGUUserID:      blguUserID,
		Status:          types.AssessmentStatusDraft,
		PerformanceYear: s.performanceYear,
	}
	created, err := s.assessmentRepo.Create(ctx, nil, assessment)
	if err != nil {
		// A concurrent first access can win the unique index race; fall
		// back to reading the winner's row.
		if fallback, ferr := s.assessmentRepo.GetByBLGUUserID(ctx, nil, blguUserID); ferr == nil {
			return fallback, nil
		}
		return nil, fmt.Errorf("create assessment: %w", err)
	}
	s.log.Info("Assessment created",
		"assessment_id", created.ID,
		"blgu_user_id", blguUserID,
		"performance_year", created.PerformanceYear,
	)
	return created, nil
}

func (s *assessmentService) GetByID(ctx context.Context, assessmentID uuid.UUID) (*types.Assessment, error) {
	assessment, err := s.assessmentRepo.GetByID(ctx, nil, assessmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("assessment %s not found", assessmentID)
		}
		return nil, err
	}
	return assessment, nil
}

func (s *assessmentService) GetWithResponses(ctx context.Context, assessmentID uuid.UUID) (*types.Assessment, []*types.AssessmentResponse, error) {
	assessment, err := s.GetByID(ctx, assessmentID)
	if err != nil {
		return nil, nil, err
	}
	responses, err := s.responseRepo.GetByAssessmentID(ctx, nil, assessmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("load responses: %w", err)
	}
	return assessment, responses, nil
}

func (s *assessmentService) GetResponse(ctx context.Context, responseID uuid.UUID) (*types.AssessmentResponse, error) {
	response, err := s.responseRepo.GetByID(ctx, nil, responseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("response %s not found", responseID)
		}
		return nil, err
	}
	return response, nil
}

// requireEditable rejects mutations outside the draft and needs-rework
// states. Validated assessments are immutable for good.
func requireEditable(assessment *types.Assessment) error {
	switch assessment.Status {
	case types.AssessmentStatusDraft, types.AssessmentStatusNeedsRework:
		return nil
	case types.AssessmentStatusValidated:
		return apierr.Precondition("assessment is validated and can no longer be modified")
	default:
		return apierr.Precondition("assessment cannot be modified while in status %q", assessment.Status)
	}
}

// CreateResponse creates the response row for (assessment, indicator), or
// returns the existing one. Idempotent so the frontend can blindly ensure a
// row exists before editing.
func (s *assessmentService) CreateResponse(ctx context.Context, assessmentID, indicatorID uuid.UUID, data map[string]interface{}) (*types.AssessmentResponse, error) {
	assessment, err := s.GetByID(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	if err := requireEditable(assessment); err != nil {
		return nil, err
	}

	if existing, err := s.responseRepo.GetByAssessmentAndIndicator(ctx, nil, assessmentID, indicatorID); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup response: %w", err)
	}

	indicator, err := s.indicatorRepo.GetByID(ctx, nil, indicatorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("indicator %s not found", indicatorID)
		}
		return nil, err
	}

	raw, err := marshalResponseData(data)
	if err != nil {
		return nil, err
	}
	schema, err := ParseFormSchema(indicator.FormSchema)
	if err != nil {
		return nil, apierr.Validation("indicator %s has an invalid form schema: %v", indicatorID, err)
	}

	response := &types.AssessmentResponse{
		ID:           uuid.New(),
		AssessmentID: assessmentID,
		IndicatorID:  indicatorID,
		ResponseData: raw,
		IsCompleted:  EvaluateCompletion(schema, data, nil),
	}
	created, err := s.responseRepo.Create(ctx, nil, response)
	if err != nil {
		return nil, fmt.Errorf("create response: %w", err)
	}
	return created, nil
}

// UpdateResponse validates the payload against the indicator's form schema,
// persists it, and recomputes completion in the same transaction.
func (s *assessmentService) UpdateResponse(ctx context.Context, responseID uuid.UUID, data map[string]interface{}) (*types.AssessmentResponse, error) {
	response, err := s.responseRepo.GetByID(ctx, nil, responseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("response %s not found", responseID)
		}
		return nil, err
	}
	assessment, err := s.GetByID(ctx, response.AssessmentID)
	if err != nil {
		return nil, err
	}
	if err := requireEditable(assessment); err != nil {
		return nil, err
	}
	if response.Indicator == nil {
		return nil, fmt.Errorf("response %s has no indicator loaded", responseID)
	}

	schema, err := ParseFormSchema(response.Indicator.FormSchema)
	if err != nil {
		return nil, apierr.Validation("indicator %s has an invalid form schema: %v", response.IndicatorID, err)
	}
	if validationErrs := schema.Validate(data); len(validationErrs) > 0 {
		return nil, apierr.Validation("response data validation failed: %s", strings.Join(validationErrs, ", "))
	}

	raw, err := marshalResponseData(data)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		movs, err := s.movRepo.GetByResponseID(ctx, tx, responseID)
		if err != nil {
			return fmt.Errorf("load movs: %w", err)
		}
		completed := EvaluateCompletion(schema, data, movs)
		if err := s.responseRepo.UpdateFields(ctx, tx, responseID, map[string]interface{}{
			"response_data": raw,
			"is_completed":  completed,
			"updated_at":    time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("update response: %w", err)
		}
		return s.assessmentRepo.Touch(ctx, tx, response.AssessmentID)
	})
	if err != nil {
		return nil, err
	}

	return s.responseRepo.GetByID(ctx, nil, responseID)
}

// Submit runs the submission gate and, only when it passes, flips the
// assessment to submitted-for-review. A failing gate reports every violation
// and leaves all state untouched.
func (s *assessmentService) Submit(ctx context.Context, assessmentID uuid.UUID) (*SubmissionValidation, error) {
	var result *SubmissionValidation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assessment, err := s.assessmentRepo.GetByID(ctx, tx, assessmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("assessment %s not found", assessmentID)
			}
			return err
		}
		if assessment.Status != types.AssessmentStatusDraft && assessment.Status != types.AssessmentStatusNeedsRework {
			return apierr.Precondition(
				"assessment must be in draft or needs_rework status to submit, current status: %s",
				assessment.Status,
			)
		}

		responses, err := s.responseRepo.GetByAssessmentID(ctx, tx, assessmentID)
		if err != nil {
			return fmt.Errorf("load responses: %w", err)
		}

		violations := runSubmissionGate(responses)
		result = &SubmissionValidation{IsValid: len(violations) == 0, Violations: violations}
		if !result.IsValid {
			s.log.Info("Submission gate rejected assessment",
				"assessment_id", assessmentID,
				"violation_count", len(violations),
			)
			return nil
		}

		now := time.Now().UTC()
		if err := s.assessmentRepo.UpdateFields(ctx, tx, assessmentID, map[string]interface{}{
			"status":       types.AssessmentStatusSubmittedForReview,
			"submitted_at": now,
			"updated_at":   now,
		}); err != nil {
			return fmt.Errorf("update assessment status: %w", err)
		}
		s.log.Info("Assessment submitted for review", "assessment_id", assessmentID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// runSubmissionGate flags every response claiming compliance without
// evidence. Responses with empty payloads are skipped.
func runSubmissionGate(responses []*types.AssessmentResponse) []SubmissionViolation {
	violations := []SubmissionViolation{}
	for _, response := range responses {
		data := decodeResponseData(response.ResponseData)
		if len(data) == 0 {
			continue
		}
		if HasYesAnswer(data) && len(response.MOVs) == 0 {
			name := ""
			if response.Indicator != nil {
				name = response.Indicator.Name
			}
			violations = append(violations, SubmissionViolation{
				IndicatorID:   response.IndicatorID,
				IndicatorName: name,
				Reason:        "YES answer requires Means of Verification (MOV)",
			})
		}
	}
	return violations
}

func (s *assessmentService) ListValidated(ctx context.Context) ([]*types.Assessment, error) {
	return s.assessmentRepo.ListValidated(ctx, nil)
}

// RecomputeCompletion re-derives is_completed from the current payload and
// evidence. Callers mutating evidence must invoke it inside their own
// transaction via dbc.Tx.
func (s *assessmentService) RecomputeCompletion(dbc dbctx.Context, responseID uuid.UUID) (bool, error) {
	response, err := s.responseRepo.GetByID(dbc.Ctx, dbc.Tx, responseID)
	if err != nil {
		return false, fmt.Errorf("load response: %w", err)
	}
	if response.Indicator == nil {
		return false, fmt.Errorf("response %s has no indicator loaded", responseID)
	}
	schema, err := ParseFormSchema(response.Indicator.FormSchema)
	if err != nil {
		return false, fmt.Errorf("parse form schema: %w", err)
	}
	movs, err := s.movRepo.GetByResponseID(dbc.Ctx, dbc.Tx, responseID)
	if err != nil {
		return false, fmt.Errorf("load movs: %w", err)
	}

	completed := EvaluateCompletion(schema, decodeResponseData(response.ResponseData), movs)
	if completed == response.IsCompleted {
		return completed, nil
	}
	if err := s.responseRepo.UpdateFields(dbc.Ctx, dbc.Tx, responseID, map[string]interface{}{
		"is_completed": completed,
		"updated_at":   time.Now().UTC(),
	}); err != nil {
		return false, fmt.Errorf("update completion: %w", err)
	}
	return completed, nil
}

func marshalResponseData(data map[string]interface{}) ([]byte, error) {
	if data == nil {
		data = map[string]interface{}{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, apierr.Validation("response data must be a JSON object: %v", err)
	}
	return raw, nil
}

func decodeResponseData(raw []byte) map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil
	}
	return data
}
