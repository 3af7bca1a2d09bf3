package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/barangaylink/sglgb-backend/internal/platform/apierr"
	"github.com/barangaylink/sglgb-backend/internal/platform/dbctx"
	"github.com/barangaylink/sglgb-backend/internal/platform/logger"
	"github.com/barangaylink/sglgb-backend/internal/repos"
	"github.com/barangaylink/sglgb-backend/internal/types"
)

type QueueItem struct {
	AssessmentID   uuid.UUID  `json:"assessment_id"`
	BarangayName   string     `json:"barangay_name"`
	Status         string     `json:"status"`
	SubmissionDate *time.Time `json:"submission_date,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type FinalizationResult struct {
	AssessmentID          uuid.UUID         `json:"assessment_id"`
	ValidatedAt           time.Time         `json:"validated_at"`
	FinalComplianceStatus string            `json:"final_compliance_status"`
	AreaResults           map[string]string `json:"area_results"`
}

// AssessorService covers the review side of the workflow: per-response
// verdicts with feedback, the one-shot rework cycle, and finalization with
// synchronous classification.
type AssessorService interface {
	GetQueue(ctx context.Context, assessor *types.User) ([]*QueueItem, error)
	ValidateResponse(ctx context.Context, assessor *types.User, responseID uuid.UUID, validationStatus, publicComment, internalNote string) error
	SendForRework(ctx context.Context, assessmentID uuid.UUID) (*types.Assessment, error)
	ListFeedback(ctx context.Context, viewer *types.User, responseID uuid.UUID) ([]*types.FeedbackComment, error)
	Finalize(ctx context.Context, assessmentID uuid.UUID) (*FinalizationResult, error)
}

type assessorService struct {
	db                *gorm.DB
	log               *logger.Logger
	assessmentRepo    repos.AssessmentRepo
	responseRepo      repos.ResponseRepo
	feedbackRepo      repos.FeedbackRepo
	classificationSvc ClassificationService
	notifier          NotifierService
	insightSvc        InsightService
}

func NewAssessorService(
	db *gorm.DB,
	baseLog *logger.Logger,
	assessmentRepo repos.AssessmentRepo,
	responseRepo repos.ResponseRepo,
	feedbackRepo repos.FeedbackRepo,
	classificationSvc ClassificationService,
	notifier NotifierService,
	insightSvc InsightService,
) AssessorService {
	serviceLog := baseLog.With("service", "AssessorService")
	return &assessorService{
		db:                db,
		log:               serviceLog,
		assessmentRepo:    assessmentRepo,
		responseRepo:      responseRepo,
		feedbackRepo:      feedbackRepo,
		classificationSvc: classificationSvc,
		notifier:          notifier,
		insightSvc:        insightSvc,
	}
}

func (s *assessorService) GetQueue(ctx context.Context, assessor *types.User) ([]*QueueItem, error) {
	if assessor.GovernanceAreaID == nil {
		return nil, apierr.Forbidden("assessor has no governance area assignment")
	}
	assessments, err := s.assessmentRepo.ListForGovernanceArea(ctx, nil, *assessor.GovernanceAreaID, []string{
		types.AssessmentStatusSubmittedForReview,
		types.AssessmentStatusNeedsRework,
		types.AssessmentStatusValidated,
	})
	if err != nil {
		return nil, fmt.Errorf("load assessor queue: %w", err)
	}

	items := make([]*QueueItem, 0, len(assessments))
	for _, a := range assessments {
		barangayName := "-"
		if a.BLGUUser != nil && a.BLGUUser.Barangay != nil {
			barangayName = a.BLGUUser.Barangay.Name
		}
		items = append(items, &QueueItem{
			AssessmentID:   a.ID,
			BarangayName:   barangayName,
			Status:         a.Status,
			SubmissionDate: a.SubmittedAt,
			UpdatedAt:      a.UpdatedAt,
		})
	}
	return items, nil
}

func validValidationStatus(status string) bool {
	switch status {
	case types.ValidationStatusPass, types.ValidationStatusFail, types.ValidationStatusConditional:
		return true
	default:
		return false
	}
}

// ValidateResponse records the assessor's verdict on one response together
// with any feedback, in a single transaction. The indicator must belong to
// the assessor's governance area.
func (s *assessorService) ValidateResponse(ctx context.Context, assessor *types.User, responseID uuid.UUID, validationStatus, publicComment, internalNote string) error {
	if !validValidationStatus(validationStatus) {
		return apierr.Validation("invalid validation status %q, must be Pass, Fail or Conditional", validationStatus)
	}

	response, err := s.responseRepo.GetByID(ctx, nil, responseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.NotFound("response %s not found", responseID)
		}
		return err
	}
	if response.Indicator == nil {
		return fmt.Errorf("response %s has no indicator loaded", responseID)
	}
	if assessor.GovernanceAreaID == nil || response.Indicator.GovernanceAreaID != *assessor.GovernanceAreaID {
		return apierr.Forbidden("you can only validate responses in your governance area")
	}

	assessment, err := s.assessmentRepo.GetByID(ctx, nil, response.AssessmentID)
	if err != nil {
		return fmt.Errorf("load assessment: %w", err)
	}
	if assessment.Status == types.AssessmentStatusValidated {
		return apierr.Precondition("assessment is validated, verdicts can no longer change")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.responseRepo.UpdateFields(ctx, tx, responseID, map[string]interface{}{
			"validation_status": validationStatus,
			"updated_at":        time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("update validation status: %w", err)
		}
		if publicComment != "" {
			if _, err := s.feedbackRepo.Create(ctx, tx, &types.FeedbackComment{
				ID:             uuid.New(),
				ResponseID:     responseID,
				AssessorID:     assessor.ID,
				Comment:        publicComment,
				CommentType:    types.CommentTypeFeedback,
				IsInternalNote: false,
			}); err != nil {
				return fmt.Errorf("create feedback comment: %w", err)
			}
		}
		if internalNote != "" {
			if _, err := s.feedbackRepo.Create(ctx, tx, &types.FeedbackComment{
				ID:             uuid.New(),
				ResponseID:     responseID,
				AssessorID:     assessor.ID,
				Comment:        internalNote,
				CommentType:    types.CommentTypeInternalNote,
				IsInternalNote: true,
			}); err != nil {
				return fmt.Errorf("create internal note: %w", err)
			}
		}
		return nil
	})
}

// ListFeedback returns the comments on a response. Internal notes are
// visible to assessors and admins only; BLGU users see public feedback on
// their own responses.
func (s *assessorService) ListFeedback(ctx context.Context, viewer *types.User, responseID uuid.UUID) ([]*types.FeedbackComment, error) {
	response, err := s.responseRepo.GetByID(ctx, nil, responseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("response %s not found", responseID)
		}
		return nil, err
	}
	if viewer.Role == types.RoleBLGUUser {
		assessment, err := s.assessmentRepo.GetByID(ctx, nil, response.AssessmentID)
		if err != nil {
			return nil, fmt.Errorf("load assessment: %w", err)
		}
		if assessment.BLGUUserID != viewer.ID {
			return nil, apierr.Forbidden("response belongs to another user")
		}
		return s.feedbackRepo.GetPublicByResponseIDs(ctx, nil, []uuid.UUID{responseID})
	}
	return s.feedbackRepo.GetByResponseID(ctx, nil, responseID)
}

// SendForRework returns a submitted assessment to the BLGU user. A single
// rework cycle is allowed per assessment; the second request fails.
func (s *assessorService) SendForRework(ctx context.Context, assessmentID uuid.UUID) (*types.Assessment, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assessment, err := s.assessmentRepo.GetByID(ctx, tx, assessmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("assessment %s not found", assessmentID)
			}
			return err
		}
		if assessment.Status == types.AssessmentStatusValidated {
			return apierr.Precondition("assessment is validated and can no longer be sent for rework")
		}
		if assessment.Status != types.AssessmentStatusSubmittedForReview {
			return apierr.Precondition("only submitted assessments can be sent for rework, current status: %s", assessment.Status)
		}
		if assessment.ReworkCount != 0 {
			return apierr.Precondition("assessment has already been sent for rework, cannot send again")
		}

		now := time.Now().UTC()
		if err := s.assessmentRepo.UpdateFields(ctx, tx, assessmentID, map[string]interface{}{
			"status":       types.AssessmentStatusNeedsRework,
			"rework_count": 1,
			"updated_at":   now,
		}); err != nil {
			return fmt.Errorf("update assessment: %w", err)
		}
		return s.responseRepo.MarkAllRequireRework(ctx, tx, assessmentID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Assessment sent for rework", "assessment_id", assessmentID)
	s.notifier.NotifyReworkRequested(ctx, assessmentID)

	return s.assessmentRepo.GetByID(ctx, nil, assessmentID)
}

// Finalize locks the assessment permanently. Every response needs a verdict
// first; classification runs inside the same transaction so the status flip
// and the compliance verdict land together or not at all.
func (s *assessorService) Finalize(ctx context.Context, assessmentID uuid.UUID) (*FinalizationResult, error) {
	var result *FinalizationResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assessment, err := s.assessmentRepo.GetByID(ctx, tx, assessmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("assessment %s not found", assessmentID)
			}
			return err
		}
		if assessment.Status == types.AssessmentStatusValidated {
			return apierr.Precondition("assessment is already finalized")
		}
		if assessment.Status == types.AssessmentStatusDraft {
			return apierr.Precondition("cannot finalize a draft assessment")
		}

		unreviewed, err := s.responseRepo.CountUnreviewed(ctx, tx, assessmentID)
		if err != nil {
			return fmt.Errorf("count unreviewed responses: %w", err)
		}
		if unreviewed > 0 {
			return apierr.Precondition("cannot finalize assessment, %d responses have not been reviewed", unreviewed)
		}

		now := time.Now().UTC()
		if err := s.assessmentRepo.UpdateFields(ctx, tx, assessmentID, map[string]interface{}{
			"status":       types.AssessmentStatusValidated,
			"validated_at": now,
			"updated_at":   now,
		}); err != nil {
			return fmt.Errorf("update assessment: %w", err)
		}

		classification, err := s.classificationSvc.Classify(dbctx.Context{Ctx: ctx, Tx: tx}, assessmentID)
		if err != nil {
			return fmt.Errorf("classify assessment: %w", err)
		}

		result = &FinalizationResult{
			AssessmentID:          assessmentID,
			ValidatedAt:           now,
			FinalComplianceStatus: classification.FinalComplianceStatus,
			AreaResults:           classification.AreaResults,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Assessment finalized",
		"assessment_id", assessmentID,
		"final_compliance_status", result.FinalComplianceStatus,
	)
	s.notifier.NotifyValidationComplete(ctx, assessmentID)
	if s.insightSvc != nil {
		s.insightSvc.GenerateAsync(assessmentID)
	}
	return result, nil
}
