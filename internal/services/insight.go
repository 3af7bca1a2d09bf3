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
	"github.com/barangaylink/sglgb-backend/internal/platform/gemini"
	"github.com/barangaylink/sglgb-backend/internal/platform/logger"
	"github.com/barangaylink/sglgb-backend/internal/repos"
	"github.com/barangaylink/sglgb-backend/internal/types"
)

type Insight struct {
	Summary         string    `json:"summary"`
	Recommendations []string  `json:"recommendations"`
	CapacityNeeds   []string  `json:"capacity_needs"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// InsightService produces AI-generated improvement guidance for validated
// assessments. Results are cached on the assessment row; the model is
// called at most once per assessment.
type InsightService interface {
	GetOrGenerate(ctx context.Context, assessmentID uuid.UUID) (*Insight, error)
	GenerateAsync(assessmentID uuid.UUID)
}

type insightService struct {
	db             *gorm.DB
	log            *logger.Logger
	client         gemini.Client
	assessmentRepo repos.AssessmentRepo
	responseRepo   repos.ResponseRepo
	feedbackRepo   repos.FeedbackRepo
	maxRetries     int
	retryDelay     time.Duration
}

func NewInsightService(
	db *gorm.DB,
	baseLog *logger.Logger,
	client gemini.Client,
	assessmentRepo repos.AssessmentRepo,
	responseRepo repos.ResponseRepo,
	feedbackRepo repos.FeedbackRepo,
	maxRetries int,
	retryDelay time.Duration,
) InsightService {
	serviceLog := baseLog.With("service", "InsightService")
	return &insightService{
		db:             db,
		log:            serviceLog,
		client:         client,
		assessmentRepo: assessmentRepo,
		responseRepo:   responseRepo,
		feedbackRepo:   feedbackRepo,
		maxRetries:     maxRetries,
		retryDelay:     retryDelay,
	}
}

const insightSystemPrompt = `You are an advisor for Philippine barangay governance under the SGLGB program.
Given a barangay's failed compliance indicators and assessor feedback, respond with a JSON object:
{"summary": string, "recommendations": [string], "capacity_needs": [string]}.
Summary is two to three sentences. Recommendations are concrete actions the barangay can take.
Capacity needs are trainings or resources the barangay likely lacks.`

// GetOrGenerate returns the cached insight when present, otherwise calls
// the model and caches the result. Only validated assessments qualify.
func (s *insightService) GetOrGenerate(ctx context.Context, assessmentID uuid.UUID) (*Insight, error) {
	assessment, err := s.assessmentRepo.GetByID(ctx, nil, assessmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("assessment %s not found", assessmentID)
		}
		return nil, err
	}
	if assessment.Status != types.AssessmentStatusValidated {
		return nil, apierr.Precondition("insights require a validated assessment, current status: %s", assessment.Status)
	}

	if len(assessment.AIInsights) > 0 {
		var cached Insight
		if err := json.Unmarshal(assessment.AIInsights, &cached); err == nil && cached.Summary != "" {
			return &cached, nil
		}
		s.log.Warn("Discarding unreadable cached insight", "assessment_id", assessmentID)
	}

	if s.client == nil {
		return nil, apierr.Precondition("insight generation is not configured")
	}

	userPrompt, err := s.buildPrompt(ctx, assessment)
	if err != nil {
		return nil, err
	}

	raw, err := s.client.GenerateJSON(ctx, insightSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("generate insight: %w", err)
	}
	var insight Insight
	if err := json.Unmarshal([]byte(raw), &insight); err != nil {
		return nil, fmt.Errorf("decode insight payload: %w", err)
	}
	insight.GeneratedAt = time.Now().UTC()

	cachedRaw, err := json.Marshal(insight)
	if err != nil {
		return nil, fmt.Errorf("marshal insight: %w", err)
	}
	if err := s.assessmentRepo.UpdateFields(ctx, nil, assessmentID, map[string]interface{}{
		"ai_insights": cachedRaw,
		"updated_at":  time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("cache insight: %w", err)
	}

	s.log.Info("Insight generated and cached", "assessment_id", assessmentID)
	return &insight, nil
}

// GenerateAsync warms the cache after finalization. Failures are retried
// with exponential backoff, then logged and dropped; insights regenerate on
// the next on-demand request.
func (s *insightService) GenerateAsync(assessmentID uuid.UUID) {
	go func() {
		delay := s.retryDelay
		for attempt := 0; attempt <= s.maxRetries; attempt++ {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			_, err := s.GetOrGenerate(ctx, assessmentID)
			cancel()
			if err == nil {
				return
			}
			var ae *apierr.Error
			if errors.As(err, &ae) && ae.Code != apierr.CodeInternal {
				// Wrong state or missing row will not fix itself.
				s.log.Warn("Insight generation skipped", "error", err, "assessment_id", assessmentID)
				return
			}
			s.log.Error("Insight generation failed",
				"error", err,
				"assessment_id", assessmentID,
				"attempt", attempt+1,
			)
			if attempt == s.maxRetries {
				return
			}
			time.Sleep(delay)
			delay *= 2
		}
	}()
}

func (s *insightService) buildPrompt(ctx context.Context, assessment *types.Assessment) (string, error) {
	responses, err := s.responseRepo.GetByAssessmentID(ctx, nil, assessment.ID)
	if err != nil {
		return "", fmt.Errorf("load responses: %w", err)
	}

	var failed []*types.AssessmentResponse
	failedIDs := make([]uuid.UUID, 0)
	for _, r := range responses {
		if r.ValidationStatus != nil && *r.ValidationStatus != types.ValidationStatusPass {
			failed = append(failed, r)
			failedIDs = append(failedIDs, r.ID)
		}
	}

	feedbackByResponse := map[uuid.UUID][]string{}
	comments, err := s.feedbackRepo.GetPublicByResponseIDs(ctx, nil, failedIDs)
	if err != nil {
		return "", fmt.Errorf("load feedback: %w", err)
	}
	for _, c := range comments {
		feedbackByResponse[c.ResponseID] = append(feedbackByResponse[c.ResponseID], c.Comment)
	}

	var b strings.Builder
	var areaResults map[string]string
	if len(assessment.AreaResults) > 0 {
		_ = json.Unmarshal(assessment.AreaResults, &areaResults)
	}
	finalStatus := ""
	if assessment.FinalComplianceStatus != nil {
		finalStatus = *assessment.FinalComplianceStatus
	}
	fmt.Fprintf(&b, "Final compliance status: %s\n", finalStatus)
	for area, verdict := range areaResults {
		fmt.Fprintf(&b, "Area %q: %s\n", area, verdict)
	}
	if len(failed) == 0 {
		b.WriteString("All indicators passed validation.\n")
	} else {
		b.WriteString("Indicators that did not pass:\n")
		for _, r := range failed {
			name := r.IndicatorID.String()
			area := ""
			if r.Indicator != nil {
				name = r.Indicator.Name
				if r.Indicator.GovernanceArea != nil {
					area = r.Indicator.GovernanceArea.Name
				}
			}
			fmt.Fprintf(&b, "- %s (area: %s, verdict: %s)\n", name, area, *r.ValidationStatus)
			for _, c := range feedbackByResponse[r.ID] {
				fmt.Fprintf(&b, "  assessor feedback: %s\n", c)
			}
		}
	}
	return b.String(), nil
}
