package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/barangaylink/sglgb-backend/internal/platform/apierr"
	"github.com/barangaylink/sglgb-backend/internal/repos"
	"github.com/barangaylink/sglgb-backend/internal/types"
)

func newInsightFixture(t *testing.T, db *gorm.DB, client *stubGeminiClient) InsightService {
	t.Helper()
	log := newTestLogger(t)
	return NewInsightService(
		db, log, client,
		repos.NewAssessmentRepo(db, log),
		repos.NewResponseRepo(db, log),
		repos.NewFeedbackRepo(db, log),
		3, time.Millisecond,
	)
}

const cannedInsight = `{"summary":"Two core areas need attention.","recommendations":["Convene the barangay disaster council"],"capacity_needs":["Financial reporting training"]}`

func validatedAssessment(t *testing.T, db *gorm.DB) *types.Assessment {
	t.Helper()
	verdicts := allPassVerdicts()
	verdicts[CoreAreas[0]] = types.ValidationStatusFail
	assessment := seedClassifiedAssessment(t, db, verdicts)
	if err := db.Model(&types.Assessment{}).Where("id = ?", assessment.ID).Updates(map[string]interface{}{
		"status":                  types.AssessmentStatusValidated,
		"final_compliance_status": types.ComplianceStatusFailed,
	}).Error; err != nil {
		t.Fatalf("mark validated: %v", err)
	}
	return assessment
}

func TestGetOrGenerate(t *testing.T) {
	t.Run("generates_and_caches", func(t *testing.T) {
		db := newTestDB(t)
		client := &stubGeminiClient{response: cannedInsight}
		svc := newInsightFixture(t, db, client)
		assessment := validatedAssessment(t, db)

		insight, err := svc.GetOrGenerate(context.Background(), assessment.ID)
		if err != nil {
			t.Fatalf("GetOrGenerate error: %v", err)
		}
		if insight.Summary != "Two core areas need attention." {
			t.Fatalf("summary = %q", insight.Summary)
		}
		if len(insight.Recommendations) != 1 || len(insight.CapacityNeeds) != 1 {
			t.Fatalf("insight = %+v", insight)
		}
		if client.calls != 1 {
			t.Fatalf("model calls = %d, want 1", client.calls)
		}

		// Second request is served from the cache.
		again, err := svc.GetOrGenerate(context.Background(), assessment.ID)
		if err != nil {
			t.Fatalf("second GetOrGenerate error: %v", err)
		}
		if again.Summary != insight.Summary {
			t.Fatalf("cached summary = %q", again.Summary)
		}
		if client.calls != 1 {
			t.Fatalf("model calls after cache hit = %d, want 1", client.calls)
		}
	})

	t.Run("requires_validated_assessment", func(t *testing.T) {
		db := newTestDB(t)
		client := &stubGeminiClient{response: cannedInsight}
		svc := newInsightFixture(t, db, client)
		barangay := createBarangay(t, db, "Poblacion")
		user := createBLGUUser(t, db, barangay.ID)
		assessment := createAssessment(t, db, user.ID, types.AssessmentStatusSubmittedForReview)

		_, err := svc.GetOrGenerate(context.Background(), assessment.ID)
		var ae *apierr.Error
		if !errors.As(err, &ae) || ae.Code != apierr.CodePrecondition {
			t.Fatalf("expected precondition error, got %v", err)
		}
		if client.calls != 0 {
			t.Fatalf("model called for a non-validated assessment")
		}
	})

	t.Run("model_failure_propagates", func(t *testing.T) {
		db := newTestDB(t)
		client := &stubGeminiClient{err: errors.New("quota exceeded")}
		svc := newInsightFixture(t, db, client)
		assessment := validatedAssessment(t, db)

		if _, err := svc.GetOrGenerate(context.Background(), assessment.ID); err == nil {
			t.Fatal("expected model error to propagate")
		}
	})

	t.Run("unreadable_cache_regenerates", func(t *testing.T) {
		db := newTestDB(t)
		client := &stubGeminiClient{response: cannedInsight}
		svc := newInsightFixture(t, db, client)
		assessment := validatedAssessment(t, db)
		if err := db.Model(&types.Assessment{}).Where("id = ?", assessment.ID).
			Update("ai_insights", []byte(`{"wrong":"shape"}`)).Error; err != nil {
			t.Fatalf("seed bad cache: %v", err)
		}

		insight, err := svc.GetOrGenerate(context.Background(), assessment.ID)
		if err != nil {
			t.Fatalf("GetOrGenerate error: %v", err)
		}
		if insight.Summary == "" {
			t.Fatal("expected regenerated insight")
		}
		if client.calls != 1 {
			t.Fatalf("model calls = %d, want 1", client.calls)
		}
	})
}
