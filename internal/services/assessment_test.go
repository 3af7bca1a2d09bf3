package services

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/barangaylink/sglgb-backend/internal/platform/apierr"
	"github.com/barangaylink/sglgb-backend/internal/repos"
	"github.com/barangaylink/sglgb-backend/internal/types"
)

func newAssessmentFixture(t *testing.T, db *gorm.DB) AssessmentService {
	t.Helper()
	log := newTestLogger(t)
	return NewAssessmentService(
		db, log,
		repos.NewAssessmentRepo(db, log),
		repos.NewResponseRepo(db, log),
		repos.NewIndicatorRepo(db, log),
		repos.NewMOVRepo(db, log),
		2024,
	)
}

var yesNoSchema = map[string]interface{}{
	"required": []string{"compliant"},
	"properties": map[string]interface{}{
		"compliant": map[string]interface{}{"type": "string", "enum": []string{"yes", "no", "na"}},
	},
}

func TestGetOrCreateForUser(t *testing.T) {
	db := newTestDB(t)
	svc := newAssessmentFixture(t, db)
	barangay := createBarangay(t, db, "Poblacion")
	user := createBLGUUser(t, db, barangay.ID)

	first, err := svc.GetOrCreateForUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetOrCreateForUser error: %v", err)
	}
	if first.Status != types.AssessmentStatusDraft {
		t.Fatalf("status = %q, want draft", first.Status)
	}
	if first.PerformanceYear != 2024 {
		t.Fatalf("performance year = %d, want 2024", first.PerformanceYear)
	}

	second, err := svc.GetOrCreateForUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("second GetOrCreateForUser error: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same assessment, got %s and %s", first.ID, second.ID)
	}
}

func TestCreateResponseIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := newAssessmentFixture(t, db)
	barangay := createBarangay(t, db, "Poblacion")
	user := createBLGUUser(t, db, barangay.ID)
	area := createArea(t, db, CoreAreas[0], types.AreaTypeCore)
	indicator := createIndicator(t, db, area.ID, yesNoSchema)
	assessment := createAssessment(t, db, user.ID, types.AssessmentStatusDraft)

	first, err := svc.CreateResponse(context.Background(), assessment.ID, indicator.ID, map[string]interface{}{"compliant": "no"})
	if err != nil {
		t.Fatalf("CreateResponse error: %v", err)
	}
	second, err := svc.CreateResponse(context.Background(), assessment.ID, indicator.ID, map[string]interface{}{"compliant": "yes"})
	if err != nil {
		t.Fatalf("second CreateResponse error: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same response row, got %s and %s", first.ID, second.ID)
	}
}

func TestUpdateResponse(t *testing.T) {
	t.Run("schema_violation_rejected", func(t *testing.T) {
		db := newTestDB(t)
		svc := newAssessmentFixture(t, db)
		barangay := createBarangay(t, db, "Poblacion")
		user := createBLGUUser(t, db, barangay.ID)
		area := createArea(t, db, CoreAreas[0], types.AreaTypeCore)
		indicator := createIndicator(t, db, area.ID, yesNoSchema)
		assessment := createAssessment(t, db, user.ID, types.AssessmentStatusDraft)
		response := createResponse(t, db, assessment.ID, indicator.ID, nil, nil)

		_, err := svc.UpdateResponse(context.Background(), response.ID, map[string]interface{}{"compliant": "maybe"})
		var ae *apierr.Error
		if !errors.As(err, &ae) || ae.Code != apierr.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("no_answer_marks_completed", func(t *testing.T) {
		db := newTestDB(t)
		svc := newAssessmentFixture(t, db)
		barangay := createBarangay(t, db, "Poblacion")
		user := createBLGUUser(t, db, barangay.ID)
		area := createArea(t, db, CoreAreas[0], types.AreaTypeCore)
		indicator := createIndicator(t, db, area.ID, yesNoSchema)
		assessment := createAssessment(t, db, user.ID, types.AssessmentStatusDraft)
		response := createResponse(t, db, assessment.ID, indicator.ID, nil, nil)

		updated, err := svc.UpdateResponse(context.Background(), response.ID, map[string]interface{}{"compliant": "no"})
		if err != nil {
			t.Fatalf("UpdateResponse error: %v", err)
		}
		if !updated.IsCompleted {
			t.Fatal("no answer without evidence requirement should be complete")
		}
	})

	t.Run("yes_answer_incomplete_until_evidence", func(t *testing.T) {
		db := newTestDB(t)
		svc := newAssessmentFixture(t, db)
		barangay := createBarangay(t, db, "Poblacion")
		user := createBLGUUser(t, db, barangay.ID)
		area := createArea(t, db, CoreAreas[0], types.AreaTypeCore)
		indicator := createIndicator(t, db, area.ID, yesNoSchema)
		assessment := createAssessment(t, db, user.ID, types.AssessmentStatusDraft)
		response := createResponse(t, db, assessment.ID, indicator.ID, nil, nil)

		updated, err := svc.UpdateResponse(context.Background(), response.ID, map[string]interface{}{"compliant": "yes"})
		if err != nil {
			t.Fatalf("UpdateResponse error: %v", err)
		}
		if updated.IsCompleted {
			t.Fatal("yes answer without evidence must not be complete")
		}

		attachTestMOV(t, db, response.ID, "movs/a/1_evidence.pdf")
		updated, err = svc.UpdateResponse(context.Background(), response.ID, map[string]interface{}{"compliant": "yes"})
		if err != nil {
			t.Fatalf("second UpdateResponse error: %v", err)
		}
		if !updated.IsCompleted {
			t.Fatal("yes answer with evidence should be complete")
		}
	})

	t.Run("validated_assessment_immutable", func(t *testing.T) {
		db := newTestDB(t)
		svc := newAssessmentFixture(t, db)
		barangay := createBarangay(t, db, "Poblacion")
		user := createBLGUUser(t, db, barangay.ID)
		area := createArea(t, db, CoreAreas[0], types.AreaTypeCore)
		indicator := createIndicator(t, db, area.ID, yesNoSchema)
		assessment := createAssessment(t, db, user.ID, types.AssessmentStatusValidated)
		response := createResponse(t, db, assessment.ID, indicator.ID, nil, nil)

		_, err := svc.UpdateResponse(context.Background(), response.ID, map[string]interface{}{"compliant": "no"})
		var ae *apierr.Error
		if !errors.As(err, &ae) || ae.Code != apierr.CodePrecondition {
			t.Fatalf("expected precondition error, got %v", err)
		}
	})

	t.Run("submitted_assessment_not_editable", func(t *testing.T) {
		db := newTestDB(t)
		svc := newAssessmentFixture(t, db)
		barangay := createBarangay(t, db, "Poblacion")
		user := createBLGUUser(t, db, barangay.ID)
		area := createArea(t, db, CoreAreas[0], types.AreaTypeCore)
		indicator := createIndicator(t, db, area.ID, yesNoSchema)
		assessment := createAssessment(t, db, user.ID, types.AssessmentStatusSubmittedForReview)
		response := createResponse(t, db, assessment.ID, indicator.ID, nil, nil)

		if _, err := svc.UpdateResponse(context.Background(), response.ID, map[string]interface{}{"compliant": "no"}); err == nil {
			t.Fatal("expected error updating a submitted assessment")
		}
	})
}

func TestSubmit(t *testing.T) {
	t.Run("yes_without_mov_blocks_submission", func(t *testing.T) {
		db := newTestDB(t)
		svc := newAssessmentFixture(t, db)
		barangay := createBarangay(t, db, "Poblacion")
		user := createBLGUUser(t, db, barangay.ID)
		area := createArea(t, db, CoreAreas[0], types.AreaTypeCore)
		indicator := createIndicator(t, db, area.ID, yesNoSchema)
		assessment := createAssessment(t, db, user.ID, types.AssessmentStatusDraft)
		createResponse(t, db, assessment.ID, indicator.ID, map[string]interface{}{"compliant": "yes"}, nil)

		result, err := svc.Submit(context.Background(), assessment.ID)
		if err != nil {
			t.Fatalf("Submit error: %v", err)
		}
		if result.IsValid {
			t.Fatal("expected submission gate to reject")
		}
		if len(result.Violations) != 1 {
			t.Fatalf("violations = %v", result.Violations)
		}
		if result.Violations[0].Reason != "YES answer requires Means of Verification (MOV)" {
			t.Fatalf("reason = %q", result.Violations[0].Reason)
		}
		if result.Violations[0].IndicatorID != indicator.ID {
			t.Fatalf("violation indicator = %s", result.Violations[0].IndicatorID)
		}

		stored, err := svc.GetByID(context.Background(), assessment.ID)
		if err != nil {
			t.Fatalf("reload assessment: %v", err)
		}
		if stored.Status != types.AssessmentStatusDraft {
			t.Fatalf("status changed to %q after rejected submission", stored.Status)
		}
		if stored.SubmittedAt != nil {
			t.Fatal("submitted_at set after rejected submission")
		}
	})

	t.Run("bool_true_counts_as_yes", func(t *testing.T) {
		db := newTestDB(t)
		svc := newAssessmentFixture(t, db)
		barangay := createBarangay(t, db, "Poblacion")
		user := createBLGUUser(t, db, barangay.ID)
		area := createArea(t, db, CoreAreas[0], types.AreaTypeCore)
		indicator := createIndicator(t, db, area.ID, nil)
		assessment := createAssessment(t, db, user.ID, types.AssessmentStatusDraft)
		createResponse(t, db, assessment.ID, indicator.ID, map[string]interface{}{"done": true}, nil)

		result, err := svc.Submit(context.Background(), assessment.ID)
		if err != nil {
			t.Fatalf("Submit error: %v", err)
		}
		if result.IsValid {
			t.Fatal("boolean true without evidence must be flagged")
		}
	})

	t.Run("empty_payloads_skipped", func(t *testing.T) {
		db := newTestDB(t)
		svc := newAssessmentFixture(t, db)
		barangay := createBarangay(t, db, "Poblacion")
		user := createBLGUUser(t, db, barangay.ID)
		area := createArea(t, db, CoreAreas[0], types.AreaTypeCore)
		indicator := createIndicator(t, db, area.ID, yesNoSchema)
		assessment := createAssessment(t, db, user.ID, types.AssessmentStatusDraft)
		createResponse(t, db, assessment.ID, indicator.ID, nil, nil)

		result, err := svc.Submit(context.Background(), assessment.ID)
		if err != nil {
			t.Fatalf("Submit error: %v", err)
		}
		if !result.IsValid {
			t.Fatalf("empty payloads must not trip the gate: %v", result.Violations)
		}
	})

	t.Run("valid_submission_flips_status", func(t *testing.T) {
		db := newTestDB(t)
		svc := newAssessmentFixture(t, db)
		barangay := createBarangay(t, db, "Poblacion")
		user := createBLGUUser(t, db, barangay.ID)
		area := createArea(t, db, CoreAreas[0], types.AreaTypeCore)
		indicator := createIndicator(t, db, area.ID, yesNoSchema)
		assessment := createAssessment(t, db, user.ID, types.AssessmentStatusDraft)
		response := createResponse(t, db, assessment.ID, indicator.ID, map[string]interface{}{"compliant": "yes"}, nil)
		attachTestMOV(t, db, response.ID, "movs/a/1_evidence.pdf")

		result, err := svc.Submit(context.Background(), assessment.ID)
		if err != nil {
			t.Fatalf("Submit error: %v", err)
		}
		if !result.IsValid {
			t.Fatalf("expected valid submission, violations: %v", result.Violations)
		}

		stored, err := svc.GetByID(context.Background(), assessment.ID)
		if err != nil {
			t.Fatalf("reload assessment: %v", err)
		}
		if stored.Status != types.AssessmentStatusSubmittedForReview {
			t.Fatalf("status = %q, want submitted_for_review", stored.Status)
		}
		if stored.SubmittedAt == nil {
			t.Fatal("submitted_at not set")
		}
	})

	t.Run("resubmission_from_needs_rework", func(t *testing.T) {
		db := newTestDB(t)
		svc := newAssessmentFixture(t, db)
		barangay := createBarangay(t, db, "Poblacion")
		user := createBLGUUser(t, db, barangay.ID)
		assessment := createAssessment(t, db, user.ID, types.AssessmentStatusNeedsRework)

		result, err := svc.Submit(context.Background(), assessment.ID)
		if err != nil {
			t.Fatalf("Submit error: %v", err)
		}
		if !result.IsValid {
			t.Fatalf("expected valid resubmission, violations: %v", result.Violations)
		}
	})

	t.Run("submit_from_wrong_status", func(t *testing.T) {
		db := newTestDB(t)
		svc := newAssessmentFixture(t, db)
		barangay := createBarangay(t, db, "Poblacion")
		user := createBLGUUser(t, db, barangay.ID)
		assessment := createAssessment(t, db, user.ID, types.AssessmentStatusSubmittedForReview)

		_, err := svc.Submit(context.Background(), assessment.ID)
		var ae *apierr.Error
		if !errors.As(err, &ae) || ae.Code != apierr.CodePrecondition {
			t.Fatalf("expected precondition error, got %v", err)
		}
	})
}
