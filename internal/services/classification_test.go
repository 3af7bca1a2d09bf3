package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/barangaylink/sglgb-backend/internal/platform/dbctx"
	"github.com/barangaylink/sglgb-backend/internal/types"
)

func TestApplyThreePlusOne(t *testing.T) {
	cases := []struct {
		name      string
		core      []bool
		essential []bool
		want      string
	}{
		{name: "all_pass", core: []bool{true, true, true}, essential: []bool{true, true, true}, want: types.ComplianceStatusPassed},
		{name: "all_core_one_essential", core: []bool{true, true, true}, essential: []bool{true, false, false}, want: types.ComplianceStatusPassed},
		{name: "all_core_two_essential", core: []bool{true, true, true}, essential: []bool{true, true, false}, want: types.ComplianceStatusPassed},
		{name: "all_core_no_essential", core: []bool{true, true, true}, essential: []bool{false, false, false}, want: types.ComplianceStatusFailed},
		{name: "one_core_failed", core: []bool{true, true, false}, essential: []bool{true, true, true}, want: types.ComplianceStatusFailed},
		{name: "two_core_failed", core: []bool{true, false, false}, essential: []bool{true, true, true}, want: types.ComplianceStatusFailed},
		{name: "no_core_passed", core: []bool{false, false, false}, essential: []bool{true, true, true}, want: types.ComplianceStatusFailed},
		{name: "everything_failed", core: []bool{false, false, false}, essential: []bool{false, false, false}, want: types.ComplianceStatusFailed},
		{name: "empty_core_fails", core: nil, essential: []bool{true}, want: types.ComplianceStatusFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ApplyThreePlusOne(tc.core, tc.essential)
			if got != tc.want {
				t.Fatalf("ApplyThreePlusOne(%v, %v)=%q, want %q", tc.core, tc.essential, got, tc.want)
			}
		})
	}
}

// seedClassifiedAssessment builds the six areas, one indicator each, and a
// validated response per indicator with the given per-area verdicts.
func seedClassifiedAssessment(t *testing.T, db *gorm.DB, areaVerdicts map[string]string) *types.Assessment {
	t.Helper()
	barangay := createBarangay(t, db, "San Isidro")
	user := createBLGUUser(t, db, barangay.ID)
	assessment := createAssessment(t, db, user.ID, types.AssessmentStatusSubmittedForReview)

	for _, name := range CoreAreas {
		area := createArea(t, db, name, types.AreaTypeCore)
		ind := createIndicator(t, db, area.ID, nil)
		createResponse(t, db, assessment.ID, ind.ID, map[string]interface{}{"done": "yes"}, strPtr(areaVerdicts[name]))
	}
	for _, name := range EssentialAreas {
		area := createArea(t, db, name, types.AreaTypeEssential)
		ind := createIndicator(t, db, area.ID, nil)
		createResponse(t, db, assessment.ID, ind.ID, map[string]interface{}{"done": "yes"}, strPtr(areaVerdicts[name]))
	}
	return assessment
}

func allPassVerdicts() map[string]string {
	verdicts := map[string]string{}
	for _, name := range CoreAreas {
		verdicts[name] = types.ValidationStatusPass
	}
	for _, name := range EssentialAreas {
		verdicts[name] = types.ValidationStatusPass
	}
	return verdicts
}

func TestAreaCompliance(t *testing.T) {
	t.Run("all_indicators_pass", func(t *testing.T) {
		db := newTestDB(t)
		svc, _, _ := newClassificationFixture(t, db)
		assessment := seedClassifiedAssessment(t, db, allPassVerdicts())

		passed, err := svc.AreaCompliance(dbctx.Context{Ctx: context.Background()}, assessment.ID, CoreAreas[0])
		if err != nil {
			t.Fatalf("AreaCompliance error: %v", err)
		}
		if !passed {
			t.Fatal("expected area to pass")
		}
	})

	t.Run("fail_verdict_fails_area", func(t *testing.T) {
		db := newTestDB(t)
		svc, _, _ := newClassificationFixture(t, db)
		verdicts := allPassVerdicts()
		verdicts[CoreAreas[1]] = types.ValidationStatusFail
		assessment := seedClassifiedAssessment(t, db, verdicts)

		passed, err := svc.AreaCompliance(dbctx.Context{Ctx: context.Background()}, assessment.ID, CoreAreas[1])
		if err != nil {
			t.Fatalf("AreaCompliance error: %v", err)
		}
		if passed {
			t.Fatal("expected area to fail")
		}
	})

	t.Run("conditional_verdict_fails_area", func(t *testing.T) {
		db := newTestDB(t)
		svc, _, _ := newClassificationFixture(t, db)
		verdicts := allPassVerdicts()
		verdicts[EssentialAreas[0]] = types.ValidationStatusConditional
		assessment := seedClassifiedAssessment(t, db, verdicts)

		passed, err := svc.AreaCompliance(dbctx.Context{Ctx: context.Background()}, assessment.ID, EssentialAreas[0])
		if err != nil {
			t.Fatalf("AreaCompliance error: %v", err)
		}
		if passed {
			t.Fatal("expected area to fail on conditional verdict")
		}
	})

	t.Run("unknown_area_fails", func(t *testing.T) {
		db := newTestDB(t)
		svc, _, _ := newClassificationFixture(t, db)
		assessment := seedClassifiedAssessment(t, db, allPassVerdicts())

		passed, err := svc.AreaCompliance(dbctx.Context{Ctx: context.Background()}, assessment.ID, "No Such Area")
		if err != nil {
			t.Fatalf("AreaCompliance error: %v", err)
		}
		if passed {
			t.Fatal("unknown area must fail")
		}
	})

	t.Run("area_with_no_indicators_fails", func(t *testing.T) {
		db := newTestDB(t)
		svc, _, _ := newClassificationFixture(t, db)
		barangay := createBarangay(t, db, "San Roque")
		user := createBLGUUser(t, db, barangay.ID)
		assessment := createAssessment(t, db, user.ID, types.AssessmentStatusSubmittedForReview)
		createArea(t, db, CoreAreas[0], types.AreaTypeCore)

		passed, err := svc.AreaCompliance(dbctx.Context{Ctx: context.Background()}, assessment.ID, CoreAreas[0])
		if err != nil {
			t.Fatalf("AreaCompliance error: %v", err)
		}
		if passed {
			t.Fatal("empty area must fail")
		}
	})

	t.Run("indicator_without_response_fails_area", func(t *testing.T) {
		db := newTestDB(t)
		svc, _, _ := newClassificationFixture(t, db)
		verdicts := allPassVerdicts()
		assessment := seedClassifiedAssessment(t, db, verdicts)

		// Second indicator in the first core area, never answered.
		var area types.GovernanceArea
		if err := db.Where("name = ?", CoreAreas[0]).First(&area).Error; err != nil {
			t.Fatalf("load area: %v", err)
		}
		createIndicator(t, db, area.ID, nil)

		passed, err := svc.AreaCompliance(dbctx.Context{Ctx: context.Background()}, assessment.ID, CoreAreas[0])
		if err != nil {
			t.Fatalf("AreaCompliance error: %v", err)
		}
		if passed {
			t.Fatal("unanswered indicator must fail the area")
		}
	})
}

func TestClassifyPersistsVerdict(t *testing.T) {
	t.Run("passed", func(t *testing.T) {
		db := newTestDB(t)
		svc, assessmentRepo, _ := newClassificationFixture(t, db)
		verdicts := allPassVerdicts()
		verdicts[EssentialAreas[1]] = types.ValidationStatusFail
		verdicts[EssentialAreas[2]] = types.ValidationStatusFail
		assessment := seedClassifiedAssessment(t, db, verdicts)

		result, err := svc.Classify(dbctx.Context{Ctx: context.Background()}, assessment.ID)
		if err != nil {
			t.Fatalf("Classify error: %v", err)
		}
		if result.FinalComplianceStatus != types.ComplianceStatusPassed {
			t.Fatalf("final status = %q, want Passed", result.FinalComplianceStatus)
		}
		if len(result.AreaResults) != 6 {
			t.Fatalf("area results = %v", result.AreaResults)
		}

		stored, err := assessmentRepo.GetByID(context.Background(), nil, assessment.ID)
		if err != nil {
			t.Fatalf("reload assessment: %v", err)
		}
		if stored.FinalComplianceStatus == nil || *stored.FinalComplianceStatus != types.ComplianceStatusPassed {
			t.Fatalf("persisted final status = %v", stored.FinalComplianceStatus)
		}
		var storedAreas map[string]string
		if err := json.Unmarshal(stored.AreaResults, &storedAreas); err != nil {
			t.Fatalf("decode stored area results: %v", err)
		}
		if storedAreas[EssentialAreas[1]] != types.ComplianceStatusFailed {
			t.Fatalf("stored area verdict = %q", storedAreas[EssentialAreas[1]])
		}
	})

	t.Run("failed_when_core_area_fails", func(t *testing.T) {
		db := newTestDB(t)
		svc, _, _ := newClassificationFixture(t, db)
		verdicts := allPassVerdicts()
		verdicts[CoreAreas[2]] = types.ValidationStatusFail
		assessment := seedClassifiedAssessment(t, db, verdicts)

		result, err := svc.Classify(dbctx.Context{Ctx: context.Background()}, assessment.ID)
		if err != nil {
			t.Fatalf("Classify error: %v", err)
		}
		if result.FinalComplianceStatus != types.ComplianceStatusFailed {
			t.Fatalf("final status = %q, want Failed", result.FinalComplianceStatus)
		}
	})

	t.Run("missing_assessment", func(t *testing.T) {
		db := newTestDB(t)
		svc, _, _ := newClassificationFixture(t, db)
		if _, err := svc.Classify(dbctx.Context{Ctx: context.Background()}, uuid.New()); err == nil {
			t.Fatal("expected error for unknown assessment")
		}
	})
}
