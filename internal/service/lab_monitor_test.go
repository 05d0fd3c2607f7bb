package service

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cds-rules-server/internal/domain"
)

type stubRecordStore struct {
	demographics map[string]*domain.Demographics
	plans        []*domain.PreventionPlan
	planErr      error
}

func (s *stubRecordStore) GetDemographics(ctx context.Context, patientID string) (*domain.Demographics, error) {
	if d, ok := s.demographics[patientID]; ok {
		return d, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubRecordStore) GetPatientFacts(ctx context.Context, patientID string) (*domain.PatientFacts, error) {
	return nil, domain.ErrNotFound
}

func (s *stubRecordStore) ListRoster(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (s *stubRecordStore) CreatePreventionPlan(ctx context.Context, plan *domain.PreventionPlan) error {
	if s.planErr != nil {
		return s.planErr
	}
	s.plans = append(s.plans, plan)
	return nil
}

func (s *stubRecordStore) UpdateScreeningTracking(ctx context.Context, patientID, screeningType string, performedAt time.Time) error {
	return nil
}

func newTestMonitor(store *stubRecordStore) *LabResultMonitor {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	m := NewLabResultMonitor(logger, store, store)
	m.now = func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return m
}

func labResult(patientID, testName, code, value string) *domain.LabResult {
	return &domain.LabResult{
		ID:         "lab-1",
		PatientID:  patientID,
		TestName:   testName,
		Code:       code,
		Value:      value,
		ObservedAt: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestProcessHbA1cScenarios(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		wantCategory string
		wantFlagged  bool
		wantPlan     bool
	}{
		{"normal", "5.5", catNormal, false, false},
		{"prediabetes", "6.0", catPrediabetes, true, true},
		{"diabetes", "7.2", catDiabetes, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &stubRecordStore{}
			monitor := newTestMonitor(store)

			out, err := monitor.Process(context.Background(), labResult("patient-1", "Hemoglobin A1c", "4548-4", tt.value))
			require.NoError(t, err)
			require.True(t, out.Monitored)
			assert.Equal(t, "hba1c", out.TestType)

			require.NotNil(t, out.Result)
			assert.Equal(t, tt.wantCategory, out.Result.Category)
			assert.Equal(t, tt.wantFlagged, out.Result.Flagged)
			assert.Equal(t, tt.wantPlan, out.Result.PreventionPlanCreated)

			if tt.wantPlan {
				require.Len(t, store.plans, 1)
				assert.Equal(t, "glycemic_management", store.plans[0].PlanType)
				assert.Equal(t, out.Result.PlanID, store.plans[0].ID)
			} else {
				assert.Empty(t, store.plans)
			}
		})
	}
}

func TestProcessPrediabetesPlanContent(t *testing.T) {
	store := &stubRecordStore{}
	monitor := newTestMonitor(store)

	_, err := monitor.Process(context.Background(), labResult("patient-1", "HbA1c", "", "6.0"))
	require.NoError(t, err)

	require.Len(t, store.plans, 1)
	plan := store.plans[0]
	assert.Equal(t, domain.PLAN_ACTIVE, plan.Status)
	assert.Equal(t, domain.GRADE_A, plan.EvidenceLevel)

	require.NotEmpty(t, plan.Goals)
	assert.Contains(t, plan.Goals[0].Target, "3 months")
	assert.Equal(t, domain.GOAL_PENDING, plan.Goals[0].Status)

	require.NotEmpty(t, plan.ScreeningSchedule)
	wantDue := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, 84)
	assert.Equal(t, wantDue, plan.ScreeningSchedule[0].DueDate)
}

func TestProcessCriticalLowPlatelets(t *testing.T) {
	store := &stubRecordStore{}
	monitor := newTestMonitor(store)

	out, err := monitor.Process(context.Background(), labResult("patient-1", "Platelet Count", "777-3", "45"))
	require.NoError(t, err)

	require.NotNil(t, out.Result)
	assert.Equal(t, catCriticalLow, out.Result.Category)
	assert.True(t, out.Result.PreventionPlanCreated)

	require.Len(t, store.plans, 1)
	plan := store.plans[0]
	var urgent *domain.Recommendation
	for i := range plan.Recommendations {
		if plan.Recommendations[i].Category == domain.URGENT {
			urgent = &plan.Recommendations[i]
		}
	}
	require.NotNil(t, urgent, "critical result must carry an urgent recommendation")
	assert.Equal(t, domain.CRITICAL_PRIORITY, urgent.Priority)
	// Re-test lands 1-2 weeks out, not the routine interval.
	wantDue := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, 7)
	assert.Equal(t, wantDue, plan.ScreeningSchedule[0].DueDate)
}

func TestProcessUnmappedTest(t *testing.T) {
	store := &stubRecordStore{}
	monitor := newTestMonitor(store)

	out, err := monitor.Process(context.Background(), labResult("patient-1", "Serum Rhubarb", "", "42"))
	require.NoError(t, err)
	assert.False(t, out.Monitored)
	assert.Equal(t, "Serum Rhubarb", out.TestType)
	assert.Nil(t, out.Result)
	assert.Empty(t, store.plans)
}

func TestProcessNonNumericValue(t *testing.T) {
	store := &stubRecordStore{}
	monitor := newTestMonitor(store)

	for _, raw := range []string{"pending", "", "7.2%", "<5"} {
		_, err := monitor.Process(context.Background(), labResult("patient-1", "HbA1c", "", raw))
		assert.ErrorIs(t, err, domain.ErrNonNumericLabValue, "value %q", raw)
	}
	assert.Empty(t, store.plans)
}

func TestProcessGenderSpecificLadder(t *testing.T) {
	store := &stubRecordStore{
		demographics: map[string]*domain.Demographics{
			"female-1": {PatientID: "female-1", Gender: domain.FEMALE, BirthDate: time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)},
			"male-1":   {PatientID: "male-1", Gender: domain.MALE, BirthDate: time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
	}
	monitor := newTestMonitor(store)

	// 13.0 g/dL hemoglobin: normal for a female, low for a male.
	outF, err := monitor.Process(context.Background(), labResult("female-1", "Hemoglobin", "718-7", "13.0"))
	require.NoError(t, err)
	assert.False(t, outF.Result.Flagged)

	outM, err := monitor.Process(context.Background(), labResult("male-1", "Hemoglobin", "718-7", "13.0"))
	require.NoError(t, err)
	assert.True(t, outM.Result.Flagged)
}

func TestProcessMissingGender(t *testing.T) {
	store := &stubRecordStore{
		demographics: map[string]*domain.Demographics{
			"unknown-1": {PatientID: "unknown-1", Gender: domain.UNKNOWN_GENDER},
		},
	}
	monitor := newTestMonitor(store)

	_, err := monitor.Process(context.Background(), labResult("unknown-1", "Hemoglobin", "", "13.0"))
	assert.ErrorIs(t, err, domain.ErrMissingGender)
}

func TestDispatchSpecificBeforeGeneral(t *testing.T) {
	monitor := newTestMonitor(&stubRecordStore{})

	tests := []struct {
		testName string
		code     string
		want     string
	}{
		{"Hemoglobin A1c", "", "hba1c"},
		{"Glycated Hemoglobin", "", "hba1c"},
		{"Hemoglobin", "", "hemoglobin"},
		{"LDL Cholesterol", "", "ldl_cholesterol"},
		{"Cholesterol, Total", "", "total_cholesterol"},
		{"Vitamin B12", "", "vitamin_b12"},
		{"Vitamin D, 25-Hydroxy", "", "vitamin_d"},
		// Exact code match wins over any name the lab sent.
		{"Chem Panel Item 7", "2160-0", "creatinine"},
	}

	for _, tt := range tests {
		h := monitor.dispatch(&domain.LabResult{TestName: tt.testName, Code: tt.code})
		require.NotNil(t, h, "%s should dispatch", tt.testName)
		assert.Equal(t, tt.want, h.Analyte, "test name %q", tt.testName)
	}
}

func TestLaddersWellFormed(t *testing.T) {
	monitor := newTestMonitor(&stubRecordStore{})

	for _, h := range monitor.handlers {
		ladders := map[string]thresholdLadder{}
		if h.GenderSpecific {
			ladders["male"] = h.LadderFor(domain.MALE)
			ladders["female"] = h.LadderFor(domain.FEMALE)
		} else {
			ladders[""] = h.Ladder
		}
		for variant, ladder := range ladders {
			assert.NoError(t, ladder.wellFormed(), "%s %s", h.Analyte, variant)
			// Every value must land in exactly one category.
			for _, v := range []float64{-1, 0, 0.1, 1, 10, 100, 1000, 1e6} {
				assert.NotEmpty(t, ladder.Classify(v), "%s %s value %v", h.Analyte, variant, v)
			}
		}
	}
}

func TestPlanCreationFailurePropagates(t *testing.T) {
	store := &stubRecordStore{planErr: assert.AnError}
	monitor := newTestMonitor(store)

	_, err := monitor.Process(context.Background(), labResult("patient-1", "HbA1c", "", "7.2"))
	assert.ErrorIs(t, err, assert.AnError)
}
