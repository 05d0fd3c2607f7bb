package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cds-rules-server/internal/domain"
)

// analyteHandler binds one analyte's routing keys, threshold ladder and
// prevention plan content.
type analyteHandler struct {
	Analyte         string
	PlanType        string
	Codes           []string
	Aliases         []string
	GenderSpecific  bool
	Ladder          thresholdLadder
	LadderFor       func(domain.Gender) thresholdLadder
	GuidelineSource string
	EvidenceLevel   domain.EvidenceGrade
	PlanSpecs       map[string]planSpec
}

// planSpec is the authored plan content for one abnormal category. Analytes
// without an authored spec get severity-derived defaults.
type planSpec struct {
	Goals           []goalSpec
	Recommendations []domain.Recommendation
	RetestWeeks     int
}

type goalSpec struct {
	Target   string
	DueWeeks int
}

// LabResultMonitor routes incoming lab results to analyte handlers,
// classifies values against threshold ladders and synthesizes prevention
// plans for abnormal results. It reads demographics from and writes plans
// to the external patient record store; the caller must not run two
// concurrent invocations for the same (patient, analyte) pair.
type LabResultMonitor struct {
	logger       *logrus.Logger
	demographics domain.DemographicsReader
	store        domain.PatientRecordStore
	handlers     []analyteHandler
	now          func() time.Time
}

// NewLabResultMonitor creates a monitor over the fixed analyte handler set.
func NewLabResultMonitor(logger *logrus.Logger, demographics domain.DemographicsReader, store domain.PatientRecordStore) *LabResultMonitor {
	return &LabResultMonitor{
		logger:       logger,
		demographics: demographics,
		store:        store,
		handlers:     analyteHandlers(),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Process classifies one lab result. An unmapped test name/code is a valid
// non-error outcome with Monitored=false. A non-numeric value is a contract
// violation and returns an error; callers validate format upstream.
func (m *LabResultMonitor) Process(ctx context.Context, result *domain.LabResult) (*domain.MonitorResult, error) {
	handler := m.dispatch(result)
	if handler == nil {
		m.logger.WithFields(logrus.Fields{
			"test_name": result.TestName,
			"code":      result.Code,
		}).Debug("Lab test has no monitoring rule")
		return &domain.MonitorResult{Monitored: false, TestType: result.TestName}, nil
	}

	value, err := parseLabValue(result.Value)
	if err != nil {
		return nil, fmt.Errorf("lab %s value %q: %w", handler.Analyte, result.Value, err)
	}

	ladder := handler.Ladder
	if handler.GenderSpecific {
		ladder, err = m.genderLadder(ctx, handler, result.PatientID)
		if err != nil {
			return nil, err
		}
	}

	category := ladder.Classify(value)
	eval := &domain.LabEvaluation{
		Analyte:  handler.Analyte,
		Value:    value,
		Category: category,
		Flagged:  category != ladder.Normal,
	}

	logFields := logrus.Fields{
		"patient_id": result.PatientID,
		"analyte":    handler.Analyte,
		"value":      value,
		"category":   category,
		"flagged":    eval.Flagged,
	}

	if eval.Flagged {
		plan := m.buildPlan(handler, ladder, eval, result)
		if err := m.store.CreatePreventionPlan(ctx, plan); err != nil {
			return nil, fmt.Errorf("creating prevention plan for %s: %w", handler.Analyte, err)
		}
		eval.PreventionPlanCreated = true
		eval.PlanID = plan.ID
		logFields["plan_id"] = plan.ID
	}

	m.logger.WithFields(logFields).Info("Lab result evaluated")

	return &domain.MonitorResult{
		Monitored: true,
		TestType:  handler.Analyte,
		Result:    eval,
	}, nil
}

// dispatch routes a result to exactly one handler. An exact standardized
// code match is authoritative; otherwise aliases are tried as
// case-insensitive substrings of the test name, in handler declaration
// order. More specific tests are declared before more general ones
// (glycated hemoglobin before hemoglobin, LDL before plain cholesterol);
// that ordering is part of the contract.
func (m *LabResultMonitor) dispatch(result *domain.LabResult) *analyteHandler {
	if result.Code != "" {
		for i := range m.handlers {
			for _, code := range m.handlers[i].Codes {
				if code == result.Code {
					return &m.handlers[i]
				}
			}
		}
	}

	name := strings.ToLower(result.TestName)
	for i := range m.handlers {
		for _, alias := range m.handlers[i].Aliases {
			if strings.Contains(name, alias) {
				return &m.handlers[i]
			}
		}
	}
	return nil
}

func (m *LabResultMonitor) genderLadder(ctx context.Context, handler *analyteHandler, patientID string) (thresholdLadder, error) {
	demo, err := m.demographics.GetDemographics(ctx, patientID)
	if err != nil {
		return thresholdLadder{}, fmt.Errorf("reading demographics for %s ladder: %w", handler.Analyte, err)
	}
	// Defaulting the ladder would silently apply the wrong thresholds.
	if demo == nil || (demo.Gender != domain.MALE && demo.Gender != domain.FEMALE) {
		return thresholdLadder{}, fmt.Errorf("analyte %s: %w", handler.Analyte, domain.ErrMissingGender)
	}
	return handler.LadderFor(demo.Gender), nil
}

// buildPlan synthesizes a new PreventionPlan for a flagged evaluation.
// Every flagged call produces a new plan; there is no dedup against open
// plans at this layer.
func (m *LabResultMonitor) buildPlan(handler *analyteHandler, ladder thresholdLadder, eval *domain.LabEvaluation, result *domain.LabResult) *domain.PreventionPlan {
	now := m.now()
	severity := ladder.Severity(eval.Category)

	spec, ok := handler.PlanSpecs[eval.Category]
	if !ok {
		spec = defaultPlanSpec(handler.Analyte, eval.Category, severity)
	}

	goals := make([]domain.PlanGoal, 0, len(spec.Goals))
	for _, g := range spec.Goals {
		goals = append(goals, domain.PlanGoal{
			Target:  g.Target,
			DueDate: now.AddDate(0, 0, g.DueWeeks*7),
			Status:  domain.GOAL_PENDING,
		})
	}

	return &domain.PreventionPlan{
		ID:              uuid.New().String(),
		PatientID:       result.PatientID,
		PlanType:        handler.PlanType,
		Goals:           goals,
		Recommendations: spec.Recommendations,
		ScreeningSchedule: []domain.ScreeningEntry{
			{
				TestName:  handler.Analyte,
				DueDate:   now.AddDate(0, 0, spec.RetestWeeks*7),
				Frequency: fmt.Sprintf("%d weeks", spec.RetestWeeks),
			},
		},
		Status:          domain.PLAN_ACTIVE,
		GuidelineSource: handler.GuidelineSource,
		EvidenceLevel:   handler.EvidenceLevel,
		CreatedAt:       now,
	}
}

// defaultPlanSpec derives plan content from how far out of range the value
// landed: critical categories escalate an urgent recommendation with a
// short re-test interval, borderline categories get lifestyle-and-monitor
// content with a longer one.
func defaultPlanSpec(analyte, category string, severity domain.Priority) planSpec {
	switch severity {
	case domain.CRITICAL_PRIORITY:
		return planSpec{
			Goals: []goalSpec{
				{Target: fmt.Sprintf("Physician evaluation of %s within 1 week", analyte), DueWeeks: 1},
			},
			Recommendations: []domain.Recommendation{
				{Category: domain.URGENT, Text: fmt.Sprintf("Urgent clinician review: %s is %s", analyte, category), EvidenceGrade: domain.GRADE_EXPERT, Priority: domain.CRITICAL_PRIORITY},
				{Category: domain.MONITORING, Text: fmt.Sprintf("Repeat %s within 1-2 weeks", analyte), EvidenceGrade: domain.GRADE_C, Priority: domain.HIGH_PRIORITY},
			},
			RetestWeeks: 1,
		}
	case domain.HIGH_PRIORITY:
		return planSpec{
			Goals: []goalSpec{
				{Target: fmt.Sprintf("Return %s to reference range", analyte), DueWeeks: 12},
			},
			Recommendations: []domain.Recommendation{
				{Category: domain.REFERRAL, Text: fmt.Sprintf("Clinician follow-up for %s (%s)", analyte, category), EvidenceGrade: domain.GRADE_C, Priority: domain.HIGH_PRIORITY},
				{Category: domain.MONITORING, Text: fmt.Sprintf("Repeat %s in 4 weeks", analyte), EvidenceGrade: domain.GRADE_C, Priority: domain.MEDIUM_PRIORITY},
			},
			RetestWeeks: 4,
		}
	default:
		return planSpec{
			Goals: []goalSpec{
				{Target: fmt.Sprintf("Return %s to reference range", analyte), DueWeeks: 24},
			},
			Recommendations: []domain.Recommendation{
				{Category: domain.LIFESTYLE, Text: fmt.Sprintf("Lifestyle counseling for borderline %s", analyte), EvidenceGrade: domain.GRADE_C, Priority: domain.MEDIUM_PRIORITY},
				{Category: domain.MONITORING, Text: fmt.Sprintf("Repeat %s in 3 months", analyte), EvidenceGrade: domain.GRADE_C, Priority: domain.LOW_PRIORITY},
			},
			RetestWeeks: 12,
		}
	}
}

// parseLabValue strictly parses the string value to a number. Common
// result-formatting noise (surrounding whitespace, a trailing unit glued to
// the number) is NOT tolerated; the boundary contract requires validated
// numeric input.
func parseLabValue(raw string) (float64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, domain.ErrNonNumericLabValue
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, domain.ErrNonNumericLabValue
	}
	return v, nil
}
