package service

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cds-rules-server/internal/domain"
	"github.com/cds-rules-server/pkg/ruleexpr"
)

var engineNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine() *RuleEngine {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	e := NewRuleEngine(logger)
	e.now = func() time.Time { return engineNow }
	return e
}

func freshState(confidence float64) *domain.PatientState {
	return &domain.PatientState{
		PatientID:  "patient-1",
		Age:        58,
		Gender:     domain.FEMALE,
		Labs:       map[string]float64{"hba1c": 7.2, "ldl": 164},
		Vitals:     map[string]any{"systolic_bp": 148.0},
		Conditions: []string{"type2_diabetes"},
		Timestamp:  engineNow.Add(-2 * time.Hour),
		Confidence: confidence,
	}
}

func hba1cRule(ruleID string, minConfidence float64) domain.ClinicalProtocolRule {
	return domain.ClinicalProtocolRule{
		RuleID: ruleID,
		Name:   "Elevated HbA1c",
		Logic: &ruleexpr.Rule{
			If: &ruleexpr.Compare{
				Op:    ">=",
				Left:  &ruleexpr.Field{Path: "labs.hba1c"},
				Right: &ruleexpr.Literal{Value: 7.0},
			},
			Then:     string(domain.NOTIFY_CARE_TEAM),
			Fallback: string(domain.NO_ACTION),
		},
		Validation: domain.RuleValidation{MinConfidence: minConfidence},
		Metadata:   domain.RuleMetadata{IsActive: true},
	}
}

func TestEvaluateAllFiresMatchingRule(t *testing.T) {
	engine := newTestEngine()
	state := freshState(92)

	out := engine.EvaluateAll([]domain.ClinicalProtocolRule{hba1cRule("dm-hba1c", 80)}, state)

	require.Len(t, out.Actions, 1)
	assert.Equal(t, domain.NOTIFY_CARE_TEAM, out.Actions[0].Action)
	assert.Equal(t, "dm-hba1c", out.Actions[0].Protocol)
	assert.Equal(t, 92.0, out.Actions[0].Confidence)
	assert.Equal(t, engineNow, out.Actions[0].TriggeredAt)
	assert.Equal(t, []string{"dm-hba1c"}, out.TriggeredRules)
	assert.Empty(t, out.SkippedRules)
}

func TestEvaluateAllConfidenceGate(t *testing.T) {
	engine := newTestEngine()

	// Same state, two thresholds: 90 skips at confidence 85, 80 passes.
	state := freshState(85)
	out := engine.EvaluateAll([]domain.ClinicalProtocolRule{
		hba1cRule("strict", 90),
		hba1cRule("lenient", 80),
	}, state)

	assert.Equal(t, []string{"lenient"}, out.TriggeredRules)
	require.Len(t, out.SkippedRules, 1)
	assert.Equal(t, "strict", out.SkippedRules[0].RuleID)
	assert.Equal(t, domain.LOW_CONFIDENCE, out.SkippedRules[0].Reason)
}

func TestValidateReasonPriority(t *testing.T) {
	engine := newTestEngine()

	maxAge := 1.0
	rule := hba1cRule("r", 90)
	rule.Validation.MaxDataAgeHours = &maxAge
	rule.Validation.RequiredFields = []string{"labs.nonexistent"}

	// All three gates fail; low_confidence wins.
	state := freshState(50) // 2h old snapshot, missing field
	skipped := engine.validate(rule, state, engineNow)
	require.NotNil(t, skipped)
	assert.Equal(t, domain.LOW_CONFIDENCE, skipped.Reason)

	// Confidence passes; staleness is reported before missing data.
	state.Confidence = 95
	skipped = engine.validate(rule, state, engineNow)
	require.NotNil(t, skipped)
	assert.Equal(t, domain.STALE_DATA, skipped.Reason)

	// Only the required field is missing.
	rule.Validation.MaxDataAgeHours = nil
	skipped = engine.validate(rule, state, engineNow)
	require.NotNil(t, skipped)
	assert.Equal(t, domain.MISSING_DATA, skipped.Reason)
	assert.Contains(t, skipped.Details, "labs.nonexistent")
}

func TestEvaluateAllSuppressesNoOp(t *testing.T) {
	engine := newTestEngine()

	rule := hba1cRule("noop", 0)
	rule.Logic.If = &ruleexpr.Compare{
		Op:    ">=",
		Left:  &ruleexpr.Field{Path: "labs.hba1c"},
		Right: &ruleexpr.Literal{Value: 99.0},
	}

	out := engine.EvaluateAll([]domain.ClinicalProtocolRule{rule}, freshState(90))
	assert.Empty(t, out.Actions)
	require.Len(t, out.SkippedRules, 1)
	assert.Equal(t, domain.MISSING_DATA, out.SkippedRules[0].Reason)
	assert.Equal(t, "rule evaluated to no-action", out.SkippedRules[0].Details)
}

func TestEvaluateAllNoOpSurfacesUnderHumanReview(t *testing.T) {
	engine := newTestEngine()

	rule := hba1cRule("review", 0)
	rule.Logic.If = &ruleexpr.Literal{Value: false}
	rule.Validation.RequireHumanReview = true

	out := engine.EvaluateAll([]domain.ClinicalProtocolRule{rule}, freshState(90))
	require.Len(t, out.Actions, 1)
	assert.Equal(t, domain.NO_ACTION, out.Actions[0].Action)
	assert.True(t, out.Actions[0].RequiresReview)
}

func TestEvaluateAllSkipsInactiveRules(t *testing.T) {
	engine := newTestEngine()

	rule := hba1cRule("inactive", 0)
	rule.Metadata.IsActive = false

	out := engine.EvaluateAll([]domain.ClinicalProtocolRule{rule}, freshState(90))
	assert.Empty(t, out.Actions)
	assert.Empty(t, out.SkippedRules)
}

func TestEvaluateAllDegradesBrokenRules(t *testing.T) {
	engine := newTestEngine()

	broken := hba1cRule("broken", 0)
	broken.Logic.If = &ruleexpr.Predicate{Name: "no_such_predicate"}
	noLogic := domain.ClinicalProtocolRule{
		RuleID:   "no-logic",
		Metadata: domain.RuleMetadata{IsActive: true},
	}
	healthy := hba1cRule("healthy", 0)

	out := engine.EvaluateAll([]domain.ClinicalProtocolRule{broken, noLogic, healthy}, freshState(90))

	// The batch completes despite two bad rules.
	assert.Equal(t, []string{"healthy"}, out.TriggeredRules)
	require.Len(t, out.SkippedRules, 2)
	for _, s := range out.SkippedRules {
		assert.Equal(t, domain.EVALUATION_ERROR, s.Reason)
	}
}

func TestResolveActionUnrecognizedResultFallsBack(t *testing.T) {
	engine := newTestEngine()

	rule := hba1cRule("stringy", 0)
	rule.Logic.If = &ruleexpr.Literal{Value: "not_a_real_action"}

	out := engine.EvaluateAll([]domain.ClinicalProtocolRule{rule}, freshState(90))
	// Fallback is no_action, which is then suppressed.
	assert.Empty(t, out.Actions)
	require.Len(t, out.SkippedRules, 1)
}

func TestResolveActionRecognizedActionString(t *testing.T) {
	engine := newTestEngine()

	rule := hba1cRule("direct", 0)
	rule.Logic.If = &ruleexpr.Literal{Value: string(domain.URGENT_REVIEW)}

	out := engine.EvaluateAll([]domain.ClinicalProtocolRule{rule}, freshState(90))
	require.Len(t, out.Actions, 1)
	assert.Equal(t, domain.URGENT_REVIEW, out.Actions[0].Action)
}

func TestLoadRulesRejectsInvalidCatalog(t *testing.T) {
	engine := newTestEngine()

	valid := hba1cRule("ok", 0)
	require.NoError(t, engine.LoadRules([]domain.ClinicalProtocolRule{valid}))

	invalid := hba1cRule("bad-predicate", 0)
	invalid.Logic.If = &ruleexpr.Predicate{Name: "no_such_predicate"}
	err := engine.LoadRules([]domain.ClinicalProtocolRule{valid, invalid, {RuleID: ""}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad-predicate")
	assert.Contains(t, err.Error(), "empty rule_id")
}

func TestEvaluateAllVitalSignsAlias(t *testing.T) {
	engine := newTestEngine()

	rule := hba1cRule("bp", 0)
	rule.Logic.If = &ruleexpr.Compare{
		Op:    ">",
		Left:  &ruleexpr.Field{Path: "vital_signs.systolic_bp"},
		Right: &ruleexpr.Literal{Value: 140.0},
	}
	rule.Logic.Then = string(domain.NOTIFY_CARE_TEAM)

	out := engine.EvaluateAll([]domain.ClinicalProtocolRule{rule}, freshState(90))
	assert.Equal(t, []string{"bp"}, out.TriggeredRules)
}
