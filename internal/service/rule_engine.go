package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cds-rules-server/internal/domain"
	"github.com/cds-rules-server/pkg/ruleexpr"
)

// ruleOutcome is the three-way result of evaluating one rule: it either
// fired with an action, was suppressed as a no-op, or was skipped with a
// reason. Exactly one branch is populated.
type ruleOutcome struct {
	fired      *domain.RuleEvaluationResult
	suppressed bool
	skipped    *domain.SkippedRule
}

// RuleEngine evaluates a catalog of declarative protocol rules against a
// single patient-state snapshot. It is stateless and safe to call
// concurrently across unrelated patients or rule sets; rules within one
// batch have no ordering dependency on each other.
type RuleEngine struct {
	logger     *logrus.Logger
	predicates ruleexpr.Registry
	now        func() time.Time
}

// NewRuleEngine creates a rule engine with the default clinical predicate
// registry.
func NewRuleEngine(logger *logrus.Logger) *RuleEngine {
	return &RuleEngine{
		logger:     logger,
		predicates: ruleexpr.DefaultRegistry(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// EvaluateAll evaluates every active rule in the catalog against the
// snapshot. Evaluation is total: a malformed rule degrades to a SkippedRule
// and never halts the rest of the batch.
func (e *RuleEngine) EvaluateAll(rules []domain.ClinicalProtocolRule, state *domain.PatientState) *domain.RuleEngineOutput {
	started := time.Now()
	now := e.now()
	ctx := ruleexpr.NewContext(state.EvalContext(), now, e.predicates)

	output := &domain.RuleEngineOutput{
		Actions:        []domain.RuleEvaluationResult{},
		TriggeredRules: []string{},
		SkippedRules:   []domain.SkippedRule{},
	}

	active := 0
	for _, rule := range rules {
		if !rule.Metadata.IsActive {
			continue
		}
		active++

		outcome := e.evaluateOne(rule, state, ctx, now)
		switch {
		case outcome.fired != nil:
			output.Actions = append(output.Actions, *outcome.fired)
			output.TriggeredRules = append(output.TriggeredRules, rule.RuleID)
		case outcome.skipped != nil:
			output.SkippedRules = append(output.SkippedRules, *outcome.skipped)
		}
	}

	output.EvaluationTimeMs = time.Since(started).Milliseconds()

	e.logger.WithFields(logrus.Fields{
		"patient_id":         state.PatientID,
		"active_rules":       active,
		"actions":            len(output.Actions),
		"skipped":            len(output.SkippedRules),
		"evaluation_time_ms": output.EvaluationTimeMs,
	}).Info("Completed rule batch evaluation")

	return output
}

// evaluateOne runs the per-rule state machine: validate, evaluate the
// expression tree, resolve the action, suppress no-ops. Panics and errors
// from steps 2-4 are converted to evaluation_error skips; the engine never
// throws.
func (e *RuleEngine) evaluateOne(rule domain.ClinicalProtocolRule, state *domain.PatientState, ctx *ruleexpr.Context, now time.Time) (outcome ruleOutcome) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithFields(logrus.Fields{
				"rule_id": rule.RuleID,
				"panic":   fmt.Sprint(r),
			}).Error("Rule evaluation panicked")
			outcome = ruleOutcome{skipped: &domain.SkippedRule{
				RuleID:  rule.RuleID,
				Reason:  domain.EVALUATION_ERROR,
				Details: fmt.Sprintf("evaluation panicked: %v", r),
			}}
		}
	}()

	if skipped := e.validate(rule, state, now); skipped != nil {
		return ruleOutcome{skipped: skipped}
	}

	if rule.Logic == nil {
		return ruleOutcome{skipped: &domain.SkippedRule{
			RuleID:  rule.RuleID,
			Reason:  domain.EVALUATION_ERROR,
			Details: "rule has no logic block",
		}}
	}

	result, err := rule.Logic.Evaluate(ctx)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"rule_id": rule.RuleID,
			"error":   err,
		}).Warn("Rule expression evaluation failed")
		return ruleOutcome{skipped: &domain.SkippedRule{
			RuleID:  rule.RuleID,
			Reason:  domain.EVALUATION_ERROR,
			Details: err.Error(),
		}}
	}

	action := e.resolveAction(rule, result)

	// A no-op action is noise, not a decision: report it as a skip unless a
	// human is meant to look at this rule's output anyway.
	if action.IsNoOp() && !rule.Validation.RequireHumanReview {
		return ruleOutcome{
			suppressed: true,
			skipped: &domain.SkippedRule{
				RuleID:  rule.RuleID,
				Reason:  domain.MISSING_DATA,
				Details: "rule evaluated to no-action",
			},
		}
	}

	return ruleOutcome{fired: &domain.RuleEvaluationResult{
		Action:         action,
		Protocol:       rule.RuleID,
		Confidence:     state.Confidence,
		RequiresReview: rule.Validation.RequireHumanReview,
		TriggeredAt:    now,
	}}
}

// validate gates evaluation on snapshot quality. The first failing
// dimension determines the reason, checked in priority order
// low_confidence > stale_data > missing_data so exactly one reason is
// reported even when several fail.
func (e *RuleEngine) validate(rule domain.ClinicalProtocolRule, state *domain.PatientState, now time.Time) *domain.SkippedRule {
	if state.Confidence < rule.Validation.MinConfidence {
		return &domain.SkippedRule{
			RuleID: rule.RuleID,
			Reason: domain.LOW_CONFIDENCE,
			Details: fmt.Sprintf("state confidence %.0f below required %.0f",
				state.Confidence, rule.Validation.MinConfidence),
		}
	}

	if rule.Validation.MaxDataAgeHours != nil {
		age := state.AgeHours(now)
		if age > *rule.Validation.MaxDataAgeHours {
			return &domain.SkippedRule{
				RuleID: rule.RuleID,
				Reason: domain.STALE_DATA,
				Details: fmt.Sprintf("snapshot is %.1fh old, limit %.1fh",
					age, *rule.Validation.MaxDataAgeHours),
			}
		}
	}

	if len(rule.Validation.RequiredFields) > 0 {
		values := state.EvalContext()
		for _, path := range rule.Validation.RequiredFields {
			if resolved, ok := resolvePath(values, path); !ok || resolved == nil {
				return &domain.SkippedRule{
					RuleID:  rule.RuleID,
					Reason:  domain.MISSING_DATA,
					Details: fmt.Sprintf("required field %q is absent", path),
				}
			}
		}
	}

	return nil
}

// resolveAction maps the raw expression result onto a clinical action:
// the declared then-value when the result equals it, the fallback when the
// result is falsy, the result itself when it is a recognized action
// identifier, and the fallback (with a log) for anything else.
func (e *RuleEngine) resolveAction(rule domain.ClinicalProtocolRule, result any) domain.ClinicalAction {
	if s, ok := result.(string); ok && s == rule.Logic.Then {
		return domain.ClinicalAction(rule.Logic.Then)
	}
	if !ruleexpr.Truthy(result) {
		return domain.ClinicalAction(rule.Logic.Fallback)
	}
	if b, ok := result.(bool); ok && b {
		return domain.ClinicalAction(rule.Logic.Then)
	}
	if s, ok := result.(string); ok {
		if action := domain.ClinicalAction(s); action.IsValid() {
			return action
		}
	}

	e.logger.WithFields(logrus.Fields{
		"rule_id":     rule.RuleID,
		"result_type": fmt.Sprintf("%T", result),
	}).Warn("Rule resolved to unrecognized result, using fallback")
	return domain.ClinicalAction(rule.Logic.Fallback)
}

// LoadRules decodes and validates an externally authored rule catalog.
// Rules whose expressions fail validation are rejected as a whole; a
// catalog with an unregistered predicate is an authoring error.
func (e *RuleEngine) LoadRules(rules []domain.ClinicalProtocolRule) error {
	var problems []string
	for _, rule := range rules {
		if rule.RuleID == "" {
			problems = append(problems, "rule with empty rule_id")
			continue
		}
		if rule.Logic == nil {
			problems = append(problems, fmt.Sprintf("%s: no logic block", rule.RuleID))
			continue
		}
		if err := rule.Logic.Validate(e.predicates); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", rule.RuleID, err))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("rule catalog validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

// resolvePath walks a dot-path through nested maps, mirroring the
// expression language's field resolution.
func resolvePath(values map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var current any = values
	for _, seg := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
