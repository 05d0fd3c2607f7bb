// Package domain contains core business entities and types for the clinical
// decision-support rule layer: condition detection, protocol rule evaluation,
// lab threshold monitoring and preventive screening scheduling.
package domain

import (
	"errors"
	"fmt"
)

// DetectionSource identifies where a detected condition was inferred from.
// Diagnosis codes are the authoritative source; notes and medications are
// heuristic.
type DetectionSource string

const (
	SOURCE_NOTE         DetectionSource = "note"
	SOURCE_PROBLEM_LIST DetectionSource = "problem_list"
	SOURCE_MEDICATION   DetectionSource = "medication"
	SOURCE_LAB          DetectionSource = "lab"
	SOURCE_MANUAL       DetectionSource = "manual"
)

// ConditionCategory represents the clinical domain of a condition.
type ConditionCategory string

const (
	CARDIOVASCULAR   ConditionCategory = "cardiovascular"
	ENDOCRINE        ConditionCategory = "endocrine"
	RESPIRATORY      ConditionCategory = "respiratory"
	RENAL            ConditionCategory = "renal"
	METABOLIC        ConditionCategory = "metabolic"
	HEMATOLOGIC      ConditionCategory = "hematologic"
	MENTAL_HEALTH    ConditionCategory = "mental_health"
	GASTROINTESTINAL ConditionCategory = "gastrointestinal"
)

// IsValid reports whether the category is one of the known clinical domains.
func (c ConditionCategory) IsValid() bool {
	switch c {
	case CARDIOVASCULAR, ENDOCRINE, RESPIRATORY, RENAL, METABOLIC,
		HEMATOLOGIC, MENTAL_HEALTH, GASTROINTESTINAL:
		return true
	default:
		return false
	}
}

// SkipReason explains why a protocol rule produced no action.
// When a rule fails more than one validation dimension, exactly one reason is
// reported, checked in the order low_confidence > stale_data > missing_data.
type SkipReason string

const (
	LOW_CONFIDENCE   SkipReason = "low_confidence"
	STALE_DATA       SkipReason = "stale_data"
	MISSING_DATA     SkipReason = "missing_data"
	EVALUATION_ERROR SkipReason = "evaluation_error"
)

// ClinicalAction is the action identifier a protocol rule resolves to.
type ClinicalAction string

const (
	NO_ACTION         ClinicalAction = "no_action"
	NOTIFY_CARE_TEAM  ClinicalAction = "notify_care_team"
	SCHEDULE_FOLLOWUP ClinicalAction = "schedule_followup"
	ORDER_LAB         ClinicalAction = "order_lab"
	ADJUST_MEDICATION ClinicalAction = "adjust_medication"
	URGENT_REVIEW     ClinicalAction = "urgent_review"
	START_PROTOCOL    ClinicalAction = "start_protocol"
	FLAG_CHART        ClinicalAction = "flag_chart"
)

// Priority ranks recommendations, protocols and screening rules.
type Priority string

const (
	LOW_PRIORITY      Priority = "low"
	MEDIUM_PRIORITY   Priority = "medium"
	HIGH_PRIORITY     Priority = "high"
	CRITICAL_PRIORITY Priority = "critical"
)

// RecommendationCategory classifies prevention plan recommendations.
type RecommendationCategory string

const (
	LIFESTYLE  RecommendationCategory = "lifestyle"
	NUTRITION  RecommendationCategory = "nutrition"
	EXERCISE   RecommendationCategory = "exercise"
	MEDICATION RecommendationCategory = "medication"
	SCREENING  RecommendationCategory = "screening"
	MONITORING RecommendationCategory = "monitoring"
	REFERRAL   RecommendationCategory = "referral"
	URGENT     RecommendationCategory = "urgent"
)

// EvidenceGrade is the strength-of-evidence label attached to a
// recommendation, protocol or screening rule (USPSTF-style letter grades).
type EvidenceGrade string

const (
	GRADE_A      EvidenceGrade = "A"
	GRADE_B      EvidenceGrade = "B"
	GRADE_C      EvidenceGrade = "C"
	GRADE_EXPERT EvidenceGrade = "expert"
)

// PlanStatus tracks the lifecycle of a prevention plan.
type PlanStatus string

const (
	PLAN_ACTIVE    PlanStatus = "active"
	PLAN_COMPLETED PlanStatus = "completed"
	PLAN_CANCELLED PlanStatus = "cancelled"
)

// GoalStatus tracks an individual prevention plan goal.
type GoalStatus string

const (
	GOAL_PENDING  GoalStatus = "pending"
	GOAL_ACHIEVED GoalStatus = "achieved"
	GOAL_OVERDUE  GoalStatus = "overdue"
)

// ReminderStatus tracks a screening reminder. Reminder creation is
// idempotent per (patient, screening type, open status).
type ReminderStatus string

const (
	REMINDER_OPEN      ReminderStatus = "open"
	REMINDER_COMPLETED ReminderStatus = "completed"
	REMINDER_DISMISSED ReminderStatus = "dismissed"
)

// Gender as recorded in patient demographics. Some lab threshold ladders
// are gender-specific; for those, UNKNOWN_GENDER is a hard error.
type Gender string

const (
	MALE           Gender = "male"
	FEMALE         Gender = "female"
	OTHER_GENDER   Gender = "other"
	UNKNOWN_GENDER Gender = "unknown"
)

// Validation errors for clinical data integrity
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidSource      = errors.New("invalid detection source")
	ErrInvalidSkipReason  = errors.New("invalid skip reason")
	ErrInvalidAction      = errors.New("invalid clinical action")
	ErrInvalidPriority    = errors.New("invalid priority")
	ErrNonNumericLabValue = errors.New("lab value is not numeric")
	ErrMissingGender      = errors.New("patient gender is required for gender-specific thresholds")
)

// IsValid reports whether the DetectionSource is one of the known sources.
func (s DetectionSource) IsValid() bool {
	switch s {
	case SOURCE_NOTE, SOURCE_PROBLEM_LIST, SOURCE_MEDICATION, SOURCE_LAB, SOURCE_MANUAL:
		return true
	default:
		return false
	}
}

// String returns the string representation of the detection source.
func (s DetectionSource) String() string {
	return string(s)
}

// Precedence ranks detection sources for deduplication tie-breaks: an
// authoritative source beats a heuristic one at equal confidence.
func (s DetectionSource) Precedence() int {
	switch s {
	case SOURCE_MANUAL:
		return 5
	case SOURCE_PROBLEM_LIST:
		return 4
	case SOURCE_LAB:
		return 3
	case SOURCE_MEDICATION:
		return 2
	case SOURCE_NOTE:
		return 1
	default:
		return 0
	}
}

// IsValid reports whether the skip reason is recognized.
func (r SkipReason) IsValid() bool {
	switch r {
	case LOW_CONFIDENCE, STALE_DATA, MISSING_DATA, EVALUATION_ERROR:
		return true
	default:
		return false
	}
}

// String returns the string representation of the skip reason.
func (r SkipReason) String() string {
	return string(r)
}

// IsValid reports whether the action is a recognized clinical action
// identifier. Rule logic may resolve to any of these directly.
func (a ClinicalAction) IsValid() bool {
	switch a {
	case NO_ACTION, NOTIFY_CARE_TEAM, SCHEDULE_FOLLOWUP, ORDER_LAB,
		ADJUST_MEDICATION, URGENT_REVIEW, START_PROTOCOL, FLAG_CHART:
		return true
	default:
		return false
	}
}

// String returns the string representation of the action.
func (a ClinicalAction) String() string {
	return string(a)
}

// IsNoOp reports whether the action is the neutral "no action" sentinel.
// The rule engine suppresses no-op actions rather than emitting them.
func (a ClinicalAction) IsNoOp() bool {
	return a == NO_ACTION || a == ""
}

// LogFields returns structured logging fields for audit trails.
func (a ClinicalAction) LogFields() map[string]any {
	return map[string]any{
		"action":          string(a),
		"is_valid":        a.IsValid(),
		"requires_action": !a.IsNoOp(),
	}
}

// IsValid reports whether the priority is recognized.
func (p Priority) IsValid() bool {
	switch p {
	case LOW_PRIORITY, MEDIUM_PRIORITY, HIGH_PRIORITY, CRITICAL_PRIORITY:
		return true
	default:
		return false
	}
}

// Rank maps the priority onto an ordinal scale, higher is more urgent.
func (p Priority) Rank() int {
	switch p {
	case CRITICAL_PRIORITY:
		return 4
	case HIGH_PRIORITY:
		return 3
	case MEDIUM_PRIORITY:
		return 2
	case LOW_PRIORITY:
		return 1
	default:
		return 0
	}
}

// String returns the string representation of the priority.
func (p Priority) String() string {
	return string(p)
}

// IsValid reports whether the gender value is recognized.
func (g Gender) IsValid() bool {
	switch g {
	case MALE, FEMALE, OTHER_GENDER, UNKNOWN_GENDER:
		return true
	default:
		return false
	}
}

// String returns the string representation of the gender.
func (g Gender) String() string {
	return string(g)
}

// ClampConfidence normalizes a confidence score to the [0,100] scale used
// everywhere inside the engine. Callers supplying [0,1] scores must convert
// at the boundary before constructing domain objects.
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

// ParseGender converts a free-form demographics value to a Gender.
func ParseGender(s string) (Gender, error) {
	switch s {
	case "male", "m", "M":
		return MALE, nil
	case "female", "f", "F":
		return FEMALE, nil
	case "other":
		return OTHER_GENDER, nil
	case "unknown", "":
		return UNKNOWN_GENDER, nil
	default:
		return UNKNOWN_GENDER, fmt.Errorf("unrecognized gender value %q", s)
	}
}
