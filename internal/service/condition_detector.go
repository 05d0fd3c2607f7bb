package service

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cds-rules-server/internal/catalog"
	"github.com/cds-rules-server/internal/domain"
)

// ConditionDetector infers medical conditions from clinical note text,
// medication lists and diagnosis codes. It is stateless and safe for
// concurrent use; each call is a pure function of its inputs and the
// detection tables fixed at construction.
type ConditionDetector struct {
	logger      *logrus.Logger
	patterns    []catalog.ConditionPattern
	medications []catalog.MedicationMapping
	byID        map[string]catalog.ConditionPattern
}

// NewConditionDetector creates a detector over the given tables. Pass the
// catalog defaults in production; tests may supply alternate tables.
func NewConditionDetector(logger *logrus.Logger, patterns []catalog.ConditionPattern, medications []catalog.MedicationMapping) *ConditionDetector {
	byID := make(map[string]catalog.ConditionPattern, len(patterns))
	for _, p := range patterns {
		byID[p.ConditionID] = p
	}
	return &ConditionDetector{
		logger:      logger,
		patterns:    patterns,
		medications: medications,
		byID:        byID,
	}
}

// Detect runs all three extraction paths, merges the results, deduplicates
// by normalized condition name keeping the highest-confidence detection and
// returns the list sorted descending by confidence. No match from any path
// yields an empty list, not an error.
func (d *ConditionDetector) Detect(noteText string, medications []string, diagnosisCodes []string) []domain.DetectedCondition {
	now := time.Now().UTC()

	var all []domain.DetectedCondition
	all = append(all, d.DetectFromText(noteText, now)...)
	all = append(all, d.DetectFromMedications(medications, now)...)
	all = append(all, d.DetectFromCodes(diagnosisCodes, now)...)

	merged := dedupeConditions(all)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})

	d.logger.WithFields(logrus.Fields{
		"raw_detections": len(all),
		"conditions":     len(merged),
	}).Debug("Condition detection complete")

	return merged
}

// DetectFromText scans the note against every condition's ordered pattern
// list. The first matching pattern wins for that condition; base confidence
// is 85, raised to 95 when one of the condition's own diagnosis codes also
// appears verbatim in the text. Distinct conditions may all match the same
// note.
func (d *ConditionDetector) DetectFromText(noteText string, detectedAt time.Time) []domain.DetectedCondition {
	if noteText == "" {
		return nil
	}
	lower := strings.ToLower(noteText)

	var out []domain.DetectedCondition
	for _, entry := range d.patterns {
		matched := false
		for _, pattern := range entry.Patterns {
			if strings.Contains(lower, strings.ToLower(pattern)) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}

		confidence := 85.0
		for _, code := range entry.Codes {
			if strings.Contains(noteText, code) {
				confidence = 95.0
				break
			}
		}

		out = append(out, d.newDetection(entry, domain.SOURCE_NOTE, confidence, detectedAt))
	}
	return out
}

// DetectFromMedications infers conditions from the medication list via
// case-insensitive substring matching against names and aliases. One
// medication may imply several conditions, each inheriting the mapping's
// fixed confidence.
func (d *ConditionDetector) DetectFromMedications(medications []string, detectedAt time.Time) []domain.DetectedCondition {
	var out []domain.DetectedCondition
	for _, mapping := range d.medications {
		if !medicationMatches(mapping, medications) {
			continue
		}
		for _, conditionID := range mapping.Conditions {
			entry, ok := d.byID[conditionID]
			if !ok {
				d.logger.WithFields(logrus.Fields{
					"medication": mapping.Medication,
					"condition":  conditionID,
				}).Warn("Medication mapping references unknown condition")
				continue
			}
			out = append(out, d.newDetection(entry, domain.SOURCE_MEDICATION, mapping.Confidence, detectedAt))
		}
	}
	return out
}

// DetectFromCodes matches diagnosis codes by prefix against each
// condition's code list. Codes are the authoritative source: confidence is
// always 100.
func (d *ConditionDetector) DetectFromCodes(diagnosisCodes []string, detectedAt time.Time) []domain.DetectedCondition {
	var out []domain.DetectedCondition
	for _, entry := range d.patterns {
		if !codeMatches(entry.Codes, diagnosisCodes) {
			continue
		}
		out = append(out, d.newDetection(entry, domain.SOURCE_PROBLEM_LIST, 100, detectedAt))
	}
	return out
}

// FilterByCategory returns the subset of detections in one clinical domain.
func FilterByCategory(conditions []domain.DetectedCondition, category domain.ConditionCategory) []domain.DetectedCondition {
	var out []domain.DetectedCondition
	for _, c := range conditions {
		if c.Category == category {
			out = append(out, c)
		}
	}
	return out
}

// HighConfidence returns detections with confidence >= 90.
func HighConfidence(conditions []domain.DetectedCondition) []domain.DetectedCondition {
	var out []domain.DetectedCondition
	for _, c := range conditions {
		if c.Confidence >= 90 {
			out = append(out, c)
		}
	}
	return out
}

// HasCondition reports whether any detection's name contains the given
// substring, case-insensitive.
func HasCondition(conditions []domain.DetectedCondition, nameSubstring string) bool {
	needle := strings.ToLower(nameSubstring)
	for _, c := range conditions {
		if strings.Contains(strings.ToLower(c.Name), needle) {
			return true
		}
	}
	return false
}

func (d *ConditionDetector) newDetection(entry catalog.ConditionPattern, source domain.DetectionSource, confidence float64, detectedAt time.Time) domain.DetectedCondition {
	return domain.DetectedCondition{
		ID:                uuid.New().String(),
		Name:              entry.Name,
		Category:          entry.Category,
		Codes:             entry.Codes,
		DetectedFrom:      source,
		Confidence:        domain.ClampConfidence(confidence),
		DetectedAt:        detectedAt,
		RelevantProtocols: entry.ProtocolIDs,
	}
}

// dedupeConditions keeps, per normalized name, the single detection with
// the highest confidence. Ties break on source precedence (authoritative
// beats heuristic), then on insertion order, so detection is deterministic
// and idempotent for identical inputs.
func dedupeConditions(detections []domain.DetectedCondition) []domain.DetectedCondition {
	best := make(map[string]domain.DetectedCondition, len(detections))
	var order []string
	for _, det := range detections {
		key := normalizeConditionName(det.Name)
		existing, seen := best[key]
		if !seen {
			best[key] = det
			order = append(order, key)
			continue
		}
		if det.Confidence > existing.Confidence ||
			(det.Confidence == existing.Confidence &&
				det.DetectedFrom.Precedence() > existing.DetectedFrom.Precedence()) {
			best[key] = det
		}
	}

	out := make([]domain.DetectedCondition, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}

func normalizeConditionName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func medicationMatches(mapping catalog.MedicationMapping, medications []string) bool {
	names := append([]string{mapping.Medication}, mapping.Aliases...)
	for _, med := range medications {
		lower := strings.ToLower(med)
		for _, name := range names {
			if strings.Contains(lower, strings.ToLower(name)) {
				return true
			}
		}
	}
	return false
}

func codeMatches(conditionCodes, diagnosisCodes []string) bool {
	for _, code := range diagnosisCodes {
		upper := strings.ToUpper(strings.TrimSpace(code))
		if upper == "" {
			continue
		}
		for _, prefix := range conditionCodes {
			if strings.HasPrefix(upper, strings.ToUpper(prefix)) {
				return true
			}
		}
	}
	return false
}
