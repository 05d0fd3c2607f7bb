package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cds-rules-server/internal/domain"
)

func TestConditionPatternsWellFormed(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range ConditionPatterns() {
		assert.NotEmpty(t, p.ConditionID)
		assert.NotEmpty(t, p.Name, p.ConditionID)
		assert.True(t, p.Category.IsValid(), "%s: category %q", p.ConditionID, p.Category)
		assert.NotEmpty(t, p.Patterns, p.ConditionID)
		assert.False(t, seen[p.ConditionID], "duplicate condition id %s", p.ConditionID)
		seen[p.ConditionID] = true
	}
}

func TestMedicationMappingsReferenceKnownConditions(t *testing.T) {
	conditions := map[string]bool{}
	for _, p := range ConditionPatterns() {
		conditions[p.ConditionID] = true
	}

	for _, m := range MedicationMappings() {
		assert.NotEmpty(t, m.Medication)
		assert.GreaterOrEqual(t, m.Confidence, 1.0, m.Medication)
		assert.LessOrEqual(t, m.Confidence, 100.0, m.Medication)
		require.NotEmpty(t, m.Conditions, m.Medication)
		for _, c := range m.Conditions {
			assert.True(t, conditions[c], "%s maps to unknown condition %s", m.Medication, c)
		}
	}
}

func TestConditionProtocolReferencesResolve(t *testing.T) {
	protocols := map[string]bool{}
	for _, p := range Protocols() {
		protocols[p.ID] = true
	}

	for _, c := range ConditionPatterns() {
		for _, id := range c.ProtocolIDs {
			assert.True(t, protocols[id], "%s references unknown protocol %s", c.ConditionID, id)
		}
	}
}

func TestProtocolsWellFormed(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range Protocols() {
		assert.NotEmpty(t, p.ID)
		assert.NotEmpty(t, p.ConditionKey, p.ID)
		assert.NotEmpty(t, p.Source, p.ID)
		assert.NotEmpty(t, p.Interventions, p.ID)
		assert.False(t, seen[p.ID], "duplicate protocol id %s", p.ID)
		seen[p.ID] = true

		if r, ok := p.Applicability.LabRanges["hba1c"]; ok && r.Min != nil && r.Max != nil {
			assert.LessOrEqual(t, *r.Min, *r.Max, p.ID)
		}
	}
}

func TestScreeningRulesWellFormed(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range ScreeningRules() {
		assert.NotEmpty(t, r.Name)
		assert.NotEmpty(t, r.ScreeningType, r.Name)
		assert.LessOrEqual(t, r.AgeRange.Min, r.AgeRange.Max, r.Name)
		assert.Positive(t, r.IntervalMonths(), r.Name)
		assert.False(t, seen[r.ScreeningType], "duplicate screening type %s", r.ScreeningType)
		seen[r.ScreeningType] = true

		if r.GenderRestriction != nil {
			assert.Contains(t, []domain.Gender{domain.MALE, domain.FEMALE}, *r.GenderRestriction, r.Name)
		}
	}
}
