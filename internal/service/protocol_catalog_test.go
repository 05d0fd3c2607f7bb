package service

import (
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cds-rules-server/internal/catalog"
	"github.com/cds-rules-server/internal/domain"
)

func newTestProtocolCatalog(t *testing.T, cacheSize int) *ProtocolCatalog {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	pc, err := NewProtocolCatalog(logger, catalog.Protocols(), cacheSize)
	require.NoError(t, err)
	return pc
}

func protocolIDs(protocols []domain.Protocol) []string {
	out := make([]string, 0, len(protocols))
	for _, p := range protocols {
		out = append(out, p.ID)
	}
	return out
}

func TestNewProtocolCatalogRejectsIncomplete(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	_, err := NewProtocolCatalog(logger, []domain.Protocol{{ID: "x"}}, 0)
	assert.Error(t, err)
}

func TestProtocolsForUnknownCondition(t *testing.T) {
	pc := newTestProtocolCatalog(t, 0)
	assert.Empty(t, pc.ProtocolsFor("unknown_condition"))
}

func TestIsApplicableCriteria(t *testing.T) {
	pc := newTestProtocolCatalog(t, 0)

	var glycemic domain.Protocol
	for _, p := range pc.ProtocolsFor("type2_diabetes") {
		if p.ID == "dm2-glycemic-2024" {
			glycemic = p
		}
	}
	require.NotEmpty(t, glycemic.ID)

	tests := []struct {
		name  string
		facts domain.PatientFacts
		want  bool
	}{
		{
			name:  "adult with elevated hba1c",
			facts: domain.PatientFacts{Age: 55, Labs: map[string]float64{"hba1c": 7.2}},
			want:  true,
		},
		{
			name:  "hba1c exactly at inclusive lower bound",
			facts: domain.PatientFacts{Age: 55, Labs: map[string]float64{"hba1c": 6.5}},
			want:  true,
		},
		{
			name:  "hba1c below range",
			facts: domain.PatientFacts{Age: 55, Labs: map[string]float64{"hba1c": 6.4}},
			want:  false,
		},
		{
			name:  "required lab absent",
			facts: domain.PatientFacts{Age: 55},
			want:  false,
		},
		{
			name:  "below minimum age",
			facts: domain.PatientFacts{Age: 16, Labs: map[string]float64{"hba1c": 7.2}},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pc.IsApplicable(glycemic, &tt.facts))
		})
	}
}

func TestIsApplicableAgeWindow(t *testing.T) {
	pc := newTestProtocolCatalog(t, 0)

	var statin domain.Protocol
	for _, p := range pc.ProtocolsFor("hyperlipidemia") {
		if p.ID == "lipid-statin-2018" {
			statin = p
		}
	}
	require.NotEmpty(t, statin.ID)

	facts := func(age int) *domain.PatientFacts {
		return &domain.PatientFacts{Age: age, Labs: map[string]float64{"ldl": 165}}
	}
	assert.False(t, pc.IsApplicable(statin, facts(39)))
	assert.True(t, pc.IsApplicable(statin, facts(40)))
	assert.True(t, pc.IsApplicable(statin, facts(75)))
	assert.False(t, pc.IsApplicable(statin, facts(76)))
}

func TestApplicableProtocolsFilters(t *testing.T) {
	pc := newTestProtocolCatalog(t, 0)

	facts := &domain.PatientFacts{Age: 55, Labs: map[string]float64{"hba1c": 7.2}}
	got := protocolIDs(pc.ApplicableProtocols("type2_diabetes", facts))
	assert.Contains(t, got, "dm2-glycemic-2024")
	assert.Contains(t, got, "dm2-nephropathy-screen")

	// Controlled hba1c keeps the nephropathy screen but drops the
	// glycemic control protocol.
	facts.Labs["hba1c"] = 5.8
	got = protocolIDs(pc.ApplicableProtocols("type2_diabetes", facts))
	assert.NotContains(t, got, "dm2-glycemic-2024")
	assert.Contains(t, got, "dm2-nephropathy-screen")
}

func TestApplicableProtocolsMemoization(t *testing.T) {
	pc := newTestProtocolCatalog(t, 16)

	facts := &domain.PatientFacts{PatientID: "p1", Age: 55, Labs: map[string]float64{"hba1c": 7.2}}
	first := protocolIDs(pc.ApplicableProtocols("type2_diabetes", facts))
	second := protocolIDs(pc.ApplicableProtocols("type2_diabetes", facts))
	assert.Equal(t, first, second)

	// Changed facts must not be served from the stale entry.
	facts.Labs["hba1c"] = 5.0
	third := protocolIDs(pc.ApplicableProtocols("type2_diabetes", facts))
	assert.NotContains(t, third, "dm2-glycemic-2024")
}

func TestApplicableProtocolsSkipsCacheForUnkeyableFacts(t *testing.T) {
	pc := newTestProtocolCatalog(t, 16)

	// NaN lab values cannot be JSON-marshaled, so these facts get no
	// cache key and must be evaluated fresh every time.
	eligible := &domain.PatientFacts{
		PatientID: "p1",
		Age:       55,
		Labs:      map[string]float64{"hba1c": 7.2, "crp": math.NaN()},
	}
	ineligible := &domain.PatientFacts{
		PatientID: "p2",
		Age:       55,
		Labs:      map[string]float64{"hba1c": 5.0, "crp": math.NaN()},
	}

	first := protocolIDs(pc.ApplicableProtocols("type2_diabetes", eligible))
	assert.Contains(t, first, "dm2-glycemic-2024")

	// Must not be served the previous patient's result.
	second := protocolIDs(pc.ApplicableProtocols("type2_diabetes", ineligible))
	assert.NotContains(t, second, "dm2-glycemic-2024")
}

func TestCriticalProtocols(t *testing.T) {
	pc := newTestProtocolCatalog(t, 0)

	critical := protocolIDs(pc.CriticalProtocols())
	assert.Contains(t, critical, "hf-gdmt-2022")
	for _, p := range pc.CriticalProtocols() {
		assert.Equal(t, domain.CRITICAL_PRIORITY, p.Priority)
	}
}

func TestConditionKeysCoverCatalog(t *testing.T) {
	pc := newTestProtocolCatalog(t, 0)

	keys := pc.ConditionKeys()
	assert.Contains(t, keys, "hypertension")
	assert.Contains(t, keys, "type2_diabetes")
	assert.Contains(t, keys, "heart_failure")
}
