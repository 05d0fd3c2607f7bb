package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/cds-rules-server/internal/domain"
)

// ProtocolCatalog is a read-only registry of guideline protocols keyed by
// condition. It is constructed once from static configuration and passed by
// reference; lookups never mutate state, so it is safe for concurrent use.
type ProtocolCatalog struct {
	logger      *logrus.Logger
	byCondition map[string][]domain.Protocol
	filterCache *lru.Cache[string, []domain.Protocol]
}

// NewProtocolCatalog builds the registry from a protocol slice. cacheSize
// bounds the applicability-filter memoization cache; zero or negative
// disables it.
func NewProtocolCatalog(logger *logrus.Logger, protocols []domain.Protocol, cacheSize int) (*ProtocolCatalog, error) {
	byCondition := make(map[string][]domain.Protocol)
	for _, p := range protocols {
		if p.ID == "" || p.ConditionKey == "" {
			return nil, fmt.Errorf("protocol missing id or condition key: %+v", p)
		}
		byCondition[p.ConditionKey] = append(byCondition[p.ConditionKey], p)
	}

	var cache *lru.Cache[string, []domain.Protocol]
	if cacheSize > 0 {
		var err error
		cache, err = lru.New[string, []domain.Protocol](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating protocol filter cache: %w", err)
		}
	}

	return &ProtocolCatalog{
		logger:      logger,
		byCondition: byCondition,
		filterCache: cache,
	}, nil
}

// ProtocolsFor returns every protocol registered for a condition key,
// unfiltered.
func (c *ProtocolCatalog) ProtocolsFor(conditionKey string) []domain.Protocol {
	return c.byCondition[conditionKey]
}

// IsApplicable reports whether a protocol applies to the patient: a pure
// AND over every criterion present on the applicability block. Any absent
// criterion is a wildcard.
func (c *ProtocolCatalog) IsApplicable(protocol domain.Protocol, facts *domain.PatientFacts) bool {
	criteria := protocol.Applicability

	if criteria.MinAge != nil && facts.Age < *criteria.MinAge {
		return false
	}
	if criteria.MaxAge != nil && facts.Age > *criteria.MaxAge {
		return false
	}
	if criteria.Gender != nil && facts.Gender != *criteria.Gender {
		return false
	}
	if criteria.Pregnancy != nil && facts.Pregnant != *criteria.Pregnancy {
		return false
	}
	for lab, bounds := range criteria.LabRanges {
		value, ok := facts.Labs[lab]
		if !ok {
			return false
		}
		if !bounds.Contains(value) {
			return false
		}
	}
	return true
}

// ApplicableProtocols filters the condition's protocols by patient
// applicability. Results are memoized per (condition, facts) when the
// filter cache is enabled.
func (c *ProtocolCatalog) ApplicableProtocols(conditionKey string, facts *domain.PatientFacts) []domain.Protocol {
	key := ""
	if c.filterCache != nil {
		key = filterCacheKey(conditionKey, facts)
		if key != "" {
			if cached, ok := c.filterCache.Get(key); ok {
				return cached
			}
		}
	}

	var out []domain.Protocol
	for _, p := range c.byCondition[conditionKey] {
		if c.IsApplicable(p, facts) {
			out = append(out, p)
		}
	}

	if c.filterCache != nil && key != "" {
		c.filterCache.Add(key, out)
	}
	return out
}

// ByPriority scans the whole catalog for protocols at one priority level.
func (c *ProtocolCatalog) ByPriority(priority domain.Priority) []domain.Protocol {
	var out []domain.Protocol
	for _, protocols := range c.byCondition {
		for _, p := range protocols {
			if p.Priority == priority {
				out = append(out, p)
			}
		}
	}
	return out
}

// CriticalProtocols is the cross-catalog convenience scan for
// critical-priority protocols.
func (c *ProtocolCatalog) CriticalProtocols() []domain.Protocol {
	return c.ByPriority(domain.CRITICAL_PRIORITY)
}

// ConditionKeys returns every condition key with at least one protocol.
func (c *ProtocolCatalog) ConditionKeys() []string {
	keys := make([]string, 0, len(c.byCondition))
	for k := range c.byCondition {
		keys = append(keys, k)
	}
	return keys
}

// filterCacheKey derives a cache key from the condition and a digest of
// the facts. Facts that cannot be marshaled (NaN lab values and the
// like) yield "" and bypass the cache entirely.
func filterCacheKey(conditionKey string, facts *domain.PatientFacts) string {
	payload, err := json.Marshal(facts)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(payload)
	return conditionKey + ":" + hex.EncodeToString(sum[:])
}
