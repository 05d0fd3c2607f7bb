package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/cds-rules-server/internal/cache"
	"github.com/cds-rules-server/internal/domain"
)

const demographicsScope = "demographics"

// CachedDemographicsResolver resolves patient demographics with two-tier
// caching in front of the external patient record store: an in-memory LRU
// for hot patients and the shared Redis-backed result cache for warm ones.
// It implements domain.DemographicsReader.
type CachedDemographicsResolver struct {
	store domain.PatientRecordStore

	memoryCache *lru.Cache         // Tier 1: in-memory LRU (hot data)
	resultCache *cache.ResultCache // Tier 2: Redis-backed (warm data)

	memoryCacheTTL time.Duration
	redisCacheTTL  time.Duration

	logger  *logrus.Logger
	stats   *ResolverStats
	statsMu sync.RWMutex
}

// ResolverStats represents resolver cache performance statistics
type ResolverStats struct {
	MemoryHits    int64     `json:"memory_hits"`
	MemoryMisses  int64     `json:"memory_misses"`
	RedisHits     int64     `json:"redis_hits"`
	RedisMisses   int64     `json:"redis_misses"`
	StoreReads    int64     `json:"store_reads"`
	TotalRequests int64     `json:"total_requests"`
	ErrorCount    int64     `json:"error_count"`
	LastReset     time.Time `json:"last_reset"`
}

// DemographicsResolverConfig configures the cached resolver.
type DemographicsResolverConfig struct {
	MemoryCacheTTL time.Duration `json:"memory_cache_ttl"`
	RedisCacheTTL  time.Duration `json:"redis_cache_ttl"`
	MaxMemorySize  int           `json:"max_memory_size"`
}

// NewCachedDemographicsResolver creates a resolver over the record store.
// resultCache may be nil when Redis is not configured.
func NewCachedDemographicsResolver(
	config DemographicsResolverConfig,
	store domain.PatientRecordStore,
	resultCache *cache.ResultCache,
	logger *logrus.Logger,
) (*CachedDemographicsResolver, error) {
	if config.MemoryCacheTTL == 0 {
		config.MemoryCacheTTL = 15 * time.Minute
	}
	if config.RedisCacheTTL == 0 {
		config.RedisCacheTTL = 24 * time.Hour
	}
	if config.MaxMemorySize == 0 {
		config.MaxMemorySize = 1000 // entries
	}

	memoryCache, err := lru.New(config.MaxMemorySize)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	return &CachedDemographicsResolver{
		store:          store,
		memoryCache:    memoryCache,
		resultCache:    resultCache,
		memoryCacheTTL: config.MemoryCacheTTL,
		redisCacheTTL:  config.RedisCacheTTL,
		logger:         logger,
		stats: &ResolverStats{
			LastReset: time.Now(),
		},
	}, nil
}

// GetDemographics resolves demographics for a patient, caching hits in both
// tiers. Demographics change rarely; staleness up to the Redis TTL is
// acceptable for threshold selection.
func (r *CachedDemographicsResolver) GetDemographics(ctx context.Context, patientID string) (*domain.Demographics, error) {
	r.incrementStat("total_requests")

	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		r.incrementStat("error_count")
		return nil, fmt.Errorf("patient ID cannot be empty")
	}

	if demo := r.getFromMemoryCache(patientID); demo != nil {
		r.incrementStat("memory_hits")
		return demo, nil
	}
	r.incrementStat("memory_misses")

	if demo := r.getFromRedisCache(ctx, patientID); demo != nil {
		r.incrementStat("redis_hits")
		r.setInMemoryCache(patientID, demo)
		return demo, nil
	}
	r.incrementStat("redis_misses")

	r.incrementStat("store_reads")
	demo, err := r.store.GetDemographics(ctx, patientID)
	if err != nil {
		r.incrementStat("error_count")
		return nil, fmt.Errorf("failed to resolve demographics for patient %s: %w", patientID, err)
	}

	r.setInMemoryCache(patientID, demo)
	r.setInRedisCache(ctx, patientID, demo)

	r.logger.WithFields(logrus.Fields{
		"patient_id": patientID,
		"gender":     demo.Gender,
	}).Debug("Resolved demographics from record store")

	return demo, nil
}

// Invalidate drops cached demographics for a patient in both tiers.
func (r *CachedDemographicsResolver) Invalidate(ctx context.Context, patientID string) {
	r.memoryCache.Remove(patientID)
	if r.resultCache != nil {
		// Scope-wide invalidation; per-key removal is not exposed.
		if err := r.resultCache.InvalidateScope(ctx, demographicsScope); err != nil {
			r.logger.WithField("error", err.Error()).Warn("Failed to invalidate demographics cache scope")
		}
	}
	r.logger.WithField("patient_id", patientID).Info("Invalidated cached demographics")
}

// GetStats returns resolver cache performance statistics
func (r *CachedDemographicsResolver) GetStats() ResolverStats {
	r.statsMu.RLock()
	defer r.statsMu.RUnlock()
	return *r.stats
}

func (r *CachedDemographicsResolver) getFromMemoryCache(patientID string) *domain.Demographics {
	if value, ok := r.memoryCache.Get(patientID); ok {
		if entry, ok := value.(*demographicsEntry); ok && !entry.isExpired() {
			return entry.demographics
		}
		r.memoryCache.Remove(patientID)
	}
	return nil
}

func (r *CachedDemographicsResolver) getFromRedisCache(ctx context.Context, patientID string) *domain.Demographics {
	if r.resultCache == nil {
		return nil
	}
	var demo domain.Demographics
	if r.resultCache.Get(ctx, demographicsScope, map[string]any{"patient_id": patientID}, &demo) {
		return &demo
	}
	return nil
}

func (r *CachedDemographicsResolver) setInMemoryCache(patientID string, demo *domain.Demographics) {
	r.memoryCache.Add(patientID, &demographicsEntry{
		demographics: demo,
		expiry:       time.Now().Add(r.memoryCacheTTL),
	})
}

func (r *CachedDemographicsResolver) setInRedisCache(ctx context.Context, patientID string, demo *domain.Demographics) {
	if r.resultCache == nil {
		return
	}
	if err := r.resultCache.Set(ctx, demographicsScope, map[string]any{"patient_id": patientID}, demo, r.redisCacheTTL); err != nil {
		r.logger.WithFields(logrus.Fields{
			"patient_id": patientID,
			"error":      err.Error(),
		}).Warn("Failed to cache demographics in Redis")
	}
}

func (r *CachedDemographicsResolver) incrementStat(statName string) {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()

	switch statName {
	case "memory_hits":
		r.stats.MemoryHits++
	case "memory_misses":
		r.stats.MemoryMisses++
	case "redis_hits":
		r.stats.RedisHits++
	case "redis_misses":
		r.stats.RedisMisses++
	case "store_reads":
		r.stats.StoreReads++
	case "total_requests":
		r.stats.TotalRequests++
	case "error_count":
		r.stats.ErrorCount++
	}
}

type demographicsEntry struct {
	demographics *domain.Demographics
	expiry       time.Time
}

func (e *demographicsEntry) isExpired() bool {
	return time.Now().After(e.expiry)
}
