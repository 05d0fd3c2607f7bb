package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "cds:cache:"

// Config defines configuration for evaluation result caching
type Config struct {
	// Redis client for the distributed tier; nil means memory-only
	RedisClient *redis.Client
	// Default TTL for cached results
	DefaultTTL time.Duration
	// Maximum total payload bytes held in the memory tier
	MaxMemorySize int
	// Enable/disable caching
	Enabled bool
}

// CachedResult is one cached evaluation payload. Scope names the producing
// operation (rule evaluation, demographics lookup, protocol filtering);
// Params are the inputs the key was derived from.
type CachedResult struct {
	Scope     string         `json:"scope"`
	Params    map[string]any `json:"params"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
	Metadata  Metadata       `json:"metadata"`
}

// Metadata carries access bookkeeping for a cached result.
type Metadata struct {
	Hits         int64     `json:"hits"`
	LastAccessed time.Time `json:"last_accessed"`
	Size         int       `json:"size"`
}

// ResultCache is a two-tier (memory + Redis) cache for deterministic
// evaluation outputs.
type ResultCache struct {
	config      Config
	logger      *logrus.Logger
	memoryCache map[string]*CachedResult
	memoryMutex sync.RWMutex
	stats       Stats
	statsMutex  sync.RWMutex
}

// Stats tracks cache performance metrics
type Stats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Evictions   int64 `json:"evictions"`
	MemoryUsage int64 `json:"memory_usage"`
}

// NewResultCache creates a new result cache instance
func NewResultCache(config Config, logger *logrus.Logger) *ResultCache {
	if config.DefaultTTL == 0 {
		config.DefaultTTL = 15 * time.Minute
	}
	if config.MaxMemorySize == 0 {
		config.MaxMemorySize = 32 * 1024 * 1024 // 32MB
	}

	return &ResultCache{
		config:      config,
		logger:      logger,
		memoryCache: make(map[string]*CachedResult),
	}
}

// GenerateKey creates a deterministic cache key for a scope and its inputs.
func (rc *ResultCache) GenerateKey(scope string, params map[string]any) string {
	paramBytes, _ := json.Marshal(params)
	hash := sha256.Sum256(append([]byte(scope+"::"), paramBytes...))
	return hex.EncodeToString(hash[:])
}

// Get retrieves a cached result and unmarshals its payload into out.
func (rc *ResultCache) Get(ctx context.Context, scope string, params map[string]any, out any) bool {
	if !rc.config.Enabled {
		return false
	}

	key := rc.GenerateKey(scope, params)

	rc.memoryMutex.Lock()
	if cached, exists := rc.memoryCache[key]; exists {
		if time.Now().Before(cached.ExpiresAt) {
			cached.Metadata.Hits++
			cached.Metadata.LastAccessed = time.Now()
			rc.memoryMutex.Unlock()
			rc.updateStats(true, false)
			return json.Unmarshal(cached.Payload, out) == nil
		}
		delete(rc.memoryCache, key)
	}
	rc.memoryMutex.Unlock()

	if rc.config.RedisClient != nil {
		data, err := rc.config.RedisClient.Get(ctx, keyPrefix+key).Bytes()
		if err == nil {
			var cached CachedResult
			if json.Unmarshal(data, &cached) == nil && time.Now().Before(cached.ExpiresAt) {
				cached.Metadata.Hits++
				cached.Metadata.LastAccessed = time.Now()

				// Promote to the memory tier for faster access
				rc.memoryMutex.Lock()
				rc.evictIfNeeded()
				rc.memoryCache[key] = &cached
				rc.memoryMutex.Unlock()

				rc.updateStats(true, false)
				return json.Unmarshal(cached.Payload, out) == nil
			}
			rc.config.RedisClient.Del(ctx, keyPrefix+key)
		}
	}

	rc.updateStats(false, false)
	return false
}

// Set stores a result in both tiers.
func (rc *ResultCache) Set(ctx context.Context, scope string, params map[string]any, payload any, ttl time.Duration) error {
	if !rc.config.Enabled {
		return nil
	}
	if ttl == 0 {
		ttl = rc.config.DefaultTTL
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	key := rc.GenerateKey(scope, params)
	cached := &CachedResult{
		Scope:     scope,
		Params:    params,
		Payload:   payloadBytes,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(ttl),
		Metadata: Metadata{
			LastAccessed: time.Now(),
			Size:         len(payloadBytes),
		},
	}

	rc.memoryMutex.Lock()
	rc.evictIfNeeded()
	rc.memoryCache[key] = cached
	rc.memoryMutex.Unlock()

	if rc.config.RedisClient != nil {
		cachedBytes, err := json.Marshal(cached)
		if err == nil {
			if err := rc.config.RedisClient.Set(ctx, keyPrefix+key, cachedBytes, ttl).Err(); err != nil {
				// A Redis outage degrades to memory-only caching.
				rc.logger.WithFields(logrus.Fields{
					"scope": scope,
					"error": err.Error(),
				}).Warn("Failed to store result in Redis cache")
			}
		}
	}

	return nil
}

// InvalidateScope removes all cached results for one scope.
func (rc *ResultCache) InvalidateScope(ctx context.Context, scope string) error {
	rc.memoryMutex.Lock()
	for key, cached := range rc.memoryCache {
		if cached.Scope == scope {
			delete(rc.memoryCache, key)
		}
	}
	rc.memoryMutex.Unlock()

	if rc.config.RedisClient != nil {
		keys, err := rc.config.RedisClient.Keys(ctx, keyPrefix+"*").Result()
		if err != nil {
			return fmt.Errorf("listing cache keys: %w", err)
		}
		for _, key := range keys {
			data, err := rc.config.RedisClient.Get(ctx, key).Bytes()
			if err != nil {
				continue
			}
			var cached CachedResult
			if json.Unmarshal(data, &cached) == nil && cached.Scope == scope {
				rc.config.RedisClient.Del(ctx, key)
			}
		}
	}
	return nil
}

// Clear removes all cached results and resets statistics.
func (rc *ResultCache) Clear(ctx context.Context) error {
	rc.memoryMutex.Lock()
	rc.memoryCache = make(map[string]*CachedResult)
	rc.memoryMutex.Unlock()

	if rc.config.RedisClient != nil {
		keys, err := rc.config.RedisClient.Keys(ctx, keyPrefix+"*").Result()
		if err == nil && len(keys) > 0 {
			rc.config.RedisClient.Del(ctx, keys...)
		}
	}

	rc.statsMutex.Lock()
	rc.stats = Stats{}
	rc.statsMutex.Unlock()
	return nil
}

// GetStats returns cache performance statistics
func (rc *ResultCache) GetStats() Stats {
	rc.statsMutex.RLock()
	defer rc.statsMutex.RUnlock()

	stats := rc.stats
	stats.MemoryUsage = rc.calculateMemoryUsage()
	return stats
}

// GetHitRatio calculates the cache hit ratio
func (rc *ResultCache) GetHitRatio() float64 {
	rc.statsMutex.RLock()
	defer rc.statsMutex.RUnlock()

	total := rc.stats.Hits + rc.stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(rc.stats.Hits) / float64(total)
}

// IsHealthy checks if the cache is functioning properly
func (rc *ResultCache) IsHealthy(ctx context.Context) bool {
	if !rc.config.Enabled {
		return true
	}
	if rc.config.RedisClient != nil {
		if err := rc.config.RedisClient.Ping(ctx).Err(); err != nil {
			return false
		}
	}
	return true
}

// evictIfNeeded removes least recently accessed entries while payload bytes
// exceed the configured ceiling. Caller holds memoryMutex.
func (rc *ResultCache) evictIfNeeded() {
	for int(rc.calculateMemoryUsageLocked()) > rc.config.MaxMemorySize {
		var oldestKey string
		oldestTime := time.Now()
		for key, cached := range rc.memoryCache {
			if cached.Metadata.LastAccessed.Before(oldestTime) {
				oldestTime = cached.Metadata.LastAccessed
				oldestKey = key
			}
		}
		if oldestKey == "" {
			return
		}
		delete(rc.memoryCache, oldestKey)
		rc.updateStats(false, true)
	}
}

func (rc *ResultCache) calculateMemoryUsage() int64 {
	rc.memoryMutex.RLock()
	defer rc.memoryMutex.RUnlock()
	return rc.calculateMemoryUsageLocked()
}

func (rc *ResultCache) calculateMemoryUsageLocked() int64 {
	var usage int64
	for _, cached := range rc.memoryCache {
		usage += int64(cached.Metadata.Size)
	}
	return usage
}

func (rc *ResultCache) updateStats(hit, eviction bool) {
	rc.statsMutex.Lock()
	defer rc.statsMutex.Unlock()

	if hit {
		rc.stats.Hits++
	} else {
		rc.stats.Misses++
	}
	if eviction {
		rc.stats.Evictions++
	}
}
