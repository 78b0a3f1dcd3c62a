package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/Veraticus/textlens/internal/model"
)

// maxCachedResults bounds the cache; the oldest entry goes first once it is full.
const maxCachedResults = 256

type cachedResult struct {
	stored time.Time
	data   []byte
}

// resultCache answers repeated identical requests without another billed provider call.
// Results are kept encoded so every hit hands out a fresh copy.
type resultCache struct {
	now     func() time.Time
	entries map[string]cachedResult
	ttl     time.Duration
	max     int
	mu      sync.Mutex
}

func newResultCache(ttl time.Duration) *resultCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &resultCache{
		now:     time.Now,
		entries: make(map[string]cachedResult),
		ttl:     ttl,
		max:     maxCachedResults,
	}
}

// cacheKey hashes the provider and the full request.
func cacheKey(provider string, req model.AnalysisRequest) string {
	data, err := json.Marshal(struct {
		Request  model.AnalysisRequest `json:"request"`
		Provider string                `json:"provider"`
	}{Provider: provider, Request: req})
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (c *resultCache) get(key string) (*model.AnalysisResult, bool) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && c.now().Sub(entry.stored) >= c.ttl {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return nil, false
	}

	var result model.AnalysisResult
	if err := json.Unmarshal(entry.data, &result); err != nil {
		return nil, false
	}
	return &result, true
}

func (c *resultCache) put(key string, result *model.AnalysisResult) {
	if key == "" || result == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.max {
		c.evict(now)
	}
	c.entries[key] = cachedResult{stored: now, data: data}
}

// evict drops expired entries, or the oldest one when none have expired. Callers hold mu.
func (c *resultCache) evict(now time.Time) {
	var oldestKey string
	var oldest time.Time
	removed := false
	for key, entry := range c.entries {
		if now.Sub(entry.stored) >= c.ttl {
			delete(c.entries, key)
			removed = true
			continue
		}
		if oldestKey == "" || entry.stored.Before(oldest) {
			oldestKey, oldest = key, entry.stored
		}
	}
	if !removed && oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
