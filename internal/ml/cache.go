package ml

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// PredictionCache caches recent single-row predictions. Dragging a slider
// back and forth on the predict page re-requests the same vectors.
type PredictionCache struct {
	mu      sync.RWMutex
	cache   map[uint64]*CachedPrediction
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

type CachedPrediction struct {
	Price     float64
	Timestamp time.Time
}

// NewPredictionCache returns nil when maxSize is not positive; a nil cache
// never hits and ignores writes.
func NewPredictionCache(maxSize int, ttl time.Duration) *PredictionCache {
	if maxSize <= 0 {
		return nil
	}
	return &PredictionCache{
		cache:   make(map[uint64]*CachedPrediction, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Key hashes an aligned vector's values.
func (c *PredictionCache) Key(v FeatureVector) uint64 {
	d := xxhash.New()
	buf := make([]byte, 0, 32)
	for _, val := range v.Values {
		buf = buf[:0]
		switch x := val.(type) {
		case nil:
			buf = append(buf, 'n')
		case float64:
			buf = append(buf, 'f')
			buf = strconv.AppendUint(buf, math.Float64bits(x), 16)
		case string:
			buf = append(buf, 's')
			buf = strconv.AppendInt(buf, int64(len(x)), 10)
			buf = append(buf, ':')
			buf = append(buf, x...)
		default:
			buf = append(buf, 'o')
			buf = strconv.AppendQuote(buf, toString(x))
		}
		buf = append(buf, 0x1f)
		d.Write(buf)
	}
	return d.Sum64()
}

// Get retrieves a fresh cached price.
func (c *PredictionCache) Get(key uint64) (float64, bool) {
	if c == nil {
		return 0, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	if cached, ok := c.cache[key]; ok {
		if c.now().Sub(cached.Timestamp) < c.ttl {
			return cached.Price, true
		}
	}
	return 0, false
}

// Put stores a price, evicting the oldest entry when full.
func (c *PredictionCache) Put(key uint64, price float64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.cache[key]; !exists && len(c.cache) >= c.maxSize {
		var oldestKey uint64
		var oldestTime time.Time
		for k, v := range c.cache {
			if oldestTime.IsZero() || v.Timestamp.Before(oldestTime) {
				oldestKey = k
				oldestTime = v.Timestamp
			}
		}
		delete(c.cache, oldestKey)
	}

	c.cache[key] = &CachedPrediction{
		Price:     price,
		Timestamp: c.now(),
	}
}

// Len returns the number of cached entries, fresh or not.
func (c *PredictionCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Clean drops expired entries.
func (c *PredictionCache) Clean() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, cached := range c.cache {
		if now.Sub(cached.Timestamp) >= c.ttl {
			delete(c.cache, key)
		}
	}
}
