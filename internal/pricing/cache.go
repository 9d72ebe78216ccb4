package pricing

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache keys round their inputs before concatenation: 4 decimal places for
// prices/rates/vols, 6 for time. Deliberately lossy so that near-identical
// inputs (UI slider scrubbing) hit the same entry.
const (
	priceKeyPrecision = 4
	timeKeyPrecision  = 6
)

func greeksKey(in Inputs) string {
	return fmt.Sprintf("%.*f|%.*f|%.*f|%.*f|%.*f|%.*f|%s",
		priceKeyPrecision, in.S,
		priceKeyPrecision, in.K,
		timeKeyPrecision, in.T,
		priceKeyPrecision, in.IV,
		priceKeyPrecision, in.R,
		priceKeyPrecision, in.Q,
		in.Type)
}

func ivKey(in IVInputs) string {
	return fmt.Sprintf("%.*f|%.*f|%.*f|%.*f|%.*f|%.*f|%s",
		priceKeyPrecision, in.TargetPrice,
		priceKeyPrecision, in.S,
		priceKeyPrecision, in.K,
		timeKeyPrecision, in.T,
		priceKeyPrecision, in.R,
		priceKeyPrecision, in.Q,
		in.Type)
}

// resultCache is a bounded LRU memo with a periodic hard clear. The flush
// ticker is a leak safety-net independent of LRU eviction; correctness never
// depends on cache contents since every entry is a pure function of its key.
type resultCache[V any] struct {
	lru  *lru.Cache[string, V]
	done chan struct{}
}

func newResultCache[V any](size int, flushEvery time.Duration) (*resultCache[V], error) {
	c, err := lru.New[string, V](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache of size %d: %w", size, err)
	}

	rc := &resultCache[V]{lru: c, done: make(chan struct{})}
	if flushEvery > 0 {
		go rc.flushLoop(flushEvery)
	}
	return rc, nil
}

func (c *resultCache[V]) flushLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.lru.Purge()
		case <-c.done:
			return
		}
	}
}

func (c *resultCache[V]) get(key string) (V, bool) {
	return c.lru.Get(key)
}

func (c *resultCache[V]) put(key string, v V) {
	c.lru.Add(key, v)
}

func (c *resultCache[V]) len() int {
	return c.lru.Len()
}

// close stops the flush goroutine. Safe to call once.
func (c *resultCache[V]) close() {
	close(c.done)
}
