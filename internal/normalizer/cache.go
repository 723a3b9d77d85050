package normalizer

import (
	"sync"

	"go-scankey/pkg/models"

	lru "github.com/hashicorp/golang-lru/v2"
)

// resultCache memoizes normalized results. A positive limit evicts the least
// recently used entry; a limit <= 0 keeps every result for the process
// lifetime.
type resultCache struct {
	bounded *lru.Cache[string, *models.AnalysisResult]

	mu  sync.Mutex
	all map[string]*models.AnalysisResult
}

func newResultCache(limit int) *resultCache {
	if limit > 0 {
		// lru.New only fails for a non-positive size.
		if c, err := lru.New[string, *models.AnalysisResult](limit); err == nil {
			return &resultCache{bounded: c}
		}
	}
	return &resultCache{all: make(map[string]*models.AnalysisResult)}
}

func (c *resultCache) get(key string) (*models.AnalysisResult, bool) {
	if c.bounded != nil {
		return c.bounded.Get(key)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.all[key]
	return r, ok
}

// putIfAbsent stores result unless another caller won the race, and returns
// whichever value is cached.
func (c *resultCache) putIfAbsent(key string, result *models.AnalysisResult) *models.AnalysisResult {
	if c.bounded != nil {
		if prev, ok, _ := c.bounded.PeekOrAdd(key, result); ok {
			return prev
		}
		return result
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.all[key]; ok {
		return prev
	}
	c.all[key] = result
	return result
}

func (c *resultCache) len() int {
	if c.bounded != nil {
		return c.bounded.Len()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.all)
}
