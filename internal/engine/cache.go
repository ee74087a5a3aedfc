package engine

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/vql/internal/ir"
	"github.com/roach88/vql/internal/queryir"
	"github.com/roach88/vql/internal/querysql"
	"github.com/roach88/vql/internal/vql"
)

// DefaultCountCacheSize is the number of COUNT results kept by default.
const DefaultCountCacheSize = 128

// countCache memoizes COUNT results. A nil cache (size 0) never hits.
type countCache struct {
	entries *lru.Cache[string, int64]
	metrics *Metrics
}

func newCountCache(size int, m *Metrics) (*countCache, error) {
	if size <= 0 {
		return &countCache{metrics: m}, nil
	}
	entries, err := lru.New[string, int64](size)
	if err != nil {
		return nil, fmt.Errorf("count cache: %w", err)
	}
	return &countCache{entries: entries, metrics: m}, nil
}

func (c *countCache) get(key string) (int64, bool) {
	if c.entries == nil {
		c.metrics.CountCacheMisses.Inc()
		return 0, false
	}
	n, ok := c.entries.Get(key)
	if ok {
		c.metrics.CountCacheHits.Inc()
	} else {
		c.metrics.CountCacheMisses.Inc()
	}
	return n, ok
}

func (c *countCache) add(key string, n int64) {
	if c.entries != nil {
		c.entries.Add(key, n)
	}
}

func (c *countCache) purge() {
	if c.entries != nil {
		c.entries.Purge()
	}
	c.metrics.CountInvalidations.Inc()
}

func (c *countCache) len() int {
	if c.entries == nil {
		return 0
	}
	return c.entries.Len()
}

// countKey hashes everything a COUNT result depends on: the database, the
// missing-sample policy and the normalized (fields, source, filters,
// group_by, having) tuple.
func countKey(db string, policy querysql.MissingSample, stmt vql.Count) (string, error) {
	source := stmt.Source
	if source == "" {
		source = vql.DefaultSource
	}
	return ir.HashCanonical(ir.DomainCount, map[string]any{
		"db":             db,
		"missing_sample": policy.String(),
		"fields":         []any{},
		"source":         source,
		"filters":        queryir.ToDict(stmt.Filters),
		"group_by":       []any{},
		"having":         map[string]any{},
	})
}
