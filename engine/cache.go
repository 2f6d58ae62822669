// Result cache shared by all the workers of a search

package engine

import (
	"sync"

	"github.com/clanpj/lazysmp/position"
)

type cacheKeyT struct {
	zobrist uint64
	depth   int
}

// CacheEntryT is stored and returned as an exact result, even when it came
// from a beta cut-off.
type CacheEntryT struct {
	Eval EvalCp
	Move position.Move
}

type cacheShardT struct {
	mu      sync.RWMutex
	entries map[cacheKeyT]CacheEntryT
}

// CacheT maps (zobrist, exact depth) to the last result stored for it. The
// key space is striped over power-of-two many shards, each behind its own
// lock, so concurrent workers rarely contend. Entries are replaced whole and
// the last writer wins.
type CacheT struct {
	shards []cacheShardT
}

func NewCache(nShards int) *CacheT {
	if nShards < 1 {
		nShards = DefaultCacheShards
	}
	// Round up to a power of 2 so the shard index is a mask
	size := 1
	for size < nShards {
		size <<= 1
	}

	c := &CacheT{shards: make([]cacheShardT, size)}
	for i := range c.shards {
		c.shards[i].entries = make(map[cacheKeyT]CacheEntryT)
	}
	return c
}

func (c *CacheT) shard(zobrist uint64) *cacheShardT {
	// Note: assumes shard count is a power of 2!!!
	return &c.shards[int(zobrist>>1)&(len(c.shards)-1)]
}

func (c *CacheT) Probe(zobrist uint64, depth int) (CacheEntryT, bool) {
	shard := c.shard(zobrist)
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	entry, ok := shard.entries[cacheKeyT{zobrist, depth}]
	return entry, ok
}

func (c *CacheT) Store(zobrist uint64, depth int, entry CacheEntryT) {
	shard := c.shard(zobrist)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	shard.entries[cacheKeyT{zobrist, depth}] = entry
}

func (c *CacheT) Len() int {
	n := 0
	for i := range c.shards {
		c.shards[i].mu.RLock()
		n += len(c.shards[i].entries)
		c.shards[i].mu.RUnlock()
	}
	return n
}
