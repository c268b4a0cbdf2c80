// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package votecache provides a reference implementation of the
// corenet.VoteCache collaborator interface, backed by the same generic LRU
// the teacher uses to cache warp message signatures
// (warp/backend.go's messageSignatureCache, built on
// github.com/luxfi/node/cache/lru).
package votecache

import (
	"sync"

	"github.com/luxfi/node/cache/lru"

	"github.com/luxfi/votenet/corenet"
)

const defaultSize = 4096

// Cache is a bounded, concurrency-safe corenet.VoteCache.
type Cache struct {
	mu    sync.Mutex
	votes *lru.Cache[corenet.Hash, []corenet.Vote]
}

var _ corenet.VoteCache = (*Cache)(nil)

// New returns a Cache holding up to size recent (hash -> votes) entries.
func New(size int) *Cache {
	if size <= 0 {
		size = defaultSize
	}
	return &Cache{votes: lru.NewCache[corenet.Hash, []corenet.Vote](size)}
}

// Votes returns the cached votes for hash, if any.
func (c *Cache) Votes(hash corenet.Hash) ([]corenet.Vote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	votes, ok := c.votes.Get(hash)
	if !ok {
		return nil, false
	}
	out := make([]corenet.Vote, len(votes))
	copy(out, votes)
	return out, true
}

// Insert records vote as a cached vote for hash, alongside any votes
// already cached for it from other representatives.
func (c *Cache) Insert(hash corenet.Hash, vote corenet.Vote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, _ := c.votes.Get(hash)
	for _, v := range existing {
		if v.Representative == vote.Representative {
			return // already have a vote from this representative for this hash
		}
	}
	merged := make([]corenet.Vote, len(existing), len(existing)+1)
	copy(merged, existing)
	c.votes.Put(hash, append(merged, vote))
}

// Flush clears the cache. Exposed for tests.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.votes.Flush()
}
