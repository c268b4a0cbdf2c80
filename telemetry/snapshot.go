// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package telemetry

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/luxfi/votenet/corenet"
)

// SnapshotBuffer retains a bounded number of recent GetMetrics snapshots,
// keyed by an increasing round number, so a caller driving the Telemetry
// Consolidator (§4.3) can feed it a short rolling history instead of only
// the single most recent snapshot. Backed by the same LRU family the wider
// example pack reaches for (github.com/hashicorp/golang-lru), here keyed by
// round rather than by endpoint.
type SnapshotBuffer struct {
	mu    sync.Mutex
	cache *lru.Cache
	round uint64
}

// NewSnapshotBuffer returns a buffer retaining up to size rounds.
func NewSnapshotBuffer(size int) (*SnapshotBuffer, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &SnapshotBuffer{cache: cache}, nil
}

// Add records one round's worth of telemetry records, returning the round
// number it was stored under.
func (b *SnapshotBuffer) Add(records []corenet.TelemetryData) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.round++
	snapshot := append([]corenet.TelemetryData{}, records...)
	b.cache.Add(b.round, snapshot)
	return b.round
}

// Get returns the records stored for round, if still retained.
func (b *SnapshotBuffer) Get(round uint64) ([]corenet.TelemetryData, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.cache.Get(round)
	if !ok {
		return nil, false
	}
	return v.([]corenet.TelemetryData), true
}

// Len reports how many rounds are currently retained.
func (b *SnapshotBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cache.Len()
}
