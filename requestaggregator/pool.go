// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package requestaggregator

import (
	"container/heap"
	"time"

	"github.com/luxfi/votenet/corenet"
)

// channelPool is the ChannelPool entity from §3: a per-endpoint batch of
// pending vote requests, keyed by endpoint and ordered by deadline.
type channelPool struct {
	endpoint corenet.Endpoint
	channel  corenet.Channel
	entries  []corenet.HashRoot
	start    time.Time
	deadline time.Time

	heapIndex int // maintained by container/heap; -1 once removed
}

// poolHeap is a min-heap over *channelPool ordered by deadline, giving
// O(log n) earliest-deadline lookup and removal — the "ordered by
// deadline" index the spec's data model calls for (§3), implemented the
// idiomatic Go way since nothing in the example pack ships a
// ready-made ordered-index type for this.
type poolHeap []*channelPool

func (h poolHeap) Len() int { return len(h) }
func (h poolHeap) Less(i, j int) bool {
	return h[i].deadline.Before(h[j].deadline)
}
func (h poolHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}
func (h *poolHeap) Push(x any) {
	p := x.(*channelPool)
	p.heapIndex = len(*h)
	*h = append(*h, p)
}
func (h *poolHeap) Pop() any {
	old := *h
	n := len(old)
	p := old[n-1]
	old[n-1] = nil
	p.heapIndex = -1
	*h = old[:n-1]
	return p
}

// fix re-establishes heap order after p's deadline changed in place.
func (h *poolHeap) fix(p *channelPool) {
	heap.Fix(h, p.heapIndex)
}

// remove pulls p out of the heap regardless of its current position.
func (h *poolHeap) remove(p *channelPool) {
	if p.heapIndex < 0 || p.heapIndex >= len(*h) {
		return
	}
	heap.Remove(h, p.heapIndex)
}
