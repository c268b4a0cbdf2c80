// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package telemetry implements the Telemetry Cache (§4.2): per-peer
// request-or-merge probing of telemetry data, with a cache-cutoff freshness
// window and a rolling background probe loop.
package telemetry

import (
	"container/heap"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/luxfi/log"

	"github.com/luxfi/votenet/corenet"
)

// Callback receives the outcome of a telemetry request: either fresh data
// and a nil error, or a zero-valued record and a non-nil error (§7).
type Callback func(corenet.TelemetryData, error)

// entry is the TelemetryInfo entity from §3: per-endpoint probe-round
// tracking, with a last-request-ordered heap position for the sweep.
type entry struct {
	data        corenet.TelemetryData
	hasData     bool
	lastRequest time.Time
	undergoing  bool
	round       uint64
	callbacks   []Callback

	heapIndex int
}

// entryHeap is a min-heap over *entry ordered by lastRequest, giving the
// rolling probe loop O(log n) access to the stalest entry (§4.2 "the entry
// with earliest last_request").
type entryHeap []*entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].lastRequest.Before(h[j].lastRequest) }
func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}
func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.heapIndex = len(*h)
	*h = append(*h, e)
}
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.heapIndex = -1
	*h = old[:n-1]
	return e
}

// Cache is the Telemetry Cache entity (§4.2).
type Cache struct {
	cfg      Config
	clock    corenet.Clock
	peers    corenet.PeerRegistry
	workers  corenet.WorkerPool
	alarm    corenet.Alarm
	counters *corenet.Counters
	log      log.Logger

	mu       sync.Mutex
	entries  map[corenet.Endpoint]*entry
	byLast   entryHeap
	started  bool
	stopped  bool
}

// New constructs a Cache. Call Start to arm the rolling probe loop.
func New(cfg Config, clock corenet.Clock, peers corenet.PeerRegistry, workers corenet.WorkerPool, alarm corenet.Alarm, counters *corenet.Counters) *Cache {
	if counters == nil {
		counters = corenet.NewCounters()
	}
	return &Cache{
		cfg:      cfg,
		clock:    clock,
		peers:    peers,
		workers:  workers,
		alarm:    alarm,
		counters: counters,
		log:      log.New("component", "telemetry"),
		entries:  make(map[corenet.Endpoint]*entry),
	}
}

// Start arms the rolling probe loop. Must be called after construction
// since it captures a reference to the Cache itself (§4.2).
func (c *Cache) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()
	c.alarm.Schedule(c.cfg.CacheCutoff, c.tick)
}

// Stop sets the stopped flag; in-flight callbacks drain naturally (§4.2).
func (c *Cache) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
}

func (c *Cache) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// fresh reports whether e's data is still within the cache cutoff and is
// not an empty placeholder awaiting its first reply (§4.2).
func (c *Cache) fresh(e *entry, now time.Time) bool {
	if !e.hasData {
		return false
	}
	return !e.lastRequest.Add(c.cfg.CacheCutoff).Before(now)
}

// GetMetricsSinglePeerAsync requests telemetry for channel's peer,
// following the request-or-merge logic of §4.2.
func (c *Cache) GetMetricsSinglePeerAsync(channel corenet.Channel, cb Callback) {
	if channel.ProtocolVersion() < c.cfg.MinProtocolVersion {
		c.post(cb, corenet.TelemetryData{}, corenet.ErrBelowProtocol)
		return
	}

	ep := channel.Endpoint()
	now := c.clock.Time()

	c.mu.Lock()
	e, ok := c.entries[ep]
	switch {
	case ok && c.fresh(e, now):
		data := e.data
		c.mu.Unlock()
		c.post(cb, data, nil)
		return
	case ok && e.undergoing:
		e.callbacks = append(e.callbacks, cb)
		c.mu.Unlock()
		return
	case ok:
		e.undergoing = true
		e.lastRequest = now
		e.callbacks = append(e.callbacks, cb)
		heap.Fix(&c.byLast, e.heapIndex)
	default:
		e = &entry{undergoing: true, lastRequest: now, callbacks: []Callback{cb}}
		c.entries[ep] = e
		heap.Push(&c.byLast, e)
	}
	c.mu.Unlock()

	c.fireRequestMessage(channel)
}

// GetMetricsSinglePeer is the synchronous adapter over
// GetMetricsSinglePeerAsync (§4.2).
func (c *Cache) GetMetricsSinglePeer(channel corenet.Channel) (corenet.TelemetryData, error) {
	var (
		wg     sync.WaitGroup
		result corenet.TelemetryData
		resErr error
	)
	wg.Add(1)
	c.GetMetricsSinglePeerAsync(channel, func(d corenet.TelemetryData, err error) {
		result, resErr = d, err
		wg.Done()
	})
	wg.Wait()
	return result, resErr
}

// GetMetrics returns a snapshot of endpoint -> data for every entry within
// the cache cutoff (§4.2, §8 property 7).
func (c *Cache) GetMetrics() map[corenet.Endpoint]corenet.TelemetryData {
	now := c.clock.Time()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[corenet.Endpoint]corenet.TelemetryData, len(c.entries))
	for ep, e := range c.entries {
		if c.fresh(e, now) {
			out[ep] = e.data
		}
	}
	return out
}

// CallbackCount sums the callback list lengths across every endpoint, used
// to monitor the size of the in-flight fan-out (SPEC_FULL restores this; the
// original's equivalent accumulator always summed zero — see DESIGN.md).
func (c *Cache) CallbackCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		n += len(e.callbacks)
	}
	return n
}

// Set delivers a received telemetry reply into the cache (§4.2). Replies
// for unknown endpoints are ignored: the probe was not initiated by us.
func (c *Cache) Set(data corenet.TelemetryData, endpoint corenet.Endpoint, isEmpty bool) {
	c.mu.Lock()
	e, ok := c.entries[endpoint]
	if !ok {
		c.mu.Unlock()
		c.log.Debug("telemetry reply for unknown endpoint", "endpoint", endpoint)
		return
	}
	e.data = data
	e.hasData = !isEmpty
	e.undergoing = false
	c.mu.Unlock()

	var err error
	if isEmpty {
		err = corenet.ErrEmptyReply
	}
	c.channelProcessed(endpoint, err)
}

// fireRequestMessage increments the endpoint's round, sends the probe, and
// registers the send-result and timeout callbacks (§4.2).
func (c *Cache) fireRequestMessage(channel corenet.Channel) {
	ep := channel.Endpoint()

	c.mu.Lock()
	e, ok := c.entries[ep]
	if !ok {
		c.mu.Unlock()
		return
	}
	e.round++
	round := e.round
	c.mu.Unlock()

	if err := channel.SendTelemetryReq(); err != nil {
		c.channelProcessed(ep, corenet.ErrSendFailed)
		return
	}

	c.alarm.Schedule(c.cfg.ResponseTimeCutoff, func() {
		c.mu.Lock()
		e, ok := c.entries[ep]
		timedOut := ok && e.undergoing && e.round == round
		c.mu.Unlock()
		if timedOut {
			c.channelProcessed(ep, corenet.ErrTimeout)
		}
	})
}

// channelProcessed removes the entry when cause is non-nil. cause is one of
// ErrSendFailed (transport failure), ErrTimeout (response-cutoff timeout),
// or ErrEmptyReply (reply carried no usable data), per §7's taxonomy.
// It then schedules the callback drain onto the worker pool, invoked
// outside of any held lock (§4.2, §9).
func (c *Cache) channelProcessed(endpoint corenet.Endpoint, cause error) {
	c.mu.Lock()
	e, ok := c.entries[endpoint]
	if !ok {
		c.mu.Unlock()
		return
	}
	callbacks := e.callbacks
	e.callbacks = nil
	data := e.data
	hasData := e.hasData

	if cause != nil {
		data = corenet.TelemetryData{}
		if e.heapIndex >= 0 && e.heapIndex < len(c.byLast) {
			heap.Remove(&c.byLast, e.heapIndex)
		}
		delete(c.entries, endpoint)
		if !hasData {
			// entry never saw a successful reply before eviction.
			c.log.Debug("telemetry probe failed", "endpoint", endpoint, "err", cause)
		}
	}
	c.mu.Unlock()

	if len(callbacks) == 0 {
		return
	}

	c.workers.Send(func() {
		c.flushCallbacks(callbacks, data, cause)
	})
}

// flushCallbacks invokes each callback with the snapshotted result. It runs
// entirely outside the Cache's mutex (§4.2, §9).
func (c *Cache) flushCallbacks(callbacks []Callback, data corenet.TelemetryData, err error) {
	for _, cb := range callbacks {
		cb(data, err)
	}
}

func (c *Cache) post(cb Callback, data corenet.TelemetryData, err error) {
	c.workers.Send(func() { cb(data, err) })
}

// tick is the rolling probe loop body (§4.2).
func (c *Cache) tick() {
	if c.isStopped() {
		return
	}

	peers := c.peers.Peers()
	present := mapset.NewThreadUnsafeSet[corenet.Endpoint]()
	eligible := make([]corenet.Channel, 0, len(peers))
	for _, p := range peers {
		present.Add(p.Endpoint())
		if p.ProtocolVersion() >= c.cfg.MinProtocolVersion {
			eligible = append(eligible, p)
		}
	}

	now := c.clock.Time()
	c.mu.Lock()
	for ep, e := range c.entries {
		if e.undergoing || c.fresh(e, now) || present.Contains(ep) {
			continue
		}
		if e.heapIndex >= 0 && e.heapIndex < len(c.byLast) {
			heap.Remove(&c.byLast, e.heapIndex)
		}
		delete(c.entries, ep)
		c.counters.TelemetryEvicted.Add(1)
	}
	var earliest time.Time
	if len(c.byLast) > 0 {
		earliest = c.byLast[0].lastRequest
	}
	c.mu.Unlock()

	for _, p := range eligible {
		c.mu.Lock()
		e, ok := c.entries[p.Endpoint()]
		fresh := ok && c.fresh(e, now)
		c.mu.Unlock()
		if !fresh {
			c.GetMetricsSinglePeerAsync(p, func(corenet.TelemetryData, error) {})
		}
	}

	delay := c.cfg.CacheCutoff
	if !earliest.IsZero() {
		elapsed := now.Sub(earliest)
		if remaining := c.cfg.CacheCutoff - elapsed; remaining < delay {
			if remaining < 0 {
				remaining = 0
			}
			delay = remaining
		}
	}

	if c.isStopped() {
		return
	}
	c.alarm.Schedule(delay, c.tick)
}
