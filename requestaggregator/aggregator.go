// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package requestaggregator implements the Request Aggregator (§4.1): it
// batches incoming block-hash vote requests per peer endpoint, serves
// cached votes immediately, and synthesizes fresh votes for the rest via
// the node's local representative keys.
package requestaggregator

import (
	"context"
	"sync"
	"time"

	"github.com/luxfi/log"

	"github.com/luxfi/votenet/corenet"
)

// Aggregator is the Request Aggregator entity (§4.1).
type Aggregator struct {
	cfg       Config
	clock     corenet.Clock
	voteCache corenet.VoteCache
	reps      corenet.RepresentativeSet
	store     corenet.BlockStore
	counters  *corenet.Counters
	log       log.Logger

	mu      sync.Mutex
	pools   map[corenet.Endpoint]*channelPool
	byDead  poolHeap
	stopped bool
	wake    chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
}

// New constructs an Aggregator. The caller must hold at least one local
// voting representative before calling Add (§4.1 precondition); New itself
// has no such requirement.
func New(cfg Config, clock corenet.Clock, voteCache corenet.VoteCache, reps corenet.RepresentativeSet, store corenet.BlockStore, counters *corenet.Counters) *Aggregator {
	if counters == nil {
		counters = corenet.NewCounters()
	}
	a := &Aggregator{
		cfg:       cfg,
		clock:     clock,
		voteCache: voteCache,
		reps:      reps,
		store:     store,
		counters:  counters,
		log:       log.New("component", "requestaggregator"),
		pools:     make(map[corenet.Endpoint]*channelPool),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

// Size returns the number of currently pooled endpoints.
func (a *Aggregator) Size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pools)
}

// Empty reports whether no pools are currently held.
func (a *Aggregator) Empty() bool {
	return a.Size() == 0
}

// Stop initiates shutdown and joins the worker deterministically.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	a.mu.Unlock()
	close(a.done)
	a.wg.Wait()
}

// Add enqueues hashesRoots into the pool for channel's endpoint (§4.1).
// The local node must hold at least one voting representative; violating
// that is a programming error (§7). It is only logged at Debug level; the
// call then proceeds as usual.
func (a *Aggregator) Add(channel corenet.Channel, hashesRoots []corenet.HashRoot) {
	if a.reps.Len() == 0 {
		// Internal contract violation (§7): logged, not enforced.
		a.log.Debug("add called with no local representatives", "endpoint", channel.Endpoint())
	}
	if len(hashesRoots) == 0 {
		return
	}

	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		a.counters.AggregatorDropped.Add(1)
		return
	}

	now := a.clock.Time()
	if len(a.byDead) > 0 {
		oldest := a.byDead[0]
		if oldest.deadline.Add(2 * a.cfg.MaxDelay).Before(now) {
			a.mu.Unlock()
			a.counters.AggregatorDropped.Add(1)
			a.log.Warn("admission dropped: backlog dam engaged", "oldestDeadline", oldest.deadline)
			return
		}
	}

	p, existing := a.pools[channel.Endpoint()]
	existingCount := 0
	if existing {
		existingCount = len(p.entries)
	}
	if existingCount+len(hashesRoots) > a.cfg.MaxChannelRequests {
		a.mu.Unlock()
		a.counters.AggregatorDropped.Add(1)
		return
	}

	if !existing {
		p = &channelPool{endpoint: channel.Endpoint(), start: now}
		a.pools[channel.Endpoint()] = p
	}
	// Prepend: the newest entries lead the sequence (§4.1).
	p.entries = append(append([]corenet.HashRoot{}, hashesRoots...), p.entries...)
	p.channel = channel

	candidate := minTime(p.start.Add(a.cfg.MaxDelay), now.Add(a.cfg.SmallDelay))
	if !existing || p.deadline.IsZero() {
		p.deadline = candidate
	} else {
		p.deadline = minTime(p.deadline, candidate)
	}

	if !existing {
		a.byDead.Push(p)
	} else {
		a.byDead.fix(p)
	}
	becameEarliest := len(a.byDead) > 0 && a.byDead[0] == p
	a.mu.Unlock()

	a.counters.AggregatorAccepted.Add(1)
	if !existing || becameEarliest {
		a.signalWake()
	}
}

func (a *Aggregator) signalWake() {
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// run is the worker loop (§4.1, §5): it waits for shutdown, a new pool, or
// the earliest-deadline pool becoming due, then drains it.
func (a *Aggregator) run() {
	defer a.wg.Done()
	for {
		a.mu.Lock()
		var timer *time.Timer
		if len(a.byDead) > 0 {
			wait := a.byDead[0].deadline.Sub(a.clock.Time())
			if wait < 0 {
				wait = 0
			}
			timer = time.NewTimer(wait)
		}
		a.mu.Unlock()

		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C
		}

		select {
		case <-a.done:
			if timer != nil {
				timer.Stop()
			}
			a.drainOnShutdown()
			return
		case <-a.wake:
			if timer != nil {
				timer.Stop()
			}
			continue
		case <-timerC:
		}

		a.drainDue()
	}
}

// drainDue pops every pool whose deadline has elapsed and aggregates it.
func (a *Aggregator) drainDue() {
	for {
		p := a.popDuePool()
		if p == nil {
			return
		}
		a.aggregate(p)
	}
}

func (a *Aggregator) popDuePool() *channelPool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.byDead) == 0 {
		return nil
	}
	p := a.byDead[0]
	if p.deadline.After(a.clock.Time()) {
		return nil
	}
	a.byDead.remove(p)
	delete(a.pools, p.endpoint)
	return p
}

// drainOnShutdown aggregates whatever remains so no accepted request is
// silently lost on shutdown; shutdown itself still takes priority over
// waiting for a non-due deadline (§4.1).
func (a *Aggregator) drainOnShutdown() {
	for {
		a.mu.Lock()
		if len(a.byDead) == 0 {
			a.mu.Unlock()
			return
		}
		p := a.byDead[0]
		a.byDead.remove(p)
		delete(a.pools, p.endpoint)
		a.mu.Unlock()
		a.aggregate(p)
	}
}

func (a *Aggregator) aggregate(p *channelPool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := aggregatePool(ctx, a, p); err != nil {
		a.log.Debug("aggregation failed", "endpoint", p.endpoint, "err", err)
	}
}
