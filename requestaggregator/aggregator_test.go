// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package requestaggregator

import (
	"context"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/luxfi/votenet/corenet"
)

func mustAddr() netip.Addr {
	return netip.MustParseAddr("10.0.0.1")
}

// realClock is a corenet.Clock backed by the wall clock, used by tests that
// exercise the worker loop's real timer and need deadlines to actually
// elapse.
type realClock struct{}

func (realClock) Time() time.Time { return time.Now() }

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock is a manually advanced corenet.Clock for deterministic tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(0, 0)} }

func (c *fakeClock) Time() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeChannel records every message sent to it.
type fakeChannel struct {
	endpoint corenet.Endpoint
	protocol uint8

	mu         sync.Mutex
	acks       []corenet.Vote
	publishes  []corenet.Block
	reqs       int
	sendErr    error
}

func newFakeChannel(ep corenet.Endpoint) *fakeChannel {
	return &fakeChannel{endpoint: ep, protocol: 20}
}

func (c *fakeChannel) Endpoint() corenet.Endpoint { return c.endpoint }
func (c *fakeChannel) ProtocolVersion() uint8      { return c.protocol }

func (c *fakeChannel) SendConfirmAck(v corenet.Vote) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.acks = append(c.acks, v)
	return nil
}

func (c *fakeChannel) SendPublish(b corenet.Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.publishes = append(c.publishes, b)
	return nil
}

func (c *fakeChannel) SendTelemetryReq() error { c.mu.Lock(); defer c.mu.Unlock(); c.reqs++; return nil }
func (c *fakeChannel) SendTelemetryAck(corenet.TelemetryData) error { return nil }

func (c *fakeChannel) Acks() []corenet.Vote {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]corenet.Vote{}, c.acks...)
}

func (c *fakeChannel) Publishes() []corenet.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]corenet.Block{}, c.publishes...)
}

// fakeVoteCache is a minimal, unbounded map-backed corenet.VoteCache.
type fakeVoteCache struct {
	mu    sync.Mutex
	votes map[corenet.Hash][]corenet.Vote
}

func newFakeVoteCache() *fakeVoteCache {
	return &fakeVoteCache{votes: make(map[corenet.Hash][]corenet.Vote)}
}

func (c *fakeVoteCache) Votes(hash corenet.Hash) ([]corenet.Vote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.votes[hash]
	if !ok {
		return nil, false
	}
	return append([]corenet.Vote{}, v...), true
}

func (c *fakeVoteCache) Insert(hash corenet.Hash, vote corenet.Vote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.votes[hash] = append(c.votes[hash], vote)
}

func (c *fakeVoteCache) seed(hash corenet.Hash, votes ...corenet.Vote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.votes[hash] = append(c.votes[hash], votes...)
}

// fakeReps is a fixed RepresentativeSet.
type fakeReps []corenet.RepresentativeKeyPair

func (r fakeReps) Representatives() []corenet.RepresentativeKeyPair { return r }
func (r fakeReps) Len() int                                         { return len(r) }

// fakeTxn is an in-memory BlockStoreTxn backed by plain maps.
type fakeTxn struct {
	blocks      map[corenet.Hash]corenet.Block
	successors  map[corenet.Hash]corenet.Hash
	openBlocks  map[corenet.Root]corenet.Hash
	voteSeq     uint64
}

func (t *fakeTxn) Contains(hash corenet.Hash) bool {
	_, ok := t.blocks[hash]
	return ok
}

func (t *fakeTxn) Successor(hash corenet.Hash) (corenet.Hash, bool) {
	h, ok := t.successors[hash]
	return h, ok
}

func (t *fakeTxn) AccountOpenBlock(root corenet.Root) (corenet.Hash, bool) {
	h, ok := t.openBlocks[root]
	return h, ok
}

func (t *fakeTxn) Block(hash corenet.Hash) (corenet.Block, bool) {
	b, ok := t.blocks[hash]
	return b, ok
}

func (t *fakeTxn) GenerateVote(priv corenet.PrivateKey, pub corenet.PublicKey, hashes []corenet.Hash) (corenet.Vote, error) {
	t.voteSeq++
	return corenet.Vote{
		Representative: pub,
		Sequence:        t.voteSeq,
		Hashes:          append([]corenet.Hash{}, hashes...),
	}, nil
}

func (t *fakeTxn) Close() {}

// fakeStore hands out a single shared fakeTxn; tests populate it up front.
type fakeStore struct {
	txn *fakeTxn
}

func newFakeStore() *fakeStore {
	return &fakeStore{txn: &fakeTxn{
		blocks:     make(map[corenet.Hash]corenet.Block),
		successors: make(map[corenet.Hash]corenet.Hash),
		openBlocks: make(map[corenet.Root]corenet.Hash),
	}}
}

func (s *fakeStore) BeginRead(ctx context.Context) (corenet.BlockStoreTxn, error) {
	return s.txn, nil
}

func hashOf(b byte) corenet.Hash {
	var h corenet.Hash
	h[0] = b
	return h
}

func rootOf(b byte) corenet.Root {
	var r corenet.Root
	r[0] = b
	return r
}

func newTestAggregator(t *testing.T, clock corenet.Clock, vc corenet.VoteCache, reps corenet.RepresentativeSet, store corenet.BlockStore) *Aggregator {
	t.Helper()
	a := New(TestNetworkDefaults(), clock, vc, reps, store, nil)
	t.Cleanup(a.Stop)
	return a
}

// --- property 1: deadline monotonicity ---

func TestDeadlineMonotonicity(t *testing.T) {
	clock := newFakeClock()
	store := newFakeStore()
	a := newTestAggregator(t, clock, newFakeVoteCache(), fakeReps{}, store)

	ep := corenet.NewEndpoint(mustAddr(), 1)
	ch := newFakeChannel(ep)

	a.Add(ch, []corenet.HashRoot{{Hash: hashOf(1)}})
	a.mu.Lock()
	p := a.pools[ep]
	start := p.start
	d1 := p.deadline
	a.mu.Unlock()
	require.True(t, !d1.After(start.Add(a.cfg.MaxDelay)))
	require.True(t, !d1.After(clock.Time().Add(a.cfg.SmallDelay)))

	clock.Advance(5 * time.Millisecond)
	a.Add(ch, []corenet.HashRoot{{Hash: hashOf(2)}})
	a.mu.Lock()
	d2 := a.pools[ep].deadline
	a.mu.Unlock()
	require.True(t, !d2.After(d1), "deadline must never move later across adds")
}

// --- property 2: admission cap ---

func TestAdmissionCap(t *testing.T) {
	clock := newFakeClock()
	store := newFakeStore()
	cfg := TestNetworkDefaults()
	cfg.MaxChannelRequests = 2
	a := New(cfg, clock, newFakeVoteCache(), fakeReps{}, store, nil)
	defer a.Stop()

	ep := corenet.NewEndpoint(mustAddr(), 1)
	ch := newFakeChannel(ep)

	a.Add(ch, []corenet.HashRoot{{Hash: hashOf(1)}, {Hash: hashOf(2)}})
	require.Equal(t, 1, a.Size())

	a.Add(ch, []corenet.HashRoot{{Hash: hashOf(3)}})
	a.mu.Lock()
	entries := len(a.pools[ep].entries)
	a.mu.Unlock()
	require.Equal(t, 2, entries, "oversized add must be dropped, pool unchanged")
}

// A single oversized call to a brand-new endpoint must be dropped too, not
// just an oversized follow-up to an existing pool.
func TestAdmissionCapOnFirstAddToNewEndpoint(t *testing.T) {
	clock := newFakeClock()
	store := newFakeStore()
	cfg := TestNetworkDefaults()
	cfg.MaxChannelRequests = 2
	a := New(cfg, clock, newFakeVoteCache(), fakeReps{}, store, nil)
	defer a.Stop()

	ep := corenet.NewEndpoint(mustAddr(), 1)
	ch := newFakeChannel(ep)

	a.Add(ch, []corenet.HashRoot{{Hash: hashOf(1)}, {Hash: hashOf(2)}, {Hash: hashOf(3)}})

	a.mu.Lock()
	_, exists := a.pools[ep]
	a.mu.Unlock()
	require.False(t, exists, "oversized first add to a new endpoint must be dropped, not create a pool")
}

// --- property 3: backlog dam ---

func TestBacklogDam(t *testing.T) {
	clock := newFakeClock()
	store := newFakeStore()
	cfg := TestNetworkDefaults()
	a := New(cfg, clock, newFakeVoteCache(), fakeReps{}, store, nil)
	defer a.Stop()

	ep1 := corenet.NewEndpoint(mustAddr(), 1)
	ch1 := newFakeChannel(ep1)
	a.Add(ch1, []corenet.HashRoot{{Hash: hashOf(1)}})

	clock.Advance(2*cfg.MaxDelay + cfg.MaxDelay)

	ep2 := corenet.NewEndpoint(mustAddr(), 2)
	ch2 := newFakeChannel(ep2)
	a.Add(ch2, []corenet.HashRoot{{Hash: hashOf(2)}})

	a.mu.Lock()
	_, ok := a.pools[ep2]
	a.mu.Unlock()
	require.False(t, ok, "add must be dropped while the backlog dam is engaged")
}

// --- property 4 / S1 / S2 / S3: aggregate ---

func TestAggregateDedupeAndCacheHit(t *testing.T) {
	clock := newFakeClock()
	store := newFakeStore()
	h1, h2 := hashOf(1), hashOf(2)
	store.txn.blocks[h2] = corenet.Block{Hash: h2}

	vc := newFakeVoteCache()
	v1 := corenet.Vote{Representative: corenet.PublicKey{9}, Sequence: 1, Hashes: []corenet.Hash{h1}}
	vc.seed(h1, v1)

	rep := corenet.RepresentativeKeyPair{Public: corenet.PublicKey{1}, Private: corenet.PrivateKey{2}}
	a := New(TestNetworkDefaults(), clock, vc, fakeReps{rep}, store, nil)
	defer a.Stop()

	ep := corenet.NewEndpoint(mustAddr(), 1)
	ch := newFakeChannel(ep)

	p := &channelPool{endpoint: ep, channel: ch, entries: []corenet.HashRoot{
		{Hash: h1}, {Hash: h2}, {Hash: h1},
	}}

	require.NoError(t, aggregatePool(context.Background(), a, p))

	acks := ch.Acks()
	require.Len(t, acks, 2)
	require.Contains(t, acks, v1)

	var generated *corenet.Vote
	for i := range acks {
		if acks[i].Representative == rep.Public {
			generated = &acks[i]
		}
	}
	require.NotNil(t, generated)
	require.Equal(t, []corenet.Hash{h2}, generated.Hashes)
}

func TestAggregateSuccessorPublish(t *testing.T) {
	clock := newFakeClock()
	store := newFakeStore()
	root := rootOf(0xA)
	successor := hashOf(0xB)
	store.txn.openBlocks[root] = successor
	store.txn.blocks[successor] = corenet.Block{Hash: successor}

	rep := corenet.RepresentativeKeyPair{Public: corenet.PublicKey{1}, Private: corenet.PrivateKey{2}}
	a := New(TestNetworkDefaults(), clock, newFakeVoteCache(), fakeReps{rep}, store, nil)
	defer a.Stop()

	ep := corenet.NewEndpoint(mustAddr(), 1)
	ch := newFakeChannel(ep)
	p := &channelPool{endpoint: ep, channel: ch, entries: []corenet.HashRoot{
		{Hash: corenet.ZeroHash, Root: root},
	}}

	require.NoError(t, aggregatePool(context.Background(), a, p))
	require.Equal(t, []corenet.Block{{Hash: successor}}, ch.Publishes())
	acks := ch.Acks()
	require.Len(t, acks, 1)
	require.Equal(t, []corenet.Hash{successor}, acks[0].Hashes)
}

func TestAggregateUnknownRoot(t *testing.T) {
	clock := newFakeClock()
	store := newFakeStore()
	rep := corenet.RepresentativeKeyPair{Public: corenet.PublicKey{1}, Private: corenet.PrivateKey{2}}
	a := New(TestNetworkDefaults(), clock, newFakeVoteCache(), fakeReps{rep}, store, nil)
	defer a.Stop()

	ep := corenet.NewEndpoint(mustAddr(), 1)
	ch := newFakeChannel(ep)
	p := &channelPool{endpoint: ep, channel: ch, entries: []corenet.HashRoot{
		{Hash: corenet.ZeroHash, Root: rootOf(0xFF)},
	}}

	require.NoError(t, aggregatePool(context.Background(), a, p))
	require.Empty(t, ch.Acks())
	require.Empty(t, ch.Publishes())
}

// end-to-end: the worker loop drains an accepted pool once its deadline
// elapses.
func TestWorkerLoopDrainsOnDeadline(t *testing.T) {
	store := newFakeStore()
	h1 := hashOf(1)
	store.txn.blocks[h1] = corenet.Block{Hash: h1}
	rep := corenet.RepresentativeKeyPair{Public: corenet.PublicKey{1}, Private: corenet.PrivateKey{2}}

	a := New(TestNetworkDefaults(), realClock{}, newFakeVoteCache(), fakeReps{rep}, store, nil)
	defer a.Stop()

	ep := corenet.NewEndpoint(mustAddr(), 1)
	ch := newFakeChannel(ep)
	a.Add(ch, []corenet.HashRoot{{Hash: h1}})

	require.Eventually(t, func() bool {
		return len(ch.Acks()) == 1
	}, 2*time.Second, time.Millisecond)
	require.True(t, a.Empty())
}
