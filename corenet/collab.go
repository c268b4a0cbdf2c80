// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package corenet

import (
	"context"
	"time"
)

// VoteCache looks up and inserts recently generated or received votes,
// keyed by the block hash they vote for. Implementations must be safe for
// concurrent use. §2: "Lookup/insert of recent votes by block hash."
type VoteCache interface {
	Votes(hash Hash) ([]Vote, bool)
	Insert(hash Hash, vote Vote)
}

// RepresentativeSet yields the local node's voting representative key
// pairs. Must be safe to iterate concurrently from multiple aggregations
// (§5). §2: "Yields (public, private) key pairs of local reps."
type RepresentativeSet interface {
	Representatives() []RepresentativeKeyPair
	Len() int
}

// RepresentativeKeyPair is one local voting identity.
type RepresentativeKeyPair struct {
	Public  PublicKey
	Private PrivateKey
}

// BlockStoreTxn is a read transaction scoped to one aggregation pass; it
// must not be held across callback invocations (§9).
type BlockStoreTxn interface {
	// Contains reports whether hash is a known block.
	Contains(hash Hash) bool
	// Successor returns the successor of the block identified by hash, if
	// any.
	Successor(hash Hash) (Hash, bool)
	// AccountOpenBlock returns the open block of the account identified by
	// root, if any.
	AccountOpenBlock(root Root) (Hash, bool)
	// Block returns the block identified by hash, if known; used to
	// publish a successor block discovered during aggregation.
	Block(hash Hash) (Block, bool)
	// GenerateVote produces a vote over hashes signed by priv.
	GenerateVote(priv PrivateKey, pub PublicKey, hashes []Hash) (Vote, error)
	// Close releases the transaction. Safe to call more than once.
	Close()
}

// BlockStore is a transactional read interface onto the ledger (§2: "Block
// Store (collaborator iface) ... Transactional read of blocks, successors,
// account info.").
type BlockStore interface {
	BeginRead(ctx context.Context) (BlockStoreTxn, error)
}

// Channel sends wire messages to one peer endpoint (§2). A Channel is
// reference-counted by its owner; the request aggregator's pool keeps one
// alive for up to max_delay by holding a reference to it.
type Channel interface {
	Endpoint() Endpoint
	ProtocolVersion() uint8

	SendConfirmAck(vote Vote) error
	SendPublish(block Block) error
	SendTelemetryReq() error
	SendTelemetryAck(data TelemetryData) error
}

// PeerRegistry enumerates currently connected peer channels (§2).
type PeerRegistry interface {
	Peers() []Channel
}

// Clock is the monotonic time source both engines use for deadlines,
// freshness, and round tracking. *mockable.Clock from
// github.com/luxfi/node/utils/timer/mockable satisfies this interface and
// is the production implementation; tests substitute a fake.
type Clock interface {
	Time() time.Time
}

// WorkerPool dispatches a callback onto an external thread pool, the way
// the spec's "thread-pool worker for callback dispatch" collaborator is
// used to invoke completion callbacks outside of any held lock (§2, §5).
type WorkerPool interface {
	Send(task func())
}

// Alarm schedules fn to run once, after d elapses, matching the spec's
// "monotonic alarm/timer service" collaborator (§2). Implementations may
// run fn on an arbitrary goroutine.
type Alarm interface {
	Schedule(d time.Duration, fn func())
}
