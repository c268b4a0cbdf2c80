// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package corenet holds the data model and collaborator interfaces shared
// by the request aggregator and telemetry cache: block/account identifiers,
// peer endpoints, votes, telemetry records, and the read-only interfaces
// onto the ledger, wallet, and network that those engines depend on.
package corenet

import (
	"fmt"
	"net/netip"

	"github.com/luxfi/ids"
)

// Hash is a block identifier. 256 bits is typical.
type Hash = ids.ID

// Root is either a block hash or an account identifier; which one it is
// interpreted as depends on context (see aggregatePool in package
// requestaggregator).
type Root = ids.ID

// ZeroHash is the sentinel "no hash supplied" value.
var ZeroHash Hash

// PublicKey and PrivateKey are opaque representative key material. The
// signature scheme itself is out of scope for this module.
type PublicKey [32]byte

type PrivateKey [32]byte

// HashRoot is a single entry of an incoming vote request: the hash being
// voted on, plus a root to fall back to when the hash itself is unknown.
type HashRoot struct {
	Hash Hash
	Root Root
}

// Vote binds a representative key to an ordered set of hashes with a
// sequence number. Its internal representation (signature bytes, encoding)
// is opaque to this package.
type Vote struct {
	Representative PublicKey
	Sequence       uint64
	Hashes         []Hash
	Signature      [64]byte
}

// ID returns an identity for deduplicating votes: representative + sequence
// is sufficient since a representative never reuses a sequence number for a
// different hash set.
func (v Vote) ID() [40]byte {
	var id [40]byte
	copy(id[:32], v.Representative[:])
	id[32] = byte(v.Sequence)
	id[33] = byte(v.Sequence >> 8)
	id[34] = byte(v.Sequence >> 16)
	id[35] = byte(v.Sequence >> 24)
	id[36] = byte(v.Sequence >> 32)
	id[37] = byte(v.Sequence >> 40)
	id[38] = byte(v.Sequence >> 48)
	id[39] = byte(v.Sequence >> 56)
	return id
}

// Block is an opaque ledger block, published on the wire only so a peer can
// learn that a fork may exist; this module never interprets its contents.
type Block struct {
	Hash  Hash
	Bytes []byte
}

// Endpoint is a normalized (v6-mapped) peer network address.
type Endpoint struct {
	addr netip.Addr
	port uint16
}

// NewEndpoint normalizes addr to its 4-in-6-mapped 16-byte form and pairs it
// with port, matching the spec's "Endpoint — normalized network address
// (v6-mapped)" data model entry.
func NewEndpoint(addr netip.Addr, port uint16) Endpoint {
	return Endpoint{addr: netip.AddrFrom16(addr.As16()), port: port}
}

func (e Endpoint) Addr() netip.Addr { return e.addr }
func (e Endpoint) Port() uint16     { return e.port }

func (e Endpoint) String() string {
	return fmt.Sprintf("[%s]:%d", e.addr, e.port)
}

// IsValid reports whether the endpoint was constructed via NewEndpoint.
func (e Endpoint) IsValid() bool { return e.addr.IsValid() }
