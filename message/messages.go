// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package message defines the wire messages exchanged by the request
// aggregator and telemetry cache (§6 External interfaces) and their codec.
package message

import "github.com/luxfi/votenet/corenet"

// TelemetryReq requests a telemetry snapshot from a peer. Its payload is
// empty (§6).
type TelemetryReq struct{}

// TelemetryAck carries a peer's telemetry snapshot in reply to a
// TelemetryReq.
type TelemetryAck struct {
	Data corenet.TelemetryData `serialize:"true"`
}

// HashRootPair mirrors corenet.HashRoot on the wire.
type HashRootPair struct {
	Hash corenet.Hash `serialize:"true"`
	Root corenet.Root `serialize:"true"`
}

// ConfirmReq carries the (hash, root) pairs a peer wants votes for.
type ConfirmReq struct {
	HashesRoots []HashRootPair `serialize:"true"`
}

// ConfirmAck carries a vote, either served from cache or freshly generated.
type ConfirmAck struct {
	Representative corenet.PublicKey `serialize:"true"`
	Sequence       uint64            `serialize:"true"`
	Hashes         []corenet.Hash    `serialize:"true"`
	Signature      [64]byte          `serialize:"true"`
}

// Publish carries a block discovered as the successor of a requested root,
// so the requester learns a fork may exist (§4.1).
type Publish struct {
	Hash  corenet.Hash `serialize:"true"`
	Bytes []byte       `serialize:"true"`
}

// VoteToWire converts a corenet.Vote into its wire representation.
func VoteToWire(v corenet.Vote) ConfirmAck {
	return ConfirmAck{
		Representative: v.Representative,
		Sequence:       v.Sequence,
		Hashes:         v.Hashes,
		Signature:      v.Signature,
	}
}

// VoteFromWire converts a wire ConfirmAck back into a corenet.Vote.
func VoteFromWire(a ConfirmAck) corenet.Vote {
	return corenet.Vote{
		Representative: a.Representative,
		Sequence:       a.Sequence,
		Hashes:         a.Hashes,
		Signature:      a.Signature,
	}
}

// PublishToWire converts a corenet.Block into its wire representation.
func PublishToWire(b corenet.Block) Publish {
	return Publish{Hash: b.Hash, Bytes: b.Bytes}
}

// PublishFromWire converts a wire Publish back into a corenet.Block.
func PublishFromWire(p Publish) corenet.Block {
	return corenet.Block{Hash: p.Hash, Bytes: p.Bytes}
}
