// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package requestaggregator

import (
	"bytes"
	"context"
	"sort"

	"github.com/luxfi/votenet/corenet"
)

// aggregatePool implements the aggregate algorithm of §4.1: it deduplicates
// the pool's (hash, root) pairs, serves cached votes immediately, and
// synthesizes fresh votes for the remainder under a single block-store read
// transaction scoped to this call (§9: "Scoped read transactions become a
// resource acquired at the start of aggregate and released at its end").
func aggregatePool(ctx context.Context, a *Aggregator, p *channelPool) error {
	txn, err := a.store.BeginRead(ctx)
	if err != nil {
		return err
	}
	defer txn.Close()

	deduped := dedupeByHash(p.entries)

	var cachedVotes []corenet.Vote
	var toGenerate []corenet.Hash
	cachedHashes := 0

	for _, e := range deduped {
		if votes, ok := a.voteCache.Votes(e.Hash); ok {
			cachedVotes = append(cachedVotes, votes...)
			cachedHashes++
			continue
		}
		if e.Hash != corenet.ZeroHash && txn.Contains(e.Hash) {
			toGenerate = append(toGenerate, e.Hash)
			continue
		}
		if e.Root == corenet.ZeroHash {
			continue
		}
		successor, ok := txn.Successor(e.Root)
		if !ok {
			successor, ok = txn.AccountOpenBlock(e.Root)
		}
		if !ok {
			a.counters.RequestsUnknown.Add(1)
			continue
		}
		if votes, ok := a.voteCache.Votes(successor); ok {
			cachedVotes = append(cachedVotes, votes...)
			cachedHashes++
		} else {
			toGenerate = append(toGenerate, successor)
		}
		if block, ok := txn.Block(successor); ok {
			if err := p.channel.SendPublish(block); err != nil {
				a.log.Debug("publish send failed", "endpoint", p.endpoint, "err", err)
			}
		}
	}

	cachedVotes = dedupeVotes(cachedVotes)

	a.counters.RequestsCachedHashes.Add(float64(cachedHashes))
	a.counters.RequestsCachedVotes.Add(float64(len(cachedVotes)))

	for _, v := range cachedVotes {
		if err := p.channel.SendConfirmAck(v); err != nil {
			a.log.Debug("confirm_ack send failed", "endpoint", p.endpoint, "err", err)
		}
	}

	if len(toGenerate) > 0 {
		generateVotes(a, txn, p, toGenerate)
	}
	return nil
}

// dedupeByHash sorts (hash, root) pairs by hash and keeps the first
// occurrence of each distinct hash, per §4.1 step 1.
func dedupeByHash(entries []corenet.HashRoot) []corenet.HashRoot {
	if len(entries) <= 1 {
		return entries
	}
	sorted := append([]corenet.HashRoot{}, entries...)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Hash[:], sorted[j].Hash[:]) < 0
	})
	out := sorted[:0:0]
	var last corenet.Hash
	haveLast := false
	for _, e := range sorted {
		if haveLast && e.Hash == last {
			continue
		}
		out = append(out, e)
		last = e.Hash
		haveLast = true
	}
	return out
}

// dedupeVotes collapses votes with the same (representative, sequence)
// identity, per §4.1 step 3.
func dedupeVotes(votes []corenet.Vote) []corenet.Vote {
	if len(votes) <= 1 {
		return votes
	}
	seen := make(map[[40]byte]struct{}, len(votes))
	out := make([]corenet.Vote, 0, len(votes))
	for _, v := range votes {
		id := v.ID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, v)
	}
	return out
}

// generateVotes chunks toGenerate into groups of at most
// confirm_ack_hashes_max hashes and, for each chunk, has every local
// representative produce and send a vote (§4.1 "Vote generation").
func generateVotes(a *Aggregator, txn corenet.BlockStoreTxn, p *channelPool, toGenerate []corenet.Hash) {
	a.counters.RequestsGeneratedHashes.Add(float64(len(toGenerate)))

	chunkSize := a.cfg.ConfirmAckHashesMax
	if chunkSize <= 0 {
		chunkSize = len(toGenerate)
	}
	reps := a.reps.Representatives()

	for start := 0; start < len(toGenerate); start += chunkSize {
		end := start + chunkSize
		if end > len(toGenerate) {
			end = len(toGenerate)
		}
		chunk := toGenerate[start:end]

		for _, rep := range reps {
			vote, err := txn.GenerateVote(rep.Private, rep.Public, chunk)
			if err != nil {
				a.log.Debug("vote generation failed", "endpoint", p.endpoint, "err", err)
				continue
			}
			if err := p.channel.SendConfirmAck(vote); err != nil {
				a.log.Debug("generated confirm_ack send failed", "endpoint", p.endpoint, "err", err)
			}
			for _, h := range chunk {
				a.voteCache.Insert(h, vote)
			}
			a.counters.RequestsGeneratedVotes.Add(1)
		}
	}
}
