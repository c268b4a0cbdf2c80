// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package requestaggregator

import "time"

// Config holds the network-dependent tunables from §6/§8. The embedding
// application is responsible for config loading (§1 Non-goals); these
// presets mirror the teacher's pattern of named network constant sets
// (e.g. params' per-network upgrade tables) rather than a config file
// format.
type Config struct {
	// MaxChannelRequests caps the number of entries held per endpoint pool.
	MaxChannelRequests int
	// MaxDelay bounds how long a pool may sit before it is forced to drain.
	MaxDelay time.Duration
	// SmallDelay further tightens the deadline: every add, including the
	// first, caps the pool's deadline at now + SmallDelay.
	SmallDelay time.Duration
	// ConfirmAckHashesMax is the maximum number of hashes bundled into one
	// generated confirm_ack / vote.
	ConfirmAckHashesMax int
}

// LiveNetworkDefaults returns the production network's timing constants.
func LiveNetworkDefaults() Config {
	return Config{
		MaxChannelRequests: 64,
		MaxDelay:           300 * time.Millisecond,
		SmallDelay:         50 * time.Millisecond,
		ConfirmAckHashesMax: 12,
	}
}

// TestNetworkDefaults returns the faster timing constants used on test
// networks so unit tests do not have to wait out live-network delays.
func TestNetworkDefaults() Config {
	return Config{
		MaxChannelRequests: 64,
		MaxDelay:           50 * time.Millisecond,
		SmallDelay:         10 * time.Millisecond,
		ConfirmAckHashesMax: 12,
	}
}
