// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package telemetry

import "time"

// Config holds the network-dependent tunables from §6/§8.
type Config struct {
	// CacheCutoff bounds how long a cached reply is considered fresh.
	CacheCutoff time.Duration
	// ResponseTimeCutoff bounds how long an in-flight probe waits for a
	// reply before it is treated as timed out. Must be strictly less than
	// CacheCutoff (§6).
	ResponseTimeCutoff time.Duration
	// MinProtocolVersion excludes peers below this version from probing.
	MinProtocolVersion uint8
}

// LiveNetworkDefaults returns the production network's timing constants.
func LiveNetworkDefaults() Config {
	return Config{
		CacheCutoff:        60 * time.Second,
		ResponseTimeCutoff: 10 * time.Second,
		MinProtocolVersion: 18,
	}
}

// TestNetworkDefaults returns faster constants for unit tests.
func TestNetworkDefaults() Config {
	return Config{
		CacheCutoff:        300 * time.Millisecond,
		ResponseTimeCutoff: 100 * time.Millisecond,
		MinProtocolVersion: 18,
	}
}
