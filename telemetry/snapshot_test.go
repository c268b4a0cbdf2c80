// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/votenet/corenet"
)

func TestSnapshotBufferRetainsRecentRounds(t *testing.T) {
	buf, err := NewSnapshotBuffer(2)
	require.NoError(t, err)

	r1 := buf.Add([]corenet.TelemetryData{{BlockCount: 1}})
	r2 := buf.Add([]corenet.TelemetryData{{BlockCount: 2}})
	r3 := buf.Add([]corenet.TelemetryData{{BlockCount: 3}})

	require.Equal(t, 2, buf.Len())

	_, ok := buf.Get(r1)
	require.False(t, ok, "oldest round should have been evicted")

	got2, ok := buf.Get(r2)
	require.True(t, ok)
	require.Equal(t, uint64(2), got2[0].BlockCount)

	got3, ok := buf.Get(r3)
	require.True(t, ok)
	require.Equal(t, uint64(3), got3[0].BlockCount)
}

func TestSnapshotBufferIndependentSlices(t *testing.T) {
	buf, err := NewSnapshotBuffer(4)
	require.NoError(t, err)

	records := []corenet.TelemetryData{{BlockCount: 10}}
	round := buf.Add(records)
	records[0].BlockCount = 99

	stored, ok := buf.Get(round)
	require.True(t, ok)
	require.Equal(t, uint64(10), stored[0].BlockCount, "Add must copy, not alias, the caller's slice")
}
