// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package consolidate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/votenet/corenet"
)

// property 8: trimming.
func TestConsolidateTrimming(t *testing.T) {
	records := make([]corenet.TelemetryData, 20)
	for i := range records {
		records[i] = corenet.TelemetryData{BlockCount: uint64(i)}
	}
	out := Consolidate(records)
	require.Equal(t, uint64(9), out.BlockCount)
}

// S6: 11 records, ten 100s and one 1e9.
func TestConsolidateS6(t *testing.T) {
	records := make([]corenet.TelemetryData, 11)
	for i := 0; i < 10; i++ {
		records[i] = corenet.TelemetryData{BlockCount: 100}
	}
	records[10] = corenet.TelemetryData{BlockCount: 1_000_000_000}
	out := Consolidate(records)
	require.Equal(t, uint64(100), out.BlockCount)
}

// property 9: mode wins when strictly more frequent than any other value.
func TestConsolidateMode(t *testing.T) {
	records := []corenet.TelemetryData{
		{ProtocolVersion: 20}, {ProtocolVersion: 20}, {ProtocolVersion: 20},
		{ProtocolVersion: 19}, {ProtocolVersion: 21},
	}
	out := Consolidate(records)
	require.Equal(t, uint8(20), out.ProtocolVersion)
}

// property 10: version round trip.
func TestConsolidateVersionRoundTrip(t *testing.T) {
	full := corenet.TelemetryData{
		MajorVersion: 1,
		HasMinorVersion: true, MinorVersion: 2,
		HasPatchVersion: true, PatchVersion: 3,
		HasPreRelease: true, PreReleaseVersion: 4,
		HasMaker: true, Maker: 5,
	}
	encoded := corenet.EncodeVersion(full)
	require.Equal(t, "1.2.3.4.5", encoded)

	decoded, err := corenet.DecodeVersion(encoded)
	require.NoError(t, err)
	require.True(t, decoded.Equal(full))

	majorOnly := corenet.TelemetryData{MajorVersion: 7}
	encodedMajor := corenet.EncodeVersion(majorOnly)
	require.Equal(t, "7", encodedMajor)

	decodedMajor, err := corenet.DecodeVersion(encodedMajor)
	require.NoError(t, err)
	require.Equal(t, uint8(7), decodedMajor.MajorVersion)
	require.False(t, decodedMajor.HasMinorVersion)
}

func TestConsolidateEmptyAndSingle(t *testing.T) {
	require.Equal(t, corenet.TelemetryData{}, Consolidate(nil))

	single := corenet.TelemetryData{BlockCount: 42}
	require.True(t, Consolidate([]corenet.TelemetryData{single}).Equal(single))
}

func TestConsolidateBandwidthCapFallback(t *testing.T) {
	records := []corenet.TelemetryData{
		{BandwidthCap: 10}, {BandwidthCap: 20}, {BandwidthCap: 30}, {BandwidthCap: 0},
	}
	out := Consolidate(records)
	require.Equal(t, uint64(20), out.BandwidthCap)
}
