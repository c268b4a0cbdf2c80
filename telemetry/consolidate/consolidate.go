// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package consolidate implements the Telemetry Consolidator (§4.3): a pure
// function reducing a slice of telemetry records from many peers into one
// representative record.
package consolidate

import (
	"math/big"
	"sort"

	"github.com/luxfi/votenet/corenet"
)

// Consolidate reduces records into a single TelemetryData per §4.3.
func Consolidate(records []corenet.TelemetryData) corenet.TelemetryData {
	switch len(records) {
	case 0:
		return corenet.TelemetryData{}
	case 1:
		return records[0]
	}

	out := corenet.TelemetryData{}

	out.AccountCount = trimmedMeanUint64(mapUint64(records, func(d corenet.TelemetryData) uint64 { return d.AccountCount }))
	out.BlockCount = trimmedMeanUint64(mapUint64(records, func(d corenet.TelemetryData) uint64 { return d.BlockCount }))
	out.CementedCount = trimmedMeanUint64(mapUint64(records, func(d corenet.TelemetryData) uint64 { return d.CementedCount }))
	out.UncheckedCount = trimmedMeanUint64(mapUint64(records, func(d corenet.TelemetryData) uint64 { return d.UncheckedCount }))
	out.Uptime = trimmedMeanUint64(mapUint64(records, func(d corenet.TelemetryData) uint64 { return d.Uptime }))
	out.PeerCount = uint32(trimmedMeanUint64(mapUint64(records, func(d corenet.TelemetryData) uint64 { return uint64(d.PeerCount) })))

	var timestamps []uint64
	for _, r := range records {
		if r.HasTimestamp {
			timestamps = append(timestamps, uint64(r.Timestamp))
		}
	}
	if len(timestamps) > 0 {
		out.Timestamp = int64(trimmedMeanUint64(timestamps))
		out.HasTimestamp = true
	}

	out.ProtocolVersion = uint8(modeUint64(mapUint64(records, func(d corenet.TelemetryData) uint64 { return uint64(d.ProtocolVersion) })))
	out.GenesisBlock = modeGeneric(records, func(d corenet.TelemetryData) corenet.Hash { return d.GenesisBlock })
	out.BandwidthCap = consolidateBandwidthCap(records)

	versionStrings := make([]string, len(records))
	for i, r := range records {
		versionStrings[i] = corenet.EncodeVersion(r)
	}
	version := modeString(versionStrings)
	if decoded, err := corenet.DecodeVersion(version); err == nil {
		out.MajorVersion = decoded.MajorVersion
		out.HasMinorVersion, out.MinorVersion = decoded.HasMinorVersion, decoded.MinorVersion
		out.HasPatchVersion, out.PatchVersion = decoded.HasPatchVersion, decoded.PatchVersion
		out.HasPreRelease, out.PreReleaseVersion = decoded.HasPreRelease, decoded.PreReleaseVersion
		out.HasMaker, out.Maker = decoded.HasMaker, decoded.Maker
	}

	return out
}

func mapUint64(records []corenet.TelemetryData, f func(corenet.TelemetryData) uint64) []uint64 {
	out := make([]uint64, len(records))
	for i, r := range records {
		out[i] = f(r)
	}
	return out
}

// trimmedMeanUint64 sorts values ascending, drops ⌊n/10⌋ from each end, and
// averages the remainder, summing in a wide integer type and narrowing with
// a range check (§4.3).
func trimmedMeanUint64(values []uint64) uint64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]uint64{}, values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	trim := len(sorted) / 10
	kept := sorted[trim : len(sorted)-trim]
	if len(kept) == 0 {
		kept = sorted
	}

	sum := new(big.Int)
	for _, v := range kept {
		sum.Add(sum, new(big.Int).SetUint64(v))
	}
	mean := new(big.Int).Div(sum, big.NewInt(int64(len(kept))))

	max := new(big.Int).SetUint64(^uint64(0))
	if mean.Cmp(max) > 0 {
		return ^uint64(0)
	}
	return mean.Uint64()
}

// modeUint64 returns the most frequent value, breaking ties by first
// observation order.
func modeUint64(values []uint64) uint64 {
	counts := make(map[uint64]int)
	order := make([]uint64, 0, len(values))
	for _, v := range values {
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	return pickMode(order, counts)
}

// modeGeneric returns the most frequent value of field f across records,
// breaking ties by first observation order — generalized from the version
// string's documented first-observed tie-break (§4.3) to every categorical
// field, for determinism (see DESIGN.md).
func modeGeneric[T comparable](records []corenet.TelemetryData, f func(corenet.TelemetryData) T) T {
	counts := make(map[T]int)
	order := make([]T, 0, len(records))
	for _, r := range records {
		v := f(r)
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	return pickMode(order, counts)
}

func modeString(values []string) string {
	counts := make(map[string]int)
	order := make([]string, 0, len(values))
	for _, v := range values {
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	return pickMode(order, counts)
}

func pickMode[T comparable](order []T, counts map[T]int) T {
	var best T
	bestCount := -1
	for _, v := range order {
		if counts[v] > bestCount {
			best = v
			bestCount = counts[v]
		}
	}
	return best
}

// consolidateBandwidthCap applies §4.3's special-cased rule: mode first; if
// no mode has count > 1, fall back to the trimmed mean over non-zero
// contributions (0 means "unlimited" and is excluded from the mean).
func consolidateBandwidthCap(records []corenet.TelemetryData) uint64 {
	values := mapUint64(records, func(d corenet.TelemetryData) uint64 { return d.BandwidthCap })

	counts := make(map[uint64]int)
	order := make([]uint64, 0, len(values))
	for _, v := range values {
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	mode := pickMode(order, counts)
	if counts[mode] > 1 {
		return mode
	}

	var nonZero []uint64
	for _, v := range values {
		if v != 0 {
			nonZero = append(nonZero, v)
		}
	}
	return trimmedMeanUint64(nonZero)
}
