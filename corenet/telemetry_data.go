// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package corenet

import (
	"fmt"
	"strconv"
	"strings"
)

// TelemetryData is the wire-exact telemetry record peers exchange. Field
// widths and names follow the spec's §6 External interfaces table.
type TelemetryData struct {
	AccountCount    uint64
	BlockCount      uint64
	CementedCount   uint64
	UncheckedCount  uint64
	Uptime          uint64 // seconds
	BandwidthCap    uint64 // bytes/sec; 0 = unlimited
	PeerCount       uint32
	ProtocolVersion uint8
	GenesisBlock    Hash
	MajorVersion    uint8

	// The minor/patch/pre-release/maker quadruple is optional on the wire;
	// each Has* flag records whether the peer that produced this record
	// supplied the corresponding field, so zero values are distinguishable
	// from "absent".
	HasMinorVersion   bool
	MinorVersion      uint8
	HasPatchVersion   bool
	PatchVersion      uint8
	HasPreRelease     bool
	PreReleaseVersion uint8
	HasMaker          bool
	Maker             uint8

	// Timestamp is milliseconds since epoch; optional, since not every
	// implementation populates it.
	HasTimestamp bool
	Timestamp    int64
}

// Equal reports whether d and other carry the same values, restoring the
// original implementation's telemetry_data equality helper (used by tests
// and by duplicate-suppression logic upstream of this package).
func (d TelemetryData) Equal(other TelemetryData) bool {
	return d == other
}

// EncodeVersion concatenates major.minor.patch.pre_release.maker with "."
// separators, appending each optional field only if all preceding optional
// fields are present (§4.3).
func EncodeVersion(d TelemetryData) string {
	parts := []string{strconv.Itoa(int(d.MajorVersion))}
	if !d.HasMinorVersion {
		return parts[0]
	}
	parts = append(parts, strconv.Itoa(int(d.MinorVersion)))
	if !d.HasPatchVersion {
		return strings.Join(parts, ".")
	}
	parts = append(parts, strconv.Itoa(int(d.PatchVersion)))
	if !d.HasPreRelease {
		return strings.Join(parts, ".")
	}
	parts = append(parts, strconv.Itoa(int(d.PreReleaseVersion)))
	if !d.HasMaker {
		return strings.Join(parts, ".")
	}
	parts = append(parts, strconv.Itoa(int(d.Maker)))
	return strings.Join(parts, ".")
}

// DecodeVersion splits a version string on "." and populates the optional
// version quadruple only when exactly 5 fragments are present; otherwise
// only MajorVersion is populated, matching §4.3/§8 property 10 exactly
// (a 2-, 3-, or 4-fragment string is treated the same as a bare major
// version — this literal reading is what the spec's round-trip property
// names).
func DecodeVersion(s string) (TelemetryData, error) {
	fragments := strings.Split(s, ".")
	if len(fragments) == 0 || fragments[0] == "" {
		return TelemetryData{}, fmt.Errorf("%w: empty version string", ErrInvalidVersion)
	}
	major, err := strconv.ParseUint(fragments[0], 10, 8)
	if err != nil {
		return TelemetryData{}, fmt.Errorf("%w: major version: %v", ErrInvalidVersion, err)
	}
	out := TelemetryData{MajorVersion: uint8(major)}
	if len(fragments) != 5 {
		return out, nil
	}
	minor, err := strconv.ParseUint(fragments[1], 10, 8)
	if err != nil {
		return TelemetryData{}, fmt.Errorf("%w: minor version: %v", ErrInvalidVersion, err)
	}
	patch, err := strconv.ParseUint(fragments[2], 10, 8)
	if err != nil {
		return TelemetryData{}, fmt.Errorf("%w: patch version: %v", ErrInvalidVersion, err)
	}
	pre, err := strconv.ParseUint(fragments[3], 10, 8)
	if err != nil {
		return TelemetryData{}, fmt.Errorf("%w: pre-release version: %v", ErrInvalidVersion, err)
	}
	maker, err := strconv.ParseUint(fragments[4], 10, 8)
	if err != nil {
		return TelemetryData{}, fmt.Errorf("%w: maker: %v", ErrInvalidVersion, err)
	}
	out.HasMinorVersion, out.MinorVersion = true, uint8(minor)
	out.HasPatchVersion, out.PatchVersion = true, uint8(patch)
	out.HasPreRelease, out.PreReleaseVersion = true, uint8(pre)
	out.HasMaker, out.Maker = true, uint8(maker)
	return out, nil
}
