// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package message

import (
	"github.com/luxfi/node/codec"
	"github.com/luxfi/node/codec/linearcodec"
	"github.com/luxfi/node/utils/units"
	"github.com/luxfi/node/utils/wrappers"
)

const (
	// Version is the codec version this package registers its types under.
	Version = uint16(0)

	maxMessageSize = 1*units.MiB - 64*units.KiB
)

// Codec serializes the five wire messages this package defines, the same
// codec.NewManager + linearcodec.NewDefault + RegisterType pattern the
// teacher uses for its own request/response message set
// (plugin/evm/message/codec.go).
var Codec codec.Manager

func init() {
	Codec = codec.NewManager(maxMessageSize)
	c := linearcodec.NewDefault()

	errs := wrappers.Errs{}
	errs.Add(
		c.RegisterType(TelemetryReq{}),
		c.RegisterType(TelemetryAck{}),
		c.RegisterType(ConfirmReq{}),
		c.RegisterType(ConfirmAck{}),
		c.RegisterType(Publish{}),

		Codec.RegisterCodec(Version, c),
	)
	if errs.Errored() {
		panic(errs.Err)
	}
}
