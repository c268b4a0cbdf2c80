// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package corenet

import "errors"

// Error taxonomy (§7). Admission and aggregation errors are counted and
// discarded rather than propagated; Send/Timeout/BelowProtocol errors are
// delivered to waiting telemetry callbacks.
var (
	ErrDropped          = errors.New("request dropped by admission policy")
	ErrUnknownRoot      = errors.New("root did not resolve to a block or account")
	ErrSendFailed       = errors.New("channel send failed")
	ErrTimeout          = errors.New("telemetry request timed out")
	ErrBelowProtocol    = errors.New("peer protocol version below minimum")
	ErrShutdown         = errors.New("component is shutting down")
	ErrInvalidVersion   = errors.New("invalid version string")
	ErrNoRepresentative = errors.New("request aggregator used with no local representatives")
	ErrEmptyReply       = errors.New("telemetry reply carried no usable data")
)
