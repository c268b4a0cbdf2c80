// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package telemetry

import "github.com/luxfi/votenet/corenet"

// Re-exported so callers need not import corenet just to errors.Is against
// the taxonomy named in §7.
var (
	ErrTimeout       = corenet.ErrTimeout
	ErrSendFailed    = corenet.ErrSendFailed
	ErrEmptyReply    = corenet.ErrEmptyReply
	ErrBelowProtocol = corenet.ErrBelowProtocol
	ErrShutdown      = corenet.ErrShutdown
)
