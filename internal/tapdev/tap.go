// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package tapdev creates and drives the TAP devices the forwarding
// workers read from and write to.
package tapdev

import "io"

// MaxFrame is the fixed receive buffer size; a frame larger than this
// is cut to MaxFrame bytes by the read. The forwarding workers do not
// detect such truncation and process the shortened frame as read.
const MaxFrame = 65535

// Device is an open TAP interface.
type Device interface {
	// Name returns the kernel-assigned interface name.
	Name() string
	// Read reads one Ethernet frame into buf, returning its length.
	Read(buf []byte) (int, error)
	// Write writes one Ethernet frame.
	Write(buf []byte) (int, error)
	// SetNonblock toggles non-blocking mode, used for the startup drain.
	SetNonblock(nonblocking bool) error

	io.Closer
}
