// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package tapdev

import (
	"errors"
	"sync"
)

// ErrClosed is returned by MemDevice.Read/Write after Close.
var ErrClosed = errors.New("tapdev: device closed")

// MemDevice is an in-memory Device double used by tests: frames
// passed to Enqueue are returned by Read, and frames passed to Write
// are appended to Out.
type MemDevice struct {
	name string

	mu     sync.Mutex
	closed bool
	in     [][]byte
	cond   *sync.Cond

	Out [][]byte
}

// NewMemDevice constructs an empty in-memory TAP double.
func NewMemDevice(name string) *MemDevice {
	d := &MemDevice{name: name}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Name implements Device.
func (d *MemDevice) Name() string { return d.name }

// Enqueue makes frame available to the next Read call, in FIFO order.
func (d *MemDevice) Enqueue(frame []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.in = append(d.in, frame)
	d.cond.Signal()
}

// Read implements Device; it blocks until a frame is enqueued or the
// device is closed.
func (d *MemDevice) Read(buf []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for len(d.in) == 0 && !d.closed {
		d.cond.Wait()
	}
	if d.closed && len(d.in) == 0 {
		return 0, ErrClosed
	}
	frame := d.in[0]
	d.in = d.in[1:]
	return copy(buf, frame), nil
}

// Write implements Device.
func (d *MemDevice) Write(buf []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}
	frame := make([]byte, len(buf))
	copy(frame, buf)
	d.Out = append(d.Out, frame)
	return len(buf), nil
}

// SetNonblock implements Device; a no-op for the in-memory double.
func (d *MemDevice) SetNonblock(bool) error { return nil }

// Close implements Device.
func (d *MemDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.cond.Broadcast()
	return nil
}
