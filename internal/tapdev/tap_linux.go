// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package tapdev

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	tunDevicePath = "/dev/net/tun"
	ifnamsiz      = 16
)

// ifreq mirrors struct ifreq's name+flags prefix, the only part
// TUNSETIFF touches.
type ifreq struct {
	name  [ifnamsiz]byte
	flags uint16
	_     [22]byte // pad to the kernel's sizeof(struct ifreq)
}

type linuxTAP struct {
	f    *os.File
	name string
}

// Create opens /dev/net/tun and attaches a TAP interface named
// preferredName (the kernel may substitute a different name if a %d
// template or a conflict is involved; Name() reports the name actually
// assigned).
func Create(preferredName string) (Device, error) {
	f, err := os.OpenFile(tunDevicePath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("tapdev: open %s: %w", tunDevicePath, err)
	}

	var req ifreq
	copy(req.name[:], preferredName)
	req.flags = unix.IFF_TAP | unix.IFF_NO_PI

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), uintptr(unix.TUNSETIFF), uintptr(unsafe.Pointer(&req))); errno != 0 {
		f.Close()
		return nil, fmt.Errorf("tapdev: TUNSETIFF %s: %w", preferredName, errno)
	}

	assigned := nullTerminated(req.name[:])
	return &linuxTAP{f: f, name: assigned}, nil
}

func nullTerminated(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func (t *linuxTAP) Name() string { return t.name }

func (t *linuxTAP) Read(buf []byte) (int, error)  { return t.f.Read(buf) }
func (t *linuxTAP) Write(buf []byte) (int, error) { return t.f.Write(buf) }
func (t *linuxTAP) Close() error                  { return t.f.Close() }

func (t *linuxTAP) SetNonblock(nonblocking bool) error {
	return unix.SetNonblock(int(t.f.Fd()), nonblocking)
}
