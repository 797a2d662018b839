// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux
// +build !linux

package tapdev

import "fmt"

// Create is unsupported outside Linux; TAP devices are a Linux-only
// concept for this gateway.
func Create(preferredName string) (Device, error) {
	return nil, fmt.Errorf("tapdev: not supported on this platform")
}
