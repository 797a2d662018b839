// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux
// +build !linux

package route

import (
	"fmt"

	"grimm.is/mx6e/internal/addr6"
)

type stubShim struct{}

// NewShim returns the platform route-install shim.
func NewShim() Shim { return stubShim{} }

func (stubShim) Install(int, addr6.Addr, int) error {
	return fmt.Errorf("route: not supported on this platform")
}

func (stubShim) Remove(int, addr6.Addr, int) error {
	return fmt.Errorf("route: not supported on this platform")
}
