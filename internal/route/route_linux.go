// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package route

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"

	"grimm.is/mx6e/internal/addr6"
)

// netlinkShim installs IPv6 routes via github.com/vishvananda/netlink.
type netlinkShim struct{}

// NewShim returns the platform route-install shim.
func NewShim() Shim { return netlinkShim{} }

func routeFor(ifindex int, dst addr6.Addr, prefixLen int) *netlink.Route {
	return &netlink.Route{
		LinkIndex: ifindex,
		Dst: &net.IPNet{
			IP:   dst.IP(),
			Mask: net.CIDRMask(prefixLen, 128),
		},
	}
}

// Install adds a route toward ifindex. "File exists" is not an
// error: the route already reflects the desired state.
func (netlinkShim) Install(ifindex int, dst addr6.Addr, prefixLen int) error {
	r := routeFor(ifindex, dst, prefixLen)
	if err := netlink.RouteAdd(r); err != nil {
		if err.Error() == "file exists" {
			return nil
		}
		return fmt.Errorf("route: install %s/%d via ifindex %d: %w", dst, prefixLen, ifindex, err)
	}
	return nil
}

// Remove deletes a route toward ifindex. "No such process" is not an
// error: the route is already absent.
func (netlinkShim) Remove(ifindex int, dst addr6.Addr, prefixLen int) error {
	r := routeFor(ifindex, dst, prefixLen)
	if err := netlink.RouteDel(r); err != nil {
		if err.Error() == "no such process" {
			return nil
		}
		return fmt.Errorf("route: remove %s/%d via ifindex %d: %w", dst, prefixLen, ifindex, err)
	}
	return nil
}
