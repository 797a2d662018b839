// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package route

import (
	"grimm.is/mx6e/internal/addr6"
	"grimm.is/mx6e/internal/rule"
)

// DomainRouter adapts a Shim bound to the two tunnel-device ifindexes
// into a ruletable.Router: it is the piece of glue the daemon hands to
// each kind-table so Insert/Delete/SetEnabled can install or remove
// the route toward the correct TAP for a rule's domain.
type DomainRouter struct {
	Shim      Shim
	PRIfindex int
	FPIfindex int
}

func (d DomainRouter) ifindex(domain rule.Domain) int {
	if domain == rule.DomainFP {
		return d.FPIfindex
	}
	return d.PRIfindex
}

// Install implements ruletable.Router.
func (d DomainRouter) Install(domain rule.Domain, dst addr6.Addr, prefixLen int) error {
	return d.Shim.Install(d.ifindex(domain), dst, prefixLen)
}

// Remove implements ruletable.Router.
func (d DomainRouter) Remove(domain rule.Domain, dst addr6.Addr, prefixLen int) error {
	return d.Shim.Remove(d.ifindex(domain), dst, prefixLen)
}
