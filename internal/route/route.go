// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package route wraps the kernel route-manipulation interface behind
// a thin shim contract: install/remove a single prefix route toward a
// tunnel device's ifindex, on rule enable/disable.
package route

import "grimm.is/mx6e/internal/addr6"

// Shim installs and removes the IPv6 routes that shadow a rule's
// enabled state. Implementations do not propagate OS errors except as
// return values for the caller to log; the rule state machine never
// rolls back on a Shim failure.
type Shim interface {
	Install(ifindex int, dst addr6.Addr, prefixLen int) error
	Remove(ifindex int, dst addr6.Addr, prefixLen int) error
}
