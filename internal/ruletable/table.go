// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package ruletable implements an ordered, lock-serialized rule
// table: one table per translation kind (M46E / ME6E),
// domain-partitioned within the stored key, supporting
// insert/delete/enable-toggle/longest-exact lookup/dump/clear under
// concurrent reader-writer access from the control loop and the
// forwarding workers.
package ruletable

import (
	"fmt"
	"io"
	"math/bits"
	"sort"
	"sync"
	"time"

	"grimm.is/mx6e/internal/addr6"
	"grimm.is/mx6e/internal/errors"
	"grimm.is/mx6e/internal/rule"
)

// MaxRulesPerTable bounds the number of live rules a single table may
// hold.
const MaxRulesPerTable = 4096

// Router installs and removes the kernel routes that shadow a rule's
// enabled state, toward the TAP of the rule's ingress domain. Table
// calls it with the table lock held, so implementations must not call
// back into the table.
type Router interface {
	Install(domain rule.Domain, dst addr6.Addr, prefixLen int) error
	Remove(domain rule.Domain, dst addr6.Addr, prefixLen int) error
}

// NopRouter is a Router that does nothing; useful for tests and for
// kinds/tables that have no route side effect.
type NopRouter struct{}

func (NopRouter) Install(rule.Domain, addr6.Addr, int) error { return nil }
func (NopRouter) Remove(rule.Domain, addr6.Addr, int) error  { return nil }

// Table holds every rule of one Kind, across both domains, under a
// single mutex. The stored order is the insertion comparator's order:
// lexicographic over (domain, match_addr, match_mask).
type Table struct {
	kind   rule.Kind
	router Router
	logger interface {
		Warnf(format string, args ...any)
	}

	mu    sync.Mutex
	rules []*rule.Rule
}

// New constructs an empty table for the given kind. router is used to
// install/remove the kernel route shadowing each rule's enabled state;
// pass NopRouter{} where no such side effect is wanted (e.g. tests).
func New(kind rule.Kind, router Router) *Table {
	if router == nil {
		router = NopRouter{}
	}
	return &Table{kind: kind, router: router}
}

// SetLogger attaches a logger used to record route-install/remove
// failures that happen alongside a rule mutation the table still
// commits; those discrepancies are logged rather than returned.
func (t *Table) SetLogger(l interface {
	Warnf(format string, args ...any)
}) {
	t.logger = l
}

func (t *Table) warnf(format string, args ...any) {
	if t.logger != nil {
		t.logger.Warnf(format, args...)
	}
}

// insertionLess implements the table's strict insertion order:
// lexicographic over (domain, match_addr, match_mask).
func insertionLess(a, b *rule.Rule) bool {
	if a.Domain != b.Domain {
		return a.Domain < b.Domain
	}
	if c := a.MatchAddr.Compare(b.MatchAddr); c != 0 {
		return c < 0
	}
	return a.MatchMask.Compare(b.MatchMask) < 0
}

// indexOfKey returns the position of the rule matching key's identity
// fields, or -1.
func (t *Table) indexOfKey(k rule.Key) int {
	for i, r := range t.rules {
		if r.Domain == k.Domain && r.MatchAddr == k.MatchAddr && r.MatchMask == k.MatchMask {
			return i
		}
	}
	return -1
}

// Count returns the number of live rules.
func (t *Table) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rules)
}

// Insert validates and adds r, installing its route if r.Enable is
// true. Refuses a duplicate key or a full table with no side effects.
func (t *Table) Insert(r *rule.Rule) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.rules) >= MaxRulesPerTable {
		return errors.New(errors.KindConflict, fmt.Sprintf("%s table is full (%d rules)", t.kind, MaxRulesPerTable))
	}
	dup := rule.Key{Domain: r.Domain, MatchAddr: r.MatchAddr, MatchMask: r.MatchMask}
	if t.indexOfKey(dup) >= 0 {
		return errors.New(errors.KindConflict, fmt.Sprintf("%s rule with this match key already exists", t.kind))
	}

	if r.Enable {
		if err := t.router.Install(r.Domain, r.TunnelRouteAddr, r.TunnelRoutePrefixLen); err != nil {
			return errors.Wrap(err, errors.KindUnavailable, "installing route for new rule")
		}
	}

	r.CreatedAt = time.Now()
	i := sort.Search(len(t.rules), func(i int) bool { return !insertionLess(t.rules[i], r) })
	t.rules = append(t.rules, nil)
	copy(t.rules[i+1:], t.rules[i:])
	t.rules[i] = r
	return nil
}

// Delete removes the rule identified by key, removing its route first
// if it was enabled.
func (t *Table) Delete(k rule.Key) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOfKey(k)
	if i < 0 {
		return errors.New(errors.KindNotFound, fmt.Sprintf("no %s rule for key %v:%v", t.kind, k.MatchAddr, k.MatchMask))
	}
	r := t.rules[i]
	if r.Enable {
		if err := t.router.Remove(r.Domain, r.TunnelRouteAddr, r.TunnelRoutePrefixLen); err != nil {
			t.warnf("ruletable: delete: route removal failed for %s rule %v: %v", t.kind, k.MatchAddr, err)
		}
	}
	t.rules = append(t.rules[:i], t.rules[i+1:]...)
	return nil
}

// SetEnabled toggles a rule's enable flag, synchronizing its route. A
// route-install/remove error during the toggle still lands the
// in-memory flag in its new state; the discrepancy is only logged.
func (t *Table) SetEnabled(k rule.Key, on bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOfKey(k)
	if i < 0 {
		return errors.New(errors.KindNotFound, fmt.Sprintf("no %s rule for key %v:%v", t.kind, k.MatchAddr, k.MatchMask))
	}
	r := t.rules[i]
	if r.Enable == on {
		return nil
	}
	if on {
		if err := t.router.Install(r.Domain, r.TunnelRouteAddr, r.TunnelRoutePrefixLen); err != nil {
			t.warnf("ruletable: set_enabled: route install failed for %s rule %v: %v", t.kind, k.MatchAddr, err)
		}
	} else {
		if err := t.router.Remove(r.Domain, r.TunnelRouteAddr, r.TunnelRoutePrefixLen); err != nil {
			t.warnf("ruletable: set_enabled: route removal failed for %s rule %v: %v", t.kind, k.MatchAddr, err)
		}
	}
	r.Enable = on
	return nil
}

// FindForPacket implements the table's lookup comparator: the
// query's mask is implicitly ZERO, so the effective comparison mask
// for each candidate is exactly its own stored match_mask. When several
// enabled rules cover dst, the one whose match_mask fixes the most bits
// wins. Returns nil if no enabled rule in domain covers dst.
func (t *Table) FindForPacket(domain rule.Domain, dst addr6.Addr) *rule.Rule {
	t.mu.Lock()
	defer t.mu.Unlock()

	var best *rule.Rule
	bestBits := -1
	for _, r := range t.rules {
		if r.Domain != domain || !r.Enable {
			continue
		}
		if !addr6.EqualMasked(dst, r.MatchAddr, r.MatchMask) {
			continue
		}
		n := 0
		for _, b := range r.MatchMask {
			n += bits.OnesCount8(b)
		}
		if n > bestBits {
			best, bestBits = r, n
		}
	}
	return best
}

// Dump writes a human-readable tabular listing of every rule, in
// insertion-comparator order, to w.
func (t *Table) Dump(w io.Writer) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, r := range t.rules {
		state := "disabled"
		if r.Enable {
			state = "enabled"
		}
		if _, err := fmt.Fprintf(w, "%-4s %-4s %-32s %-32s %s\n",
			t.kind, r.Domain, r.MatchAddr, r.MatchMask, state); err != nil {
			return err
		}
	}
	return nil
}

// ClearAll removes every rule's route, then empties the table.
func (t *Table) ClearAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, r := range t.rules {
		if r.Enable {
			if err := t.router.Remove(r.Domain, r.TunnelRouteAddr, r.TunnelRoutePrefixLen); err != nil {
				t.warnf("ruletable: clear_all: route removal failed for %s rule %v: %v", t.kind, r.MatchAddr, err)
			}
		}
	}
	t.rules = nil
}

// Snapshot returns a read-only copy of every rule currently stored, in
// insertion-comparator order. Safe to range over without holding the
// table lock.
func (t *Table) Snapshot() []rule.Rule {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]rule.Rule, len(t.rules))
	for i, r := range t.rules {
		out[i] = *r
	}
	return out
}
