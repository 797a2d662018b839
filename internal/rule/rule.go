// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package rule models the gateway's central entity, the translation
// rule, and the derivation logic that turns a user-facing
// configuration entry into the match key and rewrite templates used
// on the forwarding path. See Derive for the derivation algorithm.
package rule

import (
	"net"
	"time"

	"grimm.is/mx6e/internal/addr6"
)

// Domain is the ingress direction a rule matches.
type Domain int

const (
	DomainPR Domain = iota
	DomainFP
)

func (d Domain) String() string {
	if d == DomainFP {
		return "FP"
	}
	return "PR"
}

// ParseDomain parses the textual domain names used in config files and
// command records.
func ParseDomain(s string) (Domain, bool) {
	switch s {
	case "PR", "pr":
		return DomainPR, true
	case "FP", "fp":
		return DomainFP, true
	default:
		return 0, false
	}
}

// Kind selects the inner-payload semantics of a rule.
type Kind int

const (
	KindM46E Kind = iota
	KindME6E
)

func (k Kind) String() string {
	if k == KindME6E {
		return "ME6E"
	}
	return "M46E"
}

// InnerWidth returns the bit width of the inner payload embedded in
// the low bits of the IPv6 address: 32 for M46E (an IPv4 address), 48
// for ME6E (a MAC address).
func (k Kind) InnerWidth() int {
	if k == KindME6E {
		return 48
	}
	return 32
}

// M46EInner describes the IPv4 network matched by an M46E rule.
type M46EInner struct {
	V4Addr uint32 // big-endian network address, host bits zero
	V4CIDR int
	V4Mask uint32 // big-endian
}

// ME6EInner describes the MAC address matched by an ME6E rule.
type ME6EInner struct {
	MAC net.HardwareAddr // 6 bytes
}

// Config is the user-facing input to Derive: the high-level fields an
// operator supplies via the config file or the add command, before any
// derived field is computed.
type Config struct {
	Domain      Domain
	Kind        Kind
	Enable      bool
	InPlaneID   string // textual IPv6 suffix, e.g. "1:2"
	InPrefixLen int
	M46E        M46EInner
	ME6E        ME6EInner
	OutPlaneID  string
	OutPrefix   string // textual IPv6 prefix, e.g. "f00d:1:1::/48"
	OutPrefix6  addr6.Addr
	OutPrefixLen int

	// SectionAddr/SectionPrefixLen are set for FP-domain rules only:
	// the section device's IPv6 prefix, used as the tunnel route
	// prefix. Derive takes the egress source prefix of FP-domain rules
	// from TunnelPR, not from SectionAddr.
	SectionAddr      addr6.Addr
	SectionPrefixLen int

	// TunnelPR/TunnelFP are the two TAP device prefixes, supplied by
	// the gateway's device configuration rather than per-rule.
	TunnelPR addr6.Addr
	TunnelFP addr6.Addr
}

// Key identifies a rule for lookup, delete, and enable/disable
// purposes: the triple (domain, match_addr, match_mask).
type Key struct {
	Domain    Domain
	MatchAddr addr6.Addr
	MatchMask addr6.Addr
}

// Rule is the central entity: a fully-derived translation rule.
type Rule struct {
	Config

	MatchAddr addr6.Addr
	MatchMask addr6.Addr

	TunnelRouteAddr      addr6.Addr
	TunnelRoutePrefixLen int

	TunnelSrc           addr6.Addr
	TunnelSrcPrefixLen int

	SrcAddr addr6.Addr
	SrcMask addr6.Addr
	DstAddr addr6.Addr
	DstMask addr6.Addr

	CreatedAt time.Time
}

// Key returns the rule's lookup/delete identity.
func (r *Rule) Key() Key {
	return Key{Domain: r.Domain, MatchAddr: r.MatchAddr, MatchMask: r.MatchMask}
}

// RewriteDst computes the rewritten destination for a packet whose
// destination is d: d' = (dst_addr & dst_mask) | (d & ~dst_mask).
func (r *Rule) RewriteDst(d addr6.Addr) addr6.Addr {
	return r.DstAddr.And(r.DstMask).Or(d.And(r.DstMask.Not()))
}

// RewriteSrc computes the rewritten source symmetrically to RewriteDst.
func (r *Rule) RewriteSrc(s addr6.Addr) addr6.Addr {
	return r.SrcAddr.And(r.SrcMask).Or(s.And(r.SrcMask.Not()))
}
