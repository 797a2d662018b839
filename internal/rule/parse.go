// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package rule

import (
	"fmt"
	"net"
	"net/netip"

	"grimm.is/mx6e/internal/addr6"
	"grimm.is/mx6e/internal/errors"
)

// NewConfigParams is the fully textual form of a rule configuration
// entry, as it arrives from the config file loader or an add command
// over the control socket — before any field is parsed into its typed
// form.
type NewConfigParams struct {
	Domain      string
	Kind        string
	Enable      bool
	InPlaneID   string
	InPrefixLen int
	Inner       string // "192.168.102.0/24" for M46E, "ab:cd:ef:01:23:45" for ME6E
	OutPlaneID  string
	OutPrefix   string // "f00d:1:1::/48"
	SectionAddr string // "<addr>/<prefixlen>", FP rules only; empty otherwise
	TunnelPR    addr6.Addr
	TunnelFP    addr6.Addr
}

// ParseOutPrefix parses an "addr/prefixlen" IPv6 CIDR string into its
// address and prefix length.
func ParseOutPrefix(s string) (addr6.Addr, int, error) {
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return addr6.Addr{}, 0, errors.Wrap(err, errors.KindValidation, fmt.Sprintf("rule: invalid prefix %q", s))
	}
	if !p.Addr().Is6() {
		return addr6.Addr{}, 0, errors.New(errors.KindValidation, fmt.Sprintf("rule: %q is not an IPv6 prefix", s))
	}
	a := addr6.Addr(p.Addr().As16())
	return a, p.Bits(), nil
}

// NewConfig parses the fully textual NewConfigParams into a Config
// ready for Derive.
func NewConfig(p NewConfigParams) (Config, error) {
	var cfg Config

	domain, ok := ParseDomain(p.Domain)
	if !ok {
		return cfg, errors.New(errors.KindValidation, fmt.Sprintf("rule: unknown domain %q", p.Domain))
	}
	cfg.Domain = domain
	cfg.Enable = p.Enable
	cfg.InPlaneID = p.InPlaneID
	cfg.InPrefixLen = p.InPrefixLen
	cfg.OutPlaneID = p.OutPlaneID
	cfg.OutPrefix = p.OutPrefix
	cfg.TunnelPR = p.TunnelPR
	cfg.TunnelFP = p.TunnelFP

	switch p.Kind {
	case "M46E", "m46e":
		cfg.Kind = KindM46E
		v4addr, cidr, err := addr6.ParseV4CIDR(p.Inner)
		if err != nil {
			return cfg, errors.Wrap(err, errors.KindValidation, fmt.Sprintf("rule: invalid M46E inner %q", p.Inner))
		}
		cfg.M46E = M46EInner{V4Addr: v4addr, V4CIDR: cidr, V4Mask: addr6.V4MaskFromCIDR(cidr)}
	case "ME6E", "me6e":
		cfg.Kind = KindME6E
		mac, err := net.ParseMAC(p.Inner)
		if err != nil {
			return cfg, errors.Wrap(err, errors.KindValidation, fmt.Sprintf("rule: invalid MAC %q", p.Inner))
		}
		cfg.ME6E = ME6EInner{MAC: mac}
	default:
		return cfg, errors.New(errors.KindValidation, fmt.Sprintf("rule: unknown kind %q", p.Kind))
	}

	outPrefix6, outPrefixLen, err := ParseOutPrefix(p.OutPrefix)
	if err != nil {
		return cfg, err
	}
	cfg.OutPrefix6 = outPrefix6
	cfg.OutPrefixLen = outPrefixLen

	if domain == DomainFP {
		if p.SectionAddr == "" {
			return cfg, errors.New(errors.KindValidation, "rule: FP-domain rule requires a section address")
		}
		sectionAddr, sectionPrefixLen, err := ParseOutPrefix(p.SectionAddr)
		if err != nil {
			return cfg, err
		}
		cfg.SectionAddr = sectionAddr
		cfg.SectionPrefixLen = sectionPrefixLen
	}

	return cfg, nil
}
