// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package rule

import (
	"fmt"

	"grimm.is/mx6e/internal/addr6"
	"grimm.is/mx6e/internal/errors"
)

// shiftLeft returns a shifted left by n bits (n in [0,128]), dropping
// bits that overflow past bit 127 and filling the vacated low bits
// with zero. Used to slot a parsed plane-ID value (naturally
// right-aligned, since it is parsed as an IPv6 suffix) directly above
// the inner-payload region.
func shiftLeft(a addr6.Addr, n int) addr6.Addr {
	if n <= 0 {
		return a
	}
	if n >= 128 {
		return addr6.Addr{}
	}
	var out addr6.Addr
	byteShift := n / 8
	bitShift := uint(n % 8)
	for i := 0; i < 16; i++ {
		srcIdx := i + byteShift
		var b, next byte
		if srcIdx < 16 {
			b = a[srcIdx]
		}
		if srcIdx+1 < 16 {
			next = a[srcIdx+1]
		}
		if bitShift == 0 {
			out[i] = b
		} else {
			out[i] = (b << bitShift) | (next >> (8 - bitShift))
		}
	}
	return out
}

// setLowBits overwrites the low width bits (width always a multiple of
// 8 in this package: 32 for M46E, 48 for ME6E) of a with the
// corresponding low bits of value.
func setLowBits(a, value addr6.Addr, width int) addr6.Addr {
	n := width / 8
	out := a
	copy(out[16-n:], value[16-n:])
	return out
}

// zeroTopBits clears the top n bits of a, leaving the rest untouched —
// the complement of ApplyPrefix, used to carve out the dynamically
// supplied prefix region of a match key.
func zeroTopBits(a addr6.Addr, n int) addr6.Addr {
	return a.And(addr6.MaskFromPrefix(n).Not())
}

func innerAddrAndMask(cfg Config) (inner, innerMask addr6.Addr, width int, err error) {
	switch cfg.Kind {
	case KindM46E:
		if !addr6.IsNetworkAddr(cfg.M46E.V4Addr, cfg.M46E.V4CIDR) {
			return addr6.Addr{}, addr6.Addr{}, 0, errors.New(errors.KindValidation, "rule: M46E inner address is not the network address of its CIDR")
		}
		mask := addr6.V4MaskFromCIDR(cfg.M46E.V4CIDR)
		return addr6.PutV4(cfg.M46E.V4Addr & mask), addr6.PutV4(mask), 32, nil
	case KindME6E:
		if len(cfg.ME6E.MAC) != 6 {
			return addr6.Addr{}, addr6.Addr{}, 0, errors.New(errors.KindValidation, fmt.Sprintf("rule: ME6E inner MAC must be 6 bytes, got %d", len(cfg.ME6E.MAC)))
		}
		var a, m addr6.Addr
		copy(a[10:16], cfg.ME6E.MAC)
		for i := 10; i < 16; i++ {
			m[i] = 0xff
		}
		return a, m, 48, nil
	default:
		// Unreachable from NewConfig, which already validates Kind; a
		// defensive floor for any other caller of Derive.
		return addr6.Addr{}, addr6.Addr{}, 0, errors.New(errors.KindInternal, fmt.Sprintf("rule: unknown kind %d", cfg.Kind))
	}
}

// Derive computes, from a user-facing Config, the fully-derived Rule:
// its match key and its rewrite templates. Derivation is performed
// once, at insert time; the result is deterministic and total for any
// valid input, so re-deriving from the same arguments always yields
// the same rule.
func Derive(cfg Config) (*Rule, error) {
	pidSrc, err := addr6.ParseAddr("::" + cfg.InPlaneID)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindValidation, fmt.Sprintf("rule: invalid in_plane_id %q", cfg.InPlaneID))
	}
	pidDst, err := addr6.ParseAddr("::" + cfg.OutPlaneID)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindValidation, fmt.Sprintf("rule: invalid out_plane_id %q", cfg.OutPlaneID))
	}

	inner, innerMask, width, err := innerAddrAndMask(cfg)
	if err != nil {
		return nil, err
	}

	// The plane ID is parsed as a right-aligned IPv6 suffix, then
	// shifted left by the inner payload's width to sit directly above
	// it. Its first significant bit must still land at or below the
	// boundary of the dynamically-supplied prefix region once shifted,
	// or the two regions overlap and part of the plane ID is silently
	// clipped by the prefix mask. A plane ID of all zeros reserves no
	// bits and can never overlap.
	if w := addr6.PIDSignificantWidth(pidSrc); w != 0 && cfg.InPrefixLen+width >= w {
		return nil, errors.New(errors.KindValidation, fmt.Sprintf(
			"rule: ingress bit budget exceeded: in_prefix_len(%d)+inner_width(%d) overlaps in_plane_id",
			cfg.InPrefixLen, width))
	}
	if w := addr6.PIDSignificantWidth(pidDst); w != 0 && cfg.OutPrefixLen+width >= w {
		return nil, errors.New(errors.KindValidation, fmt.Sprintf(
			"rule: egress bit budget exceeded: out_prefix_len(%d)+inner_width(%d) overlaps out_plane_id",
			cfg.OutPrefixLen, width))
	}

	pidSrcShifted := shiftLeft(pidSrc, width)
	pidDstShifted := shiftLeft(pidDst, width)

	// match_addr / match_mask: the ingress match key. The plane-ID and
	// inner-payload regions are fixed; the prefix region is supplied
	// dynamically by the packet at lookup time (so it is zeroed here).
	matchAddr := pidSrcShifted.Or(inner)
	matchAddr = zeroTopBits(matchAddr, cfg.InPrefixLen)

	matchMask := addr6.MaskFromPrefix(128 - width)
	matchMask = setLowBits(matchMask, innerMask, width)
	matchMask = zeroTopBits(matchMask, cfg.InPrefixLen)

	// tunnel_route_addr / tunnel_route_prefix_len: the route installed
	// toward this rule's ingress TAP while the rule is enabled.
	var routePrefixSrc addr6.Addr
	if cfg.Domain == DomainFP {
		routePrefixSrc = cfg.SectionAddr
	} else {
		routePrefixSrc = cfg.TunnelPR
	}
	tunnelRouteAddr := addr6.ApplyPrefix(matchAddr, routePrefixSrc, cfg.InPrefixLen)

	var tunnelRoutePrefixLen int
	if cfg.Kind == KindM46E {
		tunnelRoutePrefixLen = 128 - (32 - cfg.M46E.V4CIDR)
	} else {
		tunnelRoutePrefixLen = 128
	}

	// dst_addr / dst_mask: egress rewrite template for the destination.
	dstAddr := pidDstShifted.Or(inner)
	outPrefixAddr := cfg.OutPrefix6
	dstAddr = addr6.ApplyPrefix(dstAddr, outPrefixAddr, cfg.OutPrefixLen)

	dstMask := addr6.Addr{}
	for i := range dstMask {
		dstMask[i] = 0xff
	}
	dstMask = setLowBits(dstMask, innerMask, width)

	// src_addr / src_mask: egress rewrite template for the source. The
	// inner-payload region is left wildcarded (mask zero) — the
	// gateway never rewrites the embedded source host, only the outer
	// envelope. FP-domain rules source their prefix region from
	// tunnel_pr instead of out_prefix, so FP->PR traffic emerges with
	// the PR prefix as source.
	srcAddr := pidDstShifted
	srcMask := addr6.MaskFromPrefix(128 - width)

	srcPrefixSrc := outPrefixAddr
	if cfg.Domain == DomainFP {
		srcPrefixSrc = cfg.TunnelPR
	}
	srcAddr = addr6.ApplyPrefix(srcAddr, srcPrefixSrc, cfg.OutPrefixLen)

	// tunnel_src: the synthesized egress source used by the ingress TAP
	// for this rule — src_addr with this rule's real inner payload
	// filled into the low bits.
	tunnelSrc := setLowBits(srcAddr, inner, width)
	var tunnelSrcPrefixLen int
	if cfg.Kind == KindM46E {
		tunnelSrcPrefixLen = 128 - cfg.M46E.V4CIDR
	} else {
		tunnelSrcPrefixLen = 128
	}

	return &Rule{
		Config:               cfg,
		MatchAddr:            matchAddr,
		MatchMask:            matchMask,
		TunnelRouteAddr:      tunnelRouteAddr,
		TunnelRoutePrefixLen: tunnelRoutePrefixLen,
		TunnelSrc:            tunnelSrc,
		TunnelSrcPrefixLen:   tunnelSrcPrefixLen,
		SrcAddr:              srcAddr,
		SrcMask:              srcMask,
		DstAddr:              dstAddr,
		DstMask:              dstMask,
	}, nil
}
