// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package addr6

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

// V4MaskFromCIDR converts a CIDR length into its big-endian 32-bit
// subnet mask representation.
func V4MaskFromCIDR(cidr int) uint32 {
	if cidr <= 0 {
		return 0
	}
	if cidr >= 32 {
		return 0xffffffff
	}
	return uint32(0xffffffff) << (32 - cidr)
}

// ParseV4CIDR parses an "a.b.c.d/n" string into its 32-bit big-endian
// address value and prefix length.
func ParseV4CIDR(s string) (addr uint32, cidr int, err error) {
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return 0, 0, fmt.Errorf("addr6: invalid IPv4 CIDR %q: %w", s, err)
	}
	if !p.Addr().Is4() {
		return 0, 0, fmt.Errorf("addr6: %q is not an IPv4 prefix", s)
	}
	b := p.Addr().As4()
	return binary.BigEndian.Uint32(b[:]), p.Bits(), nil
}

// IsNetworkAddr reports whether v4 has all host bits (bits below
// cidr) clear, i.e. is the network address of its own CIDR block.
func IsNetworkAddr(v4 uint32, cidr int) bool {
	mask := V4MaskFromCIDR(cidr)
	return v4&^mask == 0
}

// PutV4 writes the big-endian 32-bit value v4 into the low 4 bytes of
// an Addr, leaving the rest zero.
func PutV4(v4 uint32) Addr {
	var a Addr
	binary.BigEndian.PutUint32(a[12:16], v4)
	return a
}

// V4 extracts the low 32 bits of an Addr as a big-endian uint32.
func (a Addr) V4() uint32 {
	return binary.BigEndian.Uint32(a[12:16])
}
