// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package addr6 implements bit-parallel operations on 128-bit IPv6
// addresses: mask construction from a prefix length, prefix copy with
// sub-byte residue handling, and masked-subnet containment tests.
//
// Every operation here is pure and total. Sub-byte prefix lengths (not
// a multiple of 8) are the one subtlety: the straddling byte is split
// bitwise, with the top bits coming from the source and the rest left
// untouched, and that splitting is centralized in applyPrefixByte so
// every caller gets it for free.
package addr6

import (
	"fmt"
	"net"
	"net/netip"
)

// Addr is a 128-bit address value with both byte- and 16-bit views.
type Addr [16]byte

// Zero is the distinguished all-zero address, used as the in-band
// "unset" marker for query masks during lookup (see ruletable).
var Zero Addr

// ParseAddr parses a textual IPv6 address into an Addr, rejecting
// IPv4 addresses. A bare plane-ID suffix is not accepted as is;
// callers that parse a plane ID prepend "::" to it first (see
// rule.Derive).
func ParseAddr(s string) (Addr, error) {
	a, err := netip.ParseAddr(s)
	if err != nil {
		return Addr{}, fmt.Errorf("addr6: invalid IPv6 address %q: %w", s, err)
	}
	if !a.Is6() && !a.Is4In6() {
		return Addr{}, fmt.Errorf("addr6: %q is not an IPv6 address", s)
	}
	return Addr(a.As16()), nil
}

// String renders the address in standard IPv6 textual form.
func (a Addr) String() string {
	return netip.AddrFrom16(a).String()
}

// Bytes returns the big-endian byte view of the address.
func (a Addr) Bytes() []byte {
	b := make([]byte, 16)
	copy(b, a[:])
	return b
}

// Words returns the big-endian 16-bit view of the address (8 words).
func (a Addr) Words() [8]uint16 {
	var w [8]uint16
	for i := 0; i < 8; i++ {
		w[i] = uint16(a[2*i])<<8 | uint16(a[2*i+1])
	}
	return w
}

// IP returns the address as a net.IP (16-byte form), for interop with
// net/netlink-facing code.
func (a Addr) IP() net.IP {
	ip := make(net.IP, 16)
	copy(ip, a[:])
	return ip
}

// And returns the bitwise AND of a and m.
func (a Addr) And(m Addr) Addr {
	var r Addr
	for i := range a {
		r[i] = a[i] & m[i]
	}
	return r
}

// Or returns the bitwise OR of a and b.
func (a Addr) Or(b Addr) Addr {
	var r Addr
	for i := range a {
		r[i] = a[i] | b[i]
	}
	return r
}

// Not returns the bitwise complement of a.
func (a Addr) Not() Addr {
	var r Addr
	for i := range a {
		r[i] = ^a[i]
	}
	return r
}

// Equal reports whether a and b are bit-identical.
func (a Addr) Equal(b Addr) bool {
	return a == b
}

// Compare returns -1, 0, or 1 comparing a and b as big-endian 128-bit
// unsigned integers, 16 bits at a time. It gives a strict total order
// sufficient for the insertion comparator of §4.3.
func (a Addr) Compare(b Addr) int {
	aw, bw := a.Words(), b.Words()
	for i := 0; i < 8; i++ {
		if aw[i] != bw[i] {
			if aw[i] < bw[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// MaskFromPrefix produces the address with the top n bits set and the
// rest clear, for n in [0, 128].
func MaskFromPrefix(n int) Addr {
	var m Addr
	if n < 0 {
		n = 0
	}
	if n > 128 {
		n = 128
	}
	fullBytes := n / 8
	residue := n % 8
	for i := 0; i < fullBytes; i++ {
		m[i] = 0xff
	}
	if residue > 0 {
		m[fullBytes] = byte(0xff << (8 - residue))
	}
	return m
}

// applyPrefixByte splits the single byte straddling a non-byte-aligned
// prefix boundary: the top `bits` bits come from src, the rest from dst.
func applyPrefixByte(dst, src byte, bits int) byte {
	if bits <= 0 {
		return dst
	}
	if bits >= 8 {
		return src
	}
	keep := byte(0xff >> bits)
	take := ^keep
	return (src & take) | (dst & keep)
}

// ApplyPrefix copies the top n bits of src into dst, leaving the
// remaining bits of dst untouched. Handles non-byte-aligned n by
// splitting the straddling byte bitwise.
func ApplyPrefix(dst, src Addr, n int) Addr {
	if n < 0 {
		n = 0
	}
	if n > 128 {
		n = 128
	}
	out := dst
	fullBytes := n / 8
	residue := n % 8
	for i := 0; i < fullBytes; i++ {
		out[i] = src[i]
	}
	if residue > 0 {
		out[fullBytes] = applyPrefixByte(dst[fullBytes], src[fullBytes], residue)
	}
	return out
}

// EqualMasked returns (a & m) == (b & m).
func EqualMasked(a, b, m Addr) bool {
	return a.And(m) == b.And(m)
}

// PIDSignificantWidth returns the bit position (from the MSB,
// 0-indexed) of the first set bit in pid, plus one; 0 if pid is
// all-zero. A plane ID is parsed as an IPv6 suffix ("::" + text), so
// it is right-aligned in the address. The bit-budget check of Derive
// rejects a plane ID whose result w is nonzero and not greater than
// prefix_len + inner_width, i.e. whose first set bit would fall inside
// the prefix region once shifted above the inner payload.
func PIDSignificantWidth(pid Addr) int {
	for i := 0; i < 16; i++ {
		if pid[i] == 0 {
			continue
		}
		for bit := 0; bit < 8; bit++ {
			if pid[i]&(0x80>>bit) != 0 {
				return i*8 + bit + 1
			}
		}
	}
	return 0
}
