// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package addr6

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskFromPrefix(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want string
	}{
		{"zero", 0, "::"},
		{"full", 128, "ffff:ffff:ffff:ffff:ffff:ffff:ffff:ffff"},
		{"byte-aligned", 16, "ffff::"},
		{"sub-byte", 20, "ffff:f000::"},
		{"one-bit", 1, "8000::"},
		{"127", 127, "ffff:ffff:ffff:ffff:ffff:ffff:ffff:fffe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaskFromPrefix(tt.n)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestApplyPrefix_ByteAligned(t *testing.T) {
	dst, err := ParseAddr("::1:2:3:4")
	require.NoError(t, err)
	src, err := ParseAddr("f00d:1:1::")
	require.NoError(t, err)

	got := ApplyPrefix(dst, src, 48)
	assert.Equal(t, "f00d:1:1:0:1:2:3:4", got.String())
}

func TestApplyPrefix_SubByteResidue(t *testing.T) {
	dst := Addr{}
	src := Addr{0xff, 0xff, 0xff, 0xff}

	// 20 bits: 2 full bytes + 4-bit residue from src into dst's 3rd byte.
	got := ApplyPrefix(dst, src, 20)
	assert.Equal(t, byte(0xff), got[0])
	assert.Equal(t, byte(0xff), got[1])
	assert.Equal(t, byte(0xf0), got[2])
	assert.Equal(t, byte(0x00), got[3])
}

func TestApplyPrefix_AllBoundaries(t *testing.T) {
	src := Addr{}
	for i := range src {
		src[i] = 0xaa
	}
	dst := Addr{}
	for n := 0; n <= 128; n++ {
		got := ApplyPrefix(dst, src, n)
		mask := MaskFromPrefix(n)
		assert.Truef(t, EqualMasked(got, src, mask), "n=%d: masked region mismatch", n)
		assert.Truef(t, EqualMasked(got, dst, mask.Not()), "n=%d: unmasked region mismatch", n)
	}
}

func TestEqualMasked(t *testing.T) {
	a, _ := ParseAddr("2001:db8::1")
	b, _ := ParseAddr("2001:db8::2")
	mask := MaskFromPrefix(64)

	assert.True(t, EqualMasked(a, b, mask))
	assert.False(t, EqualMasked(a, b, MaskFromPrefix(128)))
}

func TestPIDSignificantWidth(t *testing.T) {
	tests := []struct {
		pid  string
		want int
	}{
		{"::", 0},
		{"::1", 128},
		{"::2", 127},
		{"::1:2", 112},
		{"8000::", 1},
	}
	for _, tt := range tests {
		pid, err := ParseAddr(tt.pid)
		require.NoError(t, err)
		assert.Equal(t, tt.want, PIDSignificantWidth(pid), tt.pid)
	}
}

func TestIsNetworkAddr(t *testing.T) {
	v4, cidr, err := ParseV4CIDR("192.168.102.0/24")
	require.NoError(t, err)
	assert.True(t, IsNetworkAddr(v4, cidr))

	v4bad, cidr, err := ParseV4CIDR("192.168.102.1/24")
	require.NoError(t, err)
	assert.False(t, IsNetworkAddr(v4bad, cidr))
}

func TestCompareTotalOrder(t *testing.T) {
	a, _ := ParseAddr("::1")
	b, _ := ParseAddr("::2")
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
}
