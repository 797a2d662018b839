// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package netutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateVirtualMAC_Deterministic(t *testing.T) {
	a := GenerateVirtualMAC("pr", "eth0")
	b := GenerateVirtualMAC("pr", "eth0")
	assert.Equal(t, a, b)
}

func TestGenerateVirtualMAC_LocallyAdministeredUnicast(t *testing.T) {
	mac := GenerateVirtualMAC("pr", "eth0")
	assert.Len(t, mac, 6)
	assert.Equal(t, byte(0x02), mac[0]&0x03, "locally administered, unicast bits must be set")
}

func TestGenerateVirtualMAC_DomainSaltAvoidsCollision(t *testing.T) {
	pr := GenerateVirtualMAC("pr", "eth0")
	fp := GenerateVirtualMAC("fp", "eth0")
	assert.NotEqual(t, pr, fp, "same physical interface name in different domains must not collide")
}

func TestFormatMAC_RoundTripsParseMAC(t *testing.T) {
	hw, err := ParseMAC("02:6d:36:01:02:03")
	assert.NoError(t, err)
	assert.Equal(t, "02:6d:36:01:02:03", FormatMAC(hw))
}

func TestFormatMAC_WrongLengthReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", FormatMAC([]byte{1, 2, 3}))
}
