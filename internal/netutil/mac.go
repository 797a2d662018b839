// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package netutil

import (
	"fmt"
	"hash/fnv"
	"net"
)

func ParseMAC(macStr string) ([]byte, error) {
	hw, err := net.ParseMAC(macStr)
	if err != nil {
		return nil, err
	}
	return hw, nil
}

func FormatMAC(mac []byte) string {
	if len(mac) != 6 {
		return ""
	}
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x",
		mac[0], mac[1], mac[2], mac[3], mac[4], mac[5])
}

// GenerateVirtualMAC derives a deterministic locally-administered
// unicast MAC for a tunnel device's virtual Ethernet layer, seeded
// from the configured physical interface name so it is stable across
// daemon restarts regardless of what the kernel names the TAP this
// time around. The low 24 bits come from an FNV-1a hash of seed,
// salted with domain so tunnel_pr and tunnel_fp never collide even
// when name_pr and name_fp are equal.
// OUI octets: 02:6d:36 (locally administered, 'm', '6' for mx6e).
func GenerateVirtualMAC(domain, seed string) []byte {
	h := fnv.New32a()
	h.Write([]byte(domain))
	h.Write([]byte{0})
	h.Write([]byte(seed))
	sum := h.Sum32()
	return []byte{
		0x02, // locally administered, unicast
		0x6d, // 'm'
		0x36, // '6'
		byte(sum >> 16),
		byte(sum >> 8),
		byte(sum),
	}
}
