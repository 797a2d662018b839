// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package config loads the gateway's startup configuration file, an
// INI-like grammar of two sections ([general], [device]), via
// github.com/go-git/gcfg.
package config

import (
	"fmt"
	"strings"

	"github.com/go-git/gcfg"

	"grimm.is/mx6e/internal/rule"
)

// General holds the [general] section.
type General struct {
	ProcessName   string
	DebugLog      string
	Daemon        string
	StartupScript string
	SyslogEnabled string
	SyslogHost    string
	SyslogPort    int
	SyslogProto   string
}

// Device holds the [device] section.
type Device struct {
	NamePR        string
	NameFP        string
	TunnelPR      string
	TunnelFP      string
	IPv6AddressPR string
	IPv6AddressFP string
}

type fileShape struct {
	General General
	Device  Device
}

// Config is the fully parsed and validated startup configuration.
type Config struct {
	ProcessName   string
	DebugLog      bool
	Daemon        bool
	StartupScript string

	SyslogEnabled bool
	SyslogHost    string
	SyslogPort    int
	SyslogProto   string

	NamePR        string
	NameFP        string
	TunnelPR      string
	TunnelFP      string
	IPv6AddressPR string // "addr/prefix"
	IPv6AddressFP string // "addr/prefix", optional
}

// ParseBool recognizes the configuration file's boolean vocabulary:
// yes/no, on/off, enable/disable. Anything else, including the empty
// string, is a parse error.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "on", "enable":
		return true, nil
	case "no", "off", "disable":
		return false, nil
	default:
		return false, fmt.Errorf("config: invalid boolean value %q", s)
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	var raw fileShape
	if err := gcfg.ReadFileInto(&raw, path); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return fromRaw(raw)
}

// LoadString parses configuration from an in-memory string; used by
// tests.
func LoadString(contents string) (*Config, error) {
	var raw fileShape
	if err := gcfg.ReadStringInto(&raw, contents); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return fromRaw(raw)
}

func fromRaw(raw fileShape) (*Config, error) {
	cfg := &Config{
		ProcessName:   raw.General.ProcessName,
		StartupScript: raw.General.StartupScript,
		SyslogHost:    raw.General.SyslogHost,
		SyslogPort:    raw.General.SyslogPort,
		SyslogProto:   raw.General.SyslogProto,
		NamePR:        raw.Device.NamePR,
		NameFP:        raw.Device.NameFP,
		TunnelPR:      raw.Device.TunnelPR,
		TunnelFP:      raw.Device.TunnelFP,
		IPv6AddressPR: raw.Device.IPv6AddressPR,
		IPv6AddressFP: raw.Device.IPv6AddressFP,
	}

	if cfg.ProcessName == "" {
		return nil, fmt.Errorf("config: [general] process_name is required")
	}

	if raw.General.DebugLog != "" {
		v, err := ParseBool(raw.General.DebugLog)
		if err != nil {
			return nil, fmt.Errorf("config: [general] debug_log: %w", err)
		}
		cfg.DebugLog = v
	}
	if raw.General.Daemon != "" {
		v, err := ParseBool(raw.General.Daemon)
		if err != nil {
			return nil, fmt.Errorf("config: [general] daemon: %w", err)
		}
		cfg.Daemon = v
	}
	if raw.General.SyslogEnabled != "" {
		v, err := ParseBool(raw.General.SyslogEnabled)
		if err != nil {
			return nil, fmt.Errorf("config: [general] syslog_enabled: %w", err)
		}
		cfg.SyslogEnabled = v
	}
	if cfg.SyslogEnabled && cfg.SyslogHost == "" {
		return nil, fmt.Errorf("config: [general] syslog_host is required when syslog_enabled is set")
	}

	if cfg.NamePR == "" {
		return nil, fmt.Errorf("config: [device] name_pr is required")
	}
	if cfg.NameFP == "" {
		return nil, fmt.Errorf("config: [device] name_fp is required")
	}
	if cfg.TunnelPR == "" {
		return nil, fmt.Errorf("config: [device] tunnel_pr is required")
	}
	if cfg.TunnelFP == "" {
		return nil, fmt.Errorf("config: [device] tunnel_fp is required")
	}
	if cfg.IPv6AddressPR == "" {
		return nil, fmt.Errorf("config: [device] ipv6_address_pr is required")
	}
	if _, prefixLen, err := rule.ParseOutPrefix(cfg.IPv6AddressPR); err != nil {
		return nil, fmt.Errorf("config: [device] ipv6_address_pr: %w", err)
	} else if prefixLen == 0 {
		return nil, fmt.Errorf("config: [device] ipv6_address_pr must have a nonzero prefix length")
	}
	if cfg.IPv6AddressFP != "" {
		if _, prefixLen, err := rule.ParseOutPrefix(cfg.IPv6AddressFP); err != nil {
			return nil, fmt.Errorf("config: [device] ipv6_address_fp: %w", err)
		} else if prefixLen == 0 {
			return nil, fmt.Errorf("config: [device] ipv6_address_fp must have a nonzero prefix length")
		}
	}

	return cfg, nil
}
