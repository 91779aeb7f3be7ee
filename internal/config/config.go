package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/loractl/internal/protocol/frame"
	"github.com/danmuck/loractl/internal/protocol/session"
)

// NodeConfig is one node's profile: which device carries the radio and the
// identity stamped into every frame header it sends.
type NodeConfig struct {
	Device        string
	Baud          int
	Address       uint16
	ChannelOffset uint8
	SettleDelay   time.Duration
	HistoryPath   string
}

// DefaultNodeConfig returns the reference node profile: 9600 baud and the
// channel offset constant 18.
func DefaultNodeConfig() NodeConfig {
	return NodeConfig{
		Baud:          9600,
		ChannelOffset: 18,
		SettleDelay:   session.DefaultSettleDelay,
	}
}

// Identity returns the node's wire identity.
func (c NodeConfig) Identity() frame.Identity {
	return frame.Identity{Addr: c.Address, ChannelOffset: c.ChannelOffset}
}

type fileConfig struct {
	Device        string `toml:"device"`
	Baud          int    `toml:"baud"`
	Address       int    `toml:"address"`
	ChannelOffset int    `toml:"channel_offset"`
	SettleDelay   string `toml:"settle_delay"`
	HistoryPath   string `toml:"history_path"`
}

// LoadNodeConfig reads a node profile from a toml file. An empty device
// means "discover one at startup".
func LoadNodeConfig(path string) (NodeConfig, error) {
	cfg := DefaultNodeConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return NodeConfig{}, fmt.Errorf("load node config: %w", err)
	}

	if meta.IsDefined("device") {
		cfg.Device = strings.TrimSpace(raw.Device)
	}
	if meta.IsDefined("baud") {
		cfg.Baud = raw.Baud
	}
	if meta.IsDefined("address") {
		if raw.Address < 0 || raw.Address > 0xFFFF {
			return NodeConfig{}, fmt.Errorf("node config address %d outside 0-65535", raw.Address)
		}
		cfg.Address = uint16(raw.Address)
	}
	if meta.IsDefined("channel_offset") {
		if raw.ChannelOffset < 0 || raw.ChannelOffset > 0xFF {
			return NodeConfig{}, fmt.Errorf("node config channel_offset %d outside 0-255", raw.ChannelOffset)
		}
		cfg.ChannelOffset = uint8(raw.ChannelOffset)
	}
	if meta.IsDefined("settle_delay") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.SettleDelay))
		if err != nil {
			return NodeConfig{}, fmt.Errorf("parse settle_delay: %w", err)
		}
		cfg.SettleDelay = d
	}
	if meta.IsDefined("history_path") {
		cfg.HistoryPath = strings.TrimSpace(raw.HistoryPath)
	}

	if err := ValidateNodeConfig(cfg); err != nil {
		return NodeConfig{}, err
	}
	return cfg, nil
}

func ValidateNodeConfig(cfg NodeConfig) error {
	if cfg.Baud <= 0 {
		return fmt.Errorf("node config invalid baud %d", cfg.Baud)
	}
	if cfg.SettleDelay < 0 {
		return fmt.Errorf("node config negative settle_delay %v", cfg.SettleDelay)
	}
	return nil
}
