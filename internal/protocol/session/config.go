package session

import (
	"time"

	"github.com/danmuck/loractl/internal/protocol/frame"
)

// DefaultSettleDelay is the post-write hold the radio module needs before
// it can accept another frame.
const DefaultSettleDelay = 100 * time.Millisecond

// OnFrame observes each frame after it is written, decoded back from the
// exact bytes that went on the wire. Runs on the sending goroutine while
// the send is still serialized; keep it short.
type OnFrame func(frame.Message)

// Config defines session timing and observation behavior.
type Config struct {
	SettleDelay time.Duration
	OnFrame     OnFrame
}

// DefaultConfig returns hardware-aligned defaults.
func DefaultConfig() Config {
	return Config{
		SettleDelay: DefaultSettleDelay,
	}
}

// WithDefaults fills unset fields with defaults.
func (c Config) WithDefaults() Config {
	if c.SettleDelay <= 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	return c
}
