package transport

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tarm/serial"
)

var ErrOpenFailed = errors.New("transport: serial open failed")

// Config defines how the serial device is opened.
type Config struct {
	Device      string
	Baud        int
	ReadTimeout time.Duration
}

// DefaultConfig returns the reference environment settings for the radio
// HAT: 9600 baud with a short read timeout.
func DefaultConfig() Config {
	return Config{
		Baud:        9600,
		ReadTimeout: 500 * time.Millisecond,
	}
}

// WithDefaults fills unset fields with defaults.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.Baud <= 0 {
		c.Baud = d.Baud
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	return c
}

// Port is one exclusively owned serial byte stream.
type Port struct {
	device string
	port   *serial.Port
}

// Open opens the configured serial device. The constructor is fallible
// rather than fatal; the top-level command decides whether to exit.
func Open(cfg Config) (*Port, error) {
	cfg = cfg.WithDefaults()
	if cfg.Device == "" {
		return nil, fmt.Errorf("%w: no device configured", ErrOpenFailed)
	}
	sp, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpenFailed, cfg.Device, err)
	}
	// Drop whatever the module buffered before we attached.
	if err := sp.Flush(); err != nil {
		_ = sp.Close()
		return nil, fmt.Errorf("%w: %s: flush: %v", ErrOpenFailed, cfg.Device, err)
	}
	log.Info().Str("device", cfg.Device).Int("baud", cfg.Baud).Msg("serial port opened")
	return &Port{device: cfg.Device, port: sp}, nil
}

// Device returns the opened device path.
func (p *Port) Device() string {
	return p.device
}

func (p *Port) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Read returns whatever bytes arrive within the configured read timeout.
// A timeout surfaces as a zero-length read, not an error.
func (p *Port) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

func (p *Port) Close() error {
	return p.port.Close()
}
