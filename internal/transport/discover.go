package transport

import (
	"errors"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
)

var ErrNoDevice = errors.New("transport: no radio device found")

// Candidate device patterns in priority order: the Pi GPIO UART aliases
// first, then USB adapters, then the raw UART.
var devicePatterns = []string{
	"/dev/ttyAMA0",
	"/dev/serial0",
	"/dev/ttyUSB*",
	"/dev/ttyACM*",
	"/dev/ttyS0",
}

// Discover returns the first present serial device from the fixed priority
// list, or ErrNoDevice when nothing matches. It only checks presence; the
// device may still fail to open.
func Discover() (string, error) {
	return discover(devicePatterns)
}

func discover(patterns []string) (string, error) {
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		sort.Strings(matches)
		for _, device := range matches {
			if _, err := os.Stat(device); err != nil {
				continue
			}
			log.Info().Str("device", device).Msg("radio device detected")
			return device, nil
		}
	}
	return "", ErrNoDevice
}
