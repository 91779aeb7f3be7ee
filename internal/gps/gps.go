// Package gps reads NMEA position sentences from a GPS receiver on its own
// serial stream and reduces them to decimal-degree fixes for telemetry
// payloads.
package gps

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/adrianmo/go-nmea"
)

var (
	ErrNoSentence = errors.New("gps: no sentence within read budget")
	ErrNoFix      = errors.New("gps: no valid fix")
)

// Fix is one position in decimal degrees.
type Fix struct {
	Lat float64
	Lon float64
}

// Payload formats the fix as the lat,lon telemetry payload.
func (f Fix) Payload() string {
	return fmt.Sprintf("%.6f,%.6f", f.Lat, f.Lon)
}

// ParseFix extracts a position from one NMEA sentence. It reports false
// for sentences without a usable position: unknown types, failed
// checksums, void RMC fixes, and invalid-quality GGA fixes.
func ParseFix(line string) (Fix, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Fix{}, false
	}
	s, err := nmea.Parse(line)
	if err != nil {
		return Fix{}, false
	}
	switch v := s.(type) {
	case nmea.RMC:
		if v.Validity != nmea.ValidRMC {
			return Fix{}, false
		}
		return Fix{Lat: v.Latitude, Lon: v.Longitude}, true
	case nmea.GGA:
		if v.FixQuality == nmea.Invalid {
			return Fix{}, false
		}
		return Fix{Lat: v.Latitude, Lon: v.Longitude}, true
	}
	return Fix{}, false
}

// Source assembles newline-terminated sentences from a GPS byte stream.
// The serial layer reports a read timeout as a zero-length read with
// io.EOF, so sentence assembly spans reads.
type Source struct {
	r       io.Reader
	pending []byte
}

func NewSource(r io.Reader) *Source {
	return &Source{r: r}
}

// NextSentence returns the next complete sentence. maxReads bounds the
// wait so a silent receiver cannot block the caller forever.
func (s *Source) NextSentence(maxReads int) (string, error) {
	buf := make([]byte, 256)
	for reads := 0; ; {
		if i := bytes.IndexByte(s.pending, '\n'); i >= 0 {
			line := strings.TrimSpace(string(s.pending[:i]))
			s.pending = append([]byte(nil), s.pending[i+1:]...)
			if line == "" {
				continue
			}
			return line, nil
		}
		if reads >= maxReads {
			return "", ErrNoSentence
		}
		n, err := s.r.Read(buf)
		reads++
		if n > 0 {
			s.pending = append(s.pending, buf[:n]...)
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
	}
}

// NextFix reads sentences until one carries a valid position.
// maxSentences bounds the scan for a receiver that has signal but no fix.
func (s *Source) NextFix(maxSentences, maxReads int) (Fix, error) {
	for i := 0; i < maxSentences; i++ {
		line, err := s.NextSentence(maxReads)
		if err != nil {
			if errors.Is(err, ErrNoSentence) {
				return Fix{}, ErrNoFix
			}
			return Fix{}, err
		}
		if fix, ok := ParseFix(line); ok {
			return fix, nil
		}
	}
	return Fix{}, ErrNoFix
}
