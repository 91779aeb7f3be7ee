package gps

import (
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/danmuck/loractl/internal/testutil/testlog"
)

const (
	validRMC   = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"
	voidRMC    = "$GPRMC,123519,V,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*7D"
	validGGA   = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"
	noFixGGA   = "$GPGGA,123519,4807.038,N,01131.000,E,0,08,0.9,545.4,M,46.9,M,,*46"
	wantLat    = 48.117300
	wantLon    = 11.516667
	coordSlack = 1e-5
)

func near(a, b float64) bool {
	return math.Abs(a-b) < coordSlack
}

func TestParseFixRMC(t *testing.T) {
	fix, ok := ParseFix(validRMC)
	if !ok {
		t.Fatalf("valid RMC rejected")
	}
	if !near(fix.Lat, wantLat) || !near(fix.Lon, wantLon) {
		t.Fatalf("coordinates mismatch: %+v", fix)
	}
}

func TestParseFixGGA(t *testing.T) {
	fix, ok := ParseFix(validGGA)
	if !ok {
		t.Fatalf("valid GGA rejected")
	}
	if !near(fix.Lat, wantLat) || !near(fix.Lon, wantLon) {
		t.Fatalf("coordinates mismatch: %+v", fix)
	}
}

func TestParseFixRejectsUnusableSentences(t *testing.T) {
	for _, line := range []string{
		voidRMC,
		noFixGGA,
		"",
		"not nmea at all",
		"$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*00", // bad checksum
		"$GPVTG,084.4,T,077.8,M,022.4,N,041.5,K*43",                            // no position
	} {
		if _, ok := ParseFix(line); ok {
			t.Fatalf("sentence should not yield a fix: %q", line)
		}
	}
}

func TestFixPayloadFormat(t *testing.T) {
	fix, ok := ParseFix(validRMC)
	if !ok {
		t.Fatalf("valid RMC rejected")
	}
	if got := fix.Payload(); got != "48.117300,11.516667" {
		t.Fatalf("payload format: %q", got)
	}
}

// timeoutReader yields its chunks one Read at a time; an empty chunk
// behaves like a serial read timeout (0, io.EOF).
type timeoutReader struct {
	chunks [][]byte
}

func (r *timeoutReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	chunk := r.chunks[0]
	r.chunks = r.chunks[1:]
	if len(chunk) == 0 {
		return 0, io.EOF
	}
	n := copy(p, chunk)
	return n, nil
}

func TestNextFixSpansReadsAndTimeouts(t *testing.T) {
	testlog.Start(t)
	line := validRMC + "\r\n"
	src := NewSource(&timeoutReader{chunks: [][]byte{
		nil, // timeout before any data
		[]byte(line[:20]),
		nil, // timeout mid-sentence
		[]byte(line[20:]),
	}})
	fix, err := src.NextFix(10, 10)
	if err != nil {
		t.Fatalf("next fix: %v", err)
	}
	if !near(fix.Lat, wantLat) {
		t.Fatalf("coordinates mismatch: %+v", fix)
	}
}

func TestNextFixSkipsFixlessSentences(t *testing.T) {
	testlog.Start(t)
	src := NewSource(strings.NewReader(voidRMC + "\n" + noFixGGA + "\n" + validGGA + "\n"))
	fix, err := src.NextFix(10, 10)
	if err != nil {
		t.Fatalf("next fix: %v", err)
	}
	if !near(fix.Lon, wantLon) {
		t.Fatalf("coordinates mismatch: %+v", fix)
	}
}

func TestNextFixNoFixWithinBudget(t *testing.T) {
	testlog.Start(t)
	src := NewSource(strings.NewReader(voidRMC + "\n" + voidRMC + "\n"))
	if _, err := src.NextFix(2, 5); !errors.Is(err, ErrNoFix) {
		t.Fatalf("expected ErrNoFix, got %v", err)
	}
}

func TestNextFixSilentDevice(t *testing.T) {
	testlog.Start(t)
	src := NewSource(&timeoutReader{})
	if _, err := src.NextFix(5, 3); !errors.Is(err, ErrNoFix) {
		t.Fatalf("expected ErrNoFix, got %v", err)
	}
}

func TestNextSentenceReadError(t *testing.T) {
	testlog.Start(t)
	src := NewSource(&failReader{})
	if _, err := src.NextSentence(3); err == nil || errors.Is(err, ErrNoSentence) {
		t.Fatalf("expected underlying read error, got %v", err)
	}
}

type failReader struct{}

func (failReader) Read([]byte) (int, error) {
	return 0, errors.New("device gone")
}
