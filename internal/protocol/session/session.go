package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danmuck/loractl/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

var (
	ErrTransportRequired = errors.New("session: transport required")
	ErrTransportWrite    = errors.New("session: transport write failed")
	ErrShortWrite        = errors.New("session: short transport write")
	ErrSessionClosed     = errors.New("session: closed")
)

// Transport is the byte-stream capability a session writes frames to.
// transport.Port satisfies it; tests substitute fakes.
type Transport interface {
	Write(p []byte) (int, error)
	Close() error
}

// Session binds one node identity to one exclusively owned transport and
// offers the message-send operation with the post-send timing contract the
// radio module requires.
type Session struct {
	identity frame.Identity
	cfg      Config

	mu        sync.Mutex
	transport Transport
	closed    bool
}

// New constructs a session over an already-open transport. Opening the
// transport is the caller's responsibility.
func New(identity frame.Identity, t Transport, cfg Config) (*Session, error) {
	if t == nil {
		return nil, ErrTransportRequired
	}
	return &Session{
		identity:  identity,
		cfg:       cfg.WithDefaults(),
		transport: t,
	}, nil
}

// Identity returns the node identity the session stamps into every header.
func (s *Session) Identity() frame.Identity {
	return s.identity
}

// SendMessage encodes one frame for the destination and writes it to the
// transport, then holds for the settle delay before returning. The delay is
// an empirical requirement of the module's internal processing window, not
// an acknowledgement; the protocol is fire-and-forget and nothing retries.
//
// Codec errors propagate unchanged so callers can tell invalid input from a
// failed link. At most one frame is in flight per session.
func (s *Session) SendMessage(dest uint16, destChannel int, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	buf, err := frame.Encode(dest, destChannel, s.identity, payload)
	if err != nil {
		return err
	}

	n, err := s.transport.Write(buf)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransportWrite, err)
	}
	if n != len(buf) {
		return fmt.Errorf("%w: wrote %d of %d bytes", ErrShortWrite, n, len(buf))
	}

	log.Debug().
		Uint16("dest", dest).
		Int("channel", destChannel).
		Int("bytes", len(buf)).
		Msg("frame written")

	if s.cfg.OnFrame != nil {
		if msg, err := frame.Decode(buf); err == nil {
			s.cfg.OnFrame(msg)
		}
	}

	// Settle window is unconditional after a successful write; the module
	// needs it before it can accept the next frame.
	time.Sleep(s.cfg.SettleDelay)
	return nil
}

// Close releases the transport. Sends after close fail with
// ErrSessionClosed, as does a second close.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true
	return s.transport.Close()
}
