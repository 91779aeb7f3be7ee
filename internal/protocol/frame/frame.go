package frame

import (
	"encoding/binary"
	"errors"
)

const (
	// HeaderLen is the fixed wire header size.
	HeaderLen = 6

	// Band floors for channel offset arithmetic. The module firmware takes a
	// single-byte offset relative to whichever floor applies.
	HighBandFloor = 850
	LowBandFloor  = 410
)

var (
	ErrChannelOutOfRange = errors.New("frame: channel offset outside one byte")
	ErrShortFrame        = errors.New("frame: shorter than fixed header")
)

// Identity is a node's own wire identity: its address and the channel
// offset constant baked into its profile. The sender half of every header
// comes from here, fixed at session construction.
type Identity struct {
	Addr          uint16
	ChannelOffset uint8
}

// Message is one decoded frame.
type Message struct {
	DestAddr            uint16
	DestChannelOffset   uint8
	SenderAddr          uint16
	SenderChannelOffset uint8
	Payload             []byte
}

// ChannelOffset maps an absolute channel (whole MHz) to the single-byte
// offset the module firmware expects. Channels above 850 are relative to
// the high band floor, everything else to the low band floor. An offset
// that does not fit one byte is rejected, never truncated.
func ChannelOffset(channel int) (uint8, error) {
	floor := LowBandFloor
	if channel > HighBandFloor {
		floor = HighBandFloor
	}
	off := channel - floor
	if off < 0 || off > 255 {
		return 0, ErrChannelOutOfRange
	}
	return uint8(off), nil
}

// Encode builds the wire frame for one message: six header bytes followed
// by the payload unchanged. Pure function of its inputs.
func Encode(dest uint16, destChannel int, sender Identity, payload []byte) ([]byte, error) {
	off, err := ChannelOffset(destChannel)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, HeaderLen+len(payload))
	binary.BigEndian.PutUint16(buf[0:2], dest)
	buf[2] = off
	binary.BigEndian.PutUint16(buf[3:5], sender.Addr)
	buf[5] = sender.ChannelOffset
	copy(buf[HeaderLen:], payload)
	return buf, nil
}

// Decode is the inverse of the header arithmetic in Encode. It exposes raw
// channel offsets only: an absolute channel is not recoverable from its
// offset alone (ambiguous between bands), the receiving node's own
// configuration decides the band.
func Decode(b []byte) (Message, error) {
	if len(b) < HeaderLen {
		return Message{}, ErrShortFrame
	}
	payload := make([]byte, len(b)-HeaderLen)
	copy(payload, b[HeaderLen:])
	return Message{
		DestAddr:            binary.BigEndian.Uint16(b[0:2]),
		DestChannelOffset:   b[2],
		SenderAddr:          binary.BigEndian.Uint16(b[3:5]),
		SenderChannelOffset: b[5],
		Payload:             payload,
	}, nil
}
