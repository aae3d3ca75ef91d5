// Package packet implements the RDT wire format: a fixed 7-byte
// big-endian header (type, seq, checksum, length) followed by an
// opaque payload.
package packet

import (
	"encoding/binary"
	"errors"
)

// Type distinguishes a DATA segment from its ACK.
type Type uint8

const (
	// Data carries application payload.
	Data Type = 0
	// Ack carries the fixed "ACK" acknowledgement payload.
	Ack Type = 1
)

func (t Type) String() string {
	if t == Ack {
		return "ACK"
	}
	return "DATA"
}

// headerSize is type(1) + seq(1) + checksum(1) + length(4).
const headerSize = 1 + 1 + 1 + 4

// ackPayload is the literal payload carried by every ACK packet.
var ackPayload = []byte("ACK")

var (
	// ErrMalformed means the buffer is shorter than a header, or its
	// declared length does not match the remaining bytes.
	ErrMalformed = errors.New("packet: malformed packet")
)

// Packet is a parsed RDT segment.
type Packet struct {
	Type     Type
	Seq      uint8
	Checksum uint8
	Payload  []byte
}

// Checksum computes the sum of b modulo 256, per spec.
func Checksum(b []byte) uint8 {
	var sum uint8
	for _, c := range b {
		sum += c
	}
	return sum
}

// NewData builds a DATA packet with the given sequence bit and payload.
// seq must be 0 or 1.
func NewData(seq uint8, payload []byte) Packet {
	return Packet{Type: Data, Seq: seq & 1, Checksum: Checksum(payload), Payload: payload}
}

// NewAck builds an ACK packet with the given sequence bit.
func NewAck(seq uint8) Packet {
	return Packet{Type: Ack, Seq: seq & 1, Checksum: Checksum(ackPayload), Payload: ackPayload}
}

// Marshal serializes p to its on-wire representation.
func Marshal(p Packet) []byte {
	buf := make([]byte, headerSize+len(p.Payload))
	buf[0] = byte(p.Type)
	buf[1] = p.Seq
	buf[2] = p.Checksum
	binary.BigEndian.PutUint32(buf[3:7], uint32(len(p.Payload)))
	copy(buf[headerSize:], p.Payload)
	return buf
}

// Unmarshal parses b into a Packet. It returns ErrMalformed if b is
// shorter than the header or the declared length disagrees with the
// remaining bytes; it does NOT validate the checksum — callers check
// that separately against the packet's intended meaning (DATA vs ACK).
func Unmarshal(b []byte) (Packet, error) {
	if len(b) < headerSize {
		return Packet{}, ErrMalformed
	}
	length := int32(binary.BigEndian.Uint32(b[3:7]))
	if length < 0 || int(length) != len(b)-headerSize {
		return Packet{}, ErrMalformed
	}
	payload := make([]byte, length)
	copy(payload, b[headerSize:])
	return Packet{
		Type:     Type(b[0]),
		Seq:      b[1],
		Checksum: b[2],
		Payload:  payload,
	}, nil
}

// Valid reports whether p's declared checksum matches its payload.
func (p Packet) Valid() bool {
	return p.Checksum == Checksum(p.Payload)
}

// HeaderSize returns the fixed header width in bytes.
func HeaderSize() int { return headerSize }
