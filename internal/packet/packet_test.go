package packet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecksum_WrapsModulo256(t *testing.T) {
	require.Equal(t, uint8(0), Checksum([]byte{1, 255}))
	require.Equal(t, uint8(10), Checksum([]byte{1, 2, 3, 4}))
	require.Equal(t, uint8(0), Checksum(nil))
}

func TestNewData_SeqMaskedToOneBit(t *testing.T) {
	p := NewData(2, []byte("hi"))
	require.Equal(t, uint8(0), p.Seq)

	p = NewData(3, []byte("hi"))
	require.Equal(t, uint8(1), p.Seq)
}

func TestMarshalUnmarshal_RoundTrip(t *testing.T) {
	orig := NewData(1, []byte("hello world"))
	raw := Marshal(orig)
	require.Len(t, raw, HeaderSize()+len("hello world"))

	got, err := Unmarshal(raw)
	require.NoError(t, err)
	require.Equal(t, orig.Type, got.Type)
	require.Equal(t, orig.Seq, got.Seq)
	require.Equal(t, orig.Checksum, got.Checksum)
	require.Equal(t, orig.Payload, got.Payload)
	require.True(t, got.Valid())
}

func TestMarshalUnmarshal_AckRoundTrip(t *testing.T) {
	ack := NewAck(0)
	raw := Marshal(ack)
	got, err := Unmarshal(raw)
	require.NoError(t, err)
	require.Equal(t, Ack, got.Type)
	require.True(t, got.Valid())
}

func TestUnmarshal_TooShortIsMalformed(t *testing.T) {
	_, err := Unmarshal([]byte{0, 0, 0})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestUnmarshal_LengthMismatchIsMalformed(t *testing.T) {
	raw := Marshal(NewData(0, []byte("abc")))
	raw[6] = 99 // declare a length that doesn't match the remaining bytes
	_, err := Unmarshal(raw)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestValid_DetectsCorruption(t *testing.T) {
	p := NewData(0, []byte("payload"))
	require.True(t, p.Valid())

	p.Payload[0] ^= 0xFF
	require.False(t, p.Valid())
}

func TestType_String(t *testing.T) {
	require.Equal(t, "DATA", Data.String())
	require.Equal(t, "ACK", Ack.String())
}
