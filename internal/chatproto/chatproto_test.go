package chatproto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRequest_RoundTrip(t *testing.T) {
	req := Request{
		Command: CmdSendDirect,
		User:    "alice",
		Peer:    "bob",
		Message: "hi bob",
	}
	raw, err := Encode(&req)
	require.NoError(t, err)

	got, err := DecodeRequest(raw)
	require.NoError(t, err)
	require.Equal(t, req, got)
}

func TestEncodeDecodeResponse_RoundTrip(t *testing.T) {
	resp := Response{
		Ok:    true,
		Users: []string{"alice", "bob"},
		Group: &GroupInfo{Name: "room", Owner: "alice", Key: "ABC123", Members: []string{"alice"}},
		History: []Message{
			{Sender: "alice", Content: "hi", Timestamp: "2026-07-30T10:00:00Z"},
		},
	}
	raw, err := Encode(&resp)
	require.NoError(t, err)

	got, err := DecodeResponse(raw)
	require.NoError(t, err)
	require.Equal(t, resp, got)
}

func TestEncodeDecodeResponse_RoundTrip_HandshakePort(t *testing.T) {
	resp := Response{Ok: true, Port: 54321}
	raw, err := Encode(&resp)
	require.NoError(t, err)

	got, err := DecodeResponse(raw)
	require.NoError(t, err)
	require.Equal(t, resp, got)
	require.Equal(t, 54321, got.Port)
}

func TestDecodeRequest_MalformedJSON(t *testing.T) {
	_, err := DecodeRequest([]byte("not json"))
	require.Error(t, err)
}

func TestResponse_OmitsEmptyFieldsOnWire(t *testing.T) {
	resp := Response{Ok: false, Error: "unknown peer"}
	raw, err := Encode(&resp)
	require.NoError(t, err)

	s := string(raw)
	require.Contains(t, s, `"error":"unknown peer"`)
	require.NotContains(t, s, `"users"`)
	require.NotContains(t, s, `"group"`)
	require.NotContains(t, s, `"history"`)
	require.NotContains(t, s, `"port"`)
}
