package rdt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rdtchat/internal/config"
	"rdtchat/internal/metrics"
)

func newPair(t *testing.T) (*Endpoint, *Endpoint) {
	t.Helper()
	channel := config.IdealChannelConfig()
	epCfg := config.DefaultEndpointConfig()
	epCfg.SocketTimeout = 20 * time.Millisecond
	epCfg.RetransmitTimeout = 60 * time.Millisecond
	epCfg.Deadline = 2 * time.Second

	a, err := New("127.0.0.1", 0, channel, epCfg, nil)
	require.NoError(t, err)
	b, err := New("127.0.0.1", 0, channel, epCfg, nil)
	require.NoError(t, err)

	require.NoError(t, a.Connect("127.0.0.1", b.LocalAddr().Port))
	require.NoError(t, b.Connect("127.0.0.1", a.LocalAddr().Port))

	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

func TestSendRecv_DeliversPayloadOverIdealChannel(t *testing.T) {
	sender, receiver := newPair(t)

	done := make(chan bool, 1)
	go func() { done <- sender.Send([]byte("hello")) }()

	payload, ok := receiver.Recv()
	require.True(t, ok)
	require.Equal(t, []byte("hello"), payload)
	require.True(t, <-done)
}

func TestSendRecv_AlternatesSequenceBit(t *testing.T) {
	sender, receiver := newPair(t)

	for i, msg := range []string{"one", "two", "three"} {
		done := make(chan bool, 1)
		go func() { done <- sender.Send([]byte(msg)) }()

		payload, ok := receiver.Recv()
		require.True(t, ok, "message %d", i)
		require.Equal(t, []byte(msg), payload)
		require.True(t, <-done)
	}
}

func TestSend_NotConnectedFails(t *testing.T) {
	channel := config.IdealChannelConfig()
	epCfg := config.DefaultEndpointConfig()
	epCfg.Deadline = 50 * time.Millisecond

	e, err := New("127.0.0.1", 0, channel, epCfg, nil)
	require.NoError(t, err)
	defer e.Close()

	ok := e.Send([]byte("x"))
	require.False(t, ok)
	require.ErrorIs(t, e.Err(), ErrNotConnected)
}

func TestSend_PayloadTooLargeFails(t *testing.T) {
	sender, _ := newPair(t)

	oversized := make([]byte, sender.cfg.MaxPayload+1)
	ok := sender.Send(oversized)
	require.False(t, ok)
	require.ErrorIs(t, sender.Err(), ErrPayloadTooLarge)
}

func TestSend_AfterCloseFails(t *testing.T) {
	sender, _ := newPair(t)
	require.NoError(t, sender.Close())

	ok := sender.Send([]byte("x"))
	require.False(t, ok)
	require.ErrorIs(t, sender.Err(), ErrClosed)
}

func TestRecv_AfterCloseFails(t *testing.T) {
	_, receiver := newPair(t)
	require.NoError(t, receiver.Close())

	_, ok := receiver.Recv()
	require.False(t, ok)
	require.ErrorIs(t, receiver.Err(), ErrClosed)
}

func TestRecv_DeadlineExceededWithNoTraffic(t *testing.T) {
	channel := config.IdealChannelConfig()
	epCfg := config.DefaultEndpointConfig()
	epCfg.SocketTimeout = 10 * time.Millisecond
	epCfg.Deadline = 40 * time.Millisecond

	e, err := New("127.0.0.1", 0, channel, epCfg, nil)
	require.NoError(t, err)
	defer e.Close()

	_, ok := e.Recv()
	require.False(t, ok)
	require.ErrorIs(t, e.Err(), ErrDeadlineExceeded)
}

func TestSetMetrics_CountsPacketsAndBytes(t *testing.T) {
	sender, receiver := newPair(t)

	senderMetrics := metrics.NewSessionMetrics()
	sender.SetMetrics(senderMetrics)
	receiverMetrics := metrics.NewSessionMetrics()
	receiver.SetMetrics(receiverMetrics)

	done := make(chan bool, 1)
	go func() { done <- sender.Send([]byte("payload")) }()

	payload, ok := receiver.Recv()
	require.True(t, ok)
	require.Equal(t, []byte("payload"), payload)
	require.True(t, <-done)

	sSnap := senderMetrics.GetSnapshot()
	require.Equal(t, uint64(1), sSnap.PacketsSent)

	rSnap := receiverMetrics.GetSnapshot()
	require.Equal(t, uint64(1), rSnap.PacketsReceived)
	require.Equal(t, uint64(len("payload")), rSnap.BytesReceived)
}
