// Package udw implements the Unreliable Datagram Wrapper: it owns one
// OS UDP socket, optionally runs outbound/inbound datagrams through a
// simulated impairment pipeline (loss, corruption, delay), and emits
// Wireshark-style trace events. It is the only package in this module
// that talks to the OS network stack for RDT traffic.
package udw

import (
	"errors"
	"math/rand"
	"net"
	"time"

	"rdtchat/internal/config"
	"rdtchat/internal/packet"
	"rdtchat/internal/rdttrace"
)

// ErrNotConnected is returned by Send when no remote address is known.
var ErrNotConnected = errors.New("udw: not connected")

// Wrapper owns one net.UDPConn and applies the impairment pipeline
// described in spec.md §4.1.
type Wrapper struct {
	conn    *net.UDPConn
	local   *net.UDPAddr
	remote  *net.UDPAddr
	channel config.ChannelConfig
	rng     *rand.Rand
	trace   *rdttrace.Logger
	timeout time.Duration
}

// Option configures a Wrapper at construction time.
type Option func(*Wrapper)

// WithTrace attaches a trace logger; nil is valid and disables tracing.
func WithTrace(t *rdttrace.Logger) Option {
	return func(w *Wrapper) { w.trace = t }
}

// WithRand overrides the impairment RNG, for deterministic tests.
func WithRand(r *rand.Rand) Option {
	return func(w *Wrapper) { w.rng = r }
}

// New binds a UDP socket at local (nil local address means an
// ephemeral port on all interfaces) and returns a Wrapper configured
// with the given channel impairment and socket read timeout.
func New(local *net.UDPAddr, channel config.ChannelConfig, socketTimeout time.Duration, opts ...Option) (*Wrapper, error) {
	conn, err := net.ListenUDP("udp", local)
	if err != nil {
		return nil, err
	}
	_ = conn.SetReadBuffer(config.DefaultReadBuffer)
	_ = conn.SetWriteBuffer(config.DefaultWriteBuffer)

	w := &Wrapper{
		conn:    conn,
		local:   conn.LocalAddr().(*net.UDPAddr),
		channel: channel,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		timeout: socketTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// LocalAddr returns the bound local address.
func (w *Wrapper) LocalAddr() *net.UDPAddr { return w.local }

// RemoteAddr returns the currently known peer address, or nil.
func (w *Wrapper) RemoteAddr() *net.UDPAddr { return w.remote }

// SetRemoteAddr sets the peer address explicitly (used by Connect).
func (w *Wrapper) SetRemoteAddr(addr *net.UDPAddr) { w.remote = addr }

// Send runs b through the loss/corrupt/delay pipeline and, barring a
// simulated drop, writes it to the known remote address.
func (w *Wrapper) Send(b []byte) error {
	if w.remote == nil {
		return ErrNotConnected
	}
	kind, seq, length := describe(b)

	if w.rng.Float64() < w.channel.LossProb {
		w.trace.Log(rdttrace.Dropped, kind, seq, w.local, w.remote, length)
		return nil
	}

	if w.rng.Float64() < w.channel.CorruptProb {
		b = corrupt(b, w.rng)
	}

	w.sleepDelay()

	_, err := w.conn.WriteToUDP(b, w.remote)
	if err != nil {
		return err
	}
	w.trace.Log(rdttrace.Sent, kind, seq, w.local, w.remote, length)
	return nil
}

// Receive reads one datagram, respecting the configured socket
// timeout. On the first datagram received while no remote address is
// known, it adopts the sender's address (trust-on-first-use).
func (w *Wrapper) Receive() ([]byte, *net.UDPAddr, error) {
	_ = w.conn.SetReadDeadline(time.Now().Add(w.timeout))
	buf := make([]byte, 4096)
	n, addr, err := w.conn.ReadFromUDP(buf)
	if err != nil {
		return nil, nil, err
	}
	if w.remote == nil {
		w.remote = addr
	}
	w.sleepDelay()

	b := append([]byte(nil), buf[:n]...)
	kind, seq, length := describe(b)
	w.trace.Log(rdttrace.Received, kind, seq, addr, w.local, length)
	return b, addr, nil
}

// IsTimeout reports whether err is a socket read timeout, as opposed
// to a genuine socket error (spec.md §7's SocketError vs. the
// re-loop-on-timeout behavior of §4.2/§4.3).
func IsTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Close releases the underlying socket. Idempotent.
func (w *Wrapper) Close() error {
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close()
	w.conn = nil
	return err
}

func (w *Wrapper) sleepDelay() {
	if w.channel.MaxDelay <= 0 {
		return
	}
	span := w.channel.MaxDelay - w.channel.MinDelay
	d := w.channel.MinDelay
	if span > 0 {
		d += time.Duration(w.rng.Int63n(int64(span)))
	}
	time.Sleep(d)
}

// corrupt XORs roughly half of the payload bytes with 0xFF, leaving
// the header untouched so type/seq/length survive; corruption is only
// detectable via checksum mismatch.
func corrupt(b []byte, rng *rand.Rand) []byte {
	hs := packet.HeaderSize()
	if len(b) <= hs {
		return b
	}
	out := append([]byte(nil), b...)
	payload := out[hs:]
	n := len(payload) / 2
	if n == 0 && len(payload) > 0 {
		n = 1
	}
	idx := rng.Perm(len(payload))[:n]
	for _, i := range idx {
		payload[i] ^= 0xFF
	}
	return out
}

// describe extracts a packet's kind/seq/length for tracing, tolerating
// malformed input (traced with zero values rather than failing).
func describe(b []byte) (rdttrace.PacketKind, uint8, int) {
	p, err := packet.Unmarshal(b)
	if err != nil {
		return rdttrace.KindData, 0, len(b)
	}
	kind := rdttrace.KindData
	if p.Type == packet.Ack {
		kind = rdttrace.KindAck
	}
	return kind, p.Seq, len(p.Payload)
}
