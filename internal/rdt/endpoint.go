// Package rdt implements the stop-and-wait RDT 3.0 endpoint: a sender
// finite state machine, a receiver finite state machine, and a
// retransmission timer, composed over an internal/udw.Wrapper. It
// exposes the socket-like contract of spec.md §6: Bind, Connect, Send,
// Recv, Close.
package rdt

import (
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"rdtchat/internal/config"
	"rdtchat/internal/metrics"
	"rdtchat/internal/packet"
	"rdtchat/internal/rdttrace"
	"rdtchat/internal/udw"
)

// sendState is the sender side of the FSM in spec.md §4.4.
type sendState int

const (
	readyToSend sendState = iota
	awaitAck0
	awaitAck1
)

// recvState is the receiver side of the FSM in spec.md §4.4.
type recvState int

const (
	awaitPkt0 recvState = iota
	awaitPkt1
)

var (
	// ErrNotConnected means Send was called with no remote address set,
	// or while an earlier Send was still awaiting its ACK.
	ErrNotConnected = errors.New("rdt: not connected")
	// ErrClosed means the endpoint's socket has been closed.
	ErrClosed = errors.New("rdt: endpoint closed")
	// ErrDeadlineExceeded means Send/Recv gave up after its per-call
	// deadline elapsed without a matching ACK/in-order DATA packet.
	// Per spec.md §7, this does not prove non-delivery.
	ErrDeadlineExceeded = errors.New("rdt: operation deadline exceeded")
	// ErrPayloadTooLarge means Send was called with more than
	// EndpointConfig.MaxPayload bytes of application data.
	ErrPayloadTooLarge = errors.New("rdt: payload exceeds MaxPayload")
)

// Endpoint is a single-logical-flow RDT socket: at most one of Send or
// Recv should be in flight at a time on a given Endpoint (spec.md §5).
type Endpoint struct {
	mu sync.Mutex

	udw *udw.Wrapper
	cfg config.EndpointConfig
	chl config.ChannelConfig
	tr  *rdttrace.Logger

	sendState sendState
	sendSeq   uint8
	lastPkt   []byte

	recvState recvState

	closed  bool
	lastErr error

	sm *metrics.SessionMetrics
}

// SetMetrics attaches a SessionMetrics sink; nil detaches it. Counters
// are updated from whichever goroutine calls Send/Recv, matching the
// nil-safe optional-logger pattern already used for trace.Logger.
func (e *Endpoint) SetMetrics(sm *metrics.SessionMetrics) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sm = sm
}

// Err returns the sentinel describing why the most recent Send/Recv
// returned its failure value, for diagnostics/logging. It is not part
// of spec.md §6's contract (the only caller-visible signals there are
// success, the deadline-failure sentinel, and socket teardown) but
// gives operators more than a bare bool to log.
func (e *Endpoint) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// New binds a UDP socket on host:port (port 0 means ephemeral) and
// returns an unconnected Endpoint in its initial state
// (READY_TO_SEND, send_seq=0, AWAIT_PKT_0).
func New(host string, port int, channel config.ChannelConfig, epCfg config.EndpointConfig, tr *rdttrace.Logger) (*Endpoint, error) {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	w, err := udw.New(addr, channel, epCfg.SocketTimeout, udw.WithTrace(tr))
	if err != nil {
		return nil, err
	}
	return &Endpoint{
		udw:       w,
		cfg:       epCfg,
		chl:       channel,
		tr:        tr,
		sendState: readyToSend,
		recvState: awaitPkt0,
	}, nil
}

// LocalAddr returns the endpoint's bound local address.
func (e *Endpoint) LocalAddr() *net.UDPAddr {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.udw.LocalAddr()
}

// Bind closes any existing socket and rebinds to addr.
func (e *Endpoint) Bind(host string, port int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.udw != nil {
		_ = e.udw.Close()
	}
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	w, err := udw.New(addr, e.chl, e.cfg.SocketTimeout, udw.WithTrace(e.tr))
	if err != nil {
		return err
	}
	e.udw = w
	e.closed = false
	return nil
}

// Connect sets the peer address. It transmits nothing.
func (e *Endpoint) Connect(host string, port int) error {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.udw.SetRemoteAddr(addr)
	return nil
}

// Close releases the socket. Idempotent.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.udw.Close()
}

// Send transmits data reliably to the connected peer, retransmitting
// on RetransmitTimeout until either a matching ACK arrives (true) or
// the overall Deadline elapses (false). It never panics or returns an
// error for ordinary packet loss/corruption/duplication — those are
// absorbed by the FSM per spec.md §7.
func (e *Endpoint) Send(data []byte) bool {
	e.mu.Lock()
	if e.closed {
		e.lastErr = ErrClosed
		e.mu.Unlock()
		return false
	}
	if len(data) > e.cfg.MaxPayload {
		e.lastErr = ErrPayloadTooLarge
		e.mu.Unlock()
		return false
	}
	if e.udw.RemoteAddr() == nil {
		e.lastErr = ErrNotConnected
		e.mu.Unlock()
		return false
	}
	if e.sendState != readyToSend {
		e.lastErr = ErrNotConnected
		e.mu.Unlock()
		return false
	}

	pkt := packet.NewData(e.sendSeq, data)
	raw := packet.Marshal(pkt)
	e.lastPkt = raw
	expected := e.sendSeq
	if e.sendState == readyToSend {
		if e.sendSeq == 0 {
			e.sendState = awaitAck0
		} else {
			e.sendState = awaitAck1
		}
	}
	_ = e.udw.Send(raw)
	lastSend := time.Now()
	e.lastErr = nil
	if e.sm != nil {
		e.sm.AddPacketsSent(1)
		e.sm.AddBytesSent(uint64(len(raw)))
	}
	e.mu.Unlock()

	deadline := time.Now().Add(e.cfg.Deadline)
	for {
		if time.Now().After(deadline) {
			e.mu.Lock()
			e.sendState = readyToSend
			e.lastPkt = nil
			e.lastErr = ErrDeadlineExceeded
			e.mu.Unlock()
			return false
		}

		b, _, err := e.udw.Receive()
		if err == nil {
			if e.handleInboundAsAck(b, expected) {
				return true
			}
		} else if !udw.IsTimeout(err) {
			e.mu.Lock()
			e.lastErr = err
			e.mu.Unlock()
			return false
		}

		e.mu.Lock()
		if time.Since(lastSend) >= e.cfg.RetransmitTimeout {
			_ = e.udw.Send(e.lastPkt)
			lastSend = time.Now()
			if e.sm != nil {
				e.sm.AddRetransmission()
			}
		}
		e.mu.Unlock()

		time.Sleep(10 * time.Millisecond)
	}
}

// handleInboundAsAck processes one inbound datagram during Send,
// per spec.md §4.2's ACK-processing rules. Returns true if it is the
// expected ACK and the FSM has transitioned back to READY_TO_SEND.
func (e *Endpoint) handleInboundAsAck(b []byte, expected uint8) bool {
	p, err := packet.Unmarshal(b)
	if err != nil {
		return false
	}
	if p.Type != packet.Ack {
		// Application data arriving mid-send: not an ACK, dropped
		// per spec.md §5 (single-flow discipline).
		return false
	}
	if !p.Valid() {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if p.Seq != expected {
		return false
	}
	e.sendState = readyToSend
	e.sendSeq = 1 - e.sendSeq
	e.lastPkt = nil
	return true
}

// Recv blocks until the next in-order DATA payload arrives or the
// endpoint's Deadline elapses, returning (payload, true) or (nil,
// false) respectively.
func (e *Endpoint) Recv() ([]byte, bool) {
	e.mu.Lock()
	if e.closed {
		e.lastErr = ErrClosed
		e.mu.Unlock()
		return nil, false
	}
	e.lastErr = nil
	e.mu.Unlock()

	deadline := time.Now().Add(e.cfg.Deadline)
	for time.Now().Before(deadline) {
		b, _, err := e.udw.Receive()
		if err != nil {
			if udw.IsTimeout(err) {
				continue
			}
			e.mu.Lock()
			e.lastErr = err
			e.mu.Unlock()
			return nil, false
		}

		p, err := packet.Unmarshal(b)
		if err != nil {
			continue
		}
		isCorrupt := !p.Valid()
		if !isCorrupt && p.Type != packet.Data {
			// Stale ACK arriving during recv; ignore.
			continue
		}

		e.mu.Lock()
		expected := uint8(0)
		if e.recvState == awaitPkt1 {
			expected = 1
		}
		other := 1 - expected

		if !isCorrupt && p.Seq == expected {
			ack := packet.Marshal(packet.NewAck(expected))
			if e.recvState == awaitPkt0 {
				e.recvState = awaitPkt1
			} else {
				e.recvState = awaitPkt0
			}
			_ = e.udw.Send(ack)
			if e.sm != nil {
				e.sm.AddPacketsReceived(1)
				e.sm.AddBytesReceived(uint64(len(p.Payload)))
			}
			e.mu.Unlock()
			return p.Payload, true
		}

		ack := packet.Marshal(packet.NewAck(other))
		_ = e.udw.Send(ack)
		if e.sm != nil {
			if isCorrupt {
				e.sm.AddChecksumFailure()
			} else {
				e.sm.AddDuplicateAck()
			}
		}
		e.mu.Unlock()
	}
	e.mu.Lock()
	e.lastErr = ErrDeadlineExceeded
	e.mu.Unlock()
	return nil, false
}
