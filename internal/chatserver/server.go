// Package chatserver dispatches chatproto commands against a
// chatstore.Store, one rdt.Endpoint per connected peer. It is grounded
// in original_source/Server/server.py's Server.handle_client /
// handle_command loop, adapted to one goroutine per peer address
// instead of Python's single-threaded accept loop (the core endpoint
// is single-flow, so concurrent peers need independent endpoints).
package chatserver

import (
	"net"
	"strconv"
	"sync"

	"rdtchat/internal/chatproto"
	"rdtchat/internal/chatstore"
	"rdtchat/internal/config"
	"rdtchat/internal/logger"
	"rdtchat/internal/metrics"
	"rdtchat/internal/rdt"
	"rdtchat/internal/rdttrace"
)

// Server answers login handshakes on one well-known rendezvous port
// with plain UDP and, for each distinct peer address, spins off a
// dedicated child rdt.Endpoint bound to an ephemeral port so that
// peer's request/response traffic never shares a socket — or an
// alternating-bit FSM — with any other peer's (spec.md §5: an
// endpoint serves one logical flow at a time). The rendezvous
// exchange itself runs outside the RDT core's retransmission
// machinery; its only job is telling a new client which port to talk
// to, not carrying application data reliably.
type Server struct {
	store *chatstore.Store
	log   *logger.Logger

	host    string
	channel config.ChannelConfig
	epCfg   config.EndpointConfig
	trace   *rdttrace.Logger

	mu       sync.Mutex
	sessions map[string]int // peer addr string -> assigned session port

	Metrics *metrics.ServerMetrics
}

// New constructs a Server sharing store across every peer connection.
func New(host string, channel config.ChannelConfig, epCfg config.EndpointConfig, tr *rdttrace.Logger, log *logger.Logger) *Server {
	return &Server{
		store:    chatstore.New(),
		log:      log,
		host:     host,
		channel:  channel,
		epCfg:    epCfg,
		trace:    tr,
		sessions: make(map[string]int),
		Metrics:  metrics.NewServerMetrics(),
	}
}

// Serve binds the rendezvous socket on port and blocks, answering
// every login handshake with the port of that peer's dedicated
// session endpoint and handing the session off to its own goroutine.
// It returns only when the rendezvous socket closes.
func (s *Server) Serve(port int) error {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(s.host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.log.Info("chat server listening on %s", conn.LocalAddr())

	buf := make([]byte, s.epCfg.MaxUDPPacketSize)
	for {
		n, peer, err := conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}
		req, err := chatproto.DecodeRequest(buf[:n])
		if err != nil {
			s.log.Warn("discarding malformed handshake from %s: %v", peer, err)
			continue
		}
		if req.Command != chatproto.CmdLogin {
			// Only login is answered on the rendezvous socket; every
			// other command belongs on a peer's own session endpoint.
			continue
		}
		s.handshake(conn, peer, req)
	}
}

// handshake answers a login request with the port of the peer's
// session endpoint, creating one on first contact and replaying the
// same port for a retried login (a client that never saw our first
// reply resends the same request).
func (s *Server) handshake(conn *net.UDPConn, peer *net.UDPAddr, req chatproto.Request) {
	key := peer.String()

	s.mu.Lock()
	port, known := s.sessions[key]
	s.mu.Unlock()
	if known {
		s.replyHandshake(conn, peer, chatproto.Response{Ok: true, Port: port})
		return
	}

	ep, err := rdt.New(s.host, 0, s.channel, s.epCfg, s.trace)
	if err != nil {
		s.log.Error("session endpoint for %s: %v", peer, err)
		s.replyHandshake(conn, peer, chatproto.Response{Ok: false, Error: err.Error()})
		return
	}
	// The endpoint is left unconnected: the client talks to it from a
	// fresh socket, not the one that sent this handshake, so the
	// endpoint adopts the client's address from its first request
	// (trust-on-first-use).

	port = ep.LocalAddr().Port
	s.mu.Lock()
	s.sessions[key] = port
	s.mu.Unlock()

	s.store.Login(req.User)
	s.replyHandshake(conn, peer, chatproto.Response{Ok: true, Port: port})

	go s.runSession(ep, peer)
}

func (s *Server) replyHandshake(conn *net.UDPConn, peer *net.UDPAddr, resp chatproto.Response) {
	raw, err := chatproto.Encode(&resp)
	if err != nil {
		s.log.Error("encoding handshake reply to %s: %v", peer, err)
		return
	}
	if _, err := conn.WriteToUDP(raw, peer); err != nil {
		s.log.Warn("handshake reply to %s: %v", peer, err)
	}
}

// runSession owns one peer's dedicated endpoint for the lifetime of
// its session: request in, dispatch, response out, until logout.
func (s *Server) runSession(ep *rdt.Endpoint, addr *net.UDPAddr) {
	defer ep.Close()

	sm := metrics.NewSessionMetrics()
	ep.SetMetrics(sm)
	s.Metrics.AddSession()
	defer func() {
		s.Metrics.RemoveSession()
		snap := sm.GetSnapshot()
		s.Metrics.AddBytesSent(snap.BytesSent)
		s.Metrics.AddPacketsSent(snap.PacketsSent)
		s.Metrics.AddRetransmissions(snap.Retransmissions)
		s.Metrics.AddDuplicateAcks(snap.DuplicateAcks)
	}()

	for {
		payload, ok := ep.Recv()
		if !ok {
			continue
		}
		req, err := chatproto.DecodeRequest(payload)
		if err != nil {
			s.log.Warn("discarding malformed request from %s: %v", addr, err)
			continue
		}
		s.dispatch(ep, req)
		if req.Command == chatproto.CmdLogout {
			s.mu.Lock()
			delete(s.sessions, addr.String())
			s.mu.Unlock()
			return
		}
	}
}

// dispatch handles one decoded request and, unless it is fire-and-forget
// (logout), sends back a Response.
func (s *Server) dispatch(ep *rdt.Endpoint, req chatproto.Request) {
	resp, reply := s.handle(req)
	if !reply {
		return
	}
	raw, err := chatproto.Encode(&resp)
	if err != nil {
		s.log.Error("encoding response to %s: %v", req.Command, err)
		return
	}
	if !ep.Send(raw) {
		s.log.Warn("send response for %s to %s timed out", req.Command, req.User)
	}
}

func (s *Server) handle(req chatproto.Request) (chatproto.Response, bool) {
	switch req.Command {
	case chatproto.CmdLogin:
		s.store.Login(req.User)
		return chatproto.Response{Ok: true}, true

	case chatproto.CmdLogout:
		s.store.Logout(req.User)
		return chatproto.Response{}, false

	case chatproto.CmdListUsers:
		return chatproto.Response{Ok: true, Users: s.store.ListUsers()}, true

	case chatproto.CmdCreateGroup:
		g, ok := s.store.CreateGroup(req.User, req.Group)
		if !ok {
			return chatproto.Response{Ok: false, Error: "group name taken or empty"}, true
		}
		return chatproto.Response{Ok: true, Group: groupInfo(req.Group, g)}, true

	case chatproto.CmdJoinGroup:
		g, ok := s.store.JoinGroup(req.User, req.Group, req.Key)
		if !ok {
			return chatproto.Response{Ok: false, Error: "unknown group or bad key"}, true
		}
		return chatproto.Response{Ok: true, Group: groupInfo(req.Group, g)}, true

	case chatproto.CmdSendGroup:
		if !s.store.SendGroup(req.User, req.Group, req.Message) {
			return chatproto.Response{Ok: false, Error: "not a member of that group"}, true
		}
		return chatproto.Response{Ok: true}, true

	case chatproto.CmdSendDirect:
		if !s.store.SendDirect(req.User, req.Peer, req.Message) {
			return chatproto.Response{Ok: false, Error: "unknown peer"}, true
		}
		return chatproto.Response{Ok: true}, true

	case chatproto.CmdFetchHistory:
		return chatproto.Response{Ok: true, History: s.store.FetchHistory(req.User, req.Chat)}, true

	default:
		s.log.Warn("unknown command: %s", req.Command)
		return chatproto.Response{Ok: false, Error: "unknown command"}, true
	}
}

func groupInfo(name string, g *chatstore.Group) *chatproto.GroupInfo {
	members := make([]string, 0, len(g.Members))
	for m := range g.Members {
		members = append(members, m)
	}
	return &chatproto.GroupInfo{Name: name, Owner: g.Owner, Key: g.Key, Members: members}
}
