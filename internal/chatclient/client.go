// Package chatclient is a REPL-style chat driver reused by the CLI and
// GUI front ends. It is grounded in original_source/Client/logic.py
// (the request/response methods) and original_source/Client/repl.py
// (the command loop), collapsed into a single Go type since this
// module has no separate "Client" vs. "REPL" split.
package chatclient

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"rdtchat/internal/chatproto"
	"rdtchat/internal/config"
	"rdtchat/internal/rdt"
	"rdtchat/internal/rdttrace"
)

// Client owns one rdt.Endpoint connected to a chat server and issues
// chatproto requests over it, blocking for a matching response.
type Client struct {
	ep       *rdt.Endpoint
	Username string
}

// Dial performs the login handshake against the server's rendezvous
// port, then binds a local endpoint connected to the session port the
// handshake returned. It returns an error for local socket/DNS
// failure or if the handshake never gets a reply.
func Dial(host string, port int, username string, channel config.ChannelConfig, epCfg config.EndpointConfig, tr *rdttrace.Logger) (*Client, error) {
	sessionPort, err := handshake(host, port, username, epCfg)
	if err != nil {
		return nil, err
	}

	ep, err := rdt.New("0.0.0.0", 0, channel, epCfg, tr)
	if err != nil {
		return nil, err
	}
	if err := ep.Connect(host, sessionPort); err != nil {
		ep.Close()
		return nil, err
	}
	return &Client{ep: ep, Username: username}, nil
}

// handshake sends a login request to the server's rendezvous port and
// returns the port of the session endpoint it spins up for this
// client. It runs as plain UDP outside the RDT core's retransmission
// logic — the rendezvous exchange only discovers an address, it
// doesn't carry application data — so it retries the request itself
// until epCfg.Deadline elapses.
func handshake(host string, port int, username string, epCfg config.EndpointConfig) (int, error) {
	raddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return 0, err
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	raw, err := chatproto.Encode(&chatproto.Request{Command: chatproto.CmdLogin, User: username})
	if err != nil {
		return 0, err
	}

	buf := make([]byte, epCfg.MaxUDPPacketSize)
	deadline := time.Now().Add(epCfg.Deadline)
	for time.Now().Before(deadline) {
		if _, err := conn.Write(raw); err != nil {
			return 0, err
		}
		_ = conn.SetReadDeadline(time.Now().Add(epCfg.RetransmitTimeout))
		n, err := conn.Read(buf)
		if err != nil {
			continue // timeout waiting for this attempt's reply: retry
		}
		resp, err := chatproto.DecodeResponse(buf[:n])
		if err != nil {
			continue
		}
		if !resp.Ok {
			return 0, fmt.Errorf("login: %s", resp.Error)
		}
		return resp.Port, nil
	}
	return 0, fmt.Errorf("login: no response from %s", raddr)
}

// Close logs out and releases the underlying endpoint.
func (c *Client) Close() error {
	_ = c.send(chatproto.Request{Command: chatproto.CmdLogout, User: c.Username}, false)
	return c.ep.Close()
}

// ListUsers returns every username the server has seen.
func (c *Client) ListUsers() ([]string, error) {
	resp, err := c.call(chatproto.Request{Command: chatproto.CmdListUsers, User: c.Username})
	if err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// CreateGroup creates a group owned by this client.
func (c *Client) CreateGroup(name string) (*chatproto.GroupInfo, error) {
	resp, err := c.call(chatproto.Request{Command: chatproto.CmdCreateGroup, User: c.Username, Group: name})
	if err != nil {
		return nil, err
	}
	if !resp.Ok {
		return nil, fmt.Errorf("create_group: %s", resp.Error)
	}
	return resp.Group, nil
}

// JoinGroup joins an existing group with its access key (empty if
// this client is the owner).
func (c *Client) JoinGroup(name, key string) (*chatproto.GroupInfo, error) {
	resp, err := c.call(chatproto.Request{Command: chatproto.CmdJoinGroup, User: c.Username, Group: name, Key: key})
	if err != nil {
		return nil, err
	}
	if !resp.Ok {
		return nil, fmt.Errorf("join_group: %s", resp.Error)
	}
	return resp.Group, nil
}

// SendGroup posts message to a group this client belongs to.
func (c *Client) SendGroup(group, message string) error {
	resp, err := c.call(chatproto.Request{Command: chatproto.CmdSendGroup, User: c.Username, Group: group, Message: message})
	if err != nil {
		return err
	}
	if !resp.Ok {
		return fmt.Errorf("send_group: %s", resp.Error)
	}
	return nil
}

// SendDirect posts a direct message to peer.
func (c *Client) SendDirect(peer, message string) error {
	resp, err := c.call(chatproto.Request{Command: chatproto.CmdSendDirect, User: c.Username, Peer: peer, Message: message})
	if err != nil {
		return err
	}
	if !resp.Ok {
		return fmt.Errorf("send_direct: %s", resp.Error)
	}
	return nil
}

// FetchHistory returns a direct ("user_peer") or group conversation's
// stored messages.
func (c *Client) FetchHistory(chat string) ([]chatproto.Message, error) {
	resp, err := c.call(chatproto.Request{Command: chatproto.CmdFetchHistory, User: c.Username, Chat: chat})
	if err != nil {
		return nil, err
	}
	return resp.History, nil
}

// call sends req and waits for its response.
func (c *Client) call(req chatproto.Request) (chatproto.Response, error) {
	raw, err := chatproto.Encode(&req)
	if err != nil {
		return chatproto.Response{}, err
	}
	if !c.ep.Send(raw) {
		return chatproto.Response{}, fmt.Errorf("%s: %v", req.Command, c.ep.Err())
	}
	payload, ok := c.ep.Recv()
	if !ok {
		return chatproto.Response{}, fmt.Errorf("%s: no response: %v", req.Command, c.ep.Err())
	}
	return chatproto.DecodeResponse(payload)
}

// send is call without decoding a response body (and, unless wantReply
// is set, without waiting for one), used for best-effort logout.
func (c *Client) send(req chatproto.Request, wantReply bool) error {
	raw, err := chatproto.Encode(&req)
	if err != nil {
		return err
	}
	if !c.ep.Send(raw) {
		return fmt.Errorf("%s: %v", req.Command, c.ep.Err())
	}
	if wantReply {
		if _, ok := c.ep.Recv(); !ok {
			return fmt.Errorf("%s: no response: %v", req.Command, c.ep.Err())
		}
	}
	return nil
}
