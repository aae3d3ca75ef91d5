// Package chatproto defines the JSON command/response envelopes carried
// over an RDT endpoint by the chat collaborator. It mirrors
// original_source/Server/server.py's request shape ({"command": ...,
// "user": ...}) trimmed to the command set this module implements.
package chatproto

import "encoding/json"

// Command names understood by chatserver.
const (
	CmdLogin        = "login"
	CmdLogout       = "logout"
	CmdListUsers    = "list_users"
	CmdCreateGroup  = "create_group"
	CmdJoinGroup    = "join_group"
	CmdSendGroup    = "send_group"
	CmdSendDirect   = "send_direct"
	CmdFetchHistory = "fetch_history"
)

// Request is the envelope a client sends. Fields not used by a given
// command are left zero; chatserver validates per-command.
type Request struct {
	Command string `json:"command"`
	User    string `json:"user"`
	Group   string `json:"group,omitempty"`
	Key     string `json:"key,omitempty"`
	Peer    string `json:"peer,omitempty"`
	Message string `json:"message,omitempty"`
	Chat    string `json:"chat,omitempty"`
}

// Response is the envelope chatserver sends back. Ok distinguishes a
// refused command (bad group key, unknown peer, ...) from a genuine
// transport-level failure, which the client sees as Recv returning
// false instead of a Response at all.
type Response struct {
	Ok      bool            `json:"ok"`
	Error   string          `json:"error,omitempty"`
	Users   []string        `json:"users,omitempty"`
	Group   *GroupInfo      `json:"group,omitempty"`
	History []Message       `json:"history,omitempty"`
	// Port carries a freshly assigned session endpoint's port number.
	// It is only set on the handshake reply to a login command; every
	// other response leaves it zero.
	Port  int             `json:"port,omitempty"`
	Extra json.RawMessage `json:"extra,omitempty"`
}

// GroupInfo describes a group's membership, returned by create_group
// and join_group.
type GroupInfo struct {
	Name    string   `json:"name"`
	Owner   string   `json:"owner"`
	Key     string   `json:"key,omitempty"`
	Members []string `json:"members"`
}

// Message is one stored chat line, direct or group.
type Message struct {
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Encode marshals v (a *Request or *Response) to its wire bytes.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// DecodeRequest parses b into a Request.
func DecodeRequest(b []byte) (Request, error) {
	var r Request
	err := json.Unmarshal(b, &r)
	return r, err
}

// DecodeResponse parses b into a Response.
func DecodeResponse(b []byte) (Response, error) {
	var r Response
	err := json.Unmarshal(b, &r)
	return r, err
}
