// Package chatstore is the in-memory directory of users, groups, and
// message history backing the chat collaborator. It is grounded in
// original_source/Server/server.py's users/groups/messages
// dictionaries, adapted to a mutex-guarded struct with methods instead
// of module-level Python dicts.
package chatstore

import (
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"rdtchat/internal/chatproto"
)

// Group is one chat room: an owner, a member set, and a join key that
// non-owners must present.
type Group struct {
	Owner   string
	Key     string
	Members map[string]bool
}

// Store holds all server-side chat state behind a single RWMutex. A
// zero Store is not valid; use New.
type Store struct {
	mu sync.RWMutex

	users   map[string]bool // username -> online
	groups  map[string]*Group
	direct  map[string][]chatproto.Message // "a_b" (sorted) -> history
	group   map[string][]chatproto.Message // group name -> history
	rng     *rand.Rand
	nowFunc func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:   make(map[string]bool),
		groups:  make(map[string]*Group),
		direct:  make(map[string][]chatproto.Message),
		group:   make(map[string][]chatproto.Message),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		nowFunc: time.Now,
	}
}

// Login marks username online, registering it if unseen.
func (s *Store) Login(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = true
}

// Logout marks username offline. It is a no-op for an unknown user.
func (s *Store) Logout(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		s.users[username] = false
	}
}

// ListUsers returns every registered username, sorted.
func (s *Store) ListUsers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.users))
	for u := range s.users {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// CreateGroup registers a new group owned by username with a random
// 6-character join key, mirroring server.py's handle_create_group. It
// fails if the name is empty or already taken.
func (s *Store) CreateGroup(username, name string) (*Group, bool) {
	if name == "" {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.groups[name]; exists {
		return nil, false
	}
	g := &Group{
		Owner:   username,
		Key:     randomKey(s.rng, 6),
		Members: map[string]bool{username: true},
	}
	s.groups[name] = g
	return g, true
}

// JoinGroup admits username to name if it is the owner or presents the
// correct key.
func (s *Store) JoinGroup(username, name, key string) (*Group, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[name]
	if !ok {
		return nil, false
	}
	if username != g.Owner && key != g.Key {
		return nil, false
	}
	g.Members[username] = true
	return g, true
}

// SendGroup appends a message to name's history if username is a
// member or the owner.
func (s *Store) SendGroup(username, name, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[name]
	if !ok || (!g.Members[username] && g.Owner != username) {
		return false
	}
	s.group[name] = append(s.group[name], chatproto.Message{
		Sender:    username,
		Content:   content,
		Timestamp: s.nowFunc().Format(time.RFC3339),
	})
	return true
}

// SendDirect appends a message to the conversation between username
// and peer. Unlike server.py's handle_chat_friend, it does not require
// a prior follow relationship — spec.md's chat layer has no friends
// list, so any two registered users may message directly.
func (s *Store) SendDirect(username, peer, content string) bool {
	if peer == "" || username == peer {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.users[peer] && !hasKey(s.users, peer) {
		return false
	}
	key := directKey(username, peer)
	s.direct[key] = append(s.direct[key], chatproto.Message{
		Sender:    username,
		Content:   content,
		Timestamp: s.nowFunc().Format(time.RFC3339),
	})
	return true
}

// FetchHistory returns the stored messages for a direct conversation
// ("user_peer") or a group name, readable by username.
func (s *Store) FetchHistory(username, chat string) []chatproto.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if strings.Contains(chat, "_") {
		parts := strings.SplitN(chat, "_", 2)
		if len(parts) == 2 && (username == parts[0] || username == parts[1]) {
			return append([]chatproto.Message(nil), s.direct[directKey(parts[0], parts[1])]...)
		}
		return nil
	}
	if g, ok := s.groups[chat]; ok && (g.Members[username] || g.Owner == username) {
		return append([]chatproto.Message(nil), s.group[chat]...)
	}
	return nil
}

func directKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, "_")
}

func hasKey(m map[string]bool, k string) bool {
	_, ok := m[k]
	return ok
}

func randomKey(rng *rand.Rand, n int) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(b)
}
