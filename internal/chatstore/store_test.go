package chatstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoginListUsers(t *testing.T) {
	s := New()
	s.Login("alice")
	s.Login("bob")
	require.Equal(t, []string{"alice", "bob"}, s.ListUsers())
}

func TestLogout_UnknownUserIsNoop(t *testing.T) {
	s := New()
	s.Logout("ghost")
	require.Empty(t, s.ListUsers())
}

func TestCreateGroup_RejectsEmptyNameAndDuplicates(t *testing.T) {
	s := New()
	s.Login("alice")

	_, ok := s.CreateGroup("alice", "")
	require.False(t, ok)

	g, ok := s.CreateGroup("alice", "room")
	require.True(t, ok)
	require.Equal(t, "alice", g.Owner)
	require.Len(t, g.Key, 6)
	require.True(t, g.Members["alice"])

	_, ok = s.CreateGroup("bob", "room")
	require.False(t, ok)
}

func TestJoinGroup_OwnerOrCorrectKeyOnly(t *testing.T) {
	s := New()
	s.Login("alice")
	g, _ := s.CreateGroup("alice", "room")

	_, ok := s.JoinGroup("bob", "room", "wrong-key")
	require.False(t, ok)

	joined, ok := s.JoinGroup("bob", "room", g.Key)
	require.True(t, ok)
	require.True(t, joined.Members["bob"])

	_, ok = s.JoinGroup("carol", "missing", "")
	require.False(t, ok)
}

func TestSendGroup_RequiresMembership(t *testing.T) {
	s := New()
	s.Login("alice")
	s.CreateGroup("alice", "room")

	require.False(t, s.SendGroup("mallory", "room", "hi"))
	require.True(t, s.SendGroup("alice", "room", "hello room"))

	history := s.FetchHistory("alice", "room")
	require.Len(t, history, 1)
	require.Equal(t, "alice", history[0].Sender)
	require.Equal(t, "hello room", history[0].Content)
}

func TestSendDirect_RequiresKnownPeerAndDistinctUsers(t *testing.T) {
	s := New()
	s.Login("alice")
	s.Login("bob")

	require.False(t, s.SendDirect("alice", "alice", "to myself"))
	require.False(t, s.SendDirect("alice", "ghost", "nobody home"))
	require.True(t, s.SendDirect("alice", "bob", "hi bob"))

	history := s.FetchHistory("alice", "alice_bob")
	require.Len(t, history, 1)
	require.Equal(t, "hi bob", history[0].Content)

	// Symmetric lookup regardless of username order in the chat key.
	history = s.FetchHistory("bob", "bob_alice")
	require.Len(t, history, 1)
}

func TestFetchHistory_DeniesNonParticipants(t *testing.T) {
	s := New()
	s.Login("alice")
	s.Login("bob")
	s.Login("mallory")
	s.SendDirect("alice", "bob", "secret")

	require.Nil(t, s.FetchHistory("mallory", "alice_bob"))
}

func TestFetchHistory_ReturnsIndependentCopy(t *testing.T) {
	s := New()
	s.Login("alice")
	s.CreateGroup("alice", "room")
	s.SendGroup("alice", "room", "one")

	history := s.FetchHistory("alice", "room")
	history[0].Content = "mutated"

	again := s.FetchHistory("alice", "room")
	require.Equal(t, "one", again[0].Content)
}
