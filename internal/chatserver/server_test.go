package chatserver_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rdtchat/internal/chatclient"
	"rdtchat/internal/chatserver"
	"rdtchat/internal/config"
	"rdtchat/internal/logger"
)

func startTestServer(t *testing.T, port int) *chatserver.Server {
	t.Helper()
	channel := config.IdealChannelConfig()
	log := logger.NewLogger(logger.ERROR, discardWriter{}, "test-server")
	srv := chatserver.New("127.0.0.1", channel, config.DefaultEndpointConfig(), nil, log)
	go func() { _ = srv.Serve(port) }()
	time.Sleep(50 * time.Millisecond) // let the rendezvous socket bind
	return srv
}

func dialTestClient(t *testing.T, port int, username string) *chatclient.Client {
	t.Helper()
	channel := config.IdealChannelConfig()
	c, err := chatclient.Dial("127.0.0.1", port, username, channel, config.DefaultEndpointConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestChatServer_LoginAndListUsers(t *testing.T) {
	const port = 18181
	startTestServer(t, port)

	alice := dialTestClient(t, port, "alice")
	time.Sleep(20 * time.Millisecond)
	bob := dialTestClient(t, port, "bob")
	time.Sleep(20 * time.Millisecond)

	users, err := alice.ListUsers()
	require.NoError(t, err)
	require.Contains(t, users, "alice")
	require.Contains(t, users, "bob")
}

func TestChatServer_DirectMessageRoundTrip(t *testing.T) {
	const port = 18182
	startTestServer(t, port)

	alice := dialTestClient(t, port, "alice")
	bob := dialTestClient(t, port, "bob")
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, alice.SendDirect("bob", "hello bob"))

	history, err := bob.FetchHistory("alice_bob")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "hello bob", history[0].Content)
}

func TestChatServer_GroupCreateJoinSend(t *testing.T) {
	const port = 18183
	startTestServer(t, port)

	alice := dialTestClient(t, port, "alice")
	bob := dialTestClient(t, port, "bob")
	time.Sleep(20 * time.Millisecond)

	g, err := alice.CreateGroup("study")
	require.NoError(t, err)
	require.Equal(t, "alice", g.Owner)

	_, err = bob.JoinGroup("study", g.Key)
	require.NoError(t, err)

	require.NoError(t, bob.SendGroup("study", "ready to study"))

	history, err := alice.FetchHistory("study")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "bob", history[0].Sender)
}

// discardWriter swallows log output so tests stay quiet.
type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
