package server

import (
	"strings"
	"testing"

	"github.com/presbrey/ircserv/irc/config"
	"github.com/stretchr/testify/require"
)

const testPassword = "secret"

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Name = "irc.test"
	cfg.Server.Password = testPassword
	cfg.Operators = []config.Operator{{Username: "admin", Password: "adminpw"}}
	return cfg
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := New(testConfig())
	require.NoError(t, err)
	return srv
}

// testClient drives a session through the loop's input path without a
// socket. Outbound lines are read straight from the connection queue.
type testClient struct {
	t    *testing.T
	srv  *Server
	sess *Session
	conn *Connection
}

func (s *Server) newTestClient(t *testing.T) *testClient {
	t.Helper()
	conn := newConnection(nil, 1024)
	return &testClient{t: t, srv: s, sess: s.attach(conn), conn: conn}
}

// connect attaches a client and completes registration as nick.
func (s *Server) connect(t *testing.T, nick string) *testClient {
	t.Helper()
	c := s.newTestClient(t)
	c.register(nick)
	return c
}

func (c *testClient) send(lines ...string) {
	for _, line := range lines {
		c.srv.receive(c.sess.ID, []byte(line+"\r\n"))
	}
}

func (c *testClient) register(nick string) {
	c.t.Helper()
	c.send("PASS "+testPassword, "NICK "+nick, "USER "+nick+" 0 * :Test User")
	require.Equal(c.t, Registered, c.sess.State)
	c.drain()
}

// drain returns every queued line.
func (c *testClient) drain() []string {
	var out []string
	for {
		select {
		case line, ok := <-c.conn.out:
			if !ok {
				return out
			}
			out = append(out, line)
		default:
			return out
		}
	}
}

func (c *testClient) closed() bool {
	return c.conn.closed
}

// grep returns the lines containing substr.
func grep(lines []string, substr string) []string {
	var out []string
	for _, line := range lines {
		if strings.Contains(line, substr) {
			out = append(out, line)
		}
	}
	return out
}
