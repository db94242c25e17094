package server_test

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/lrstanley/girc"
	"github.com/presbrey/ircserv/irc/config"
	"github.com/presbrey/ircserv/irc/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetFlags(log.Lshortfile | log.Lmicroseconds)
}

// girc waits two seconds after the welcome before it reports CONNECTED.
const waitTimeout = 5 * time.Second

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Name = "irc.test"
	cfg.Server.Password = "secret"
	cfg.Operators = []config.Operator{{Username: "admin", Password: "adminpw"}}
	return cfg
}

// testServer is a server running on an ephemeral loopback port.
type testServer struct {
	*server.Server
	addr   string
	cancel context.CancelFunc
	errCh  chan error
}

func startServer(t *testing.T) *testServer {
	t.Helper()
	srv, err := server.New(testConfig())
	require.NoError(t, err)

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ts := &testServer{Server: srv, addr: ln.Addr().String(), cancel: cancel, errCh: make(chan error, 1)}
	go func() {
		ts.errCh <- srv.Serve(ctx, ln)
	}()

	select {
	case <-srv.Ready():
	case <-time.After(waitTimeout):
		t.Fatal("server did not become ready")
	}
	t.Cleanup(func() {
		cancel()
		select {
		case <-srv.Done():
		case <-time.After(waitTimeout):
			t.Error("server did not stop")
		}
	})
	return ts
}

// wait returns the result of Serve.
func (ts *testServer) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-ts.errCh:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("Serve did not return")
		return nil
	}
}

// IRCClient is a simple IRC client for testing
type IRCClient struct {
	Conn   net.Conn
	Reader *bufio.Reader
	nick   string
}

// NewIRCClient connects to the server at address
func NewIRCClient(t *testing.T, address string) *IRCClient {
	t.Helper()
	conn, err := net.Dial("tcp", address)
	require.NoError(t, err, "Should connect to the server")
	t.Cleanup(func() { conn.Close() })

	return &IRCClient{
		Conn:   conn,
		Reader: bufio.NewReader(conn),
	}
}

// Send sends a message to the server
func (c *IRCClient) Send(t *testing.T, message string) {
	t.Helper()
	_, err := c.Conn.Write([]byte(message + "\r\n"))
	require.NoError(t, err, "Should send message: "+message)
}

// Expect reads lines until one contains expected
func (c *IRCClient) Expect(t *testing.T, expected string) string {
	t.Helper()
	c.Conn.SetReadDeadline(time.Now().Add(waitTimeout))
	defer c.Conn.SetReadDeadline(time.Time{})

	var seen []string
	for {
		line, err := c.Reader.ReadString('\n')
		if err != nil {
			t.Fatalf("[%s] expected line containing %q, got %v (%v)", c.nick, expected, seen, err)
		}
		line = strings.TrimRight(line, "\r\n")
		if strings.Contains(line, expected) {
			return line
		}
		seen = append(seen, line)
	}
}

// ExpectClosed reads until the server closes the connection
func (c *IRCClient) ExpectClosed(t *testing.T) {
	t.Helper()
	c.Conn.SetReadDeadline(time.Now().Add(waitTimeout))
	defer c.Conn.SetReadDeadline(time.Time{})

	for {
		_, err := c.Reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			t.Fatalf("[%s] expected the connection to close: %v", c.nick, err)
		}
	}
}

// Register completes registration as nick and waits for the welcome
func (c *IRCClient) Register(t *testing.T, nick string) {
	t.Helper()
	c.nick = nick
	c.Send(t, "PASS secret")
	c.Send(t, "NICK "+nick)
	c.Send(t, fmt.Sprintf("USER %s 0 * :%s test", nick, nick))
	c.Expect(t, " 001 "+nick+" ")
	c.Expect(t, " 255 "+nick+" ")
}

func TestServeChat(t *testing.T) {
	ts := startServer(t)

	alice := NewIRCClient(t, ts.addr)
	alice.Register(t, "alice")
	bob := NewIRCClient(t, ts.addr)
	bob.Register(t, "bob")

	alice.Send(t, "JOIN #go")
	alice.Expect(t, " 366 alice #go ")
	bob.Send(t, "JOIN #go")
	assert.Equal(t, ":irc.test 353 bob = #go :@alice bob", bob.Expect(t, " 353 "))
	alice.Expect(t, ":bob!~bob@127.0.0.1 JOIN :#go")

	alice.Send(t, "PRIVMSG #go :hello over tcp")
	assert.Equal(t, ":alice!~alice@127.0.0.1 PRIVMSG #go :hello over tcp", bob.Expect(t, "PRIVMSG"))

	bob.Send(t, "PING now")
	bob.Expect(t, ":irc.test PONG irc.test :bob")

	alice.Send(t, "QUIT :bye")
	alice.Expect(t, "NOTICE alice :Good bye, alice!")
	alice.ExpectClosed(t)
	bob.Expect(t, ":alice!~alice@127.0.0.1 QUIT :Quit: bye")
	bob.Expect(t, ":irc.test MODE #go +o bob")
}

func TestServeShutdownNotifiesEveryone(t *testing.T) {
	ts := startServer(t)

	alice := NewIRCClient(t, ts.addr)
	alice.Register(t, "alice")
	pending := NewIRCClient(t, ts.addr)
	pending.Send(t, "PASS secret")
	// Make sure the pending connection was accepted before shutting down
	pending.Send(t, "PING")
	pending.Expect(t, " 451 * PING ")

	ts.cancel()
	alice.Expect(t, ":irc.test NOTICE alice :server now turned OFF.")
	alice.ExpectClosed(t)
	pending.Expect(t, ":irc.test NOTICE * :server now turned OFF.")
	pending.ExpectClosed(t)

	assert.NoError(t, ts.wait(t))

	_, err := net.DialTimeout("tcp", ts.addr, 200*time.Millisecond)
	assert.Error(t, err, "The listener is closed")
}

func TestPoweroffStopsServer(t *testing.T) {
	ts := startServer(t)

	alice := NewIRCClient(t, ts.addr)
	alice.Register(t, "alice")
	bob := NewIRCClient(t, ts.addr)
	bob.Register(t, "bob")

	bob.Send(t, "POWEROFF")
	bob.Expect(t, " 481 bob ")

	alice.Send(t, "OPER admin adminpw")
	alice.Expect(t, " 381 alice ")
	alice.Send(t, "POWEROFF")

	bob.Expect(t, "NOTICE bob :server now turned OFF.")
	bob.ExpectClosed(t)
	alice.ExpectClosed(t)
	assert.NoError(t, ts.wait(t))
}

func TestServeOnlyOnce(t *testing.T) {
	ts := startServer(t)

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	assert.ErrorIs(t, ts.Serve(context.Background(), ln), server.ErrServerClosed)
	assert.Equal(t, ts.addr, ts.Addr().String())
}

func TestOversizedLineDisconnects(t *testing.T) {
	ts := startServer(t)

	alice := NewIRCClient(t, ts.addr)
	alice.Register(t, "alice")
	_, err := alice.Conn.Write([]byte(strings.Repeat("X", 600)))
	require.NoError(t, err)
	alice.ExpectClosed(t)

	// The server keeps serving everyone else
	bob := NewIRCClient(t, ts.addr)
	bob.Register(t, "bob")
}

func TestGircClient(t *testing.T) {
	ts := startServer(t)
	host, port, err := net.SplitHostPort(ts.addr)
	require.NoError(t, err)
	var portNum int
	_, err = fmt.Sscanf(port, "%d", &portNum)
	require.NoError(t, err)

	alice := NewIRCClient(t, ts.addr)
	alice.Register(t, "alice")
	alice.Send(t, "JOIN #girc")
	alice.Expect(t, " 366 alice #girc ")

	client := girc.New(girc.Config{
		Server:     host,
		Port:       portNum,
		Nick:       "gopher",
		User:       "gopher",
		Name:       "Go Pher",
		ServerPass: "secret",
	})
	received := make(chan string, 1)
	client.Handlers.Add(girc.CONNECTED, func(c *girc.Client, e girc.Event) {
		c.Cmd.Join("#girc")
	})
	client.Handlers.Add(girc.JOIN, func(c *girc.Client, e girc.Event) {
		if e.Source != nil && e.Source.Name == c.GetNick() {
			c.Cmd.Message("#girc", "hello from girc")
		}
	})
	client.Handlers.Add(girc.PRIVMSG, func(c *girc.Client, e girc.Event) {
		select {
		case received <- e.Last():
		default:
		}
	})

	done := make(chan error, 1)
	go func() {
		done <- client.Connect()
	}()
	defer func() {
		client.Close()
		<-done
	}()

	alice.Expect(t, ":gopher!~gopher@127.0.0.1 JOIN :#girc")
	alice.Expect(t, ":gopher!~gopher@127.0.0.1 PRIVMSG #girc :hello from girc")

	alice.Send(t, "PRIVMSG #girc :hello gopher")
	select {
	case text := <-received:
		assert.Equal(t, "hello gopher", text)
	case <-time.After(waitTimeout):
		t.Fatal("girc client did not receive the channel message")
	}
}
