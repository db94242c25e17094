package server

import (
	"bufio"
	"log"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/presbrey/ircserv/irc"
)

const (
	// readBufferSize leaves room to detect a read of MaxLineLength or more.
	readBufferSize = 2 * irc.MaxLineLength
	writeTimeout   = 10 * time.Second
)

// Connection is the transport side of a client. Its line buffer and
// outbound queue are private to it; only the event loop touches lines and
// calls send or close.
type Connection struct {
	ID   string
	Host string

	conn   net.Conn
	lines  irc.LineBuffer
	out    chan string
	closed bool
	done   chan struct{}
	debug  bool
	onDrop func()
}

func newConnection(conn net.Conn, queue int) *Connection {
	c := &Connection{
		ID:   uuid.New().String(),
		Host: "localhost",
		conn: conn,
		out:  make(chan string, queue),
		done: make(chan struct{}),
	}
	if conn != nil {
		// Extract the client's IP address
		if ip, _, err := net.SplitHostPort(conn.RemoteAddr().String()); err == nil {
			c.Host = ip
		}
	}
	return c
}

func (c *Connection) tag() string {
	return c.ID[:8] + " " + c.Host
}

// send queues line without blocking. It reports false when the line was
// dropped.
func (c *Connection) send(line string) bool {
	if c.closed {
		return false
	}
	if c.debug {
		log.Printf("[%s] => %s", c.tag(), line)
	}
	select {
	case c.out <- line:
		return true
	default:
		if c.onDrop != nil {
			c.onDrop()
		}
		return false
	}
}

// close stops accepting lines. The writer flushes what is queued and then
// releases the socket.
func (c *Connection) close() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.out)
	if c.conn == nil {
		close(c.done)
	}
}

func (c *Connection) writeLoop() {
	defer close(c.done)
	defer c.conn.Close()

	w := bufio.NewWriter(c.conn)
	failed := false
	for line := range c.out {
		if failed {
			continue
		}
		w.WriteString(line)
		w.WriteString("\r\n")
		if len(c.out) > 0 {
			continue
		}
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := w.Flush(); err != nil {
			log.Printf("[%s] write error: %v", c.tag(), err)
			failed = true
			// Unblock the reader so the loop tears the session down
			c.conn.Close()
		}
	}
}

// readLoop posts every chunk read from the socket to the event loop and
// reports the terminating error as a closeEvent.
func (c *Connection) readLoop(events chan<- event, quit <-chan struct{}) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			if !post(events, quit, dataEvent{id: c.ID, data: data}) {
				return
			}
		}
		if err != nil {
			post(events, quit, closeEvent{id: c.ID, err: err})
			return
		}
	}
}
