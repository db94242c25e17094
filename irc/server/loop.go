package server

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"time"

	"github.com/presbrey/ircserv/irc"
)

const acceptBackoff = 50 * time.Millisecond

// event is anything posted to the loop by the accept, reader and admin
// goroutines.
type event interface{}

type acceptEvent struct {
	conn net.Conn
}

type dataEvent struct {
	id   string
	data []byte
}

type closeEvent struct {
	id  string
	err error
}

type callEvent struct {
	fn   func()
	done chan struct{}
}

// post delivers ev unless the loop has already stopped.
func post(events chan<- event, quit <-chan struct{}, ev event) bool {
	select {
	case events <- ev:
		return true
	case <-quit:
		return false
	}
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("[%s] accept error: %v", s.name, err)
			select {
			case <-s.quit:
				return
			case <-time.After(acceptBackoff):
			}
			continue
		}
		if !post(s.events, s.quit, acceptEvent{conn: conn}) {
			conn.Close()
			return
		}
	}
}

// loop is the only goroutine that mutates sessions, channels and the
// registry. It returns once ctx is cancelled.
func (s *Server) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.events:
			s.process(ev)
			s.metrics.observe(s.reg.Counts())
		}
	}
}

func (s *Server) process(ev event) {
	switch ev := ev.(type) {
	case acceptEvent:
		s.accept(ev.conn)
	case dataEvent:
		s.receive(ev.id, ev.data)
	case closeEvent:
		sess := s.reg.Session(ev.id)
		if sess == nil {
			return
		}
		reason := "eof"
		if !errors.Is(ev.err, io.EOF) {
			reason = "read_error"
			log.Printf("[%s] read error: %v", sess.conn.tag(), ev.err)
		}
		s.disconnect(sess, reason)
	case callEvent:
		ev.fn()
		close(ev.done)
	}
}

// attach registers a session for conn without starting any goroutine.
func (s *Server) attach(conn *Connection) *Session {
	conn.debug = s.config.Server.Debug
	conn.onDrop = s.metrics.dropped.Inc
	sess := newSession(conn)
	s.reg.Add(sess)
	s.metrics.accepted.Inc()
	return sess
}

func (s *Server) accept(nc net.Conn) {
	conn := newConnection(nc, s.config.Server.SendQueue)
	s.attach(conn)

	s.writers.Add(1)
	go func() {
		defer s.writers.Done()
		conn.writeLoop()
	}()
	go conn.readLoop(s.events, s.quit)

	log.Printf("[%s] connected", conn.tag())
}

// receive feeds one read to the session's line buffer and handles every
// complete message. A panic while handling is confined to this session.
func (s *Server) receive(id string, data []byte) {
	sess := s.reg.Session(id)
	if sess == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[%s] PANIC handling input: %v", sess.conn.tag(), r)
			s.disconnect(sess, "panic")
		}
	}()

	s.metrics.received.Add(float64(len(data)))
	if len(data) >= irc.MaxLineLength {
		log.Printf("[%s] protocol violation: %d bytes in one read", sess.conn.tag(), len(data))
		s.disconnect(sess, "violation")
		return
	}

	msgs, err := sess.conn.lines.Messages(data)
	for _, msg := range msgs {
		if s.config.Server.Debug {
			log.Printf("[%s] <= %s", sess.conn.tag(), msg)
		}
		s.handle(sess, msg)
		if s.reg.Session(id) == nil {
			return
		}
	}
	if err != nil {
		log.Printf("[%s] protocol violation: %v", sess.conn.tag(), err)
		s.disconnect(sess, "violation")
	}
}

// disconnect tears a session down: peers hear the QUIT, channel
// departures run (with any promotion or deletion), invitations are
// cancelled, then the registry forgets the session and the transport is
// released after its queue drains.
func (s *Server) disconnect(sess *Session, reason string) {
	if s.reg.Session(sess.ID) != sess {
		return
	}

	if sess.Registered() {
		line := fmt.Sprintf(":%s QUIT :Quit: %s", sess.Fullname(), cmp.Or(sess.LeaveMessage, sess.Nickname))
		for _, peer := range s.reg.Peers(sess) {
			peer.Send(line)
		}
	}
	s.release(sess, reason)
}

func (s *Server) release(sess *Session, reason string) {
	for _, name := range sess.Channels() {
		if ch := s.reg.Channel(name); ch != nil {
			ch.RemoveMember(sess)
		}
	}
	for _, name := range sess.Invitations() {
		if ch := s.reg.Channel(name); ch != nil {
			ch.RemoveMember(sess)
		}
	}
	s.reg.Remove(sess)
	sess.conn.close()

	s.metrics.disconnects.WithLabelValues(reason).Inc()
	log.Printf("[%s] disconnected %s (%s)", sess.conn.tag(), sess.Nick(), reason)
}

// drainEvents empties the queue once nothing can post to it. Accepted
// connections that never reached the loop are closed.
func (s *Server) drainEvents() {
	for {
		select {
		case ev := <-s.events:
			if a, ok := ev.(acceptEvent); ok {
				a.conn.Close()
			}
		default:
			return
		}
	}
}

// shutdownSessions notifies every session and then closes them all.
func (s *Server) shutdownSessions() {
	sessions := s.reg.Sessions()
	for _, sess := range sessions {
		s.reg.notice(sess, "server now turned OFF.")
		sess.conn.close()
	}
	// Departures still run but nothing more reaches the closed queues
	for _, sess := range sessions {
		s.release(sess, "shutdown")
	}
	s.metrics.observe(s.reg.Counts())
}
