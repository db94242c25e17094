package server

import (
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/presbrey/ircserv/irc"
)

// State is the registration progress of a session.
type State int

const (
	Created State = iota
	Connected
	PasswordAccepted
	NicknameOk
	UsernameOk
	Registered
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Connected:
		return "connected"
	case PasswordAccepted:
		return "password-accepted"
	case NicknameOk:
		return "nickname-ok"
	case UsernameOk:
		return "username-ok"
	case Registered:
		return "registered"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session is the protocol-level view of one client connection. It refers
// to channels by name only; the Registry owns both sides.
type Session struct {
	ID       string
	State    State
	Nickname string
	Username string
	Realname string
	Hostname string
	Operator bool
	Since    time.Time

	// LeaveMessage is the reason announced when the session quits.
	LeaveMessage string

	conn    *Connection
	joined  []string
	invited []string
}

func newSession(conn *Connection) *Session {
	return &Session{
		ID:       conn.ID,
		State:    Created,
		Hostname: conn.Host,
		Since:    time.Now(),
		conn:     conn,
	}
}

// Fullname returns the nick!~user@host source used in relayed messages.
func (s *Session) Fullname() string {
	return irc.FormatHostmask(s.Nickname, s.Username, s.Hostname)
}

// Nick returns the nickname, or "*" before one is chosen.
func (s *Session) Nick() string {
	if s.Nickname == "" {
		return "*"
	}
	return s.Nickname
}

func (s *Session) Registered() bool {
	return s.State == Registered
}

// Send queues one line for delivery. Delivery is best effort: a full
// outbound queue drops the line.
func (s *Session) Send(line string) {
	if s.conn == nil || s.conn.closed {
		return
	}
	if !s.conn.send(line) {
		log.Printf("[%s] dropped outbound line for %s", s.conn.tag(), s.Nick())
	}
}

// Channels returns the names of joined channels in join order.
func (s *Session) Channels() []string {
	return slices.Clone(s.joined)
}

// Invitations returns the names of channels with an outstanding invitation.
func (s *Session) Invitations() []string {
	return slices.Clone(s.invited)
}

func (s *Session) addJoined(name string) {
	if !slices.Contains(s.joined, name) {
		s.joined = append(s.joined, name)
	}
}

func (s *Session) removeJoined(name string) {
	s.joined = slices.DeleteFunc(s.joined, func(n string) bool { return n == name })
}

func (s *Session) addInvited(name string) {
	if !slices.Contains(s.invited, name) {
		s.invited = append(s.invited, name)
	}
}

func (s *Session) removeInvited(name string) {
	s.invited = slices.DeleteFunc(s.invited, func(n string) bool { return n == name })
}
