package server

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/presbrey/ircserv/irc"
)

func handleMode(s *Server, sess *Session, msg *irc.Message) {
	args := msg.Params
	if msg.HasTrailing {
		args = append(args[:len(args):len(args)], msg.Trailing)
	}
	if len(args) == 0 {
		s.numeric(sess, errNeedMoreParams, "MODE")
		return
	}

	target := args[0]
	if irc.IsChannelName(target) {
		ch := s.reg.Channel(target)
		if ch == nil {
			s.numeric(sess, errNoSuchChannel, target)
			return
		}
		s.channelMode(sess, ch, args[1:])
		return
	}

	switch user := s.reg.Nick(target); {
	case user == nil:
		s.numeric(sess, errNoSuchChannel, target)
	case user != sess:
		s.numeric(sess, errUsersDontMatch)
	default:
		s.userMode(sess, args[1:])
	}
}

// userMode only lets a session drop its own operator flag.
func (s *Server) userMode(sess *Session, args []string) {
	if len(args) == 0 {
		modes := "+"
		if sess.Operator {
			modes = "+o"
		}
		s.numeric(sess, rplUModeIs, modes)
		return
	}

	sign := byte('+')
	unknown := len(args) > 1
	applied := false
	for i := 0; i < len(args[0]); i++ {
		c := args[0][i]
		switch {
		case c == '+' || c == '-':
			sign = c
		case c != 'o':
			unknown = true
		case applied:
		default:
			applied = true
			// +o is only granted through OPER
			if sign == '-' && sess.Operator {
				sess.Operator = false
				sess.Send(fmt.Sprintf(":%s MODE %s :-o", sess.Fullname(), sess.Nickname))
			}
		}
	}
	if unknown {
		s.numeric(sess, errUModeUnknownFlag)
	}
}

// modeChange accumulates the directives that applied, for the single
// MODE notice sent once processing is done.
type modeChange struct {
	modes  strings.Builder
	params []string
	sign   byte
}

func (m *modeChange) add(sign, letter byte, param ...string) {
	if sign != m.sign {
		m.modes.WriteByte(sign)
		m.sign = sign
	}
	m.modes.WriteByte(letter)
	m.params = append(m.params, param...)
}

func (m *modeChange) String() string {
	if len(m.params) == 0 {
		return m.modes.String()
	}
	return m.modes.String() + " " + strings.Join(m.params, " ")
}

// channelMode applies a compound mode string such as "+lk-t 10 secret".
// Parameters are consumed left to right by the directives needing one and
// each letter applies at most once per command.
func (s *Server) channelMode(sess *Session, ch *Channel, args []string) {
	if len(args) == 0 {
		s.numeric(sess, rplChannelModeIs, ch.Name, ch.ModeString(ch.IsMember(sess)))
		return
	}
	if !ch.IsOperator(sess) {
		s.numeric(sess, errChanOPrivsNeeded, ch.Name)
		return
	}

	params := args[1:]
	next := func() (string, bool) {
		if len(params) == 0 {
			return "", false
		}
		p := params[0]
		params = params[1:]
		return p, true
	}

	var change modeChange
	var seen [256]bool
	sign := byte('+')

	for i := 0; i < len(args[0]); i++ {
		letter := args[0][i]
		if letter == '+' || letter == '-' {
			sign = letter
			continue
		}
		if seen[letter] {
			continue
		}
		seen[letter] = true
		set := sign == '+'

		switch letter {
		case 'i':
			ch.setMode(ModeInviteOnly, set)
			change.add(sign, letter)

		case 't':
			ch.setMode(ModeTopicRestricted, set)
			change.add(sign, letter)

		case 'k':
			if set {
				key, ok := next()
				if !ok {
					s.numeric(sess, errNeedMoreParams, "MODE +k")
					continue
				}
				ch.Key = key
				ch.setMode(ModeKey, true)
				change.add(sign, letter, key)
				continue
			}
			given, _ := next()
			echo := ch.Key
			if echo == "" {
				echo = given
			}
			ch.Key = ""
			ch.setMode(ModeKey, false)
			if echo != "" {
				change.add(sign, letter, echo)
			} else {
				change.add(sign, letter)
			}

		case 'l':
			if set {
				p, ok := next()
				if !ok {
					s.numeric(sess, errNeedMoreParams, "MODE +l")
					continue
				}
				limit, err := strconv.Atoi(p)
				if err != nil || limit <= 0 {
					continue
				}
				ch.Limit = limit
				ch.setMode(ModeLimit, true)
				change.add(sign, letter, strconv.Itoa(limit))
				continue
			}
			next()
			ch.Limit = 0
			ch.setMode(ModeLimit, false)
			change.add(sign, letter)

		case 'o':
			if len(params) == 0 {
				s.numeric(sess, errNeedMoreParams, "MODE "+string(sign)+"o")
				continue
			}
			nick := params[0]
			target := s.reg.Nick(nick)
			if target == nil {
				s.numeric(sess, errNoSuchNick, nick)
				s.numeric(sess, errUserNotInChannel, nick, ch.Name)
				continue
			}
			if !ch.IsMember(target) {
				s.numeric(sess, errUserNotInChannel, nick, ch.Name)
				continue
			}
			next()
			if set {
				ch.Promote(target)
			} else {
				ch.Demote(target)
			}
			change.add(sign, letter, nick)

		default:
			s.numeric(sess, errUnknownMode, string(letter))
		}
	}

	if change.modes.Len() == 0 {
		return
	}
	ch.Broadcast(fmt.Sprintf(":%s MODE %s %s", sess.Fullname(), ch.Name, change.String()), nil)
}
