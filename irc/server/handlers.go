package server

import (
	"fmt"
	"log"
	"strings"

	"github.com/presbrey/ircserv/irc"
)

// splitList splits a comma separated target list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func handlePass(s *Server, sess *Session, msg *irc.Message) {
	switch {
	case len(msg.Params) == 0:
		s.numeric(sess, errNeedMoreParams, "PASS")
	case sess.State >= PasswordAccepted:
		s.numeric(sess, errAlreadyRegistered)
	case !s.checkPassword(msg.Params[0]):
		s.numeric(sess, errPasswdMismatch)
	default:
		sess.State = PasswordAccepted
	}
}

func handleNick(s *Server, sess *Session, msg *irc.Message) {
	if sess.State < PasswordAccepted {
		s.numeric(sess, errNotRegistered, "NICK")
		return
	}

	nick := msg.Param(0)
	switch {
	case nick == "":
		s.numeric(sess, errNoNicknameGiven)
		return
	case !irc.ValidNickname(nick):
		s.numeric(sess, errErroneusNickname, nick)
		return
	case s.reg.Nick(nick) != nil:
		s.numeric(sess, errNicknameInUse, nick)
		return
	}

	switch sess.State {
	case PasswordAccepted:
		s.reg.SetNick(sess, nick)
		sess.State = NicknameOk
	case UsernameOk:
		s.reg.SetNick(sess, nick)
		s.register(sess)
	case NicknameOk:
		s.reg.SetNick(sess, nick)
	case Registered:
		line := fmt.Sprintf(":%s NICK :%s", sess.Fullname(), nick)
		sess.Send(line)
		for _, peer := range s.reg.Peers(sess) {
			peer.Send(line)
		}
		log.Printf("[%s] %s is now known as %s", sess.conn.tag(), sess.Nickname, nick)
		s.reg.SetNick(sess, nick)
	}
}

func handleUser(s *Server, sess *Session, msg *irc.Message) {
	switch {
	case sess.State < PasswordAccepted:
		s.numeric(sess, errNotRegistered, "USER")
	case sess.State == Registered:
		s.numeric(sess, errAlreadyRegistered)
	case len(msg.Params) != 3 || msg.Trailing == "":
		s.numeric(sess, errNeedMoreParams, "USER")
	case !irc.ValidUsername(msg.Params[0]):
		s.numeric(sess, errInvalidUsername, msg.Params[0])
	case !irc.ValidRealname(msg.Trailing):
		s.numeric(sess, errInvalidRealname)
	default:
		sess.Username = msg.Params[0]
		sess.Realname = msg.Trailing
		switch sess.State {
		case PasswordAccepted:
			sess.State = UsernameOk
		case NicknameOk:
			s.register(sess)
		}
	}
}

// register completes registration and sends the welcome burst. It is the
// only place a session becomes Registered.
func (s *Server) register(sess *Session) {
	if sess.State == Registered {
		return
	}
	sess.State = Registered
	log.Printf("[%s] registered %s", sess.conn.tag(), sess.Fullname())

	s.numeric(sess, rplWelcome, s.name, sess.Fullname())
	s.numeric(sess, rplYourHost, s.name, Version)
	s.numeric(sess, rplCreated, s.created.Format("Mon Jan 2 2006 at 15:04:05 MST"))
	s.numeric(sess, rplMyInfo, s.name, Version)

	counts := s.reg.Counts()
	s.numeric(sess, rplLuserClient, counts.Registered)
	s.numeric(sess, rplLuserOp, counts.Operators)
	s.numeric(sess, rplLuserChannels, counts.Channels)
	s.numeric(sess, rplLuserMe, counts.Connections)

	if motd := s.config.Server.MOTD; len(motd) > 0 {
		s.numeric(sess, rplMotdStart, s.name)
		for _, line := range motd {
			s.numeric(sess, rplMotd, line)
		}
		s.numeric(sess, rplEndOfMotd)
	}
}

func handlePing(s *Server, sess *Session, msg *irc.Message) {
	if len(msg.Params) == 0 && !msg.HasTrailing {
		s.numeric(sess, errNoOrigin)
		return
	}
	sess.Send(fmt.Sprintf(":%s PONG %s :%s", s.name, s.name, sess.Nickname))
}

func handleQuit(s *Server, sess *Session, msg *irc.Message) {
	if msg.Trailing != "" {
		sess.LeaveMessage = msg.Trailing
	}
	s.reg.notice(sess, fmt.Sprintf("Good bye, %s!", sess.Nick()))
	s.disconnect(sess, "quit")
}

func handleJoin(s *Server, sess *Session, msg *irc.Message) {
	if len(msg.Params) == 0 {
		s.numeric(sess, errNeedMoreParams, "JOIN")
		return
	}

	if msg.Params[0] == "0" {
		for _, name := range sess.Channels() {
			if ch := s.reg.Channel(name); ch != nil {
				ch.Broadcast(fmt.Sprintf(":%s PART %s", sess.Fullname(), ch.Name), nil)
				ch.RemoveMember(sess)
			}
		}
		return
	}

	keys := splitList(msg.Param(1))
	nextKey := func() string {
		if len(keys) == 0 {
			return ""
		}
		key := keys[0]
		keys = keys[1:]
		return key
	}

	for _, name := range splitList(msg.Params[0]) {
		if !irc.ValidChannelName(name) {
			s.numeric(sess, errBadChanName, name)
			continue
		}

		ch := s.reg.Channel(name)
		if ch == nil {
			ch = s.reg.CreateChannel(name)
			if key := nextKey(); key != "" {
				ch.Key = key
				ch.setMode(ModeKey, true)
			}
			log.Printf("[%s] %s created %s", sess.conn.tag(), sess.Nickname, name)
			ch.AddMember(sess, RoleOperator)
			continue
		}

		switch {
		case ch.IsMember(sess):
			continue
		case ch.Has(ModeLimit) && ch.Size() >= ch.Limit:
			s.numeric(sess, errChannelIsFull, name)
			continue
		case ch.Has(ModeInviteOnly) && !ch.IsInvited(sess):
			s.numeric(sess, errInviteOnlyChan, name)
			continue
		}

		if key := nextKey(); ch.Has(ModeKey) && key != ch.Key {
			s.numeric(sess, errBadChannelKey, name)
			continue
		}
		ch.AddMember(sess, RoleMember)
	}
}

func handlePart(s *Server, sess *Session, msg *irc.Message) {
	if len(msg.Params) == 0 {
		s.numeric(sess, errNeedMoreParams, "PART")
		return
	}

	for _, name := range splitList(msg.Params[0]) {
		ch := s.reg.Channel(name)
		switch {
		case ch == nil:
			s.numeric(sess, errNoSuchChannel, name)
			continue
		case !ch.IsMember(sess):
			s.numeric(sess, errNotOnChannel, name)
			continue
		}

		line := fmt.Sprintf(":%s PART %s", sess.Fullname(), ch.Name)
		if msg.Trailing != "" {
			line += " :" + msg.Trailing
		}
		ch.Broadcast(line, nil)
		ch.RemoveMember(sess)
	}
}

func handleKick(s *Server, sess *Session, msg *irc.Message) {
	if len(msg.Params) != 2 {
		s.numeric(sess, errNeedMoreParams, "KICK")
		return
	}

	reason := msg.Trailing
	if reason == "" {
		reason = sess.Nickname
	}

	for _, name := range splitList(msg.Params[0]) {
		ch := s.reg.Channel(name)
		switch {
		case ch == nil:
			s.numeric(sess, errNoSuchChannel, name)
			continue
		case !ch.IsMember(sess):
			s.numeric(sess, errNotOnChannel, name)
			continue
		case !ch.IsOperator(sess):
			s.numeric(sess, errChanOPrivsNeeded, name)
			continue
		}

		for _, nick := range splitList(msg.Params[1]) {
			target := s.reg.Nick(nick)
			if target == nil {
				s.numeric(sess, errNoSuchNick, nick)
				continue
			}
			if !ch.IsMember(target) {
				s.numeric(sess, errUserNotInChannel, nick, ch.Name)
				continue
			}

			ch.Broadcast(fmt.Sprintf(":%s KICK %s %s :%s", sess.Fullname(), ch.Name, target.Nickname, reason), nil)
			ch.RemoveMember(target)

			// Kicking oneself may have emptied the channel or passed the operator role on
			if !ch.IsOperator(sess) {
				break
			}
		}
	}
}

func handleInvite(s *Server, sess *Session, msg *irc.Message) {
	switch len(msg.Params) {
	case 0:
		s.numeric(sess, errNeedMoreParams, "INVITE")
		return
	case 2:
	default:
		s.numeric(sess, errSyntax, "INVITE")
		return
	}

	nick, name := msg.Params[0], msg.Params[1]
	target := s.reg.Nick(nick)
	ch := s.reg.Channel(name)
	switch {
	case target == nil:
		s.numeric(sess, errNoSuchNick, nick)
	case ch == nil:
		s.numeric(sess, errNoSuchChannel, name)
	case !ch.IsMember(sess):
		s.numeric(sess, errNotOnChannel, name)
	case ch.Has(ModeInviteOnly) && !ch.IsOperator(sess):
		s.numeric(sess, errChanOPrivsNeeded, name)
	case ch.IsMember(target):
		s.numeric(sess, errUserOnChannel, nick, name)
	default:
		ch.AddMember(target, RoleInvited)
		target.Send(fmt.Sprintf(":%s INVITE %s :%s", sess.Fullname(), target.Nickname, ch.Name))
		s.numeric(sess, rplInviting, target.Nickname, ch.Name)
	}
}

func handlePrivmsg(s *Server, sess *Session, msg *irc.Message) {
	switch {
	case len(msg.Params) == 0:
		s.numeric(sess, errNoRecipient)
		return
	case msg.Trailing == "":
		s.numeric(sess, errNoTextToSend)
		return
	case len(msg.Params) != 1:
		s.numeric(sess, errSyntax, "PRIVMSG")
		return
	}

	for _, rcpt := range splitList(msg.Params[0]) {
		line := fmt.Sprintf(":%s PRIVMSG %s :%s", sess.Fullname(), rcpt, msg.Trailing)

		if irc.IsChannelName(rcpt) {
			ch := s.reg.Channel(rcpt)
			switch {
			case ch == nil:
				s.numeric(sess, errNoSuchChannel, rcpt)
			case !ch.IsMember(sess):
				s.numeric(sess, errCannotSendToChan, rcpt)
			default:
				ch.Broadcast(line, sess)
			}
			continue
		}

		target := s.reg.Nick(rcpt)
		if target == nil {
			s.numeric(sess, errNoSuchNick, rcpt)
			continue
		}
		target.Send(line)
	}
}

func handleTopic(s *Server, sess *Session, msg *irc.Message) {
	if len(msg.Params) == 0 {
		if msg.HasTrailing {
			s.numeric(sess, errNoSuchChannel, msg.Trailing)
		} else {
			s.numeric(sess, errNeedMoreParams, "TOPIC")
		}
		return
	}

	name := msg.Params[0]
	ch := s.reg.Channel(name)
	if ch == nil {
		s.numeric(sess, errNoSuchChannel, name)
		return
	}

	if len(msg.Params) == 1 && !msg.HasTrailing {
		ch.SendTopic(sess)
		return
	}

	switch {
	case !ch.IsMember(sess):
		s.numeric(sess, errNotOnChannel, name)
		return
	case ch.Has(ModeTopicRestricted) && !ch.IsOperator(sess):
		s.numeric(sess, errChanOPrivsNeeded, name)
		return
	}

	if msg.HasTrailing {
		ch.Topic = msg.Trailing
	} else {
		ch.Topic = msg.Params[1]
	}
	ch.Broadcast(fmt.Sprintf(":%s TOPIC %s :%s", sess.Fullname(), ch.Name, ch.Topic), nil)
}

func handleOper(s *Server, sess *Session, msg *irc.Message) {
	if len(msg.Params) != 2 {
		s.numeric(sess, errNeedMoreParams, "OPER")
		return
	}
	if !s.config.CheckOperator(msg.Params[0], msg.Params[1]) {
		log.Printf("[%s] failed OPER attempt by %s as %s", sess.conn.tag(), sess.Nickname, msg.Params[0])
		s.numeric(sess, errNoOperHost)
		return
	}

	sess.Operator = true
	log.Printf("[%s] %s is now a server operator", sess.conn.tag(), sess.Nickname)
	s.numeric(sess, rplYoureOper)
	sess.Send(fmt.Sprintf(":%s MODE %s :+o", sess.Fullname(), sess.Nickname))
}

func handlePoweroff(s *Server, sess *Session, msg *irc.Message) {
	if !sess.Operator {
		s.numeric(sess, errNoPrivileges)
		return
	}
	log.Printf("[%s] POWEROFF requested by %s", sess.conn.tag(), sess.Nickname)
	s.Shutdown()
}
