package server

import (
	"github.com/presbrey/ircserv/irc"
)

// CommandEvent is passed to command hooks after a handler ran.
type CommandEvent struct {
	Session *Session
	Message *irc.Message
}

type handlerFunc func(s *Server, sess *Session, msg *irc.Message)

type command struct {
	handle     handlerFunc
	registered bool // only valid once registration completed
}

// capVerb is accepted and ignored; no capabilities are negotiated.
const capVerb = "CAP"

// Verbs are matched case-sensitively.
var commands = map[string]command{
	"PASS":     {handlePass, false},
	"NICK":     {handleNick, false},
	"USER":     {handleUser, false},
	"QUIT":     {handleQuit, false},
	"PING":     {handlePing, true},
	"JOIN":     {handleJoin, true},
	"PART":     {handlePart, true},
	"KICK":     {handleKick, true},
	"INVITE":   {handleInvite, true},
	"PRIVMSG":  {handlePrivmsg, true},
	"TOPIC":    {handleTopic, true},
	"MODE":     {handleMode, true},
	"OPER":     {handleOper, true},
	"POWEROFF": {handlePoweroff, true},
}

// handle runs one parsed message for sess.
func (s *Server) handle(sess *Session, msg *irc.Message) {
	if msg.Command == capVerb {
		return
	}

	cmd, ok := commands[msg.Command]
	if !ok {
		s.numeric(sess, errUnknownCommand, msg.Command)
		return
	}
	if cmd.registered && !sess.Registered() {
		s.numeric(sess, errNotRegistered, msg.Command)
		return
	}

	cmd.handle(s, sess, msg)
	_ = s.hooks.Run(msg.Command, &CommandEvent{Session: sess, Message: msg})
}
