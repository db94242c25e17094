package server

import (
	"fmt"

	"github.com/presbrey/ircserv/irc"
)

// Version is reported in the welcome burst.
const Version = "ircserv-1.0"

// reply is one entry of the numeric catalog. Lines are rendered as
// ":<server> <code> <nick> " followed by the formatted text.
type reply struct {
	code   string
	format string
}

var (
	rplWelcome       = reply{irc.RplWelcome, ":Welcome to the %s IRC server %s"}
	rplYourHost      = reply{irc.RplYourHost, ":Your host is %s, running version %s"}
	rplCreated       = reply{irc.RplCreated, ":This server was created %s"}
	rplMyInfo        = reply{irc.RplMyInfo, "%s %s o iklot"}
	rplUModeIs       = reply{irc.RplUModeIs, "%s"}
	rplLuserClient   = reply{irc.RplLuserClient, ":There are %d users and 0 invisible on 1 server"}
	rplLuserOp       = reply{irc.RplLuserOp, "%d :IRC Operators online"}
	rplLuserChannels = reply{irc.RplLuserChannels, "%d :channels formed"}
	rplLuserMe       = reply{irc.RplLuserMe, ":I have %d clients and 1 servers"}
	rplChannelModeIs = reply{irc.RplChannelModeIs, "%s +%s"}
	rplNoTopic       = reply{irc.RplNoTopic, "%s :No topic set."}
	rplTopic         = reply{irc.RplTopic, "%s :%s"}
	rplInviting      = reply{irc.RplInviting, "%s %s"}
	rplNamReply      = reply{irc.RplNamReply, "= %s :%s"}
	rplEndOfNames    = reply{irc.RplEndOfNames, "%s :End of /NAMES list."}
	rplMotdStart     = reply{irc.RplMotdStart, ":- %s Message of the day - "}
	rplMotd          = reply{irc.RplMotd, ":- %s"}
	rplEndOfMotd     = reply{irc.RplEndOfMotd, ":End of /MOTD command."}
	rplYoureOper     = reply{irc.RplYoureOper, ":You are now server Operator."}

	errSyntax            = reply{irc.ErrSyntax, "%s :Syntax error."}
	errNoSuchNick        = reply{irc.ErrNoSuchNick, "%s :No such nick."}
	errNoSuchChannel     = reply{irc.ErrNoSuchChannel, "%s :No such channel."}
	errCannotSendToChan  = reply{irc.ErrCannotSendToChan, "%s :Cannot send to channel."}
	errNoOrigin          = reply{irc.ErrNoOrigin, ":No origin specified."}
	errNoRecipient       = reply{irc.ErrNoRecipient, ":No recipient given."}
	errNoTextToSend      = reply{irc.ErrNoTextToSend, ":No text to send."}
	errUnknownCommand    = reply{irc.ErrUnknownCommand, "%s :Unknown command"}
	errNoNicknameGiven   = reply{irc.ErrNoNicknameGiven, ":No nickname given."}
	errErroneusNickname  = reply{irc.ErrErroneusNickname, "%s :Nickname is invalid."}
	errNicknameInUse     = reply{irc.ErrNicknameInUse, "%s :Nickname is already in use."}
	errUserNotInChannel  = reply{irc.ErrUserNotInChannel, "%s %s :User not in this channel."}
	errNotOnChannel      = reply{irc.ErrNotOnChannel, "%s :You're not in this channel."}
	errUserOnChannel     = reply{irc.ErrUserOnChannel, "%s %s :is already on channel"}
	errNotRegistered     = reply{irc.ErrNotRegistered, "%s :You must register."}
	errNeedMoreParams    = reply{irc.ErrNeedMoreParams, "%s :Need more parameters"}
	errAlreadyRegistered = reply{irc.ErrAlreadyRegistered, ":You are already registered."}
	errPasswdMismatch    = reply{irc.ErrPasswdMismatch, ":Incorrect password, access denied."}
	errInvalidUsername   = reply{irc.ErrInvalidUsername, "%s :Invalid username"}
	errInvalidRealname   = reply{irc.ErrInvalidUsername, ":Invalid realname"}
	errChannelIsFull     = reply{irc.ErrChannelIsFull, "%s :Cannot join channel (+l)."}
	errUnknownMode       = reply{irc.ErrUnknownMode, "%s :Unknown mode."}
	errInviteOnlyChan    = reply{irc.ErrInviteOnlyChan, "%s :Cannot join channel (+i)."}
	errBadChannelKey     = reply{irc.ErrBadChannelKey, "%s :Cannot join channel (+k)."}
	errBadChanName       = reply{irc.ErrBadChanName, "%s :Invalid channel name."}
	errNoPrivileges      = reply{irc.ErrNoPrivileges, ":You are not server Operator."}
	errChanOPrivsNeeded  = reply{irc.ErrChanOPrivsNeeded, "%s :You're not channel operator."}
	errNoOperHost        = reply{irc.ErrNoOperHost, ":Operator status refused."}
	errUModeUnknownFlag  = reply{irc.ErrUModeUnknownFlag, ":Unknown MODE flag."}
	errUsersDontMatch    = reply{irc.ErrUsersDontMatch, ":Cannot change mode for other users."}
)

func (r *Registry) numeric(sess *Session, rpl reply, args ...any) {
	sess.Send(fmt.Sprintf(":%s %s %s ", r.serverName, rpl.code, sess.Nick()) + fmt.Sprintf(rpl.format, args...))
}

// notice sends a server NOTICE to sess.
func (r *Registry) notice(sess *Session, text string) {
	sess.Send(irc.NewMessage(r.serverName, "NOTICE", sess.Nick(), text).String())
}
