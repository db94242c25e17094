package irc

// Numeric replies sent by the server.
const (
	RplWelcome       = "001"
	RplYourHost      = "002"
	RplCreated       = "003"
	RplMyInfo        = "004"
	RplUModeIs       = "221"
	RplLuserClient   = "251"
	RplLuserOp       = "252"
	RplLuserChannels = "254"
	RplLuserMe       = "255"
	RplChannelModeIs = "324"
	RplNoTopic       = "331"
	RplTopic         = "332"
	RplInviting      = "341"
	RplNamReply      = "353"
	RplEndOfNames    = "366"
	RplMotd          = "372"
	RplMotdStart     = "375"
	RplEndOfMotd     = "376"
	RplYoureOper     = "381"

	ErrSyntax            = "400"
	ErrNoSuchNick        = "401"
	ErrNoSuchChannel     = "403"
	ErrCannotSendToChan  = "404"
	ErrNoOrigin          = "409"
	ErrNoRecipient       = "411"
	ErrNoTextToSend      = "412"
	ErrUnknownCommand    = "421"
	ErrNoNicknameGiven   = "431"
	ErrErroneusNickname  = "432"
	ErrNicknameInUse     = "433"
	ErrUserNotInChannel  = "441"
	ErrNotOnChannel      = "442"
	ErrUserOnChannel     = "443"
	ErrNotRegistered     = "451"
	ErrNeedMoreParams    = "461"
	ErrAlreadyRegistered = "462"
	ErrPasswdMismatch    = "464"
	ErrInvalidUsername   = "468"
	ErrChannelIsFull     = "471"
	ErrUnknownMode       = "472"
	ErrInviteOnlyChan    = "473"
	ErrBadChannelKey     = "475"
	ErrBadChanName       = "479"
	ErrNoPrivileges      = "481"
	ErrChanOPrivsNeeded  = "482"
	ErrNoOperHost        = "491"
	ErrUModeUnknownFlag  = "501"
	ErrUsersDontMatch    = "502"
)
