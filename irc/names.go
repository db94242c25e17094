package irc

import "strings"

const (
	MaxNicknameLength    = 9
	MaxUsernameLength    = 9
	MaxChannelNameLength = 64
)

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnum(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9')
}

func isSpecial(c byte) bool {
	return strings.IndexByte(`-[]\{}|^_`, c) >= 0
}

// ValidNickname reports whether nick may be used as a nickname: at most nine
// characters, starting with a letter or one of "|^~".
func ValidNickname(nick string) bool {
	if nick == "" || len(nick) > MaxNicknameLength {
		return false
	}
	if c := nick[0]; !isLetter(c) && c != '|' && c != '^' && c != '~' {
		return false
	}
	for i := 1; i < len(nick); i++ {
		if !isAlnum(nick[i]) && !isSpecial(nick[i]) {
			return false
		}
	}
	return true
}

// ValidUsername reports whether user may be used as a username.
func ValidUsername(user string) bool {
	if user == "" || len(user) > MaxUsernameLength || !isLetter(user[0]) {
		return false
	}
	for i := 1; i < len(user); i++ {
		if !isAlnum(user[i]) && !isSpecial(user[i]) {
			return false
		}
	}
	return true
}

// ValidRealname reports whether name may be used as a realname.
func ValidRealname(name string) bool {
	for i := 0; i < len(name); i++ {
		if !isAlnum(name[i]) && name[i] != ' ' && !isSpecial(name[i]) {
			return false
		}
	}
	return true
}

// IsChannelName reports whether name carries a channel sigil.
func IsChannelName(name string) bool {
	return name != "" && (name[0] == '#' || name[0] == '&')
}

// ValidChannelName reports whether name may be used to create a channel.
func ValidChannelName(name string) bool {
	if len(name) < 2 || len(name) > MaxChannelNameLength || !IsChannelName(name) {
		return false
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if !isAlnum(c) && c != '-' && c != '.' && c != '_' {
			return false
		}
	}
	return true
}
