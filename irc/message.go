package irc

import (
	"fmt"
	"strings"
)

// MaxLineLength is the longest line, terminator included, the server accepts.
const MaxLineLength = 512

// Message represents an IRC message
type Message struct {
	Prefix  string
	Command string
	Params  []string // middle parameters

	// Trailing is only meaningful when HasTrailing is set; "CMD :" carries
	// an empty trailing that is distinct from no trailing at all.
	Trailing    string
	HasTrailing bool
}

// ParseMessage parses a single IRC line with its terminator already
// removed. It returns nil for lines that hold no command.
func ParseMessage(line string) *Message {
	msg := &Message{
		Params: make([]string, 0),
	}

	i := skipSpaces(line, 0)
	if i >= len(line) {
		return nil
	}

	// Check if the message has a prefix
	if line[i] == ':' {
		end := nextSpace(line, i)
		msg.Prefix = line[i+1 : end]
		i = skipSpaces(line, end)
		if i >= len(line) {
			return nil
		}
	}

	end := nextSpace(line, i)
	msg.Command = line[i:end]
	i = skipSpaces(line, end)

	for i < len(line) {
		// Everything after a leading colon is the trailing parameter
		if line[i] == ':' {
			msg.Trailing = line[i+1:]
			msg.HasTrailing = true
			break
		}
		end = nextSpace(line, i)
		msg.Params = append(msg.Params, line[i:end])
		i = skipSpaces(line, end)
	}

	return msg
}

// Fields are separated by runs of spaces or tabs.
func isSpace(c byte) bool {
	return c == ' ' || c == '\t'
}

func skipSpaces(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func nextSpace(s string, i int) int {
	if n := strings.IndexAny(s[i:], " \t"); n >= 0 {
		return i + n
	}
	return len(s)
}

// NewMessage builds a message whose last argument becomes the trailing
// parameter.
func NewMessage(prefix, command string, params ...string) *Message {
	msg := &Message{Prefix: prefix, Command: command}
	if len(params) == 0 {
		return msg
	}
	msg.Params = params[:len(params)-1]
	msg.Trailing = params[len(params)-1]
	msg.HasTrailing = true
	return msg
}

// Param returns the i-th middle parameter or "" when absent.
func (m *Message) Param(i int) string {
	if i < len(m.Params) {
		return m.Params[i]
	}
	return ""
}

// String returns the canonical form of the message: single spaces between
// fields and the trailing parameter introduced by a colon.
func (m *Message) String() string {
	var builder strings.Builder

	// Add prefix if present
	if m.Prefix != "" {
		builder.WriteString(":")
		builder.WriteString(m.Prefix)
		builder.WriteString(" ")
	}

	builder.WriteString(m.Command)

	for _, param := range m.Params {
		builder.WriteString(" ")
		builder.WriteString(param)
	}

	if m.HasTrailing {
		builder.WriteString(" :")
		builder.WriteString(m.Trailing)
	}

	return builder.String()
}

// ParseHostmask parses a hostmask (nick!user@host)
func ParseHostmask(hostmask string) (nick, user, host string) {
	nickParts := strings.SplitN(hostmask, "!", 2)
	if len(nickParts) < 2 {
		nick = hostmask
		return
	}
	nick = nickParts[0]

	userHostParts := strings.SplitN(nickParts[1], "@", 2)
	if len(userHostParts) < 2 {
		user = nickParts[1]
		return
	}
	user = strings.TrimPrefix(userHostParts[0], "~")
	host = userHostParts[1]

	return
}

// FormatHostmask formats the nick!~user@host source of a client. Unknown
// fields are rendered as "*".
func FormatHostmask(nick, user, host string) string {
	return fmt.Sprintf("%s!~%s@%s", orStar(nick), orStar(user), orStar(host))
}

func orStar(s string) string {
	if s == "" {
		return "*"
	}
	return s
}
