package irc

import (
	"bytes"
	"errors"
)

// ErrLineTooLong is returned when a peer sends more than MaxLineLength bytes
// without a line terminator.
var ErrLineTooLong = errors.New("irc: line too long")

// LineBuffer accumulates raw bytes read from one connection and splits them
// into complete lines. Partial lines are kept until their terminator arrives.
// A LineBuffer must not be shared between connections.
type LineBuffer struct {
	pending []byte
}

// Feed appends p and returns every complete line, stripped of its LF and an
// optional CR. Empty lines are dropped.
func (b *LineBuffer) Feed(p []byte) ([]string, error) {
	b.pending = append(b.pending, p...)

	var lines []string
	for {
		i := bytes.IndexByte(b.pending, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimRight(b.pending[:i], "\r")
		if len(line) > 0 {
			lines = append(lines, string(line))
		}
		b.pending = b.pending[i+1:]
	}

	if len(b.pending) >= MaxLineLength {
		b.pending = nil
		return lines, ErrLineTooLong
	}
	if len(b.pending) == 0 {
		b.pending = nil
	}
	return lines, nil
}

// Messages feeds p and parses the complete lines.
func (b *LineBuffer) Messages(p []byte) ([]*Message, error) {
	lines, err := b.Feed(p)
	msgs := make([]*Message, 0, len(lines))
	for _, line := range lines {
		if msg := ParseMessage(line); msg != nil {
			msgs = append(msgs, msg)
		}
	}
	return msgs, err
}

// Pending reports how many bytes of an unterminated line are buffered.
func (b *LineBuffer) Pending() int {
	return len(b.pending)
}
