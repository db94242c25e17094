package server

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Mode is the channel mode bit set.
type Mode uint8

const (
	ModeInviteOnly Mode = 1 << iota
	ModeKey
	ModeLimit
	ModeTopicRestricted
)

// modeLetters lists channel modes in display order.
var modeLetters = []struct {
	mode   Mode
	letter byte
}{
	{ModeInviteOnly, 'i'},
	{ModeKey, 'k'},
	{ModeLimit, 'l'},
	{ModeTopicRestricted, 't'},
}

// Role is a session's standing in a channel.
type Role int

const (
	RoleNone Role = iota
	RoleInvited
	RoleMember
	RoleOperator
)

func (r Role) String() string {
	switch r {
	case RoleInvited:
		return "invited"
	case RoleMember:
		return "member"
	case RoleOperator:
		return "operator"
	}
	return "none"
}

// Channel represents an IRC channel. Membership is kept as session ids in
// join order; operators, members and invitees are disjoint.
type Channel struct {
	Name    string
	Topic   string
	Key     string
	Limit   int
	Modes   Mode
	Created time.Time

	reg       *Registry
	operators []string
	members   []string
	invitees  []string
}

func (c *Channel) Has(m Mode) bool {
	return c.Modes&m != 0
}

func (c *Channel) setMode(m Mode, on bool) {
	if on {
		c.Modes |= m
	} else {
		c.Modes &^= m
	}
}

// RoleOf returns the role sess holds in the channel.
func (c *Channel) RoleOf(sess *Session) Role {
	switch {
	case slices.Contains(c.operators, sess.ID):
		return RoleOperator
	case slices.Contains(c.members, sess.ID):
		return RoleMember
	case slices.Contains(c.invitees, sess.ID):
		return RoleInvited
	}
	return RoleNone
}

// IsMember reports whether sess has joined, as operator or member.
func (c *Channel) IsMember(sess *Session) bool {
	r := c.RoleOf(sess)
	return r == RoleOperator || r == RoleMember
}

func (c *Channel) IsOperator(sess *Session) bool {
	return slices.Contains(c.operators, sess.ID)
}

func (c *Channel) IsInvited(sess *Session) bool {
	return slices.Contains(c.invitees, sess.ID)
}

// Size is the number of joined sessions.
func (c *Channel) Size() int {
	return len(c.operators) + len(c.members)
}

// Sessions returns joined sessions, operators first.
func (c *Channel) Sessions() []*Session {
	out := make([]*Session, 0, c.Size())
	for _, id := range slices.Concat(c.operators, c.members) {
		if sess := c.reg.Session(id); sess != nil {
			out = append(out, sess)
		}
	}
	return out
}

// AddMember gives sess the role in the channel. Inviting is idempotent and
// silent. Joining as member or operator clears a pending invitation,
// announces the JOIN to every member including sess and sends sess the
// topic and the names list.
func (c *Channel) AddMember(sess *Session, role Role) {
	if role == RoleInvited {
		if c.RoleOf(sess) == RoleNone {
			c.invitees = append(c.invitees, sess.ID)
			sess.addInvited(c.Name)
		}
		return
	}

	c.cancelInvite(sess)
	if c.IsMember(sess) {
		return
	}
	if role == RoleOperator {
		c.operators = append(c.operators, sess.ID)
	} else {
		c.members = append(c.members, sess.ID)
	}
	sess.addJoined(c.Name)

	c.Broadcast(fmt.Sprintf(":%s JOIN :%s", sess.Fullname(), c.Name), nil)
	if c.Topic != "" {
		c.reg.numeric(sess, rplTopic, c.Name, c.Topic)
	}
	c.SendNames(sess)
}

// Promote moves a member to the operator list. It reports whether the
// role changed.
func (c *Channel) Promote(sess *Session) bool {
	i := slices.Index(c.members, sess.ID)
	if i < 0 {
		return false
	}
	c.members = slices.Delete(c.members, i, i+1)
	c.operators = append(c.operators, sess.ID)
	return true
}

// Demote moves an operator to the member list. It reports whether the
// role changed.
func (c *Channel) Demote(sess *Session) bool {
	i := slices.Index(c.operators, sess.ID)
	if i < 0 {
		return false
	}
	c.operators = slices.Delete(c.operators, i, i+1)
	c.members = append(c.members, sess.ID)
	return true
}

// RemoveMember drops sess from whichever role holds it. Removing the last
// joined session deletes the channel; removing the last operator promotes
// the longest-standing member. Callers announce PART, KICK or QUIT first.
func (c *Channel) RemoveMember(sess *Session) {
	if c.cancelInvite(sess) {
		return
	}

	if i := slices.Index(c.operators, sess.ID); i >= 0 {
		c.operators = slices.Delete(c.operators, i, i+1)
	} else if i := slices.Index(c.members, sess.ID); i >= 0 {
		c.members = slices.Delete(c.members, i, i+1)
	} else {
		return
	}
	sess.removeJoined(c.Name)

	if c.Size() == 0 {
		c.reg.deleteChannel(c)
		return
	}
	if len(c.operators) == 0 {
		heir := c.reg.Session(c.members[0])
		c.Promote(heir)
		c.Broadcast(fmt.Sprintf(":%s MODE %s +o %s", c.reg.serverName, c.Name, heir.Nickname), nil)
	}
}

func (c *Channel) cancelInvite(sess *Session) bool {
	i := slices.Index(c.invitees, sess.ID)
	if i < 0 {
		return false
	}
	c.invitees = slices.Delete(c.invitees, i, i+1)
	sess.removeInvited(c.Name)
	return true
}

// Broadcast sends line to every joined session except the given one.
func (c *Channel) Broadcast(line string, except *Session) {
	for _, sess := range c.Sessions() {
		if except != nil && sess.ID == except.ID {
			continue
		}
		sess.Send(line)
	}
}

// Names returns the NAMES list: operators prefixed with '@', then members.
func (c *Channel) Names() string {
	names := make([]string, 0, c.Size())
	for _, sess := range c.Sessions() {
		if c.IsOperator(sess) {
			names = append(names, "@"+sess.Nickname)
		} else {
			names = append(names, sess.Nickname)
		}
	}
	return strings.Join(names, " ")
}

// SendNames sends the names list and its terminator to sess.
func (c *Channel) SendNames(sess *Session) {
	c.reg.numeric(sess, rplNamReply, c.Name, c.Names())
	c.reg.numeric(sess, rplEndOfNames, c.Name)
}

// SendTopic sends the topic, or its absence, to sess.
func (c *Channel) SendTopic(sess *Session) {
	if c.Topic == "" {
		c.reg.numeric(sess, rplNoTopic, c.Name)
		return
	}
	c.reg.numeric(sess, rplTopic, c.Name, c.Topic)
}

// ModeString renders the active modes as letters, followed by the key and
// limit when withParams is set.
func (c *Channel) ModeString(withParams bool) string {
	var letters strings.Builder
	var params []string
	for _, m := range modeLetters {
		if !c.Has(m.mode) {
			continue
		}
		letters.WriteByte(m.letter)
		switch m.mode {
		case ModeKey:
			params = append(params, c.Key)
		case ModeLimit:
			params = append(params, strconv.Itoa(c.Limit))
		}
	}
	if withParams && len(params) > 0 {
		return letters.String() + " " + strings.Join(params, " ")
	}
	return letters.String()
}
