package server

import (
	"slices"
	"sort"
	"time"
)

// Registry owns every Session and Channel on the server and indexes them
// by connection id, nickname and channel name. Other objects refer to
// them through these lookups only.
type Registry struct {
	serverName string
	sessions   map[string]*Session
	order      []string
	nicks      map[string]*Session
	channels   map[string]*Channel
}

func NewRegistry(serverName string) *Registry {
	return &Registry{
		serverName: serverName,
		sessions:   make(map[string]*Session),
		nicks:      make(map[string]*Session),
		channels:   make(map[string]*Channel),
	}
}

// Add registers a freshly accepted session and marks it connected.
func (r *Registry) Add(sess *Session) {
	if _, ok := r.sessions[sess.ID]; ok {
		return
	}
	r.sessions[sess.ID] = sess
	r.order = append(r.order, sess.ID)
	if sess.State == Created {
		sess.State = Connected
	}
}

// Remove forgets sess. Channel departures must already be done.
func (r *Registry) Remove(sess *Session) {
	delete(r.sessions, sess.ID)
	r.order = slices.DeleteFunc(r.order, func(id string) bool { return id == sess.ID })
	if r.nicks[sess.Nickname] == sess {
		delete(r.nicks, sess.Nickname)
	}
}

func (r *Registry) Session(id string) *Session {
	return r.sessions[id]
}

// Nick finds a session by its exact nickname.
func (r *Registry) Nick(nick string) *Session {
	if nick == "" {
		return nil
	}
	return r.nicks[nick]
}

// SetNick renames sess, keeping the nickname index unique.
func (r *Registry) SetNick(sess *Session, nick string) bool {
	if other := r.nicks[nick]; other != nil {
		return false
	}
	if r.nicks[sess.Nickname] == sess {
		delete(r.nicks, sess.Nickname)
	}
	sess.Nickname = nick
	r.nicks[nick] = sess
	return true
}

// Sessions returns sessions in accept order.
func (r *Registry) Sessions() []*Session {
	out := make([]*Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sessions[id])
	}
	return out
}

func (r *Registry) Channel(name string) *Channel {
	return r.channels[name]
}

// CreateChannel adds an empty channel; the caller joins the first operator.
func (r *Registry) CreateChannel(name string) *Channel {
	ch := &Channel{
		Name:    name,
		Created: time.Now(),
		reg:     r,
	}
	r.channels[name] = ch
	return ch
}

func (r *Registry) deleteChannel(ch *Channel) {
	for _, id := range ch.invitees {
		if sess := r.sessions[id]; sess != nil {
			sess.removeInvited(ch.Name)
		}
	}
	ch.invitees = nil
	if r.channels[ch.Name] == ch {
		delete(r.channels, ch.Name)
	}
}

// Channels returns the channels sorted by name.
func (r *Registry) Channels() []*Channel {
	out := make([]*Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Counts summarises the registry for LUSERS and metrics.
type Counts struct {
	Connections int `json:"connections"`
	Registered  int `json:"registered"`
	Operators   int `json:"operators"`
	Channels    int `json:"channels"`
}

func (r *Registry) Counts() Counts {
	c := Counts{Connections: len(r.sessions), Channels: len(r.channels)}
	for _, sess := range r.sessions {
		if sess.Registered() {
			c.Registered++
		}
		if sess.Operator {
			c.Operators++
		}
	}
	return c
}

// Peers returns the distinct sessions sharing at least one channel with
// sess, excluding sess itself.
func (r *Registry) Peers(sess *Session) []*Session {
	seen := map[string]bool{sess.ID: true}
	var out []*Session
	for _, name := range sess.joined {
		ch := r.channels[name]
		if ch == nil {
			continue
		}
		for _, peer := range ch.Sessions() {
			if !seen[peer.ID] {
				seen[peer.ID] = true
				out = append(out, peer)
			}
		}
	}
	return out
}
