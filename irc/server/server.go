package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/presbrey/ircserv/hooks"
	"github.com/presbrey/ircserv/irc"
	"github.com/presbrey/ircserv/irc/config"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ErrServerClosed is returned once the server has shut down.
	ErrServerClosed = errors.New("server: closed")
	// ErrNoSuchChannel is returned by operations naming an unknown channel.
	ErrNoSuchChannel = errors.New("server: no such channel")
)

const shutdownGrace = 5 * time.Second

// Server represents the IRC server. All protocol state lives in the
// registry and is touched only by the event loop goroutine.
type Server struct {
	config  *config.Config
	name    string
	created time.Time
	reg     *Registry
	hooks   *hooks.Registry[*CommandEvent]
	metrics *metrics
	admin   *Admin

	events  chan event
	quit    chan struct{}
	ready   chan struct{}
	writers sync.WaitGroup

	mu       sync.Mutex
	cancel   context.CancelFunc
	listener net.Listener
	started  bool
	closed   bool
}

// New creates a new IRC server from a validated configuration.
func New(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	srv := &Server{
		config:  cfg,
		name:    cfg.Server.Name,
		created: time.Now(),
		reg:     NewRegistry(cfg.Server.Name),
		hooks:   hooks.NewRegistry[*CommandEvent](),
		metrics: newMetrics(),
		events:  make(chan event, 64),
		quit:    make(chan struct{}),
		ready:   make(chan struct{}),
	}

	// Register default hooks
	srv.hooks.RegisterWithPriority(hooks.Any, srv.metrics.countCommand, -100)

	if cfg.Admin.Enabled {
		srv.admin = newAdmin(srv)
	}

	return srv, nil
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled or an operator powers the server off.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp4", s.config.ListenAddress())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the event loop on ln. It returns nil after an orderly
// shutdown, in which every session is notified before its socket closes.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.started || s.closed {
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.started = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.listener = ln
	s.mu.Unlock()
	defer cancel()

	accepting := make(chan struct{})
	go func() {
		defer close(accepting)
		s.acceptLoop(ln)
	}()
	if s.admin != nil {
		go s.admin.start()
	}

	log.Printf("[%s] listening on %s", s.name, ln.Addr())
	close(s.ready)

	s.loop(ctx)

	log.Printf("[%s] shutting down", s.name)
	ln.Close()
	s.shutdownSessions()
	close(s.quit)
	<-accepting
	s.drainEvents()
	if s.admin != nil {
		s.admin.stop()
	}
	s.waitWriters(shutdownGrace)
	log.Printf("[%s] server turned off", s.name)

	return nil
}

// Shutdown sets the cancellation token; the loop notices it and shuts down.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
}

// Ready is closed once the server accepts connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Done is closed once the event loop has stopped.
func (s *Server) Done() <-chan struct{} {
	return s.quit
}

// Addr returns the listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Name returns the server name used as the prefix of server replies.
func (s *Server) Name() string {
	return s.name
}

// Metrics returns the registry holding the server's Prometheus collectors.
func (s *Server) Metrics() *prometheus.Registry {
	return s.metrics.registry
}

// Admin returns the admin API, or nil when it is disabled.
func (s *Server) Admin() *Admin {
	return s.admin
}

// OnCommand registers a hook run on the loop goroutine after every command
// named verb has been handled. hooks.Any matches every command.
func (s *Server) OnCommand(verb string, hook hooks.Hook[*CommandEvent], priority int64) {
	s.hooks.RegisterWithPriority(verb, hook, priority)
}

// do runs fn on the loop goroutine and waits for it to finish.
func (s *Server) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case s.events <- callEvent{fn: fn, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.quit:
		return ErrServerClosed
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.quit:
		return ErrServerClosed
	}
}

// Snapshot is a point-in-time copy of the server state.
type Snapshot struct {
	Name     string        `json:"name"`
	Version  string        `json:"version"`
	Created  time.Time     `json:"created"`
	Counts   Counts        `json:"counts"`
	Channels []ChannelInfo `json:"channels,omitempty"`
}

// ChannelInfo describes one channel in a Snapshot.
type ChannelInfo struct {
	Name      string   `json:"name"`
	Topic     string   `json:"topic,omitempty"`
	Modes     string   `json:"modes"`
	Limit     int      `json:"limit,omitempty"`
	Operators []string `json:"operators"`
	Members   []string `json:"members"`
	Invited   []string `json:"invited,omitempty"`
}

func (c *Channel) info() ChannelInfo {
	info := ChannelInfo{
		Name:      c.Name,
		Topic:     c.Topic,
		Modes:     "+" + c.ModeString(false),
		Limit:     c.Limit,
		Operators: []string{},
		Members:   []string{},
	}
	nicks := func(ids []string) []string {
		out := []string{}
		for _, id := range ids {
			if sess := c.reg.Session(id); sess != nil {
				out = append(out, sess.Nick())
			}
		}
		return out
	}
	info.Operators = nicks(c.operators)
	info.Members = nicks(c.members)
	if len(c.invitees) > 0 {
		info.Invited = nicks(c.invitees)
	}
	return info
}

// Snapshot copies the server state on the loop goroutine.
func (s *Server) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.do(ctx, func() {
		snap = Snapshot{
			Name:     s.name,
			Version:  Version,
			Created:  s.created,
			Counts:   s.reg.Counts(),
			Channels: []ChannelInfo{},
		}
		for _, ch := range s.reg.Channels() {
			snap.Channels = append(snap.Channels, ch.info())
		}
	})
	return snap, err
}

// Notice sends a server NOTICE to every member of a channel.
func (s *Server) Notice(ctx context.Context, channel, text string) error {
	var found bool
	err := s.do(ctx, func() {
		ch := s.reg.Channel(channel)
		if ch == nil {
			return
		}
		found = true
		ch.Broadcast(irc.NewMessage(s.name, "NOTICE", ch.Name, text).String(), nil)
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNoSuchChannel, channel)
	}
	return nil
}

func (s *Server) numeric(sess *Session, rpl reply, args ...any) {
	s.reg.numeric(sess, rpl, args...)
}

func (s *Server) checkPassword(pass string) bool {
	return subtle.ConstantTimeCompare([]byte(pass), []byte(s.config.Server.Password)) == 1
}

func (s *Server) waitWriters(d time.Duration) {
	done := make(chan struct{})
	go func() {
		s.writers.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(d):
		log.Printf("[%s] gave up waiting for outbound queues", s.name)
	}
}
