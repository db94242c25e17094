package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrationNickThenUser(t *testing.T) {
	srv := newTestServer(t)
	c := srv.newTestClient(t)
	assert.Equal(t, Connected, c.sess.State, "Accepted sessions are registered as connected")

	c.send("PASS secret")
	assert.Equal(t, PasswordAccepted, c.sess.State)

	c.send("NICK alice")
	assert.Equal(t, NicknameOk, c.sess.State)
	assert.Empty(t, c.drain())

	c.send("USER alice 0 * :Alice Liddell")
	assert.Equal(t, Registered, c.sess.State)
	assert.Equal(t, "Alice Liddell", c.sess.Realname)

	out := c.drain()
	require.NotEmpty(t, out)
	assert.Equal(t, ":irc.test 001 alice :Welcome to the irc.test IRC server alice!~alice@localhost", out[0])
	assert.Len(t, grep(out, " 001 "), 1)
	assert.Len(t, grep(out, " 002 "), 1)
	assert.Len(t, grep(out, " 003 "), 1)
	assert.Len(t, grep(out, " 004 "), 1)
	assert.Contains(t, out, ":irc.test 251 alice :There are 1 users and 0 invisible on 1 server")
	assert.Empty(t, grep(out, " 375 "), "No MOTD configured")
}

func TestRegistrationUserThenNick(t *testing.T) {
	srv := newTestServer(t)
	c := srv.newTestClient(t)

	c.send("PASS secret", "USER bob 0 * :Bob")
	assert.Equal(t, UsernameOk, c.sess.State)
	assert.Empty(t, c.drain())

	// Editing the user fields before completion does not register
	c.send("USER robert 0 * :Robert")
	assert.Equal(t, UsernameOk, c.sess.State)
	assert.Equal(t, "robert", c.sess.Username)
	assert.Empty(t, c.drain())

	c.send("NICK bob")
	assert.Equal(t, Registered, c.sess.State)
	assert.Len(t, grep(c.drain(), " 001 "), 1)
}

func TestWelcomeBurstFiresOnce(t *testing.T) {
	srv := newTestServer(t)
	c := srv.connect(t, "alice")

	c.send("NICK alicia")
	out := c.drain()
	assert.Equal(t, []string{":alice!~alice@localhost NICK :alicia"}, out)

	c.send("USER alice 0 * :Again")
	assert.Equal(t, []string{":irc.test 462 alicia :You are already registered."}, c.drain())
}

func TestWelcomeBurstWithMOTD(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MOTD = []string{"be nice"}
	srv, err := New(cfg)
	require.NoError(t, err)

	c := srv.newTestClient(t)
	c.send("PASS secret", "NICK alice", "USER alice 0 * :A")
	out := c.drain()
	assert.Contains(t, out, ":irc.test 375 alice :- irc.test Message of the day - ")
	assert.Contains(t, out, ":irc.test 372 alice :- be nice")
	assert.Contains(t, out, ":irc.test 376 alice :End of /MOTD command.")
}

func TestPass(t *testing.T) {
	srv := newTestServer(t)
	c := srv.newTestClient(t)

	c.send("PASS")
	assert.Equal(t, []string{":irc.test 461 * PASS :Need more parameters"}, c.drain())

	c.send("PASS wrong")
	assert.Equal(t, []string{":irc.test 464 * :Incorrect password, access denied."}, c.drain())
	assert.Equal(t, Connected, c.sess.State)

	c.send("PASS secret", "PASS secret")
	assert.Equal(t, []string{":irc.test 462 * :You are already registered."}, c.drain())
	assert.Equal(t, PasswordAccepted, c.sess.State)
}

func TestNickAndUserRequirePassword(t *testing.T) {
	srv := newTestServer(t)
	c := srv.newTestClient(t)

	c.send("NICK alice", "USER alice 0 * :A")
	assert.Equal(t, []string{
		":irc.test 451 * NICK :You must register.",
		":irc.test 451 * USER :You must register.",
	}, c.drain())
	assert.Equal(t, Connected, c.sess.State)
	assert.Nil(t, srv.reg.Nick("alice"))
}

func TestNickErrors(t *testing.T) {
	srv := newTestServer(t)
	srv.connect(t, "alice")
	c := srv.newTestClient(t)
	c.send("PASS secret")

	c.send("NICK")
	c.send("NICK 9lives")
	c.send("NICK alice")
	assert.Equal(t, []string{
		":irc.test 431 * :No nickname given.",
		":irc.test 432 * 9lives :Nickname is invalid.",
		":irc.test 433 * alice :Nickname is already in use.",
	}, c.drain())
	assert.Equal(t, PasswordAccepted, c.sess.State)
}

func TestNicknameUniqueness(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.connect(t, "alice")
	bob := srv.connect(t, "bob")

	bob.send("NICK alice")
	assert.Equal(t, []string{":irc.test 433 bob alice :Nickname is already in use."}, bob.drain())
	assert.Equal(t, "bob", bob.sess.Nickname)
	assert.Equal(t, "alice", alice.sess.Nickname)
	assert.Same(t, alice.sess, srv.reg.Nick("alice"))
	assert.Same(t, bob.sess, srv.reg.Nick("bob"))

	// Colliding with oneself is still a collision
	alice.send("NICK alice")
	assert.Len(t, grep(alice.drain(), " 433 "), 1)
}

func TestRenameBroadcastsToPeers(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.connect(t, "alice")
	bob := srv.connect(t, "bob")
	carol := srv.connect(t, "carol")

	alice.send("JOIN #a,#b")
	bob.send("JOIN #a,#b")
	alice.drain()
	bob.drain()

	alice.send("NICK ally")
	assert.Equal(t, []string{":alice!~alice@localhost NICK :ally"}, alice.drain())
	assert.Equal(t, []string{":alice!~alice@localhost NICK :ally"}, bob.drain(), "Peers sharing two channels hear it once")
	assert.Empty(t, carol.drain())

	assert.Nil(t, srv.reg.Nick("alice"))
	assert.Same(t, alice.sess, srv.reg.Nick("ally"))
}

func TestUserErrors(t *testing.T) {
	srv := newTestServer(t)
	c := srv.newTestClient(t)
	c.send("PASS secret")

	c.send("USER alice 0 *")
	c.send("USER alice 0 * extra :A")
	c.send("USER alice 0 * :")
	c.send("USER 1alice 0 * :A")
	c.send("USER alice 0 * :Bad, name")
	assert.Equal(t, []string{
		":irc.test 461 * USER :Need more parameters",
		":irc.test 461 * USER :Need more parameters",
		":irc.test 461 * USER :Need more parameters",
		":irc.test 468 * 1alice :Invalid username",
		":irc.test 468 * :Invalid realname",
	}, c.drain())
	assert.Equal(t, PasswordAccepted, c.sess.State)
}

func TestCommandsRequireRegistration(t *testing.T) {
	srv := newTestServer(t)
	c := srv.newTestClient(t)

	for _, line := range []string{"PING x", "JOIN #a", "PART #a", "KICK #a b", "INVITE b #a", "PRIVMSG b :x", "TOPIC #a", "MODE #a", "OPER a b", "POWEROFF"} {
		c.send(line)
	}
	out := c.drain()
	require.Len(t, out, 10)
	for _, line := range out {
		assert.Contains(t, line, " 451 * ")
	}
}

func TestUnknownAndIgnoredCommands(t *testing.T) {
	srv := newTestServer(t)
	c := srv.newTestClient(t)

	c.send("CAP LS 302")
	assert.Empty(t, c.drain())

	c.send("WHO #a")
	c.send("nick alice")
	assert.Equal(t, []string{
		":irc.test 421 * WHO :Unknown command",
		":irc.test 421 * nick :Unknown command",
	}, c.drain(), "Verbs are case sensitive")
}

func TestPing(t *testing.T) {
	srv := newTestServer(t)
	c := srv.connect(t, "alice")

	c.send("PING token", "PING :with trailing", "PING")
	assert.Equal(t, []string{
		":irc.test PONG irc.test :alice",
		":irc.test PONG irc.test :alice",
		":irc.test 409 alice :No origin specified.",
	}, c.drain())
}

func TestQuit(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.connect(t, "alice")
	bob := srv.connect(t, "bob")
	alice.send("JOIN #a")
	bob.send("JOIN #a")
	alice.drain()
	bob.drain()

	alice.send("QUIT :gone fishing")
	assert.Equal(t, []string{":irc.test NOTICE alice :Good bye, alice!"}, alice.drain())
	assert.True(t, alice.closed())
	assert.Nil(t, srv.reg.Session(alice.sess.ID))
	assert.Nil(t, srv.reg.Nick("alice"))

	out := bob.drain()
	assert.Contains(t, out, ":alice!~alice@localhost QUIT :Quit: gone fishing")
	assert.Contains(t, out, ":irc.test MODE #a +o bob")
}

func TestQuitDefaultReason(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.connect(t, "alice")
	bob := srv.connect(t, "bob")
	alice.send("JOIN #a")
	bob.send("JOIN #a")
	bob.drain()

	alice.send("QUIT")
	assert.Contains(t, bob.drain(), ":alice!~alice@localhost QUIT :Quit: alice")
}

func TestQuitBeforeRegistration(t *testing.T) {
	srv := newTestServer(t)
	c := srv.newTestClient(t)

	c.send("QUIT")
	assert.Equal(t, []string{":irc.test NOTICE * :Good bye, *!"}, c.drain())
	assert.True(t, c.closed())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "registered", Registered.String())
	assert.Equal(t, "password-accepted", PasswordAccepted.String())
	assert.Equal(t, "State(42)", State(42).String())
}
