// Copyright 2024-2026 Aiku AI

package irc

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiku/chatcmd/pkg/cmds"
)

// testClient returns a client writing into a buffer and recording events.
func testClient(t *testing.T) (*Client, *bytes.Buffer, *[]Event) {
	t.Helper()
	var buf bytes.Buffer
	var events []Event
	c := NewClient(&buf, "me", func(e Event) { events = append(events, e) }, zerolog.Nop())
	return c, &buf, &events
}

// lines returns what was written, one entry per CR LF terminated line.
func lines(buf *bytes.Buffer) []string {
	out := strings.Split(buf.String(), "\r\n")
	return out[:len(out)-1]
}

func TestSend(t *testing.T) {
	t.Parallel()
	c, buf, _ := testClient(t)

	require.NoError(t, c.Send("PRIVMSG", "#go", "hello world"))
	require.NoError(t, c.Send("NICK", "bob"))
	assert.Equal(t, []string{"PRIVMSG #go :hello world", "NICK bob"}, lines(buf))
}

func TestSendRejectsInjection(t *testing.T) {
	t.Parallel()
	c, buf, _ := testClient(t)

	err := c.Send("PRIVMSG", "#go", "hi\r\nQUIT")
	assert.ErrorIs(t, err, ErrInvalidParam)
	err = c.Send("KICK", "#go", "two words", "reason")
	assert.ErrorIs(t, err, ErrInvalidParam)
	err = c.SendRaw("JOIN #a\nPART #a")
	assert.ErrorIs(t, err, ErrInvalidParam)
	assert.Empty(t, buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestSendWriteError(t *testing.T) {
	t.Parallel()
	c := NewClient(failingWriter{}, "me", nil, zerolog.Nop())
	err := c.Send("PING", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
}

func TestHandleLine(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		line string
		want Event
	}{
		{"privmsg", ":alice!a@h PRIVMSG #go :hi all",
			Event{Type: EventMessage, From: "alice", Target: "#go", Text: "hi all"}},
		{"action", ":alice!a@h PRIVMSG #go :\x01ACTION waves\x01",
			Event{Type: EventAction, From: "alice", Target: "#go", Text: "waves"}},
		{"notice", ":srv NOTICE me :welcome",
			Event{Type: EventNotice, From: "srv", Target: "me", Text: "welcome"}},
		{"join", ":bob!b@h JOIN #go",
			Event{Type: EventJoin, From: "bob", Target: "#go"}},
		{"part with reason", ":bob!b@h PART #go :bye",
			Event{Type: EventPart, From: "bob", Target: "#go", Text: "bye"}},
		{"topic", ":bob!b@h TOPIC #go :new topic",
			Event{Type: EventTopic, From: "bob", Target: "#go", Text: "new topic"}},
		{"topic reply", ":srv 332 me #go :old topic",
			Event{Type: EventTopic, From: "srv", Target: "#go", Text: "old topic"}},
		{"nick in use", ":srv 433 * me :Nickname is already in use",
			Event{Type: EventSystem, Text: "Nickname already in use: me"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, _, events := testClient(t)
			require.NoError(t, c.HandleLine(tt.line))
			require.Len(t, *events, 1)
			assert.Equal(t, tt.want, (*events)[0])
		})
	}
}

func TestHandleLinePing(t *testing.T) {
	t.Parallel()
	c, buf, events := testClient(t)
	require.NoError(t, c.HandleLine("PING :irc.example.net"))
	assert.Equal(t, []string{"PONG irc.example.net"}, lines(buf))
	assert.Empty(t, *events)
}

func TestHandleLineTooFewParams(t *testing.T) {
	t.Parallel()
	c, buf, events := testClient(t)
	require.NoError(t, c.HandleLine(":alice PRIVMSG #go"))
	require.NoError(t, c.HandleLine(":srv 332 me #go"))
	require.NoError(t, c.HandleLine("PING"))
	assert.Empty(t, *events)
	assert.Empty(t, buf.String())
}

func TestHandleLineIgnoresUnknownAndCTCP(t *testing.T) {
	t.Parallel()
	c, _, events := testClient(t)
	require.NoError(t, c.HandleLine(":srv 372 me :motd line"))
	require.NoError(t, c.HandleLine(":alice PRIVMSG me :\x01VERSION\x01"))
	assert.Empty(t, *events)
}

func TestHandleLineParseError(t *testing.T) {
	t.Parallel()
	c, _, _ := testClient(t)
	assert.ErrorIs(t, c.HandleLine(""), ErrEmptyMessage)
}

func TestNickTracking(t *testing.T) {
	t.Parallel()
	c, _, events := testClient(t)

	require.NoError(t, c.HandleLine(":srv 001 me_ :Welcome to IRC"))
	assert.Equal(t, "me_", c.Nick())

	require.NoError(t, c.HandleLine(":someone!s@h NICK other"))
	assert.Equal(t, "me_", c.Nick())

	require.NoError(t, c.HandleLine(":me_!m@h NICK me"))
	assert.Equal(t, "me", c.Nick())

	require.Len(t, *events, 3)
	assert.Equal(t, Event{Type: EventWelcome, From: "srv", Text: "Welcome to IRC"}, (*events)[0])
	assert.Equal(t, Event{Type: EventNick, From: "me_", Text: "me"}, (*events)[2])
}

func TestConversation(t *testing.T) {
	t.Parallel()
	c, buf, events := testClient(t)
	cv := c.Conversation("#go", cmds.KindChat)

	assert.Equal(t, cmds.KindChat, cv.Kind())
	assert.Equal(t, ProtocolID, cv.ProtocolID())
	assert.Equal(t, "#go", cv.Name())
	assert.Same(t, c, cv.Client())

	require.NoError(t, cv.SendMessage("<b>hello</b><br>world"))
	require.NoError(t, cv.SendMessage("/me <i>dances</i>"))
	assert.Equal(t, []string{
		"PRIVMSG #go hello",
		"PRIVMSG #go world",
		"PRIVMSG #go :\x01ACTION dances\x01",
	}, lines(buf))

	cv.WriteSystem("Topic &amp; modes")
	assert.Equal(t, []Event{{Type: EventSystem, Target: "#go", Text: "Topic & modes"}}, *events)
}
