// Copyright 2024-2026 Aiku AI

package irc

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aiku/chatcmd/pkg/cmds"
	"github.com/aiku/chatcmd/pkg/markup"
)

// ProtocolID identifies IRC conversations and the commands restricted to them.
const ProtocolID = "prpl-irc"

// EventType is the kind of an Event.
type EventType int

const (
	EventMessage EventType = iota + 1
	EventAction
	EventNotice
	EventJoin
	EventPart
	EventNick
	EventTopic
	EventWelcome
	// EventSystem is local status text, not something received.
	EventSystem
)

// Event is something the user should see, produced by an incoming message
// or by a local command.
type Event struct {
	Type   EventType
	From   string
	Target string
	Text   string
}

// msgHandler handles one incoming command. Params holds at least min
// entries when fn is called.
type msgHandler struct {
	min int
	fn  func(c *Client, msg *Message) error
}

var msgHandlers = map[string]msgHandler{
	"PING":    {1, (*Client).handlePing},
	"PRIVMSG": {2, (*Client).handlePrivmsg},
	"NOTICE":  {2, (*Client).handleNotice},
	"JOIN":    {1, (*Client).handleJoin},
	"PART":    {1, (*Client).handlePart},
	"NICK":    {1, (*Client).handleNick},
	"TOPIC":   {2, (*Client).handleTopic},
	"001":     {1, (*Client).handleWelcome},
	"332":     {3, (*Client).handleTopicReply},
	"433":     {2, (*Client).handleNickInUse},
}

// Client is one IRC account. It is not safe for concurrent use.
type Client struct {
	w      io.Writer
	nick   string
	events func(Event)
	log    zerolog.Logger
}

// NewClient returns a client that writes protocol lines to w and reports
// events to events, which may be nil.
func NewClient(w io.Writer, nick string, events func(Event), log zerolog.Logger) *Client {
	if events == nil {
		events = func(Event) {}
	}
	return &Client{
		w:      w,
		nick:   nick,
		events: events,
		log:    log.With().Str("component", "irc").Logger(),
	}
}

// Nick returns the client's current nickname.
func (c *Client) Nick() string {
	return c.nick
}

// Send writes one protocol line.
func (c *Client) Send(command string, params ...string) error {
	msg := &Message{Command: command, Params: params}
	if err := msg.validate(); err != nil {
		return fmt.Errorf("failed to send %s: %w", command, err)
	}
	return c.write(msg.String())
}

// SendRaw writes line verbatim. It must be a single line.
func (c *Client) SendRaw(line string) error {
	if line == "" || strings.ContainsAny(line, "\r\n\x00") {
		return fmt.Errorf("failed to send raw line: %w", ErrInvalidParam)
	}
	return c.write(line)
}

func (c *Client) write(line string) error {
	c.log.Trace().Str("line", line).Msg("Sending IRC line")
	if _, err := io.WriteString(c.w, line+"\r\n"); err != nil {
		return fmt.Errorf("failed to write IRC line: %w", err)
	}
	return nil
}

// HandleLine parses and handles one received line. Unknown commands are
// ignored and messages with too few parameters are logged and dropped; only
// unparsable lines and write failures return an error.
func (c *Client) HandleLine(line string) error {
	msg, err := ParseMessage(line)
	if err != nil {
		return fmt.Errorf("failed to parse IRC line: %w", err)
	}
	h, ok := msgHandlers[msg.Command]
	if !ok {
		c.log.Trace().Str("command", msg.Command).Msg("Unhandled IRC command")
		return nil
	}
	if len(msg.Params) < h.min {
		c.log.Warn().
			Str("command", msg.Command).
			Int("params", len(msg.Params)).
			Int("want", h.min).
			Msg("Dropping IRC message with too few parameters")
		return nil
	}
	return h.fn(c, msg)
}

func (c *Client) handlePing(msg *Message) error {
	return c.Send("PONG", msg.Params[0])
}

const ctcpDelim = "\x01"

func (c *Client) handlePrivmsg(msg *Message) error {
	text := msg.Params[1]
	if action, ok := ctcpAction(text); ok {
		c.events(Event{Type: EventAction, From: msg.Nick(), Target: msg.Params[0], Text: action})
		return nil
	}
	if strings.HasPrefix(text, ctcpDelim) {
		c.log.Debug().Str("from", msg.Nick()).Msg("Ignoring CTCP request")
		return nil
	}
	c.events(Event{Type: EventMessage, From: msg.Nick(), Target: msg.Params[0], Text: text})
	return nil
}

func ctcpAction(text string) (string, bool) {
	const prefix = ctcpDelim + "ACTION "
	if !strings.HasPrefix(text, prefix) {
		return "", false
	}
	return strings.TrimSuffix(text[len(prefix):], ctcpDelim), true
}

func (c *Client) handleNotice(msg *Message) error {
	c.events(Event{Type: EventNotice, From: msg.Nick(), Target: msg.Params[0], Text: msg.Params[1]})
	return nil
}

func (c *Client) handleJoin(msg *Message) error {
	c.events(Event{Type: EventJoin, From: msg.Nick(), Target: msg.Params[0]})
	return nil
}

func (c *Client) handlePart(msg *Message) error {
	c.events(Event{Type: EventPart, From: msg.Nick(), Target: msg.Params[0], Text: msg.Param(1)})
	return nil
}

func (c *Client) handleNick(msg *Message) error {
	old := msg.Nick()
	if old == c.nick {
		c.nick = msg.Params[0]
	}
	c.events(Event{Type: EventNick, From: old, Text: msg.Params[0]})
	return nil
}

func (c *Client) handleTopic(msg *Message) error {
	c.events(Event{Type: EventTopic, From: msg.Nick(), Target: msg.Params[0], Text: msg.Params[1]})
	return nil
}

func (c *Client) handleTopicReply(msg *Message) error {
	c.events(Event{Type: EventTopic, From: msg.Nick(), Target: msg.Params[1], Text: msg.Params[2]})
	return nil
}

func (c *Client) handleWelcome(msg *Message) error {
	c.nick = msg.Params[0]
	c.events(Event{Type: EventWelcome, From: msg.Nick(), Text: msg.Params[len(msg.Params)-1]})
	return nil
}

func (c *Client) handleNickInUse(msg *Message) error {
	c.events(Event{Type: EventSystem, Text: "Nickname already in use: " + msg.Params[1]})
	return nil
}

// Conversation is a channel or query on a Client.
type Conversation struct {
	client *Client
	target string
	kind   cmds.Kind
}

var _ cmds.Conversation = (*Conversation)(nil)

// Conversation returns the conversation with target, a channel for
// cmds.KindChat or a nickname for cmds.KindIM.
func (c *Client) Conversation(target string, kind cmds.Kind) *Conversation {
	return &Conversation{client: c, target: target, kind: kind}
}

func (cv *Conversation) Kind() cmds.Kind    { return cv.kind }
func (cv *Conversation) ProtocolID() string { return ProtocolID }
func (cv *Conversation) Name() string       { return cv.target }
func (cv *Conversation) Client() *Client    { return cv.client }

// SendMessage sends rich text as plain PRIVMSG lines. Text starting with
// "/me " is sent as a CTCP ACTION.
func (cv *Conversation) SendMessage(rich string) error {
	text := markup.Strip(rich)
	if action, ok := strings.CutPrefix(text, "/me "); ok {
		return cv.sendAction(action)
	}
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			continue
		}
		if err := cv.client.Send("PRIVMSG", cv.target, line); err != nil {
			return err
		}
	}
	return nil
}

func (cv *Conversation) sendAction(text string) error {
	text = strings.ReplaceAll(text, "\n", " ")
	return cv.client.Send("PRIVMSG", cv.target, ctcpDelim+"ACTION "+text+ctcpDelim)
}

// WriteSystem reports rich text to the client's event sink.
func (cv *Conversation) WriteSystem(rich string) {
	cv.client.events(Event{Type: EventSystem, Target: cv.target, Text: markup.Strip(rich)})
}
