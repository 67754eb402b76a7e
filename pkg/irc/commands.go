// Copyright 2024-2026 Aiku AI

package irc

import (
	"errors"
	"strings"

	"github.com/aiku/chatcmd/pkg/cmds"
	"github.com/aiku/chatcmd/pkg/markup"
)

var (
	// ErrNotIRC is returned by an IRC command invoked in a conversation that
	// does not belong to a Client.
	ErrNotIRC = errors.New("not an IRC conversation")

	errNeedChannel = errors.New("you must specify a channel to join")
	errNeedNick    = errors.New("you must specify a nick to kick")
)

// Plugin registers the IRC user commands.
type Plugin struct {
	ids []cmds.ID
}

type ircCommand struct {
	name  string
	args  cmds.ArgSpec
	flags cmds.Flag
	help  string
	fn    func(cv *Conversation, args []string) error
}

const both = cmds.FlagIM | cmds.FlagChat

var ircCommands = []ircCommand{
	{"join", "ws", both | cmds.FlagAllowWrongArgs,
		"join &lt;room1&gt;[,room2][,...] [key1[,key2][,...]]:  Enter one or more channels, optionally providing a channel key for each if needed.",
		cmdJoin},
	{"part", "s", cmds.FlagChat | cmds.FlagAllowWrongArgs,
		"part [message]:  Leave the current channel, with an optional message.",
		cmdPart},
	{"nick", "w", both,
		"nick &lt;new nickname&gt;:  Change your nickname.",
		cmdNick},
	{"msg", "ws", both,
		"msg &lt;nick&gt; &lt;message&gt;:  Send a private message to a user (as opposed to a channel).",
		cmdMsg},
	{"topic", "s", cmds.FlagChat | cmds.FlagAllowWrongArgs,
		"topic [new topic]:  View or change the channel topic.",
		cmdTopic},
	{"quote", "s", both,
		"quote [...]:  Send a raw command to the server.",
		cmdQuote},
	{"whois", "w", both,
		"whois &lt;nick&gt;:  Get information on a user.",
		cmdWhois},
	{"kick", "ws", cmds.FlagChat | cmds.FlagAllowWrongArgs,
		"kick &lt;nick&gt; [message]:  Remove someone from a channel. You must be a channel operator to do this.",
		cmdKick},
	{"mode", "s", both | cmds.FlagAllowWrongArgs,
		"mode &lt;+|-&gt;&lt;A-Za-z&gt; [nick|channel]:  Set or unset a channel or user mode.",
		cmdMode},
	{"me", "S", both,
		"me &lt;action to perform&gt;:  Perform an action.",
		cmdMe},
}

// Load registers the commands on reg at protocol priority, restricted to
// IRC conversations.
func (p *Plugin) Load(reg *cmds.Registry) {
	for _, c := range ircCommands {
		fn := c.fn
		p.ids = append(p.ids, reg.Register(cmds.Command{
			Name:       c.name,
			Args:       c.args,
			Priority:   cmds.PriorityProtocol,
			Flags:      c.flags,
			ProtocolID: ProtocolID,
			Help:       c.help,
			Handler: func(inv *cmds.Invocation) error {
				cv, ok := inv.Conversation.(*Conversation)
				if !ok {
					return ErrNotIRC
				}
				return fn(cv, inv.Args)
			},
		}))
	}
}

// Unload removes every command registered by Load.
func (p *Plugin) Unload(reg *cmds.Registry) {
	for _, id := range p.ids {
		reg.Unregister(id)
	}
	p.ids = nil
}

func cmdJoin(cv *Conversation, args []string) error {
	if args[0] == "" {
		return errNeedChannel
	}
	if args[1] != "" {
		return cv.client.Send("JOIN", args[0], args[1])
	}
	return cv.client.Send("JOIN", args[0])
}

func cmdPart(cv *Conversation, args []string) error {
	if args[0] != "" {
		return cv.client.Send("PART", cv.target, args[0])
	}
	return cv.client.Send("PART", cv.target)
}

func cmdNick(cv *Conversation, args []string) error {
	return cv.client.Send("NICK", args[0])
}

func cmdMsg(cv *Conversation, args []string) error {
	return cv.client.Send("PRIVMSG", args[0], args[1])
}

func cmdTopic(cv *Conversation, args []string) error {
	if args[0] == "" {
		return cv.client.Send("TOPIC", cv.target)
	}
	return cv.client.Send("TOPIC", cv.target, args[0])
}

func cmdQuote(cv *Conversation, args []string) error {
	return cv.client.SendRaw(args[0])
}

func cmdWhois(cv *Conversation, args []string) error {
	return cv.client.Send("WHOIS", args[0])
}

func cmdKick(cv *Conversation, args []string) error {
	if args[0] == "" {
		return errNeedNick
	}
	if args[1] != "" {
		return cv.client.Send("KICK", cv.target, args[0], args[1])
	}
	return cv.client.Send("KICK", cv.target, args[0])
}

func cmdMode(cv *Conversation, args []string) error {
	params := append([]string{cv.target}, strings.Fields(args[0])...)
	return cv.client.Send("MODE", params...)
}

func cmdMe(cv *Conversation, args []string) error {
	return cv.sendAction(markup.Strip(args[0]))
}
