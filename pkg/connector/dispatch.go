// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"html"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aiku/chatcmd/pkg/cmds"
	"github.com/aiku/chatcmd/pkg/markup"
)

// DefaultPrefix is the command prefix used when none is configured.
const DefaultPrefix = "/"

// User-visible diagnostics for dispatch outcomes.
const (
	MsgUnknownCommand = "Unknown command."
	MsgWrongArgs      = "Syntax error:  You typed the wrong number of arguments to that command."
	MsgWrongProtocol  = "That command doesn't work on this protocol."
	MsgChatOnly       = "That command only works in chats, not IMs."
	MsgIMOnly         = "That command only works in IMs, not chats."
	MsgCommandFailed  = "Command failed."
)

// Dispatcher turns prefixed input lines into registry calls and reports
// the outcome in the conversation.
type Dispatcher struct {
	Registry *cmds.Registry
	Prefix   string

	log zerolog.Logger
}

// NewDispatcher returns a dispatcher for reg. An empty prefix means
// DefaultPrefix.
func NewDispatcher(reg *cmds.Registry, prefix string, log zerolog.Logger) *Dispatcher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Dispatcher{
		Registry: reg,
		Prefix:   prefix,
		log:      log.With().Str("component", "dispatch").Logger(),
	}
}

// Handle processes one line typed into conv. raw is the plain text and
// rich the same line with markup ("" if it has none). It reports whether
// the line was consumed; false means the caller should send it as an
// ordinary message.
//
// A doubled prefix escapes it: "//foo" is sent as the message "/foo".
func (d *Dispatcher) Handle(conv Conversation, raw, rich string) bool {
	if !strings.HasPrefix(raw, d.Prefix) {
		return false
	}
	if rich == "" {
		rich = html.EscapeString(raw)
	}
	line := raw[len(d.Prefix):]
	richLine := markup.TrimTextPrefix(rich, d.Prefix)

	if strings.HasPrefix(line, d.Prefix) {
		if err := conv.SendMessage(richLine); err != nil {
			d.log.Err(err).Str("conversation", conv.Name()).Msg("Failed to send escaped message")
			conv.WriteSystem(html.EscapeString(err.Error()))
		}
		return true
	}

	status, err := d.Registry.Do(conv, line, richLine)
	switch status {
	case cmds.StatusOK:
	case cmds.StatusNotFound:
		word, _, _ := strings.Cut(line, " ")
		if strings.Contains(word, d.Prefix) {
			// Looks like a path, not a command.
			return false
		}
		conv.WriteSystem(MsgUnknownCommand)
	case cmds.StatusWrongArgs:
		conv.WriteSystem(MsgWrongArgs)
	case cmds.StatusWrongProtocol:
		conv.WriteSystem(MsgWrongProtocol)
	case cmds.StatusWrongType:
		if conv.Kind() == cmds.KindIM {
			conv.WriteSystem(MsgChatOnly)
		} else {
			conv.WriteSystem(MsgIMOnly)
		}
	case cmds.StatusFailed:
		msg := MsgCommandFailed
		if err != nil && err.Error() != "" {
			msg = html.EscapeString(err.Error())
		}
		conv.WriteSystem(msg)
	}
	return true
}
