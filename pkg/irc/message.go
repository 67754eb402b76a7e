// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package irc is the IRC protocol plugin: it parses and formats protocol
// lines, dispatches incoming messages to a handler table and registers the
// IRC user commands (join, part, nick, ...) on a command registry.
//
// The package does no network I/O. A Client writes its lines to an
// io.Writer and is fed received lines through HandleLine.
package irc

import (
	"errors"
	"strings"
)

var (
	ErrEmptyMessage = errors.New("empty IRC message")
	ErrNoCommand    = errors.New("IRC message has no command")
	ErrInvalidParam = errors.New("invalid IRC parameter")
)

// Message is one IRC protocol line.
type Message struct {
	// Prefix is the origin without the leading colon, e.g. "nick!user@host".
	Prefix  string
	Command string
	// Params includes the trailing parameter, if any, as its last element.
	Params []string
}

// ParseMessage parses a single protocol line. A trailing CR LF is ignored,
// as are IRCv3 message tags. Commands are upper-cased.
func ParseMessage(line string) (*Message, error) {
	line = strings.TrimLeft(strings.TrimRight(line, "\r\n"), " ")
	if strings.HasPrefix(line, "@") {
		_, line, _ = strings.Cut(line, " ")
		line = strings.TrimLeft(line, " ")
	}
	if line == "" {
		return nil, ErrEmptyMessage
	}

	msg := &Message{}
	if strings.HasPrefix(line, ":") {
		var ok bool
		msg.Prefix, line, ok = strings.Cut(line[1:], " ")
		if !ok {
			return nil, ErrNoCommand
		}
		line = strings.TrimLeft(line, " ")
	}

	var rest string
	msg.Command, rest, _ = strings.Cut(line, " ")
	if msg.Command == "" || msg.Command[0] == '@' {
		return nil, ErrNoCommand
	}
	msg.Command = strings.ToUpper(msg.Command)

	for {
		rest = strings.TrimLeft(rest, " ")
		if rest == "" {
			break
		}
		if rest[0] == ':' {
			msg.Params = append(msg.Params, rest[1:])
			break
		}
		var param string
		param, rest, _ = strings.Cut(rest, " ")
		msg.Params = append(msg.Params, param)
	}
	return msg, nil
}

// Nick returns the nickname part of the prefix, or the whole prefix for
// server origins.
func (m *Message) Nick() string {
	nick, _, _ := strings.Cut(m.Prefix, "!")
	return nick
}

// Param returns the i-th parameter or "" if there are fewer.
func (m *Message) Param(i int) string {
	if i < len(m.Params) {
		return m.Params[i]
	}
	return ""
}

// String formats the message as a protocol line without CR LF. The last
// parameter is sent as a trailing parameter when it needs to be.
func (m *Message) String() string {
	var b strings.Builder
	if m.Prefix != "" {
		b.WriteByte(':')
		b.WriteString(m.Prefix)
		b.WriteByte(' ')
	}
	b.WriteString(m.Command)
	for i, p := range m.Params {
		b.WriteByte(' ')
		if i == len(m.Params)-1 && (p == "" || p[0] == ':' || strings.ContainsRune(p, ' ')) {
			b.WriteByte(':')
		}
		b.WriteString(p)
	}
	return b.String()
}

// validate checks that the message can be sent as a single line.
func (m *Message) validate() error {
	if m.Command == "" || strings.ContainsAny(m.Command, " \r\n\x00") {
		return ErrNoCommand
	}
	for i, p := range m.Params {
		if strings.ContainsAny(p, "\r\n\x00") {
			return ErrInvalidParam
		}
		last := i == len(m.Params)-1
		if !last && (p == "" || p[0] == ':' || strings.ContainsRune(p, ' ')) {
			return ErrInvalidParam
		}
	}
	return nil
}
