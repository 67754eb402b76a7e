// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package builtin provides the commands every front-end offers regardless of
// protocol: help, say and me.
package builtin

import (
	"errors"
	"strings"

	"github.com/aiku/chatcmd/pkg/cmds"
)

// Writer is what the built-in commands need from a conversation besides the
// registry's view of it.
type Writer interface {
	// SendMessage sends rich text to the conversation.
	SendMessage(rich string) error
	// WriteSystem shows rich text locally without sending it.
	WriteSystem(rich string)
}

// ErrNoWriter is returned by a built-in command run in a conversation that
// does not implement Writer.
var ErrNoWriter = errors.New("this conversation cannot send or show messages")

// ErrNoRegistry is returned by help when it was registered without the
// registry it lists.
var ErrNoRegistry = errors.New("help command has no registry")

// Plugin registers the built-in commands.
type Plugin struct {
	ids []cmds.ID
}

// Load registers the commands on reg.
func (p *Plugin) Load(reg *cmds.Registry) {
	both := cmds.FlagIM | cmds.FlagChat
	p.ids = append(p.ids,
		reg.Register(cmds.Command{
			Name:     "help",
			Args:     "w",
			Priority: cmds.PriorityDefault,
			Flags:    both | cmds.FlagAllowWrongArgs,
			Help:     "help &lt;command&gt;:  Help on a specific command.",
			Handler:  help,
			Data:     reg,
		}),
		reg.Register(cmds.Command{
			Name:     "say",
			Args:     "S",
			Priority: cmds.PriorityDefault,
			Flags:    both,
			Help:     "say &lt;message&gt;:  Send a message normally as if you weren't using a command.",
			Handler:  say,
		}),
		reg.Register(cmds.Command{
			Name:     "me",
			Args:     "S",
			Priority: cmds.PriorityDefault,
			Flags:    both,
			Help:     "me &lt;action&gt;:  Send an IRC style action to a buddy or chat.",
			Handler:  me,
		}),
	)
}

// Unload removes every command registered by Load.
func (p *Plugin) Unload(reg *cmds.Registry) {
	for _, id := range p.ids {
		reg.Unregister(id)
	}
	p.ids = nil
}

func writer(inv *cmds.Invocation) (Writer, error) {
	w, ok := inv.Conversation.(Writer)
	if !ok {
		return nil, ErrNoWriter
	}
	return w, nil
}

func help(inv *cmds.Invocation) error {
	w, err := writer(inv)
	if err != nil {
		return err
	}
	reg, ok := inv.Data.(*cmds.Registry)
	if !ok || reg == nil {
		return ErrNoRegistry
	}

	if inv.Args[0] == "" {
		var b strings.Builder
		b.WriteString(`Use "/help &lt;command&gt;" for help with a specific command.<br/>`)
		b.WriteString("The following commands are available in this context:<br/>")
		b.WriteString(strings.Join(uniq(reg.List(inv.Conversation)), ", "))
		w.WriteSystem(b.String())
		return nil
	}

	texts := reg.Help(inv.Conversation, inv.Args[0])
	if len(texts) == 0 {
		w.WriteSystem("No such command (in this context).")
		return nil
	}
	w.WriteSystem(strings.Join(texts, "<br/>"))
	return nil
}

func say(inv *cmds.Invocation) error {
	w, err := writer(inv)
	if err != nil {
		return err
	}
	return w.SendMessage(inv.Args[0])
}

func me(inv *cmds.Invocation) error {
	w, err := writer(inv)
	if err != nil {
		return err
	}
	return w.SendMessage("/me " + inv.Args[0])
}

// uniq drops adjacent duplicates from a sorted slice.
func uniq(names []string) []string {
	out := names[:0:0]
	for i, n := range names {
		if i == 0 || n != names[i-1] {
			out = append(out, n)
		}
	}
	return out
}
