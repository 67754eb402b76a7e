// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cmds

import (
	"errors"
	"fmt"
	"html"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/aiku/chatcmd/pkg/markup"
)

// command is the registry's own record of a registration.
type command struct {
	Command
	id      ID
	removed bool
}

func (c *command) info() Info {
	return Info{
		ID:         c.id,
		Name:       c.Name,
		Args:       c.Args,
		Priority:   c.Priority,
		Flags:      c.Flags,
		ProtocolID: c.ProtocolID,
		Help:       c.Help,
	}
}

// applies reports whether the command may run in conv, ignoring its name.
// A nil conversation matches everything.
func (c *command) applies(conv Conversation) bool {
	if conv == nil {
		return true
	}
	if !c.Flags.allows(conv.Kind()) {
		return false
	}
	return c.ProtocolID == "" || c.ProtocolID == conv.ProtocolID()
}

// Registry holds registered commands ordered by descending priority.
type Registry struct {
	commands  []*command
	nextID    ID
	observers []*observerEntry
	log       zerolog.Logger
}

// observerEntry boxes an Observer so the remove func can find it by pointer.
type observerEntry struct {
	Observer
}

// NewRegistry creates an empty registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		nextID: 1,
		log:    log.With().Str("component", "cmds").Logger(),
	}
}

// AddObserver subscribes o to command added/removed notifications. The
// returned function unsubscribes it.
func (r *Registry) AddObserver(o Observer) (remove func()) {
	entry := &observerEntry{Observer: o}
	r.observers = append(r.observers, entry)
	return func() {
		r.observers = slices.DeleteFunc(r.observers, func(e *observerEntry) bool {
			return e == entry
		})
	}
}

// Register adds a command and returns its ID.
//
// Register panics if the name is empty or contains a space, the handler is
// nil, the argument spec is invalid, or the flags allow neither IMs nor
// chats. These are programming errors in the registering plugin.
func (r *Registry) Register(c Command) ID {
	if c.Name == "" || strings.ContainsRune(c.Name, ' ') {
		panic(fmt.Sprintf("cmds: invalid command name %q", c.Name))
	}
	if c.Handler == nil {
		panic(fmt.Sprintf("cmds: command %q registered without a handler", c.Name))
	}
	if err := c.Args.Validate(); err != nil {
		panic(fmt.Sprintf("cmds: command %q: %v", c.Name, err))
	}
	if c.Flags&(FlagIM|FlagChat) == 0 {
		panic(fmt.Sprintf("cmds: command %q allows neither IMs nor chats", c.Name))
	}

	rec := &command{Command: c, id: r.nextID}
	r.nextID++

	// Insert after every command of equal or higher priority so that equal
	// priorities keep registration order.
	idx := sort.Search(len(r.commands), func(i int) bool {
		return r.commands[i].Priority < c.Priority
	})
	r.commands = slices.Insert(r.commands, idx, rec)

	r.log.Debug().
		Uint32("cmd_id", uint32(rec.id)).
		Str("name", c.Name).
		Int("priority", c.Priority).
		Str("protocol", c.ProtocolID).
		Msg("Registered command")

	for _, o := range slices.Clone(r.observers) {
		o.CommandAdded(c.Name, c.Priority, c.Flags)
	}
	return rec.id
}

// Unregister removes the command with the given ID. Unknown IDs are ignored.
func (r *Registry) Unregister(id ID) {
	idx := slices.IndexFunc(r.commands, func(c *command) bool {
		return c.id == id
	})
	if idx < 0 {
		return
	}
	rec := r.commands[idx]
	rec.removed = true
	r.commands = slices.Delete(r.commands, idx, idx+1)

	r.log.Debug().
		Uint32("cmd_id", uint32(id)).
		Str("name", rec.Name).
		Msg("Unregistered command")

	for _, o := range slices.Clone(r.observers) {
		o.CommandRemoved(rec.Name)
	}
}

// Lookup returns the description of a registered command.
func (r *Registry) Lookup(id ID) (Info, bool) {
	for _, c := range r.commands {
		if c.id == id {
			return c.info(), true
		}
	}
	return Info{}, false
}

// Do runs the command line raw in conv. raw is the plain text with the
// command prefix already removed, e.g. "msg alice hi"; rich is the same
// line with markup, or "" if there is none.
//
// When the status is StatusFailed the returned error is the one the handler
// returned. It is nil for every other status.
func (r *Registry) Do(conv Conversation, raw, rich string) (Status, error) {
	name, rest, hasRest := strings.Cut(raw, " ")
	if rich == "" {
		rich = html.EscapeString(raw)
	}
	// Cut rich at the same visible offset as raw so argument offsets line up.
	var richRest string
	if hasRest {
		richRest = markup.Slice(rich, utf8.RuneCountInString(name)+1, -1)
	}

	var kind Kind
	var protocol string
	if conv != nil {
		kind = conv.Kind()
		protocol = conv.ProtocolID()
	}

	// Handlers may change the registry, so work on a snapshot and skip
	// entries that get removed on the way.
	var candidates []*command
	for _, c := range r.commands {
		if c.Name == name {
			candidates = append(candidates, c)
		}
	}

	var (
		rightType, rightProtocol, tried bool
		err                             error
	)
	for _, c := range candidates {
		if c.removed {
			continue
		}
		if !c.Flags.allows(kind) {
			continue
		}
		rightType = true
		if c.ProtocolID != "" && c.ProtocolID != protocol {
			continue
		}
		rightProtocol = true

		args, ok := Tokenize(c.Args, rest, richRest)
		if !ok && !c.Flags.Has(FlagAllowWrongArgs) {
			continue
		}
		tried = true

		err = c.Handler(&Invocation{
			Conversation: conv,
			Command:      name,
			Args:         args,
			Data:         c.Data,
		})
		if errors.Is(err, ErrContinue) {
			r.log.Trace().
				Uint32("cmd_id", uint32(c.id)).
				Str("name", name).
				Msg("Command handler passed, trying next")
			continue
		}
		break
	}

	status := StatusOK
	switch {
	case len(candidates) == 0:
		status = StatusNotFound
	case !rightType:
		status = StatusWrongType
	case !rightProtocol:
		status = StatusWrongProtocol
	case !tried:
		status = StatusWrongArgs
	case errors.Is(err, ErrContinue):
		status = StatusNotFound
	case err != nil:
		status = StatusFailed
	}
	r.log.Debug().
		Str("name", name).
		Stringer("kind", kind).
		Str("protocol", protocol).
		Stringer("status", status).
		Msg("Dispatched command")

	if status != StatusFailed {
		return status, nil
	}
	return status, err
}

// Execute runs one specific command with raw as its argument text,
// bypassing name lookup and the protocol filter. It reports whether the
// handler succeeded. Declined, failed, wrong kind and unparsable arguments
// all report false.
func (r *Registry) Execute(id ID, conv Conversation, raw string) bool {
	var rec *command
	for _, c := range r.commands {
		if c.id == id {
			rec = c
			break
		}
	}
	if rec == nil || conv == nil || !rec.Flags.allows(conv.Kind()) {
		return false
	}
	args, ok := Tokenize(rec.Args, raw, raw)
	if !ok && !rec.Flags.Has(FlagAllowWrongArgs) {
		return false
	}
	err := rec.Handler(&Invocation{
		Conversation: conv,
		Command:      rec.Name,
		Args:         args,
		Data:         rec.Data,
	})
	if err != nil && !errors.Is(err, ErrContinue) {
		r.log.Debug().Err(err).
			Uint32("cmd_id", uint32(id)).
			Str("name", rec.Name).
			Msg("Executed command failed")
	}
	return err == nil
}

// List returns the sorted names of the commands usable in conv, or of all
// commands if conv is nil. A name registered several times is listed once
// per registration.
func (r *Registry) List(conv Conversation) []string {
	var names []string
	for _, c := range r.commands {
		if c.applies(conv) {
			names = append(names, c.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Help returns the sorted help texts of the commands usable in conv (all
// commands if conv is nil), restricted to those called name unless name is
// empty.
func (r *Registry) Help(conv Conversation, name string) []string {
	var texts []string
	for _, c := range r.commands {
		if name != "" && c.Name != name {
			continue
		}
		if c.applies(conv) {
			texts = append(texts, c.Help)
		}
	}
	sort.Strings(texts)
	return texts
}
