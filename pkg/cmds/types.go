// Copyright 2024-2026 Aiku AI

package cmds

import (
	"errors"
	"fmt"
)

// ID identifies a registered command. The zero ID is never assigned.
type ID uint32

// Kind is the kind of a conversation as seen by the command filters.
type Kind int

const (
	KindIM Kind = iota + 1
	KindChat
)

func (k Kind) String() string {
	switch k {
	case KindIM:
		return "im"
	case KindChat:
		return "chat"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Flag controls where a command applies and how strictly its arguments are
// parsed.
type Flag uint8

const (
	// FlagIM allows the command in one-on-one conversations.
	FlagIM Flag = 1 << iota
	// FlagChat allows the command in multi-user conversations.
	FlagChat
	// FlagAllowWrongArgs invokes the handler even when the arguments do not
	// match the command's ArgSpec. Missing arguments are passed as "".
	FlagAllowWrongArgs
)

// Has reports whether all bits of other are set in f.
func (f Flag) Has(other Flag) bool {
	return f&other == other
}

// allows reports whether the flags permit a conversation of the given kind.
func (f Flag) allows(k Kind) bool {
	switch k {
	case KindIM:
		return f.Has(FlagIM)
	case KindChat:
		return f.Has(FlagChat)
	default:
		return false
	}
}

// Priority tiers. Any int is a valid priority; these are the values plugins
// conventionally use.
const (
	PriorityVeryLow  = -1000
	PriorityLow      = 0
	PriorityDefault  = 1000
	PriorityProtocol = 2000
	PriorityPlugin   = 3000
	PriorityAlias    = 4000
	PriorityHigh     = 5000
	PriorityVeryHigh = 6000
)

// Conversation is the view of a conversation the registry needs to filter
// commands.
type Conversation interface {
	Kind() Kind
	// ProtocolID returns the protocol identifier of the conversation's
	// account, e.g. "prpl-irc".
	ProtocolID() string
}

// Invocation carries everything a handler receives for one call.
type Invocation struct {
	Conversation Conversation
	// Command is the name the command was invoked as.
	Command string
	// Args has exactly one entry per code of the command's ArgSpec.
	Args []string
	// Data is the opaque value given at registration.
	Data any
}

// Handler runs a command. Returning nil reports success, returning an error
// that matches ErrContinue passes the line on to the next command with the
// same name, and any other error reports failure with err.Error() as the
// message shown to the user.
type Handler func(inv *Invocation) error

// ErrContinue is returned by a handler that declines a line so that a lower
// priority command of the same name can handle it. Any message wrapped
// around it is discarded.
var ErrContinue = errors.New("continue with next command")

// Command describes a command to register.
type Command struct {
	Name     string
	Args     ArgSpec
	Priority int
	Flags    Flag
	// ProtocolID restricts the command to conversations whose ProtocolID
	// matches. Empty means any protocol.
	ProtocolID string
	Handler    Handler
	Help       string
	Data       any
}

// Info is a read-only copy of a registered command's description.
type Info struct {
	ID         ID
	Name       string
	Args       ArgSpec
	Priority   int
	Flags      Flag
	ProtocolID string
	Help       string
}

// Status is the outcome of Registry.Do.
type Status int

const (
	StatusOK Status = iota
	StatusFailed
	StatusNotFound
	StatusWrongArgs
	StatusWrongProtocol
	StatusWrongType
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	case StatusNotFound:
		return "not found"
	case StatusWrongArgs:
		return "wrong arguments"
	case StatusWrongProtocol:
		return "wrong protocol"
	case StatusWrongType:
		return "wrong conversation type"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Observer is notified synchronously whenever the set of registered
// commands changes.
type Observer interface {
	CommandAdded(name string, priority int, flags Flag)
	CommandRemoved(name string)
}
