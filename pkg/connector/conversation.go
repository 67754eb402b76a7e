// Copyright 2024-2026 Aiku AI

package connector

import "github.com/aiku/chatcmd/pkg/cmds"

// Conversation is a conversation a front-end can type into.
type Conversation interface {
	cmds.Conversation
	// Name is a human readable name for the conversation.
	Name() string
	// SendMessage sends rich text to the other participants.
	SendMessage(rich string) error
	// WriteSystem shows rich text to the local user only, where the network
	// allows it.
	WriteSystem(rich string)
}
