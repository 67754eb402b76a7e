// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package connector connects command registries to chat networks.
//
// A [Dispatcher] takes lines typed by the local user, recognises the
// command prefix and runs the line through a [cmds.Registry], reporting
// unknown commands, argument errors and failures back into the
// conversation. Lines that are not commands are left for the caller to
// send.
//
// # Conversations
//
// [MatrixRoom] and [MattermostChannel] adapt a Matrix room and a
// Mattermost channel to [Conversation]. Each converts the network's
// message format to the rich text the registry works on: Matrix carries
// HTML already, Mattermost markdown goes through [markup.FromMarkdown].
//
// # Echo Prevention
//
// Only messages typed by the local user are treated as commands. Anything
// an adapter sends is skipped when it comes back from the network, so a
// command's output can never run as another command. [MatrixRoom] keeps
// the IDs of the events it sent; [MattermostChannel] tags every post with
// [SentProp].
package connector
