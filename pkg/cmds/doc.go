// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package cmds implements the chat command registry and its argument
// tokenizer.
//
// Plugins and front-ends register commands on a [Registry] at load time. A
// front-end that receives a typed line beginning with its command prefix
// strips the prefix and hands the line to [Registry.Do] together with the
// markup-bearing ("rich") form of the same line.
//
// # Dispatch
//
// Commands sharing a name are tried in descending priority order, first
// registered first among equal priorities. Each candidate is filtered by
// conversation kind ([FlagIM], [FlagChat]) and by protocol, then the rest of
// the line is split according to its [ArgSpec]. The first handler that does
// not return [ErrContinue] decides the outcome.
//
// The returned [Status] tells the caller why nothing ran: no command of that
// name, the wrong conversation kind, the wrong protocol or unparsable
// arguments. Callers render these; the registry never writes output.
//
// # Concurrency
//
// A Registry is not safe for concurrent use. It is meant to be driven from a
// single event loop; handlers run synchronously on that loop and may register
// or unregister commands, including themselves, while a dispatch is running.
package cmds
