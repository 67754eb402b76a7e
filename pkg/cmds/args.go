// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cmds

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aiku/chatcmd/pkg/markup"
)

// ArgSpec describes how the text after a command name is split into
// arguments. Each byte is one of the Arg* codes and yields one argument.
type ArgSpec string

// Argument codes.
const (
	// ArgWord takes the plain text up to the next space.
	ArgWord = 'w'
	// ArgRichWord takes the same span as ArgWord from the rich line.
	ArgRichWord = 'W'
	// ArgString takes all remaining plain text.
	ArgString = 's'
	// ArgRichString takes all remaining rich text.
	ArgRichString = 'S'
)

// Validate returns an error if the spec contains an unknown code.
func (a ArgSpec) Validate() error {
	for i := 0; i < len(a); i++ {
		switch a[i] {
		case ArgWord, ArgRichWord, ArgString, ArgRichString:
		default:
			return fmt.Errorf("invalid argument code %q at position %d", a[i], i)
		}
	}
	return nil
}

// Tokenize splits raw according to spec. Rich codes slice rich over the
// same character span the plain text occupies in raw, so rich must render
// to raw (see markup.Strip).
//
// The returned slice always has len(spec) entries; positions that could not
// be filled are "". ok is false if the input ran out before every code was
// served or if text remains after the last code.
func Tokenize(spec ArgSpec, raw, rich string) (args []string, ok bool) {
	args = make([]string, len(spec))
	cur := 0
	for i := 0; i < len(spec); i++ {
		if cur >= len(raw) {
			return args, false
		}
		switch spec[i] {
		case ArgWord, ArgRichWord:
			end, next := len(raw), len(raw)
			if idx := strings.IndexByte(raw[cur:], ' '); idx >= 0 {
				end = cur + idx
				next = end + 1
			}
			if spec[i] == ArgWord {
				args[i] = raw[cur:end]
			} else {
				args[i] = markup.Slice(rich, runeOffset(raw, cur), runeOffset(raw, end))
			}
			cur = next
		case ArgString:
			args[i] = raw[cur:]
			cur = len(raw)
		case ArgRichString:
			args[i] = markup.Slice(rich, runeOffset(raw, cur), -1)
			cur = len(raw)
		}
	}
	return args, cur >= len(raw)
}

func runeOffset(s string, byteOff int) int {
	return utf8.RuneCountInString(s[:byteOff])
}
