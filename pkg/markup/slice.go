// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package markup

import (
	"html"
	"strings"
)

// Slice returns the visible characters [x, y) of s with their markup. A
// negative y slices to the end. Tags that are open at x are reopened at the
// start of the result and tags still open at y are closed, so the result is
// balanced whenever s is.
func Slice(s string, x, y int) string {
	if x < 0 {
		x = 0
	}
	if y >= 0 && y <= x {
		return ""
	}

	var (
		b       strings.Builder
		open    tagStack
		pos     int
		started bool
	)
	for i := 0; i < len(s); {
		if y >= 0 && pos >= y {
			break
		}
		t := nextToken(s[i:])
		i += len(t.text)

		if pos >= x && !started {
			open.writeOpen(&b)
			started = true
		}
		if started && (!t.closing || open.opens(t)) {
			b.WriteString(t.text)
		}
		open.apply(t)
		if t.visible() {
			pos++
		}
	}
	if !started {
		return ""
	}
	open.writeClose(&b)
	return b.String()
}

// StripCommand removes the first word of s, the tags wrapping it and the
// single space that ends it. The space may be written as an entity such as
// "&#32;". Tags opened before that space and still open are kept in front of
// the remainder. If s has no space outside of tags the result is "".
func StripCommand(s string) string {
	var open tagStack
	for i := 0; i < len(s); {
		t := nextToken(s[i:])
		i += len(t.text)
		if t.tag {
			open.apply(t)
			continue
		}
		if t.text == " " || t.text[0] == '&' && html.UnescapeString(t.text) == " " {
			var b strings.Builder
			open.writeOpen(&b)
			b.WriteString(s[i:])
			return b.String()
		}
	}
	return ""
}

// TrimTextPrefix removes prefix from the start of the visible text of s,
// leaving any tags before it in place. s is returned unchanged if its text
// does not start with prefix.
func TrimTextPrefix(s, prefix string) string {
	for i := 0; i < len(s); {
		t := nextToken(s[i:])
		if !t.tag {
			if strings.HasPrefix(s[i:], prefix) {
				return s[:i] + s[i+len(prefix):]
			}
			return s
		}
		i += len(t.text)
	}
	return s
}
