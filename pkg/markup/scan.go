// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package markup handles the HTML subset used for rich chat text: slicing it
// by visible character offsets, removing a leading command word, and
// converting between it, plain text and chat markdown.
//
// A visible character is one rune of text, one entity such as "&amp;", or a
// <br> tag (which renders as a newline). All other tags have no width. This
// matches the text Strip produces, so offsets computed on the plain form of
// a line can be applied to its rich form.
package markup

import (
	"strings"
	"unicode/utf8"
)

// token is one lexical unit of a rich string.
type token struct {
	text string
	// tag is true for anything enclosed in < >.
	tag bool
	// name is the lower-case tag name, without a leading slash.
	name    string
	closing bool
	// void tags never have a closing counterpart.
	void bool
}

// visible reports whether the token occupies a character position.
func (t token) visible() bool {
	return !t.tag || t.name == "br"
}

var voidTags = map[string]bool{
	"br":  true,
	"hr":  true,
	"img": true,
}

// nextToken returns the token starting at s[0]. s must not be empty.
func nextToken(s string) token {
	switch s[0] {
	case '<':
		end := strings.IndexByte(s, '>')
		if end < 0 {
			// A lone '<' is text.
			return token{text: s[:1]}
		}
		return parseTag(s[:end+1])
	case '&':
		if end := strings.IndexByte(s, ';'); end > 1 && end <= 10 && isEntityName(s[1:end]) {
			return token{text: s[:end+1]}
		}
	}
	_, size := utf8.DecodeRuneInString(s)
	return token{text: s[:size]}
}

func parseTag(text string) token {
	t := token{text: text, tag: true}
	body := strings.TrimSpace(text[1 : len(text)-1])
	if strings.HasPrefix(body, "!") || strings.HasPrefix(body, "?") {
		// Comments and declarations have no name.
		t.void = true
		return t
	}
	if strings.HasPrefix(body, "/") {
		t.closing = true
		body = body[1:]
	}
	selfClosing := strings.HasSuffix(body, "/")
	body = strings.TrimSuffix(body, "/")
	if idx := strings.IndexAny(body, " \t\n\r"); idx >= 0 {
		body = body[:idx]
	}
	t.name = strings.ToLower(body)
	t.void = selfClosing || voidTags[t.name]
	return t
}

func isEntityName(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '#' {
		s = s[1:]
		if s == "" {
			return false
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

// tagStack tracks open, non-void tags.
type tagStack []token

func (st *tagStack) apply(t token) {
	if !t.tag || t.void || t.name == "" {
		return
	}
	if !t.closing {
		*st = append(*st, t)
		return
	}
	for i := len(*st) - 1; i >= 0; i-- {
		if (*st)[i].name == t.name {
			*st = append((*st)[:i], (*st)[i+1:]...)
			return
		}
	}
}

// opens reports whether a closing tag t has a matching open tag.
func (st tagStack) opens(t token) bool {
	for i := len(st) - 1; i >= 0; i-- {
		if st[i].name == t.name {
			return true
		}
	}
	return false
}

func (st tagStack) writeOpen(b *strings.Builder) {
	for _, t := range st {
		b.WriteString(t.text)
	}
}

func (st tagStack) writeClose(b *strings.Builder) {
	for i := len(st) - 1; i >= 0; i-- {
		b.WriteString("</")
		b.WriteString(st[i].name)
		b.WriteString(">")
	}
}
