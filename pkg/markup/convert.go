// Copyright 2024-2026 Aiku AI

package markup

import (
	"html"
	"regexp"
	"strconv"
	"strings"
)

// Strip returns the plain text of s: tags removed, <br> turned into a
// newline and entities unescaped.
func Strip(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		t := nextToken(s[i:])
		i += len(t.text)
		switch {
		case t.tag && t.name == "br":
			b.WriteByte('\n')
		case t.tag:
		default:
			b.WriteString(t.text)
		}
	}
	return html.UnescapeString(b.String())
}

var (
	mdCodeRe   = regexp.MustCompile("`([^`]+)`")
	mdBoldRe   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	mdItalicRe = regexp.MustCompile(`(^|[\s(])_(.+?)_($|[\s).,!?:;])`)
	mdStrikeRe = regexp.MustCompile(`~~(.+?)~~`)
	mdLinkRe   = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)

	htmlStrongRe = regexp.MustCompile(`(?is)<(?:strong|b)>(.*?)</(?:strong|b)>`)
	htmlEmRe     = regexp.MustCompile(`(?is)<(?:em|i)>(.*?)</(?:em|i)>`)
	htmlDelRe    = regexp.MustCompile(`(?is)<(?:del|s|strike)>(.*?)</(?:del|s|strike)>`)
	htmlCodeRe   = regexp.MustCompile(`(?is)<code>(.*?)</code>`)
	htmlLinkRe   = regexp.MustCompile(`(?is)<a\s+href="([^"]+)"[^>]*>(.*?)</a>`)
	htmlBrRe     = regexp.MustCompile(`(?i)<br\s*/?>`)
)

func codePlaceholder(i int) string {
	return "\x00CODE" + strconv.Itoa(i) + "\x00"
}

// safeURL reports whether a link target may be rendered as a link.
func safeURL(href string) bool {
	lower := strings.ToLower(strings.TrimSpace(href))
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "mailto:")
}

// FromMarkdown converts the inline chat markdown subset (bold, italic,
// strikethrough, code and links) of a single line to rich text. All other
// characters are escaped.
func FromMarkdown(text string) string {
	if text == "" {
		return ""
	}
	// Code spans are swapped out first so nothing inside them is formatted.
	var spans []string
	escaped := mdCodeRe.ReplaceAllStringFunc(html.EscapeString(text), func(match string) string {
		spans = append(spans, "<code>"+match[1:len(match)-1]+"</code>")
		return codePlaceholder(len(spans) - 1)
	})

	escaped = mdBoldRe.ReplaceAllString(escaped, "<strong>$1</strong>")
	escaped = mdItalicRe.ReplaceAllString(escaped, "$1<em>$2</em>$3")
	escaped = mdStrikeRe.ReplaceAllString(escaped, "<del>$1</del>")
	escaped = mdLinkRe.ReplaceAllStringFunc(escaped, func(match string) string {
		parts := mdLinkRe.FindStringSubmatch(match)
		if !safeURL(html.UnescapeString(parts[2])) {
			return parts[1]
		}
		return `<a href="` + parts[2] + `">` + parts[1] + `</a>`
	})
	escaped = strings.ReplaceAll(escaped, "\n", "<br/>")

	for i, span := range spans {
		escaped = strings.Replace(escaped, codePlaceholder(i), span, 1)
	}
	return escaped
}

// ToMarkdown converts rich text to chat markdown for networks that do not
// accept HTML. Unknown tags are dropped.
func ToMarkdown(s string) string {
	if s == "" {
		return ""
	}
	s = htmlCodeRe.ReplaceAllString(s, "`$1`")
	s = htmlStrongRe.ReplaceAllString(s, "**$1**")
	s = htmlEmRe.ReplaceAllString(s, "_${1}_")
	s = htmlDelRe.ReplaceAllString(s, "~~$1~~")
	s = htmlLinkRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := htmlLinkRe.FindStringSubmatch(match)
		if !safeURL(html.UnescapeString(parts[1])) {
			return parts[2]
		}
		return "[" + parts[2] + "](" + parts[1] + ")"
	})
	s = htmlBrRe.ReplaceAllString(s, "\n")
	return Strip(s)
}
