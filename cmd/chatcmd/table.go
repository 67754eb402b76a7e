// Copyright 2024-2026 Aiku AI

package main

import (
	"errors"
	"fmt"
	"html"
	"io"
	"slices"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/aiku/chatcmd/pkg/builtin"
	"github.com/aiku/chatcmd/pkg/cmds"
	"github.com/aiku/chatcmd/pkg/markup"
)

// tableWidth is the width command tables are truncated to.
const tableWidth = 80

// listCommands is the handler of the commands command.
func listCommands(inv *cmds.Invocation) error {
	w, ok := inv.Conversation.(builtin.Writer)
	if !ok {
		return builtin.ErrNoWriter
	}
	reg, ok := inv.Data.(*cmds.Registry)
	if !ok {
		return errors.New("commands: no registry")
	}
	var b strings.Builder
	writeCommandTable(&b, reg, inv.Conversation, tableWidth)
	table := strings.TrimSuffix(b.String(), "\n")
	w.WriteSystem(strings.ReplaceAll(html.EscapeString(table), "\n", "<br>"))
	return nil
}

// writeCommandTable writes one line per command usable in conv: the name
// padded to a common column width, then its help texts shortened to fit
// width.
func writeCommandTable(w io.Writer, reg *cmds.Registry, conv cmds.Conversation, width int) {
	names := slices.Compact(reg.List(conv))
	nameWidth := 0
	for _, name := range names {
		nameWidth = max(nameWidth, runewidth.StringWidth(name))
	}
	for _, name := range names {
		help := strings.ReplaceAll(markup.Strip(strings.Join(reg.Help(conv, name), " | ")), "\n", " ")
		help = runewidth.Truncate(help, max(width-nameWidth-2, 0), "…")
		line := runewidth.FillRight(name, nameWidth) + "  " + help
		_, _ = fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}
