// Copyright 2024-2026 Aiku AI

package main

import (
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"github.com/rs/zerolog"

	"github.com/aiku/chatcmd/pkg/cmds"
	"github.com/aiku/chatcmd/pkg/completion"
	"github.com/aiku/chatcmd/pkg/config"
	"github.com/aiku/chatcmd/pkg/connector"
	"github.com/aiku/chatcmd/pkg/irc"
	"github.com/aiku/chatcmd/pkg/markup"
)

// console is the interactive read loop.
type console struct {
	line        *liner.State
	historyFile string
	dispatcher  *connector.Dispatcher
	conv        connector.Conversation
	out         io.Writer
	log         zerolog.Logger
}

func newConsole(cfg *config.Config, reg *cmds.Registry, cache *completion.Cache, conv connector.Conversation, log zerolog.Logger) *console {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(l string) []string {
		return cache.CompleteLine(l, cfg.CommandPrefix)
	})

	c := &console{
		line:        line,
		historyFile: cfg.HistoryFile,
		dispatcher:  connector.NewDispatcher(reg, cfg.CommandPrefix, log),
		conv:        conv,
		out:         os.Stdout,
		log:         log,
	}
	c.loadHistory()
	return c
}

func (c *console) loadHistory() {
	if c.historyFile == "" {
		return
	}
	f, err := os.Open(c.historyFile)
	if err != nil {
		return
	}
	defer f.Close()
	if _, err = c.line.ReadHistory(f); err != nil {
		c.log.Warn().Err(err).Msg("Failed to read history")
	}
}

func (c *console) saveHistory() {
	if c.historyFile == "" {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to save history")
		return
	}
	defer f.Close()
	if _, err = c.line.WriteHistory(f); err != nil {
		c.log.Warn().Err(err).Msg("Failed to save history")
	}
}

// Close saves history and restores the terminal.
func (c *console) Close() {
	c.saveHistory()
	_ = c.line.Close()
}

// Run reads lines until EOF or Ctrl+C.
func (c *console) Run() error {
	prompt := c.conv.Name() + "> "
	for {
		input, err := c.line.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			_, _ = fmt.Fprintln(c.out)
			return nil
		} else if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		c.line.AppendHistory(input)
		handleInput(c.dispatcher, c.conv, input)
	}
}

// handleInput runs input as a command or, if it is not one, sends it.
func handleInput(d *connector.Dispatcher, conv connector.Conversation, input string) {
	if d.Handle(conv, input, "") {
		return
	}
	if err := conv.SendMessage(html.EscapeString(input)); err != nil {
		conv.WriteSystem(html.EscapeString(err.Error()))
	}
}

// localConversation echoes messages to the terminal.
type localConversation struct {
	out  io.Writer
	name string
	nick string
	kind cmds.Kind
}

var _ connector.Conversation = (*localConversation)(nil)

const localProtocolID = config.ProtocolConsole

func newLocalConversation(out io.Writer, name, nick string, kind cmds.Kind) *localConversation {
	return &localConversation{out: out, name: name, nick: nick, kind: kind}
}

func (l *localConversation) Kind() cmds.Kind    { return l.kind }
func (l *localConversation) ProtocolID() string { return localProtocolID }
func (l *localConversation) Name() string       { return l.name }

func (l *localConversation) SendMessage(rich string) error {
	text := markup.Strip(rich)
	if action, ok := strings.CutPrefix(text, "/me "); ok {
		_, err := fmt.Fprintf(l.out, "* %s %s\n", l.nick, action)
		return err
	}
	_, err := fmt.Fprintf(l.out, "<%s> %s\n", l.nick, text)
	return err
}

func (l *localConversation) WriteSystem(rich string) {
	for _, line := range strings.Split(markup.Strip(rich), "\n") {
		_, _ = fmt.Fprintf(l.out, "*** %s\n", line)
	}
}

func printIRCEvent(out io.Writer) func(irc.Event) {
	return func(e irc.Event) {
		switch e.Type {
		case irc.EventMessage, irc.EventNotice:
			_, _ = fmt.Fprintf(out, "<%s> %s\n", e.From, e.Text)
		case irc.EventAction:
			_, _ = fmt.Fprintf(out, "* %s %s\n", e.From, e.Text)
		default:
			_, _ = fmt.Fprintf(out, "*** %s\n", e.Text)
		}
	}
}
