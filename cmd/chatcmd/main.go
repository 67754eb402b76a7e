// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Command chatcmd is an interactive console for chat commands. Lines
// starting with the command prefix run through the command registry with
// the built-in and IRC commands loaded; other lines are sent to the
// configured conversation.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	flag "maunium.net/go/mauflag"
	"maunium.net/go/mautrix/id"

	"github.com/aiku/chatcmd/pkg/builtin"
	"github.com/aiku/chatcmd/pkg/cmds"
	"github.com/aiku/chatcmd/pkg/completion"
	"github.com/aiku/chatcmd/pkg/config"
	"github.com/aiku/chatcmd/pkg/connector"
	"github.com/aiku/chatcmd/pkg/irc"
)

// These are filled at build time with -ldflags.
var (
	Tag       = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	configPath      = flag.MakeFull("c", "config", "The path to your config file.", "config.yaml").String()
	generateExample = flag.MakeFull("e", "generate-example-config", "Save the example config to the config path and quit.", "false").Bool()
	version         = flag.MakeFull("v", "version", "View version and quit.", "false").Bool()
	wantHelp, _     = flag.MakeHelpFlag()
)

func main() {
	flag.SetHelpTitles(
		"chatcmd - run chat commands from a terminal.",
		"chatcmd [-hev] [-c <path>]",
	)
	if err := flag.Parse(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		flag.PrintHelp()
		os.Exit(1)
	} else if *wantHelp {
		flag.PrintHelp()
		os.Exit(0)
	} else if *version {
		fmt.Printf("chatcmd %s (%s, built %s)\n", Tag, Commit, BuildTime)
		os.Exit(0)
	} else if *generateExample {
		if err := config.WriteExample(*configPath); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println("Wrote example config to", *configPath)
		os.Exit(0)
	}

	if err := run(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	dotenvErr := godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log, closeLog, err := config.NewLogger(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()
	if dotenvErr != nil && !errors.Is(dotenvErr, os.ErrNotExist) {
		log.Warn().Err(dotenvErr).Msg("Failed to load .env file")
	}
	log.Debug().Str("version", Tag).Str("protocol", cfg.Protocol).Msg("Starting chatcmd")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	reg := cmds.NewRegistry(log)
	// The cache has to see every registration, so attach it first.
	cache, detach := completion.Attach(reg)
	defer detach()
	loadPlugins(reg)

	conv, err := openConversation(ctx, cfg, os.Stdout, log)
	if err != nil {
		return err
	}

	c := newConsole(cfg, reg, cache, conv, log)
	defer c.Close()
	return c.Run()
}

func loadPlugins(reg *cmds.Registry) {
	(&builtin.Plugin{}).Load(reg)
	(&irc.Plugin{}).Load(reg)
	reg.Register(cmds.Command{
		Name:     "commands",
		Priority: cmds.PriorityPlugin,
		Flags:    cmds.FlagIM | cmds.FlagChat,
		Help:     "commands:  List the commands available here with a short description.",
		Handler:  listCommands,
		Data:     reg,
	})
}

func openConversation(ctx context.Context, cfg *config.Config, out *os.File, log zerolog.Logger) (connector.Conversation, error) {
	kind, err := cfg.Kind()
	if err != nil {
		return nil, err
	}
	switch cfg.Protocol {
	case config.ProtocolIRC:
		client := irc.NewClient(out, cfg.Nick, printIRCEvent(out), log)
		if err = register(client, cfg.Nick, cfg.Target, kind); err != nil {
			return nil, err
		}
		return client.Conversation(cfg.Target, kind), nil
	case config.ProtocolMatrix:
		client, userID, err := connector.ConnectMatrix(ctx, cfg.Matrix.Homeserver, cfg.Matrix.AccessToken)
		if err != nil {
			return nil, err
		}
		return connector.NewMatrixRoom(ctx, client, id.RoomID(cfg.Target), userID, kind, log), nil
	case config.ProtocolMattermost:
		session, err := connector.ConnectMattermost(ctx, cfg.Mattermost.ServerURL, cfg.Mattermost.Token)
		if err != nil {
			return nil, err
		}
		channel, err := session.Channel(ctx, cfg.Target, log)
		if err != nil {
			return nil, err
		}
		return channel, nil
	default:
		return newLocalConversation(out, cfg.Target, cfg.Nick, kind), nil
	}
}

// register writes the IRC connection registration and, for channels, joins
// the target.
func register(client *irc.Client, nick, target string, kind cmds.Kind) error {
	if err := client.Send("NICK", nick); err != nil {
		return err
	}
	if err := client.Send("USER", nick, "0", "*", nick); err != nil {
		return err
	}
	if kind == cmds.KindChat {
		return client.Send("JOIN", target)
	}
	return nil
}
