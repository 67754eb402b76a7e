// Copyright 2024-2026 Aiku AI

// Package config loads the chatcmd configuration: an embedded example file,
// the user's YAML file merged onto it and CHATCMD_* environment overrides.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	up "go.mau.fi/util/configupgrade"
	"gopkg.in/yaml.v3"

	"github.com/aiku/chatcmd/pkg/cmds"
)

//go:embed example-config.yaml
var ExampleConfig string

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "CHATCMD_"

// Protocols the console can talk to.
const (
	ProtocolConsole    = "prpl-console"
	ProtocolIRC        = "prpl-irc"
	ProtocolMatrix     = "prpl-matrix"
	ProtocolMattermost = "prpl-mattermost"
)

var (
	ErrInvalidProtocol     = errors.New("unknown protocol")
	ErrInvalidConversation = errors.New("conversation must be im or chat")
	ErrInvalidPrefix       = errors.New("command prefix must not be empty or contain spaces")
	ErrMissingTarget       = errors.New("target must be set")
	ErrMissingCredentials  = errors.New("missing credentials")
)

// Config is the chatcmd configuration.
type Config struct {
	CommandPrefix string `yaml:"command_prefix" env:"COMMAND_PREFIX"`
	Protocol      string `yaml:"protocol" env:"PROTOCOL"`
	Conversation  string `yaml:"conversation" env:"CONVERSATION"`
	Target        string `yaml:"target" env:"TARGET"`
	Nick          string `yaml:"nick" env:"NICK"`
	HistoryFile   string `yaml:"history_file" env:"HISTORY_FILE"`

	Matrix     MatrixConfig     `yaml:"matrix" envPrefix:"MATRIX_"`
	Mattermost MattermostConfig `yaml:"mattermost" envPrefix:"MATTERMOST_"`
	Logging    LoggingConfig    `yaml:"logging" envPrefix:"LOG_"`
}

type MatrixConfig struct {
	Homeserver  string `yaml:"homeserver" env:"HOMESERVER"`
	AccessToken string `yaml:"access_token" env:"ACCESS_TOKEN"`
}

type MattermostConfig struct {
	ServerURL string `yaml:"server_url" env:"SERVER_URL"`
	Token     string `yaml:"token" env:"TOKEN"`
}

// LoggingConfig configures NewLogger.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"LEVEL"`
	Pretty     string `yaml:"pretty" env:"PRETTY"`
	File       string `yaml:"file" env:"FILE"`
	MaxSize    int    `yaml:"max_size" env:"MAX_SIZE"`
	MaxBackups int    `yaml:"max_backups" env:"MAX_BACKUPS"`
}

func upgradeConfig(helper up.Helper) {
	helper.Copy(up.Str, "command_prefix")
	helper.Copy(up.Str, "protocol")
	helper.Copy(up.Str, "conversation")
	helper.Copy(up.Str, "target")
	helper.Copy(up.Str, "nick")
	helper.Copy(up.Str|up.Null, "history_file")

	helper.Copy(up.Str, "matrix", "homeserver")
	helper.Copy(up.Str, "matrix", "access_token")

	helper.Copy(up.Str, "mattermost", "server_url")
	helper.Copy(up.Str, "mattermost", "token")

	helper.Copy(up.Str, "logging", "level")
	helper.Copy(up.Str|up.Bool, "logging", "pretty")
	helper.Copy(up.Str|up.Null, "logging", "file")
	helper.Copy(up.Int, "logging", "max_size")
	helper.Copy(up.Int, "logging", "max_backups")
}

// Load reads the configuration. path may be empty or name a missing file,
// in which case the example defaults are used. Environment overrides are
// applied last.
func Load(path string) (*Config, error) {
	var baseNode yaml.Node
	if err := yaml.Unmarshal([]byte(ExampleConfig), &baseNode); err != nil {
		return nil, fmt.Errorf("failed to parse example config: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		var cfgNode yaml.Node
		if err = yaml.Unmarshal(data, &cfgNode); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		if cfgNode.Kind == yaml.DocumentNode {
			upgradeConfig(up.NewHelper(&baseNode, &cfgNode))
		}
	}

	var cfg Config
	if err := baseNode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	cfg.HistoryFile = expandHome(cfg.HistoryFile)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the console depends on.
func (c *Config) Validate() error {
	if c.CommandPrefix == "" || strings.ContainsAny(c.CommandPrefix, " \t") {
		return ErrInvalidPrefix
	}
	switch c.Protocol {
	case ProtocolConsole, ProtocolIRC:
	case ProtocolMatrix:
		if c.Matrix.Homeserver == "" || c.Matrix.AccessToken == "" {
			return fmt.Errorf("%w for %s", ErrMissingCredentials, c.Protocol)
		}
	case ProtocolMattermost:
		if c.Mattermost.ServerURL == "" || c.Mattermost.Token == "" {
			return fmt.Errorf("%w for %s", ErrMissingCredentials, c.Protocol)
		}
	default:
		return fmt.Errorf("%w %q", ErrInvalidProtocol, c.Protocol)
	}
	if _, err := c.Kind(); err != nil {
		return err
	}
	if c.Target == "" {
		return ErrMissingTarget
	}
	return nil
}

// Kind returns the configured conversation kind.
func (c *Config) Kind() (cmds.Kind, error) {
	switch strings.ToLower(c.Conversation) {
	case "im":
		return cmds.KindIM, nil
	case "chat":
		return cmds.KindChat, nil
	default:
		return 0, fmt.Errorf("%w, got %q", ErrInvalidConversation, c.Conversation)
	}
}

// WriteExample writes the example configuration to path. It refuses to
// overwrite an existing file.
func WriteExample(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create example config: %w", err)
	}
	if _, err = f.WriteString(ExampleConfig); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write example config: %w", err)
	}
	return f.Close()
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
