// Copyright 2024-2026 Aiku AI

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	up "go.mau.fi/util/configupgrade"
	"gopkg.in/yaml.v3"

	"github.com/aiku/chatcmd/pkg/cmds"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestExampleConfigNotEmpty(t *testing.T) {
	t.Parallel()
	if ExampleConfig == "" {
		t.Error("ExampleConfig should not be empty (embedded from example-config.yaml)")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()
	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.yaml")} {
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%q): %v", path, err)
		}
		if cfg.CommandPrefix != "/" {
			t.Errorf("CommandPrefix: got %q, want %q", cfg.CommandPrefix, "/")
		}
		if cfg.Protocol != ProtocolConsole {
			t.Errorf("Protocol: got %q, want %q", cfg.Protocol, ProtocolConsole)
		}
		if cfg.Target != "#chatcmd" {
			t.Errorf("Target: got %q, want %q", cfg.Target, "#chatcmd")
		}
		if cfg.Logging.Level != "warn" || cfg.Logging.MaxSize != 10 || cfg.Logging.MaxBackups != 3 {
			t.Errorf("Logging: got %+v", cfg.Logging)
		}
		if !strings.HasSuffix(cfg.HistoryFile, ".chatcmd_history") {
			t.Errorf("HistoryFile: got %q", cfg.HistoryFile)
		}
	}
}

func TestLoadMergesUserFile(t *testing.T) {
	t.Parallel()
	path := writeFile(t, `
protocol: prpl-irc
target: "#go"
conversation: im
unknown_key: ignored
logging:
    level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Protocol != ProtocolIRC {
		t.Errorf("Protocol: got %q, want %q", cfg.Protocol, ProtocolIRC)
	}
	if cfg.Target != "#go" {
		t.Errorf("Target: got %q, want %q", cfg.Target, "#go")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "debug")
	}
	// Keys missing from the user file keep their defaults.
	if cfg.Nick != "chatcmd" {
		t.Errorf("Nick: got %q, want %q", cfg.Nick, "chatcmd")
	}
	if cfg.Logging.MaxSize != 10 {
		t.Errorf("Logging.MaxSize: got %d, want 10", cfg.Logging.MaxSize)
	}
	if kind, _ := cfg.Kind(); kind != cmds.KindIM {
		t.Errorf("Kind: got %v, want %v", kind, cmds.KindIM)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"bad protocol", "protocol: prpl-carrier-pigeon", ErrInvalidProtocol},
		{"bad conversation", "conversation: forum", ErrInvalidConversation},
		{"empty target", `target: ""`, ErrMissingTarget},
		{"matrix without token", "protocol: prpl-matrix", ErrMissingCredentials},
		{"mattermost without token", "protocol: prpl-mattermost", ErrMissingCredentials},
		{"prefix with space", `command_prefix: "/ "`, ErrInvalidPrefix},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeFile(t, tt.content))
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	t.Parallel()
	if _, err := Load(writeFile(t, "protocol: [unclosed")); err == nil {
		t.Error("Load should fail on invalid YAML")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CHATCMD_TARGET", "#from-env")
	t.Setenv("CHATCMD_LOG_LEVEL", "error")
	t.Setenv("CHATCMD_PROTOCOL", ProtocolMattermost)
	t.Setenv("CHATCMD_MATTERMOST_TOKEN", "secret")

	cfg, err := Load(writeFile(t, "target: '#from-file'"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Target != "#from-env" {
		t.Errorf("Target: got %q, want %q", cfg.Target, "#from-env")
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "error")
	}
	if cfg.Mattermost.Token != "secret" {
		t.Errorf("Mattermost.Token: got %q, want %q", cfg.Mattermost.Token, "secret")
	}
	if cfg.Mattermost.ServerURL != "https://mattermost.example.org" {
		t.Errorf("Mattermost.ServerURL: got %q", cfg.Mattermost.ServerURL)
	}
}

func TestUpgradeConfig(t *testing.T) {
	t.Parallel()
	var baseNode yaml.Node
	if err := yaml.Unmarshal([]byte(ExampleConfig), &baseNode); err != nil {
		t.Fatalf("failed to parse base config: %v", err)
	}

	userCfg := `
command_prefix: "!"
matrix:
    homeserver: https://custom.example
logging:
    max_backups: 9
`
	var cfgNode yaml.Node
	if err := yaml.Unmarshal([]byte(userCfg), &cfgNode); err != nil {
		t.Fatalf("failed to parse user config: %v", err)
	}

	helper := up.NewHelper(&baseNode, &cfgNode)
	upgradeConfig(helper)

	if val, ok := helper.Get(up.Str, "command_prefix"); !ok || val != "!" {
		t.Errorf("command_prefix after upgrade: got %q, ok=%v", val, ok)
	}
	if val, ok := helper.Get(up.Str, "matrix", "homeserver"); !ok || val != "https://custom.example" {
		t.Errorf("matrix.homeserver after upgrade: got %q, ok=%v", val, ok)
	}
	if val, ok := helper.Get(up.Int, "logging", "max_backups"); !ok || val != "9" {
		t.Errorf("logging.max_backups after upgrade: got %q, ok=%v", val, ok)
	}
	if val, ok := helper.Get(up.Str, "protocol"); !ok || val != ProtocolConsole {
		t.Errorf("protocol should keep its default, got %q, ok=%v", val, ok)
	}
}

func TestWriteExample(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteExample(path); err != nil {
		t.Fatalf("WriteExample: %v", err)
	}
	if err := WriteExample(path); err == nil {
		t.Error("WriteExample should refuse to overwrite")
	}
	if _, err := Load(path); err != nil {
		t.Errorf("Load of generated example: %v", err)
	}
}
