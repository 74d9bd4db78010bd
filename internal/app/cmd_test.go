package app

import (
	"bytes"
	"testing"
)

func TestNewRootCommand_RegistersSubcommands(t *testing.T) {
	root := NewRootCommand(&bytes.Buffer{})

	for _, name := range []Command{CommandServe, CommandMigrate, CommandCleanup, CommandHealthcheck} {
		t.Run(string(name), func(t *testing.T) {
			cmd, _, err := root.Find([]string{string(name)})
			if err != nil {
				t.Fatalf("Find(%q) error: %v", name, err)
			}
			if cmd.Name() != string(name) {
				t.Errorf("Find(%q) = %q", name, cmd.Name())
			}
		})
	}
}

func TestNewRootCommand_RootRunsServe(t *testing.T) {
	root := NewRootCommand(nil)
	if root.RunE == nil {
		t.Fatal("サブコマンドなしの起動はserveとして動作すべき")
	}
	if root.Use != "soullog" {
		t.Errorf("Use = %q, want %q", root.Use, "soullog")
	}
}

func TestRun_UnknownSubcommand_ReturnsError(t *testing.T) {
	var buf bytes.Buffer
	if err := Run(&buf, []string{"worker"}); err == nil {
		t.Fatal("未知のサブコマンドはエラーを返すべき")
	}
}

func TestHealthcheckCommand_HasPortFlag(t *testing.T) {
	cmd := newHealthcheckCommand()
	if cmd.Flags().Lookup("port") == nil {
		t.Error("healthcheck コマンドに --port フラグが必要")
	}
}
