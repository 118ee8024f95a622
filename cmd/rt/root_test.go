package main

import (
	"testing"
)

func TestRootCmd_Use(t *testing.T) {
	if rootCmd.Use != "rt" {
		t.Errorf("rootCmd.Use = %s, expected 'rt'", rootCmd.Use)
	}
}

func TestRootCmd_SilencesCobraOutput(t *testing.T) {
	if !rootCmd.SilenceErrors || !rootCmd.SilenceUsage {
		t.Error("rootCmd should leave error reporting to handleError")
	}
}

func TestRootCmd_HasGlobalFlags(t *testing.T) {
	for _, name := range []string{"json", "db", "log-level"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("rootCmd should have --%s flag", name)
		}
	}
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	expected := []string{"add", "list", "update", "remove", "done", "search", "export", "import", "clear", "migrate", "init", "version"}

	for _, name := range expected {
		found := false
		for _, cmd := range rootCmd.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("rootCmd should have %q subcommand", name)
		}
	}
}

func TestSettings_EnvironmentBinding(t *testing.T) {
	t.Setenv("RAZTODO_DB", "from-env.db")
	t.Setenv("LOG_LEVEL", "debug")

	if got := settings.GetString("db"); got != "from-env.db" {
		t.Errorf("expected db from RAZTODO_DB, got %q", got)
	}
	if got := settings.GetString("log_level"); got != "debug" {
		t.Errorf("expected log level from LOG_LEVEL, got %q", got)
	}
}
