package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "rt",
	Short: "raztodo task manager",
	Long: `A small command-line task manager backed by a local SQLite database.

The database lives in the per-user data directory unless --db, RAZTODO_DB,
raztodo.toml or ~/.raztodo/config.toml name another file.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Global flags
var jsonOutput bool

// settings resolves values that may come from a flag or the environment.
var settings = viper.New()

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&jsonOutput, "json", false, "Output as JSON")
	flags.String("db", "", "Database file name or path (env RAZTODO_DB)")
	flags.String("log-level", "", "Log level: debug, info, warn, error (env LOG_LEVEL)")

	settings.BindPFlag("db", flags.Lookup("db"))
	settings.BindPFlag("log_level", flags.Lookup("log-level"))
	settings.BindEnv("db", "RAZTODO_DB")
	settings.BindEnv("log_level", "LOG_LEVEL")

	rootCmd.AddCommand(addCmd, listCmd, updateCmd, removeCmd, doneCmd, searchCmd)
	rootCmd.AddCommand(exportCmd, importCmd)
	rootCmd.AddCommand(clearCmd, migrateCmd, initCmd, versionCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		handleError(err)
	}
}
