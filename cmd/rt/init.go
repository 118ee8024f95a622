package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/raztodo/raztodo/internal/config"
	"github.com/raztodo/raztodo/internal/domain"
)

var initCmd = &cobra.Command{
	Use:   "init [database-name]",
	Short: "Create a raztodo.toml in the current directory",
	Long: `Create a raztodo.toml configuration file in the current directory.

Commands run in this directory or any directory below it then use a database
stored next to the file, named tasks.db unless another name is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		level, _ := cmd.Flags().GetString("level")

		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		return runInit(cmd.OutOrStdout(), cwd, name, level)
	},
}

func init() {
	initCmd.Flags().String("level", "", "Log level stored in the file")
}

// runInit creates the raztodo.toml configuration file in dir
func runInit(w io.Writer, dir, name, level string) error {
	path, err := config.WriteProjectConfig(dir, name, level)
	if errors.Is(err, config.ErrConfigExists) {
		return &domain.DomainError{
			Kind:    domain.KindDuplicate,
			Message: fmt.Sprintf("%s already exists in this directory", config.ConfigFileName),
			Context: map[string]interface{}{"filepath": path},
			Err:     err,
		}
	}
	if err != nil {
		return domain.NewValidationError("config", err.Error())
	}

	printSuccess(w, fmt.Sprintf("Created %s", path), jsonOutput, map[string]interface{}{"filepath": path})
	return nil
}
