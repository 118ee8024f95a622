package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/raztodo/raztodo/internal/service"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export all tasks to a JSON file",
	Long: `Write every task to a JSON file. Missing parent directories are created
and an existing file is overwritten.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(svc *service.TaskService) error {
			return runExport(cmd.Context(), cmd.OutOrStdout(), svc, args[0])
		})
	},
}

func runExport(ctx context.Context, w io.Writer, svc *service.TaskService, path string) error {
	if err := svc.Export(ctx, path); err != nil {
		return err
	}
	printSuccess(w, fmt.Sprintf("Tasks exported successfully to %s", path), jsonOutput,
		map[string]interface{}{"filepath": path})
	return nil
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import tasks from a JSON file",
	Long: `Import tasks from a JSON file written by the export command.

Without --upsert an element whose title already exists is reported as a
failure. With --upsert it updates the existing task instead.

Examples:
  rt import tasks_backup.json
  rt import ~/backups/tasks.json --upsert --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		upsert, _ := cmd.Flags().GetBool("upsert")
		return withService(cmd.Context(), func(svc *service.TaskService) error {
			return runImport(cmd.Context(), cmd.OutOrStdout(), svc, args[0], upsert)
		})
	},
}

func runImport(ctx context.Context, w io.Writer, svc *service.TaskService, path string, upsert bool) error {
	summary, err := svc.Import(ctx, path, upsert)
	if err != nil {
		return err
	}
	printImportSummary(w, path, summary, upsert, jsonOutput)
	return nil
}

func init() {
	importCmd.Flags().Bool("upsert", false, "Update existing tasks with the same title")
}
