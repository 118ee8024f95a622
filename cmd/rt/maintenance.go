package main

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/raztodo/raztodo/internal/service"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all tasks",
	Long: `Delete every task from the database. This cannot be undone and
requires --confirm.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		confirmed, _ := cmd.Flags().GetBool("confirm")
		return withService(cmd.Context(), func(svc *service.TaskService) error {
			return runClear(cmd.Context(), cmd.OutOrStdout(), svc, confirmed)
		})
	},
}

func runClear(ctx context.Context, w io.Writer, svc *service.TaskService, confirmed bool) error {
	count, err := svc.Clear(ctx, confirmed)
	if err != nil {
		return err
	}
	printSuccess(w, fmt.Sprintf("Cleared %d task(s) successfully", count), jsonOutput,
		map[string]interface{}{"count": count})
	return nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migration",
	Long: `Rename duplicate task titles to "<title> (N)" and install the unique
title index. Run this once after upgrading from a version that allowed
duplicate titles.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(svc *service.TaskService) error {
			return runMigrate(cmd.Context(), cmd.OutOrStdout(), svc)
		})
	},
}

func runMigrate(ctx context.Context, w io.Writer, svc *service.TaskService) error {
	result, err := svc.Migrate(ctx)
	if err != nil {
		return err
	}
	printMigration(w, result, jsonOutput)
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runVersion(cmd.OutOrStdout())
	},
}

func runVersion(w io.Writer) {
	printSuccess(w, fmt.Sprintf("rt %s (%s/%s)", version, runtime.GOOS, runtime.GOARCH), jsonOutput,
		map[string]interface{}{"version": version})
}

func init() {
	clearCmd.Flags().Bool("confirm", false, "Confirm deleting every task")
}
