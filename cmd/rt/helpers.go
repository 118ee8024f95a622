package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/raztodo/raztodo/internal/config"
	"github.com/raztodo/raztodo/internal/domain"
	"github.com/raztodo/raztodo/internal/logging"
	"github.com/raztodo/raztodo/internal/repository"
	"github.com/raztodo/raztodo/internal/service"
	"github.com/raztodo/raztodo/internal/storage"
)

// openService resolves the configuration and opens the task database
func openService(ctx context.Context) (*service.TaskService, error) {
	cfg, err := config.ResolveConfig(config.Overrides{
		DatabaseName: settings.GetString("db"),
		LogLevel:     settings.GetString("log_level"),
	})
	if err != nil {
		return nil, err
	}

	log := logging.New(cfg.LogLevel, os.Stderr)
	log.WithField("path", cfg.DatabasePath).Debug("opening task database")

	provider := storage.NewFileProvider(cfg.DatabasePath)
	repo, err := repository.New(ctx, provider, log)
	if err != nil {
		return nil, err
	}
	return service.NewTaskService(repo, log), nil
}

// withService opens the service, runs fn and closes the service on every path
func withService(ctx context.Context, fn func(*service.TaskService) error) error {
	svc, err := openService(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(svc)
}

// mapErrorToExitCode maps an error to the appropriate exit code
func mapErrorToExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	kind, ok := domain.KindOf(err)
	if !ok {
		return ExitGeneralError
	}
	switch kind {
	case domain.KindNotFound:
		return ExitTaskNotFound
	case domain.KindValidation:
		return ExitValidation
	case domain.KindDuplicate:
		return ExitConflict
	case domain.KindPermission:
		return ExitPermissionDenied
	case domain.KindFileOperation, domain.KindFileNotFound, domain.KindInvalidFormat:
		return ExitFileError
	default:
		return ExitGeneralError
	}
}

// handleError handles an error by printing it and exiting with the appropriate code
func handleError(err error) {
	if err == nil {
		return
	}

	if jsonOutput {
		printError(os.Stdout, err, true)
	} else {
		printError(os.Stderr, err, false)
	}
	os.Exit(mapErrorToExitCode(err))
}

// parseID parses a positional task id
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("id", fmt.Sprintf("expected a positive integer, got %q", s))
	}
	return id, nil
}

// parsePriority accepts L, M or H in any case, or an empty string
func parsePriority(s string) (string, error) {
	p, ok := domain.NormalizePriority(s)
	if !ok {
		return "", domain.NewValidationError("priority", fmt.Sprintf("invalid priority %q (use L, M or H)", s))
	}
	return p, nil
}

// parseTags splits a comma-separated tag list, dropping blanks
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	return domain.NormalizeTags(strings.Split(s, ","))
}

// doneFilter turns the --done/--pending pair into an optional flag value.
// Both flags together select everything and print a warning.
func doneFilter(done, pending bool, warn io.Writer) *bool {
	switch {
	case done && pending:
		fmt.Fprintln(warn, "Warning: both --done and --pending specified; showing all tasks")
		return nil
	case done:
		return domain.BoolPtr(true)
	case pending:
		return domain.BoolPtr(false)
	default:
		return nil
	}
}

// optionalString returns nil for an empty value
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
