package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/bytedance/sonic"

	"github.com/raztodo/raztodo/internal/domain"
	"github.com/raztodo/raztodo/internal/service"
	"github.com/raztodo/raztodo/internal/storage"
)

// writeJSON writes v as one compact JSON line without HTML escaping
func writeJSON(w io.Writer, v interface{}) {
	enc := sonic.ConfigStd.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

// printSuccess prints a success message, or a {"ok":true,...} envelope
func printSuccess(w io.Writer, message string, jsonOutput bool, fields map[string]interface{}) {
	if jsonOutput {
		envelope := map[string]interface{}{"ok": true}
		for k, v := range fields {
			envelope[k] = v
		}
		writeJSON(w, envelope)
		return
	}

	fmt.Fprintln(w, message)
}

// printError prints an error message, or a {"ok":false,...} envelope carrying
// the error kind and its context
func printError(w io.Writer, err error, jsonOutput bool) {
	if jsonOutput {
		envelope := map[string]interface{}{
			"ok":    false,
			"error": err.Error(),
		}
		if kind, ok := domain.KindOf(err); ok {
			envelope["type"] = string(kind)
		}
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			for _, key := range []string{"id", "filepath"} {
				if v, ok := domainErr.Context[key]; ok {
					envelope[key] = v
				}
			}
		}
		writeJSON(w, envelope)
		return
	}

	fmt.Fprintf(w, "Error: %s\n", err.Error())
}

// printTaskList prints tasks as a table, or as a JSON array
func printTaskList(w io.Writer, tasks []domain.Task, emptyMessage string, jsonOutput bool) {
	if jsonOutput {
		if tasks == nil {
			tasks = []domain.Task{}
		}
		writeJSON(w, tasks)
		return
	}

	if len(tasks) == 0 {
		fmt.Fprintln(w, emptyMessage)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tSTATUS\tTITLE\tPRIORITY\tDUE\tPROJECT\tTAGS\tCREATED\n")
	fmt.Fprintf(tw, "--\t------\t-----\t--------\t---\t-------\t----\t-------\n")
	for _, task := range tasks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			task.ID,
			statusString(task.Done),
			truncate(task.Title, 40),
			task.Priority,
			valueOrEmpty(task.DueDate),
			valueOrEmpty(task.Project),
			strings.Join(task.Tags, ","),
			createdDate(task.CreatedAt))
	}
	tw.Flush()
}

// printImportSummary prints the outcome of an import
func printImportSummary(w io.Writer, path string, summary *service.ImportSummary, upsert, jsonOutput bool) {
	if jsonOutput {
		fields := map[string]interface{}{
			"inserted": summary.Inserted,
			"failed":   summary.Failed,
			"skipped":  summary.Skipped,
			"errors":   summary.Errors,
			"filepath": path,
		}
		if upsert {
			fields["updated"] = summary.Updated
		}
		printSuccess(w, "", true, fields)
		return
	}

	var parts []string
	if summary.Inserted > 0 {
		parts = append(parts, fmt.Sprintf("%d new", summary.Inserted))
	}
	if summary.Updated > 0 {
		parts = append(parts, fmt.Sprintf("%d updated", summary.Updated))
	}
	if len(parts) == 0 {
		fmt.Fprintln(w, "Import completed (no changes made)")
	} else {
		fmt.Fprintf(w, "Imported %s task(s) from %s\n", strings.Join(parts, ", "), path)
	}
	if summary.Skipped > 0 {
		fmt.Fprintf(w, "Skipped %d item(s) without a title\n", summary.Skipped)
	}
	for _, msg := range summary.Errors {
		fmt.Fprintf(w, "  %s\n", msg)
	}
}

// printMigration prints the outcome of a migration
func printMigration(w io.Writer, result *storage.MigrationResult, jsonOutput bool) {
	if jsonOutput {
		printSuccess(w, "", true, map[string]interface{}{
			"renamed":      result.Renamed,
			"unique_index": result.UniqueIndex,
		})
		return
	}

	index := "missing"
	if result.UniqueIndex {
		index = "present"
	}
	fmt.Fprintf(w, "Migration completed: renamed=%d, unique_index=%s\n", result.Renamed, index)
}

func statusString(done bool) string {
	if done {
		return "done"
	}
	return "pending"
}

func valueOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// createdDate keeps the date part of a "YYYY-MM-DD HH:MM:SS" timestamp
func createdDate(ts string) string {
	if ts == "" {
		return "N/A"
	}
	if i := strings.IndexByte(ts, ' '); i > 0 {
		return ts[:i]
	}
	return ts
}

// truncate truncates a string to the specified number of characters
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}
