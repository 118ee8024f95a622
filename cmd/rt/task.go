package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/raztodo/raztodo/internal/domain"
	"github.com/raztodo/raztodo/internal/service"
)

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a new task",
	Long: `Add a new task with the given title.

Examples:
  rt add "Buy milk" -p H --due 2025-01-31 --tags home,errands
  rt add "Write report" --description "Q3 numbers" --project work`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		priorityStr, _ := cmd.Flags().GetString("priority")
		due, _ := cmd.Flags().GetString("due")
		tags, _ := cmd.Flags().GetString("tags")
		project, _ := cmd.Flags().GetString("project")

		priority, err := parsePriority(priorityStr)
		if err != nil {
			return err
		}

		input := service.CreateTaskInput{
			Title:       args[0],
			Description: description,
			Priority:    priority,
			DueDate:     optionalString(due),
			Tags:        parseTags(tags),
			Project:     optionalString(project),
		}
		return withService(cmd.Context(), func(svc *service.TaskService) error {
			return runAdd(cmd.Context(), cmd.OutOrStdout(), svc, input)
		})
	},
}

func runAdd(ctx context.Context, w io.Writer, svc *service.TaskService, input service.CreateTaskInput) error {
	id, err := svc.Create(ctx, input)
	if err != nil {
		return err
	}
	printSuccess(w, fmt.Sprintf("Task added successfully (ID: %d)", id), jsonOutput, map[string]interface{}{"id": id})
	return nil
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Long: `List tasks with optional filtering, sorting, and pagination.

Examples:
  rt list --pending --priority H
  rt list --project work --sort priority --desc
  rt list --tags urgent,important --due-before 2024-12-31
  rt list --limit 10 --offset 20`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		done, _ := cmd.Flags().GetBool("done")
		pending, _ := cmd.Flags().GetBool("pending")
		priorityStr, _ := cmd.Flags().GetString("priority")
		project, _ := cmd.Flags().GetString("project")
		tags, _ := cmd.Flags().GetString("tags")
		dueBefore, _ := cmd.Flags().GetString("due-before")
		dueAfter, _ := cmd.Flags().GetString("due-after")
		sortBy, _ := cmd.Flags().GetString("sort")
		desc, _ := cmd.Flags().GetBool("desc")

		field, err := service.ParseSortField(sortBy)
		if err != nil {
			return err
		}
		priority, err := parsePriority(priorityStr)
		if err != nil {
			return err
		}

		input := service.ListTasksInput{
			Filter: domain.ListFilter{
				Priority:  optionalString(priority),
				Project:   optionalString(project),
				Done:      doneFilter(done, pending, cmd.ErrOrStderr()),
				Tags:      parseTags(tags),
				DueBefore: optionalString(dueBefore),
				DueAfter:  optionalString(dueAfter),
			},
			SortBy:     field,
			Descending: desc,
		}
		if cmd.Flags().Changed("limit") {
			limit, _ := cmd.Flags().GetInt("limit")
			input.Filter.Limit = domain.IntPtr(limit)
		}
		if cmd.Flags().Changed("offset") {
			offset, _ := cmd.Flags().GetInt("offset")
			input.Filter.Offset = domain.IntPtr(offset)
		}

		return withService(cmd.Context(), func(svc *service.TaskService) error {
			return runList(cmd.Context(), cmd.OutOrStdout(), svc, input)
		})
	},
}

func runList(ctx context.Context, w io.Writer, svc *service.TaskService, input service.ListTasksInput) error {
	tasks, err := svc.List(ctx, input)
	if err != nil {
		return err
	}
	printTaskList(w, tasks, "No tasks found", jsonOutput)
	return nil
}

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a task",
	Long: `Update one or more fields of a task. Only the flags given are changed.

An empty value clears the field:
  rt update 3 --due ""        remove the due date
  rt update 3 --project ""    remove the project
  rt update 3 --tags ""       remove all tags
  rt update 3 --priority ""   remove the priority`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		update, err := updateFromFlags(cmd.Flags())
		if err != nil {
			return err
		}
		return withService(cmd.Context(), func(svc *service.TaskService) error {
			return runUpdate(cmd.Context(), cmd.OutOrStdout(), svc, id, update)
		})
	},
}

// updateFromFlags builds a partial update from the flags that were given
func updateFromFlags(flags *pflag.FlagSet) (domain.TaskUpdate, error) {
	var update domain.TaskUpdate

	if flags.Changed("title") {
		v, _ := flags.GetString("title")
		update.Title = domain.Set(v)
	}
	if flags.Changed("description") {
		v, _ := flags.GetString("description")
		update.Description = domain.Set(v)
	}
	if flags.Changed("priority") {
		v, _ := flags.GetString("priority")
		p, err := parsePriority(v)
		if err != nil {
			return update, err
		}
		if p == domain.PriorityNone {
			update.Priority = domain.Clear[string]()
		} else {
			update.Priority = domain.Set(p)
		}
	}
	if flags.Changed("due") {
		v, _ := flags.GetString("due")
		update.DueDate = clearIfEmpty(v)
	}
	if flags.Changed("project") {
		v, _ := flags.GetString("project")
		update.Project = clearIfEmpty(v)
	}
	if flags.Changed("tags") {
		v, _ := flags.GetString("tags")
		if tags := parseTags(v); len(tags) > 0 {
			update.Tags = domain.Set(tags)
		} else {
			update.Tags = domain.Clear[[]string]()
		}
	}
	return update, nil
}

func registerUpdateFlags(flags *pflag.FlagSet) {
	flags.String("title", "", "New title")
	flags.StringP("description", "d", "", "New description")
	flags.StringP("priority", "p", "", "New priority: L, M or H")
	flags.String("due", "", "New due date (YYYY-MM-DD)")
	flags.StringP("tags", "t", "", "Replace tags (comma-separated)")
	flags.String("project", "", "New project")
}

func clearIfEmpty(v string) domain.Field[string] {
	if v == "" {
		return domain.Clear[string]()
	}
	return domain.Set(v)
}

func runUpdate(ctx context.Context, w io.Writer, svc *service.TaskService, id int64, update domain.TaskUpdate) error {
	if err := svc.Update(ctx, id, update); err != nil {
		return err
	}
	printSuccess(w, fmt.Sprintf("Task updated successfully (ID: %d)", id), jsonOutput, map[string]interface{}{"id": id})
	return nil
}

var removeCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm", "delete"},
	Short:   "Delete a task",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withService(cmd.Context(), func(svc *service.TaskService) error {
			return runRemove(cmd.Context(), cmd.OutOrStdout(), svc, id)
		})
	},
}

func runRemove(ctx context.Context, w io.Writer, svc *service.TaskService, id int64) error {
	if err := svc.Delete(ctx, id); err != nil {
		return err
	}
	printSuccess(w, fmt.Sprintf("Task deleted successfully (ID: %d)", id), jsonOutput, map[string]interface{}{"id": id})
	return nil
}

var doneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task as done or undone",
	Long: `Mark a task as completed, or as pending again with --undo.

Examples:
  rt done 1
  rt done 5 --undo`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		undo, _ := cmd.Flags().GetBool("undo")
		return withService(cmd.Context(), func(svc *service.TaskService) error {
			return runDone(cmd.Context(), cmd.OutOrStdout(), svc, id, !undo)
		})
	},
}

func runDone(ctx context.Context, w io.Writer, svc *service.TaskService, id int64, done bool) error {
	if err := svc.MarkDone(ctx, id, done); err != nil {
		return err
	}
	action := "completed"
	if !done {
		action = "undone"
	}
	printSuccess(w, fmt.Sprintf("Task marked as %s (ID: %d)", action, id), jsonOutput,
		map[string]interface{}{"id": id, "done": done})
	return nil
}

var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Search tasks by keyword",
	Long: `Search the title and description of every task, with optional filters.

Examples:
  rt search meeting --pending
  rt search project --priority H --project work
  rt search urgent --tags important,work`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		done, _ := cmd.Flags().GetBool("done")
		pending, _ := cmd.Flags().GetBool("pending")
		priorityStr, _ := cmd.Flags().GetString("priority")
		project, _ := cmd.Flags().GetString("project")
		tags, _ := cmd.Flags().GetString("tags")

		priority, err := parsePriority(priorityStr)
		if err != nil {
			return err
		}

		input := service.SearchTasksInput{
			Keyword: args[0],
			Filter: domain.SearchFilter{
				Priority: optionalString(priority),
				Project:  optionalString(project),
				Tags:     parseTags(tags),
			},
			Done: doneFilter(done, pending, cmd.ErrOrStderr()),
		}
		return withService(cmd.Context(), func(svc *service.TaskService) error {
			return runSearch(cmd.Context(), cmd.OutOrStdout(), svc, input)
		})
	},
}

func runSearch(ctx context.Context, w io.Writer, svc *service.TaskService, input service.SearchTasksInput) error {
	tasks, err := svc.Search(ctx, input)
	if err != nil {
		return err
	}
	printTaskList(w, tasks, fmt.Sprintf("No tasks found for '%s'", input.Keyword), jsonOutput)
	return nil
}

func init() {
	addCmd.Flags().StringP("description", "d", "", "Task description (max 200 characters)")
	addCmd.Flags().StringP("priority", "p", "", "Priority: L, M or H")
	addCmd.Flags().String("due", "", "Due date (YYYY-MM-DD)")
	addCmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	addCmd.Flags().String("project", "", "Project or category name")

	listCmd.Flags().Bool("done", false, "Show only completed tasks")
	listCmd.Flags().Bool("pending", false, "Show only pending tasks")
	listCmd.Flags().StringP("priority", "p", "", "Filter by priority: L, M or H")
	listCmd.Flags().String("project", "", "Filter by project")
	listCmd.Flags().StringP("tags", "t", "", "Filter by any of these comma-separated tags")
	listCmd.Flags().String("due-before", "", "Show tasks due before this date (YYYY-MM-DD)")
	listCmd.Flags().String("due-after", "", "Show tasks due after this date (YYYY-MM-DD)")
	listCmd.Flags().Int("limit", 0, "Maximum number of tasks to show")
	listCmd.Flags().Int("offset", 0, "Number of tasks to skip")
	listCmd.Flags().String("sort", "id", "Sort by: id, title, created_at, done, priority, due_date")
	listCmd.Flags().Bool("desc", false, "Sort in descending order")

	registerUpdateFlags(updateCmd.Flags())

	doneCmd.Flags().Bool("undo", false, "Mark the task as pending instead")

	searchCmd.Flags().Bool("done", false, "Show only completed matches")
	searchCmd.Flags().Bool("pending", false, "Show only pending matches")
	searchCmd.Flags().StringP("priority", "p", "", "Filter by priority: L, M or H")
	searchCmd.Flags().String("project", "", "Filter by project")
	searchCmd.Flags().StringP("tags", "t", "", "Filter by any of these comma-separated tags")
}
