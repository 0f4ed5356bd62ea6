package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/taskflow/internal/api"
	"github.com/sakif/taskflow/internal/authz"
	"github.com/sakif/taskflow/internal/metrics"
	"github.com/sakif/taskflow/internal/model"
)

func newTasksCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List and create tasks",
	}
	cmd.AddCommand(newTasksListCommand(opts))
	cmd.AddCommand(newTasksCreateCommand(opts))
	return cmd
}

func newTasksListCommand(opts *rootOptions) *cobra.Command {
	var status, assignee string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Long: `List tasks, optionally filtered.

--status is one of: all, todo, in_progress, done.
--assignee is one of: all, mine, unassigned, assigned, or a user ID.
Filters combine with AND.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.requireSession(); err != nil {
				return err
			}

			tasks, err := a.client.ListTasks(cmd.Context(), api.TaskFilter{})
			if err != nil {
				return err
			}

			current := a.session.User()
			filtered := metrics.FilterTasks(tasks, status, assignee, current.ID)
			printTasks(filtered)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "all", "status filter")
	cmd.Flags().StringVar(&assignee, "assignee", "all", "assignee filter")
	return cmd
}

func newTasksCreateCommand(opts *rootOptions) *cobra.Command {
	var title, description, deadline string
	var assignee int64

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.requireSession(); err != nil {
				return err
			}

			current := a.session.User()
			if !authz.CanPerform(current, nil, authz.ActionCreate) {
				return fmt.Errorf("your role (%s) cannot create tasks", current.Role)
			}

			draft := api.TaskDraft{Title: title, Description: description}
			if deadline != "" {
				parsed, err := time.Parse("2006-01-02", deadline)
				if err != nil {
					return fmt.Errorf("parsing --deadline (want YYYY-MM-DD): %w", err)
				}
				draft.Deadline = &parsed
			}
			if assignee != 0 {
				draft.Assignee = &assignee
			}

			// Same rules the server enforces; failing locally gives field
			// messages without a round trip.
			result := metrics.ValidateTask(&model.Task{
				Title:       draft.Title,
				Description: draft.Description,
				Deadline:    draft.Deadline,
			})
			if !result.IsValid {
				fields := make([]string, 0, len(result.Errors))
				for field := range result.Errors {
					fields = append(fields, field)
				}
				sort.Strings(fields)
				for _, field := range fields {
					fmt.Fprintf(os.Stderr, "%s: %s\n", field, result.Errors[field])
				}
				return fmt.Errorf("invalid task")
			}

			task, err := a.client.CreateTask(cmd.Context(), draft)
			if err != nil {
				return err
			}
			fmt.Printf("Created task %d: %s\n", task.ID, task.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "task title (required)")
	cmd.Flags().StringVar(&description, "description", "", "task description")
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline, YYYY-MM-DD")
	cmd.Flags().Int64Var(&assignee, "assignee", 0, "assignee user ID")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func printTasks(tasks []model.Task) {
	if len(tasks) == 0 {
		fmt.Println("No tasks.")
		return
	}

	now := time.Now()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tTITLE\tASSIGNEE\tDEADLINE")
	for i := range tasks {
		task := &tasks[i]
		assignee := "-"
		if task.AssigneeDetail != nil {
			assignee = metrics.UserDisplayName(task.AssigneeDetail)
		} else if task.Assignee != nil {
			assignee = fmt.Sprintf("#%d", *task.Assignee)
		}
		deadline := "-"
		if task.Deadline != nil {
			deadline = task.Deadline.Local().Format("2006-01-02")
			if task.IsOverdue(now) {
				deadline += " (overdue)"
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			task.ID, task.Status, task.Title, assignee, deadline)
	}
	w.Flush()
}
