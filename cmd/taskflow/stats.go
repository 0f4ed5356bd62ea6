package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sakif/taskflow/internal/api"
	"github.com/sakif/taskflow/internal/metrics"
	"github.com/sakif/taskflow/internal/model"
)

func newStatsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show team productivity statistics",
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
			users, err := a.client.ListUsers(cmd.Context())
			if err != nil {
				// Stats still work without the user list; member count
				// falls back to distinct assignees.
				a.logger.Warn("listing users failed, using assignees only",
					"error", err.Error())
				users = nil
			}

			team := metrics.ComputeTeamMetrics(tasks, users)
			printTeamMetrics(team, users)

			top := metrics.ComputeTopPerformer(metrics.ComputePerformerStats(tasks, users))
			if top != nil {
				fmt.Printf("\nTop performer: %s, %d/%d done (%.1f%%)\n",
					metrics.UserDisplayName(top.User),
					top.CompletedTasks, top.TotalTasks, top.CompletionRate)
			}
			return nil
		},
	}
}

func printTeamMetrics(team *metrics.TeamMetrics, users []model.User) {
	fmt.Printf("Tasks: %d total (%d todo, %d in progress, %d done, %d overdue)\n",
		team.Total, team.Todo, team.InProgress, team.Done, team.Overdue)
	fmt.Printf("Completion: %.1f%%   Tasks/member: %.1f   Active members: %d\n",
		team.CompletionRate, team.TasksPerMember, team.ActiveMembers)

	if len(team.MemberStats) == 0 && team.Unassigned.Total == 0 {
		return
	}

	byID := make(map[int64]*model.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	ids := make([]int64, 0, len(team.MemberStats))
	for id := range team.MemberStats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MEMBER\tTOTAL\tTODO\tIN PROGRESS\tDONE\tOVERDUE")
	for _, id := range ids {
		b := team.MemberStats[id]
		name := metrics.UserDisplayName(byID[id])
		if byID[id] == nil {
			name = fmt.Sprintf("#%d", id)
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\n",
			name, b.Total, b.Todo, b.InProgress, b.Done, b.Overdue)
	}
	if team.Unassigned.Total > 0 {
		b := team.Unassigned
		fmt.Fprintf(w, "(unassigned)\t%d\t%d\t%d\t%d\t%d\n",
			b.Total, b.Todo, b.InProgress, b.Done, b.Overdue)
	}
	w.Flush()
}
