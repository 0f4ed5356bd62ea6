// Package metrics derives productivity statistics from task and user
// collections.
//
// Every function here is pure: inputs in, snapshot out, no caching and no
// clock or network dependencies beyond the explicit `now` parameters. The
// UI recomputes on every render from the latest collections, so a snapshot
// is never stored or invalidated; it simply goes out of scope.
package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/sakif/taskflow/internal/model"
)

// UserDisplayName picks the best human-readable name for a user.
// Precedence: "First Last" when both are present, then username, then email,
// then the literal "Unknown" (also used for a nil user).
func UserDisplayName(user *model.User) string {
	if user == nil {
		return "Unknown"
	}
	if user.FirstName != "" && user.LastName != "" {
		return user.FirstName + " " + user.LastName
	}
	if user.Username != "" {
		return user.Username
	}
	if user.Email != "" {
		return user.Email
	}
	return "Unknown"
}

// Bucket aggregates the tasks of one assignee (or the unassigned group).
type Bucket struct {
	Total      int `json:"total"`
	Todo       int `json:"todo"`
	InProgress int `json:"in_progress"`
	Done       int `json:"done"`
	Overdue    int `json:"overdue"`
}

// add counts one task into the bucket. Unrecognized statuses still count
// toward Total; a task is never dropped from its bucket.
func (b *Bucket) add(task *model.Task, now time.Time) {
	b.Total++
	switch task.Status {
	case model.StatusTodo:
		b.Todo++
	case model.StatusInProgress:
		b.InProgress++
	case model.StatusDone:
		b.Done++
	}
	if task.IsOverdue(now) {
		b.Overdue++
	}
}

// TeamMetrics is the full aggregate over a task collection.
//
// INVARIANT: every task lands in exactly one bucket (a member bucket when
// it has an assignee, the Unassigned bucket otherwise), so Total equals the
// sum of all bucket totals, and each global status count equals the sum of
// that status across buckets.
type TeamMetrics struct {
	Total      int `json:"total"`
	Todo       int `json:"todo"`
	InProgress int `json:"in_progress"`
	Done       int `json:"done"`
	Overdue    int `json:"overdue"`

	// CompletionRate is done/total as a percentage; 0 for an empty set.
	CompletionRate float64 `json:"completion_rate"`
	// TasksPerMember is total/memberCount rounded to one decimal, where
	// memberCount is the user-collection size, falling back to the number
	// of distinct assignees when no user list is supplied.
	TasksPerMember float64 `json:"tasks_per_member"`
	// ActiveMembers counts member buckets holding at least one task.
	ActiveMembers int `json:"active_members"`

	MemberStats map[int64]*Bucket `json:"member_stats"`
	Unassigned  Bucket            `json:"unassigned_stats"`
}

// ComputeTeamMetrics aggregates tasks into per-assignee buckets plus an
// unassigned bucket, with overdue judged against the wall clock. Empty
// inputs yield an all-zero snapshot, never an error.
func ComputeTeamMetrics(tasks []model.Task, users []model.User) *TeamMetrics {
	return ComputeTeamMetricsAt(tasks, users, time.Now())
}

// ComputeTeamMetricsAt is ComputeTeamMetrics with an explicit clock.
func ComputeTeamMetricsAt(tasks []model.Task, users []model.User, now time.Time) *TeamMetrics {
	m := &TeamMetrics{
		MemberStats: make(map[int64]*Bucket),
	}

	for i := range tasks {
		task := &tasks[i]
		m.Total++
		switch task.Status {
		case model.StatusTodo:
			m.Todo++
		case model.StatusInProgress:
			m.InProgress++
		case model.StatusDone:
			m.Done++
		}
		if task.IsOverdue(now) {
			m.Overdue++
		}

		if task.Assignee != nil {
			bucket, ok := m.MemberStats[*task.Assignee]
			if !ok {
				bucket = &Bucket{}
				m.MemberStats[*task.Assignee] = bucket
			}
			bucket.add(task, now)
		} else {
			m.Unassigned.add(task, now)
		}
	}

	if m.Total > 0 {
		m.CompletionRate = float64(m.Done) / float64(m.Total) * 100
	}

	memberCount := len(users)
	if memberCount == 0 {
		memberCount = len(m.MemberStats)
	}
	if memberCount < 1 {
		memberCount = 1
	}
	m.TasksPerMember = round1(float64(m.Total) / float64(memberCount))

	for _, bucket := range m.MemberStats {
		if bucket.Total > 0 {
			m.ActiveMembers++
		}
	}

	return m
}

// PerformerStats is one user's workload summary, the input unit for the
// top-performer selection.
type PerformerStats struct {
	User      *model.User
	Total     int
	Completed int
}

// TopPerformer is the selected best performer.
type TopPerformer struct {
	User           *model.User `json:"user"`
	TotalTasks     int         `json:"total_tasks"`
	CompletedTasks int         `json:"completed_tasks"`
	// CompletionRate is completed/total as a percentage, one decimal;
	// 0 when the selected bucket is somehow empty.
	CompletionRate float64 `json:"completion_rate"`
}

// ComputeTopPerformer selects the user with the most DONE tasks, breaking
// ties by total workload (more tasks wins). Returns nil for a nil or empty
// map. Ties beyond completed-then-total resolve to the lowest user ID, which
// keeps the selection reproducible across runs.
func ComputeTopPerformer(perUser map[int64]PerformerStats) *TopPerformer {
	if len(perUser) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(perUser))
	for id := range perUser {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var best *TopPerformer
	var bestStats PerformerStats
	for _, id := range ids {
		stats := perUser[id]
		if best != nil {
			if stats.Completed < bestStats.Completed {
				continue
			}
			if stats.Completed == bestStats.Completed && stats.Total <= bestStats.Total {
				continue
			}
		}
		bestStats = stats
		best = &TopPerformer{
			User:           stats.User,
			TotalTasks:     stats.Total,
			CompletedTasks: stats.Completed,
			CompletionRate: completionRate(stats.Completed, stats.Total),
		}
	}
	return best
}

// ComputePerformerStats folds a task collection into per-user performer
// stats, resolving users from the supplied collection (falling back to the
// task's embedded assignee detail, then to an ID-only stub).
func ComputePerformerStats(tasks []model.Task, users []model.User) map[int64]PerformerStats {
	byID := make(map[int64]*model.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	perUser := make(map[int64]PerformerStats)
	for i := range tasks {
		task := &tasks[i]
		if task.Assignee == nil {
			continue
		}
		id := *task.Assignee
		stats := perUser[id]
		if stats.User == nil {
			switch {
			case byID[id] != nil:
				stats.User = byID[id]
			case task.AssigneeDetail != nil:
				stats.User = task.AssigneeDetail
			default:
				stats.User = &model.User{ID: id}
			}
		}
		stats.Total++
		if task.Status == model.StatusDone {
			stats.Completed++
		}
		perUser[id] = stats
	}
	return perUser
}

func completionRate(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(completed) / float64(total) * 100)
}

// round1 rounds to one decimal place.
func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
