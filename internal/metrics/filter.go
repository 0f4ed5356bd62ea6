package metrics

import (
	"strconv"

	"github.com/sakif/taskflow/internal/model"
)

// Assignee filter keywords. Anything else is parsed as a user ID.
const (
	FilterAll        = "all"
	FilterMine       = "mine"
	FilterUnassigned = "unassigned"
	FilterAssigned   = "assigned"
)

// FilterTasks narrows a task collection by status and assignee. The two
// filters compose with AND semantics: a task must satisfy both.
//
// statusFilter is "all" or an exact status value ("todo", "in_progress",
// "done"). assigneeFilter is "all", "mine" (assignee equals currentUserID),
// "unassigned", "assigned", or a specific user ID in decimal. An
// unparseable assignee filter matches nothing rather than everything;
// silently widening a filter would show a user tasks they didn't ask for.
func FilterTasks(tasks []model.Task, statusFilter, assigneeFilter string, currentUserID int64) []model.Task {
	filtered := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if statusFilter != FilterAll && task.Status != model.Status(statusFilter) {
			continue
		}
		if !matchesAssignee(&task, assigneeFilter, currentUserID) {
			continue
		}
		filtered = append(filtered, task)
	}
	return filtered
}

func matchesAssignee(task *model.Task, filter string, currentUserID int64) bool {
	switch filter {
	case FilterAll, "":
		return true
	case FilterMine:
		return task.Assignee != nil && *task.Assignee == currentUserID
	case FilterUnassigned:
		return task.Assignee == nil
	case FilterAssigned:
		return task.Assignee != nil
	default:
		id, err := strconv.ParseInt(filter, 10, 64)
		if err != nil {
			return false
		}
		return task.Assignee != nil && *task.Assignee == id
	}
}
