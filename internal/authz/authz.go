// Package authz decides whether an actor may perform an action on a task.
//
// The engine is a pure function over two explicit grant tables, one keyed
// by role and one keyed by the actor's relationship to the task, combined by
// union: an action is allowed if ANY table grants it. New roles, actions, or
// relationships are rows in a table, never new conditionals.
//
// Nothing here touches the network or caches a decision; every call
// re-evaluates from its inputs.
package authz

import "github.com/sakif/taskflow/internal/model"

// Action is something an actor can attempt on a task (or, for Create, on the
// task collection).
type Action string

const (
	ActionView         Action = "view"
	ActionCreate       Action = "create"
	ActionEdit         Action = "edit"
	ActionDelete       Action = "delete"
	ActionAssign       Action = "assign"
	ActionComment      Action = "comment"
	ActionUpdateStatus Action = "update_status"
)

// relationship is how the actor relates to the specific task.
type relationship string

const (
	relAssignee relationship = "assignee"
	relCreator  relationship = "creator"
)

// roleGrants is the role half of the capability table.
var roleGrants = map[model.Role]map[Action]bool{
	model.RoleAdmin: {
		ActionView:         true,
		ActionCreate:       true,
		ActionEdit:         true,
		ActionDelete:       true,
		ActionAssign:       true,
		ActionComment:      true,
		ActionUpdateStatus: true,
	},
	model.RoleManager: {
		ActionView:   true,
		ActionCreate: true,
		ActionEdit:   true,
		ActionAssign: true,
	},
	model.RoleMember: {
		ActionView:    true,
		ActionComment: true,
	},
}

// relationGrants is the relationship half. The assignee can work their own
// task; the creator can remove or discuss what they created.
var relationGrants = map[relationship]map[Action]bool{
	relAssignee: {
		ActionEdit:         true,
		ActionUpdateStatus: true,
	},
	relCreator: {
		ActionDelete:  true,
		ActionComment: true,
	},
}

// knownActions is the closed set of recognized actions. Anything else is
// denied outright, whoever asks.
var knownActions = map[Action]bool{
	ActionView:         true,
	ActionCreate:       true,
	ActionEdit:         true,
	ActionDelete:       true,
	ActionAssign:       true,
	ActionComment:      true,
	ActionUpdateStatus: true,
}

// taskFree lists the actions evaluated without a task. Create targets the
// collection, not an existing task; everything else needs one.
var taskFree = map[Action]bool{
	ActionCreate: true,
}

// CanPerform reports whether actor may perform action on task.
//
// Denials are always a false return, never an error; the caller owns any
// user-facing message. A nil actor, an unrecognized action, or a missing
// task (for task-bound actions) all deny.
func CanPerform(actor *model.User, task *model.Task, action Action) bool {
	if actor == nil {
		return false
	}
	if !knownActions[action] {
		return false
	}
	if task == nil && !taskFree[action] {
		return false
	}

	if roleGrants[actor.Role][action] {
		return true
	}

	if task != nil {
		if task.Assignee != nil && *task.Assignee == actor.ID &&
			relationGrants[relAssignee][action] {
			return true
		}
		if task.CreatedBy != nil && *task.CreatedBy == actor.ID &&
			relationGrants[relCreator][action] {
			return true
		}
	}
	return false
}
