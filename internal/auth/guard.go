// Package auth decides who may do what to which task, and recovers the
// acting user from bearer tokens.
package auth

import (
	"github.com/hiroki-koketsu/todo-workflow/internal/model"
)

// Action is an operation subject to authorization.
type Action int

const (
	ActionListEmployees Action = iota + 1
	ActionCreateTask
	ActionListTasks
	ActionViewTask
	ActionEditTask
	ActionRequestCompletion
	ActionDecideCompletion
	ActionViewDashboard
)

func (a Action) String() string {
	switch a {
	case ActionListEmployees:
		return "list_employees"
	case ActionCreateTask:
		return "create_task"
	case ActionListTasks:
		return "list_tasks"
	case ActionViewTask:
		return "view_task"
	case ActionEditTask:
		return "edit_task"
	case ActionRequestCompletion:
		return "request_completion"
	case ActionDecideCompletion:
		return "decide_completion"
	case ActionViewDashboard:
		return "view_dashboard"
	default:
		return "unknown"
	}
}

// roleDenials is the error returned when the actor's role rules an action out.
var roleDenials = map[Action]error{
	ActionListEmployees:     model.ErrPermissionDenied,
	ActionCreateTask:        model.ErrPermissionDenied,
	ActionRequestCompletion: model.ErrEmployeesOnly,
	ActionDecideCompletion:  model.ErrAdminsOnlyDecision,
	ActionViewDashboard:     model.ErrDashboardAdminsOnly,
}

// roleAllows is the role half of every rule.
func roleAllows(role model.Role, action Action) bool {
	switch role {
	case model.RoleAdmin:
		switch action {
		case ActionListEmployees, ActionListTasks, ActionViewTask, ActionEditTask,
			ActionDecideCompletion, ActionViewDashboard:
			return true
		}
	case model.RoleTaskAdmin:
		switch action {
		case ActionCreateTask, ActionListTasks, ActionViewTask, ActionEditTask:
			return true
		}
	case model.RoleEmployee:
		switch action {
		case ActionListTasks, ActionViewTask, ActionEditTask, ActionRequestCompletion:
			return true
		}
	case model.RoleUnknown:
	}
	return false
}

// Authorize returns nil when actor may perform action, or the error to
// surface otherwise. task may be nil to check only the role half of a
// task-scoped rule before the record is loaded.
func Authorize(actor *model.User, action Action, task *model.Task) error {
	if actor == nil {
		return model.ErrUnauthenticated
	}

	if !roleAllows(actor.Role, action) {
		if err, ok := roleDenials[action]; ok {
			return err
		}
		if action == ActionViewTask || action == ActionEditTask {
			return model.ErrTaskNotFound
		}
		return model.ErrPermissionDenied
	}

	if task == nil {
		return nil
	}

	switch action {
	case ActionViewTask, ActionEditTask:
		// Non-owners cannot tell a foreign task from a missing one.
		if !task.OwnedBy(actor.ID) {
			return model.ErrTaskNotFound
		}
	case ActionRequestCompletion:
		if !task.AssignedTo(actor.ID) {
			return model.ErrNotAssignee
		}
	case ActionDecideCompletion:
		if !task.OwnedBy(actor.ID) {
			return model.ErrNotOwner
		}
	}
	return nil
}

// Allowed is Authorize as a predicate.
func Allowed(actor *model.User, action Action, task *model.Task) bool {
	return Authorize(actor, action, task) == nil
}
