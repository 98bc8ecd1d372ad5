package service

import (
	"context"
	"strings"
	"time"

	"github.com/hiroki-koketsu/todo-workflow/internal/auth"
	"github.com/hiroki-koketsu/todo-workflow/internal/model"
	"go.opentelemetry.io/otel/attribute"
)

var (
	truthyTokens = map[string]bool{"true": true, "1": true, "yes": true}
	falsyTokens  = map[string]bool{"false": true, "0": true, "no": true}
)

// ParseCompletionFlag reads the is_completed list filter. Unrecognized
// values mean no filter.
func ParseCompletionFlag(raw string) *bool {
	v := strings.ToLower(raw)
	switch {
	case truthyTokens[v]:
		b := true
		return &b
	case falsyTokens[v]:
		b := false
		return &b
	default:
		return nil
	}
}

// parseDueBound reads an RFC 3339 timestamp or a plain date. Empty means unbounded.
func parseDueBound(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, model.ErrInvalidDueDate
}

// listFilter scopes a listing to what actor may see.
func listFilter(actor *model.User, q model.ListTasksQuery) (model.TaskFilter, error) {
	var filter model.TaskFilter

	switch actor.Role {
	case model.RoleAdmin:
	case model.RoleTaskAdmin, model.RoleEmployee:
		id := actor.ID
		filter.ParticipantID = &id
	default:
		return filter, model.ErrPermissionDenied
	}

	filter.IsCompleted = ParseCompletionFlag(q.IsCompleted)

	var err error
	if filter.DueFrom, err = parseDueBound(q.DueDateStart); err != nil {
		return filter, err
	}
	if filter.DueTo, err = parseDueBound(q.DueDateEnd); err != nil {
		return filter, err
	}
	return filter, nil
}

// ListTasks returns every live task to admins, and owned or assigned tasks
// to everyone else, newest first.
func (s *TaskService) ListTasks(ctx context.Context, actor *model.User, q model.ListTasksQuery) ([]*model.TaskView, error) {
	ctx, span := tracer.Start(ctx, "TaskService.ListTasks")
	defer span.End()

	if err := auth.Authorize(actor, auth.ActionListTasks, nil); err != nil {
		return nil, err
	}

	filter, err := listFilter(actor, q)
	if err != nil {
		return nil, err
	}

	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	names := make(map[int64]string)
	views := make([]*model.TaskView, 0, len(tasks))
	for _, task := range tasks {
		view, err := s.view(ctx, task, names)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}

	span.SetAttributes(attribute.Int("task.count", len(views)))
	return views, nil
}

// ListEmployees returns the active employees an admin can assign work to.
func (s *TaskService) ListEmployees(ctx context.Context, actor *model.User) ([]*model.User, error) {
	ctx, span := tracer.Start(ctx, "TaskService.ListEmployees")
	defer span.End()

	if err := auth.Authorize(actor, auth.ActionListEmployees, nil); err != nil {
		return nil, err
	}
	return s.users.ListActiveByRole(ctx, model.RoleEmployee)
}
