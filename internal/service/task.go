// Package service implements the task workflow: creation, the completion
// request and approval cycle, owner edits, role-scoped listings and the
// admin dashboard.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hiroki-koketsu/todo-workflow/internal/auth"
	"github.com/hiroki-koketsu/todo-workflow/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/todo-workflow/internal/service")

// TaskStore persists tasks. Update must apply fn atomically per task: no
// other Update of the same task may interleave between the read and the write.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) (*model.Task, error)
	GetByID(ctx context.Context, id string) (*model.Task, error)
	Update(ctx context.Context, id string, fn func(*model.Task) error) (*model.Task, error)
	List(ctx context.Context, filter model.TaskFilter) ([]*model.Task, error)
}

// UserDirectory resolves accounts managed outside this service.
type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	ListActiveByRole(ctx context.Context, role model.Role) ([]*model.User, error)
}

// TaskService runs every task operation on behalf of an explicit actor.
type TaskService struct {
	tasks  TaskStore
	users  UserDirectory
	logger *slog.Logger
	now    func() time.Time
}

// NewTaskService creates a TaskService.
func NewTaskService(tasks TaskStore, users UserDirectory, logger *slog.Logger) *TaskService {
	return &TaskService{
		tasks:  tasks,
		users:  users,
		logger: logger,
		now:    time.Now,
	}
}

// CreateTask stores a new task owned by actor.
func (s *TaskService) CreateTask(ctx context.Context, actor *model.User, req *model.CreateTaskRequest) (*model.TaskView, error) {
	ctx, span := tracer.Start(ctx, "TaskService.CreateTask")
	defer span.End()

	if err := auth.Authorize(actor, auth.ActionCreateTask, nil); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var assignee *model.User
	assigneeID := req.AssigneeID()
	if assigneeID != nil {
		u, err := s.users.GetByID(ctx, *assigneeID)
		if err != nil {
			if errors.Is(err, model.ErrUserNotFound) {
				return nil, model.ErrAssigneeNotFound
			}
			return nil, fmt.Errorf("failed to resolve assignee: %w", err)
		}
		if !u.Usable() {
			return nil, model.ErrAssigneeNotFound
		}
		assignee = u
	}

	task, err := s.tasks.Create(ctx, model.NewTask(actor.ID, req, assigneeID))
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("task.id", task.ID))
	view := &model.TaskView{Task: task, OwnerName: actor.FullName()}
	if assignee != nil {
		name := assignee.FullName()
		view.AssignedUserName = &name
	}
	return view, nil
}

// RequestCompletion lets the assignee flag the task as ready for review.
func (s *TaskService) RequestCompletion(ctx context.Context, actor *model.User, id string) (*model.TaskView, error) {
	ctx, span := tracer.Start(ctx, "TaskService.RequestCompletion",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	if err := auth.Authorize(actor, auth.ActionRequestCompletion, nil); err != nil {
		return nil, err
	}

	task, err := s.tasks.Update(ctx, id, func(t *model.Task) error {
		if err := auth.Authorize(actor, auth.ActionRequestCompletion, t); err != nil {
			return err
		}
		return t.RequestCompletion()
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "completion requested",
		slog.String("task_id", id),
		slog.Int64("assignee_id", actor.ID),
	)
	return s.view(ctx, task, nil)
}

// DecideCompletion applies the owner's approval or rejection.
func (s *TaskService) DecideCompletion(ctx context.Context, actor *model.User, id string, req *model.DecisionRequest) (*model.TaskView, model.Decision, error) {
	ctx, span := tracer.Start(ctx, "TaskService.DecideCompletion",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	if err := auth.Authorize(actor, auth.ActionDecideCompletion, nil); err != nil {
		return nil, 0, err
	}

	var decision model.Decision
	task, err := s.tasks.Update(ctx, id, func(t *model.Task) error {
		if err := auth.Authorize(actor, auth.ActionDecideCompletion, t); err != nil {
			return err
		}

		d, reason, err := req.Decision()
		if err != nil {
			return err
		}
		decision = d

		switch d {
		case model.DecisionApprove:
			t.Approve()
			return nil
		case model.DecisionReject:
			// Rejection also resets tasks with no pending request.
			// TODO: require CompleteRequested once clients stop using reject as a reset.
			return t.Reject(reason)
		default:
			return model.ErrInvalidDecision
		}
	})
	if err != nil {
		return nil, 0, err
	}

	span.SetAttributes(attribute.String("task.decision", decision.String()))
	s.logger.InfoContext(ctx, "completion decided",
		slog.String("task_id", id),
		slog.String("decision", decision.String()),
		slog.Int("rejections", len(task.ReasonForReject)),
	)

	view, err := s.view(ctx, task, nil)
	if err != nil {
		return nil, 0, err
	}
	return view, decision, nil
}

// EditTask applies the owner's partial update, including soft deletion.
func (s *TaskService) EditTask(ctx context.Context, actor *model.User, id string, req *model.EditTaskRequest) (*model.TaskView, error) {
	ctx, span := tracer.Start(ctx, "TaskService.EditTask",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	if err := auth.Authorize(actor, auth.ActionEditTask, nil); err != nil {
		return nil, err
	}

	task, err := s.tasks.Update(ctx, id, func(t *model.Task) error {
		if err := auth.Authorize(actor, auth.ActionEditTask, t); err != nil {
			return err
		}
		return t.ApplyEdit(req)
	})
	if err != nil {
		return nil, err
	}

	if task.IsDeleted {
		s.logger.InfoContext(ctx, "task soft-deleted", slog.String("task_id", id))
	}
	return s.view(ctx, task, nil)
}

// GetTaskDetail returns a task to its owner. Everyone else sees not found.
func (s *TaskService) GetTaskDetail(ctx context.Context, actor *model.User, id string) (*model.TaskView, error) {
	ctx, span := tracer.Start(ctx, "TaskService.GetTaskDetail",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	if err := auth.Authorize(actor, auth.ActionViewTask, nil); err != nil {
		return nil, err
	}

	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(actor, auth.ActionViewTask, task); err != nil {
		return nil, err
	}
	return s.view(ctx, task, nil)
}

// view attaches display names. names caches lookups across a listing.
func (s *TaskService) view(ctx context.Context, task *model.Task, names map[int64]string) (*model.TaskView, error) {
	if names == nil {
		names = make(map[int64]string)
	}

	owner, err := s.displayName(ctx, task.OwnerID, names)
	if err != nil {
		return nil, err
	}
	view := &model.TaskView{Task: task, OwnerName: owner}

	if task.AssignedUserID != nil {
		name, err := s.displayName(ctx, *task.AssignedUserID, names)
		if err != nil {
			return nil, err
		}
		view.AssignedUserName = &name
	}
	return view, nil
}

func (s *TaskService) displayName(ctx context.Context, id int64, names map[int64]string) (string, error) {
	if name, ok := names[id]; ok {
		return name, nil
	}

	u, err := s.users.GetByID(ctx, id)
	switch {
	case errors.Is(err, model.ErrUserNotFound):
		names[id] = ""
		return "", nil
	case err != nil:
		return "", fmt.Errorf("failed to resolve user %d: %w", id, err)
	}

	names[id] = u.FullName()
	return names[id], nil
}
