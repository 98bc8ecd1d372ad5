package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hiroki-koketsu/todo-workflow/internal/model"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/todo-workflow/internal/repository/postgres")

const taskColumns = `id, owner_id, assigned_user_id, title, description, due_date,
	is_completed, complete_requested, reason_for_reject, is_deleted, created_at, updated_at`

// TaskStore persists tasks in the tasks table.
type TaskStore struct {
	db *sqlx.DB
}

// NewTaskStore creates a TaskStore on db.
func NewTaskStore(db *sqlx.DB) *TaskStore {
	return &TaskStore{db: db}
}

// Create inserts task under a new id.
func (s *TaskStore) Create(ctx context.Context, task *model.Task) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskStore.Create",
		trace.WithAttributes(attribute.String("task.title", task.Title)),
	)
	defer span.End()

	stored := task.Clone()
	stored.ID = uuid.New().String()
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES (:id, :owner_id, :assigned_user_id, :title, :description, :due_date,
			:is_completed, :complete_requested, :reason_for_reject, :is_deleted, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, query, stored); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	span.SetAttributes(attribute.String("task.id", stored.ID))
	return stored, nil
}

// GetByID retrieves a live task by its ID.
func (s *TaskStore) GetByID(ctx context.Context, id string) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskStore.GetByID",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, model.ErrTaskNotFound
	}

	var task model.Task
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND is_deleted = FALSE`
	if err := s.db.GetContext(ctx, &task, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			span.SetAttributes(attribute.Bool("task.found", false))
			return nil, model.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	span.SetAttributes(attribute.Bool("task.found", true))
	return &task, nil
}

// Update locks the task row, runs fn on it and writes it back in one
// transaction. Concurrent updates to the same task are serialized.
func (s *TaskStore) Update(ctx context.Context, id string, fn func(*model.Task) error) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskStore.Update",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, model.ErrTaskNotFound
	}

	var updated model.Task
	err := withTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND is_deleted = FALSE FOR UPDATE`
		if err := tx.GetContext(ctx, &updated, query, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.ErrTaskNotFound
			}
			return fmt.Errorf("failed to lock task: %w", err)
		}

		ownerID, createdAt := updated.OwnerID, updated.CreatedAt
		if err := fn(&updated); err != nil {
			return err
		}
		updated.ID = id
		updated.OwnerID = ownerID
		updated.CreatedAt = createdAt
		updated.UpdatedAt = time.Now().UTC()

		_, err := tx.NamedExecContext(ctx, `
			UPDATE tasks SET
				assigned_user_id = :assigned_user_id,
				title = :title,
				description = :description,
				due_date = :due_date,
				is_completed = :is_completed,
				complete_requested = :complete_requested,
				reason_for_reject = :reason_for_reject,
				is_deleted = :is_deleted,
				updated_at = :updated_at
			WHERE id = :id`, &updated)
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

// List returns the live tasks matching filter, newest first.
func (s *TaskStore) List(ctx context.Context, filter model.TaskFilter) ([]*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskStore.List")
	defer span.End()

	conditions := []string{"is_deleted = FALSE"}
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.OwnerID != nil {
		conditions = append(conditions, "owner_id = "+arg(*filter.OwnerID))
	}
	if filter.ParticipantID != nil {
		p := arg(*filter.ParticipantID)
		conditions = append(conditions, fmt.Sprintf("(owner_id = %s OR assigned_user_id = %s)", p, p))
	}
	if filter.IsCompleted != nil {
		conditions = append(conditions, "is_completed = "+arg(*filter.IsCompleted))
	}
	if filter.DueFrom != nil {
		conditions = append(conditions, "due_date >= "+arg(*filter.DueFrom))
	}
	if filter.DueTo != nil {
		conditions = append(conditions, "due_date <= "+arg(*filter.DueTo))
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY created_at DESC`

	var tasks []*model.Task
	if err := s.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	return tasks, nil
}

// UnassignUser clears the assignee on every task assigned to userID.
func (s *TaskStore) UnassignUser(ctx context.Context, userID int64) (int, error) {
	ctx, span := tracer.Start(ctx, "TaskStore.UnassignUser",
		trace.WithAttributes(attribute.Int64("user.id", userID)),
	)
	defer span.End()

	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET assigned_user_id = NULL, updated_at = NOW() WHERE assigned_user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to unassign user: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

// Count returns the current number of live tasks.
func (s *TaskStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM tasks WHERE is_deleted = FALSE`); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return n, nil
}
