package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hiroki-koketsu/todo-workflow/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/todo-workflow/internal/repository")

// record guards one task. Mutations of different tasks do not contend.
type record struct {
	mu   sync.Mutex
	task *model.Task
	seq  uint64
}

func (rec *record) snapshot() (*model.Task, uint64) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.task.Clone(), rec.seq
}

// TaskRepository provides an in-memory storage for tasks.
type TaskRepository struct {
	mu      sync.RWMutex
	records map[string]*record
	seq     uint64
	now     func() time.Time
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository() *TaskRepository {
	return &TaskRepository{
		records: make(map[string]*record),
		now:     time.Now,
	}
}

// Create stores task under a new id and returns the stored copy.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskRepository.Create",
		trace.WithAttributes(attribute.String("task.title", task.Title)),
	)
	defer span.End()

	stored := task.Clone()
	stored.ID = uuid.New().String()
	now := r.now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	r.mu.Lock()
	r.seq++
	r.records[stored.ID] = &record{task: stored, seq: r.seq}
	r.mu.Unlock()

	span.SetAttributes(attribute.String("task.id", stored.ID))
	return stored.Clone(), nil
}

func (r *TaskRepository) lookup(id string) (*record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	return rec, ok
}

// GetByID retrieves a live task by its ID.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskRepository.GetByID",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	rec, ok := r.lookup(id)
	if !ok {
		span.SetAttributes(attribute.Bool("task.found", false))
		return nil, model.ErrTaskNotFound
	}

	task, _ := rec.snapshot()
	if task.IsDeleted {
		span.SetAttributes(attribute.Bool("task.found", false))
		return nil, model.ErrTaskNotFound
	}

	span.SetAttributes(attribute.Bool("task.found", true))
	return task, nil
}

// Update runs fn on a copy of the live task while holding the task's lock
// and stores the copy only if fn succeeds.
func (r *TaskRepository) Update(ctx context.Context, id string, fn func(*model.Task) error) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskRepository.Update",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	rec, ok := r.lookup(id)
	if !ok {
		span.SetAttributes(attribute.Bool("task.found", false))
		return nil, model.ErrTaskNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.task.IsDeleted {
		span.SetAttributes(attribute.Bool("task.found", false))
		return nil, model.ErrTaskNotFound
	}

	next := rec.task.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = rec.task.ID
	next.OwnerID = rec.task.OwnerID
	next.CreatedAt = rec.task.CreatedAt
	next.UpdatedAt = r.now().UTC()
	rec.task = next

	span.SetAttributes(attribute.Bool("task.found", true))
	return next.Clone(), nil
}

// List returns the live tasks matching filter, newest first.
func (r *TaskRepository) List(ctx context.Context, filter model.TaskFilter) ([]*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskRepository.List")
	defer span.End()

	r.mu.RLock()
	recs := make([]*record, 0, len(r.records))
	for _, rec := range r.records {
		recs = append(recs, rec)
	}
	r.mu.RUnlock()

	type entry struct {
		task *model.Task
		seq  uint64
	}
	entries := make([]entry, 0, len(recs))
	for _, rec := range recs {
		task, seq := rec.snapshot()
		if filter.Match(task) {
			entries = append(entries, entry{task: task, seq: seq})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.task.CreatedAt.Equal(b.task.CreatedAt) {
			return a.task.CreatedAt.After(b.task.CreatedAt)
		}
		return a.seq > b.seq
	})

	tasks := make([]*model.Task, len(entries))
	for i, e := range entries {
		tasks[i] = e.task
	}

	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	return tasks, nil
}

// UnassignUser clears the assignee on every task assigned to userID.
func (r *TaskRepository) UnassignUser(ctx context.Context, userID int64) (int, error) {
	ctx, span := tracer.Start(ctx, "TaskRepository.UnassignUser",
		trace.WithAttributes(attribute.Int64("user.id", userID)),
	)
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	cleared := 0
	now := r.now().UTC()
	for _, rec := range r.records {
		rec.mu.Lock()
		if rec.task.AssignedTo(userID) {
			next := rec.task.Clone()
			next.AssignedUserID = nil
			next.UpdatedAt = now
			rec.task = next
			cleared++
		}
		rec.mu.Unlock()
	}

	span.SetAttributes(attribute.Int("task.count", cleared))
	return cleared, nil
}

// Count returns the current number of live tasks.
func (r *TaskRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, rec := range r.records {
		rec.mu.Lock()
		if !rec.task.IsDeleted {
			n++
		}
		rec.mu.Unlock()
	}
	return n, nil
}
