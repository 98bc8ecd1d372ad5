package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hiroki-koketsu/todo-workflow/internal/auth"
	"github.com/hiroki-koketsu/todo-workflow/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ListEmployees returns the active employees.
func (h *TaskHandler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TaskHandler.ListEmployees")
	defer span.End()

	actor, _ := auth.ActorFrom(ctx)
	employees, err := h.tasks.ListEmployees(ctx, actor)
	if err != nil {
		h.fail(ctx, w, r, routeEmployees, start, err)
		return
	}

	span.SetAttributes(attribute.Int("employee.count", len(employees)))
	h.succeed(ctx, w, r, routeEmployees, start, http.StatusOK,
		"Employee users retrieved successfully.", newEmployeeResponses(employees))
}

// CreateTask adds a task owned by the caller.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TaskHandler.CreateTask")
	defer span.End()

	var req model.CreateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid request body", slog.Any("error", err))
		h.fail(ctx, w, r, routeCreate, start, model.ErrInvalidBody)
		return
	}

	actor, _ := auth.ActorFrom(ctx)
	view, err := h.tasks.CreateTask(ctx, actor, &req)
	if err != nil {
		h.fail(ctx, w, r, routeCreate, start, err)
		return
	}

	span.SetAttributes(attribute.String("task.id", view.Task.ID))
	h.metrics.RecordTransition(ctx, "create")
	h.logger.InfoContext(ctx, "task created",
		slog.String("id", view.Task.ID),
		slog.Int64("owner_id", view.Task.OwnerID),
	)

	h.succeed(ctx, w, r, routeCreate, start, http.StatusCreated,
		"Task created successfully.", newCreatedTaskResponse(view))
}

// ListTasks returns the caller's role-scoped, filtered task list.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TaskHandler.ListTasks")
	defer span.End()

	q := r.URL.Query()
	query := model.ListTasksQuery{
		IsCompleted:  q.Get("is_completed"),
		DueDateStart: q.Get("due_date_start"),
		DueDateEnd:   q.Get("due_date_end"),
	}

	actor, _ := auth.ActorFrom(ctx)
	views, err := h.tasks.ListTasks(ctx, actor, query)
	if err != nil {
		h.fail(ctx, w, r, routeList, start, err)
		return
	}

	span.SetAttributes(attribute.Int("task.count", len(views)))
	h.succeed(ctx, w, r, routeList, start, http.StatusOK,
		"Tasks retrieved successfully.", newTaskList(views))
}

// GetTaskDetail returns one of the caller's own tasks.
func (h *TaskHandler) GetTaskDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TaskHandler.GetTaskDetail",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	actor, _ := auth.ActorFrom(ctx)
	view, err := h.tasks.GetTaskDetail(ctx, actor, id)
	if err != nil {
		h.fail(ctx, w, r, routeDetail, start, err)
		return
	}

	h.succeed(ctx, w, r, routeDetail, start, http.StatusOK,
		"Task retrieved successfully.", newTaskDetailResponse(view))
}

// EditTask applies a partial update to one of the caller's own tasks.
func (h *TaskHandler) EditTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TaskHandler.EditTask",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	var req model.EditTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid request body", slog.Any("error", err))
		h.fail(ctx, w, r, routeDetail, start, model.ErrInvalidBody)
		return
	}

	actor, _ := auth.ActorFrom(ctx)
	view, err := h.tasks.EditTask(ctx, actor, id, &req)
	if err != nil {
		h.fail(ctx, w, r, routeDetail, start, err)
		return
	}

	if view.Task.IsDeleted {
		h.metrics.RecordTransition(ctx, "delete")
	}
	h.logger.InfoContext(ctx, "task updated", slog.String("id", id))

	h.succeed(ctx, w, r, routeDetail, start, http.StatusOK,
		"Task updated successfully.", newTaskDetailResponse(view))
}

// RequestCompletion flags the task as done on behalf of its assignee.
func (h *TaskHandler) RequestCompletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TaskHandler.RequestCompletion",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	actor, _ := auth.ActorFrom(ctx)
	view, err := h.tasks.RequestCompletion(ctx, actor, id)
	if err != nil {
		h.fail(ctx, w, r, routeRequest, start, err)
		return
	}

	h.metrics.RecordTransition(ctx, "request_completion")
	h.succeed(ctx, w, r, routeRequest, start, http.StatusOK,
		"Completion request submitted successfully.", completionRequestResponse{
			ID:                view.Task.ID,
			Title:             view.Task.Title,
			AssignedUser:      view.AssignedUserName,
			CompleteRequested: view.Task.CompleteRequested,
		})
}

// DecideCompletion approves or rejects the assignee's completion request.
func (h *TaskHandler) DecideCompletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TaskHandler.DecideCompletion",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	// A body that does not decode is an invalid decision, reported only
	// after the role, existence and ownership checks pass.
	var req model.DecisionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid decision body", slog.Any("error", err))
		req = model.DecisionRequest{}
	}

	actor, _ := auth.ActorFrom(ctx)
	view, decision, err := h.tasks.DecideCompletion(ctx, actor, id, &req)
	if err != nil {
		h.fail(ctx, w, r, routeDecision, start, err)
		return
	}

	h.metrics.RecordTransition(ctx, decision.String())

	message := "Task marked as completed by admin."
	if decision == model.DecisionReject {
		message = "Completion request rejected by admin."
	}
	h.succeed(ctx, w, r, routeDecision, start, http.StatusOK, message, decisionResponse{
		ID:                view.Task.ID,
		Title:             view.Task.Title,
		IsCompleted:       view.Task.IsCompleted,
		CompleteRequested: view.Task.CompleteRequested,
		ReasonForReject:   view.Task.ReasonForReject,
	})
}

// Dashboard returns the admin's summary, or the stalled or completed tasks
// when is_rejected is given.
func (h *TaskHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TaskHandler.Dashboard")
	defer span.End()

	var isRejected *string
	if q := r.URL.Query(); q.Has("is_rejected") {
		v := q.Get("is_rejected")
		isRejected = &v
	}

	actor, _ := auth.ActorFrom(ctx)
	result, err := h.tasks.Dashboard(ctx, actor, isRejected)
	if err != nil {
		h.fail(ctx, w, r, routeDashboard, start, err)
		return
	}

	switch result.View {
	case model.DashboardStalledView:
		h.succeed(ctx, w, r, routeDashboard, start, http.StatusOK,
			"Rejected / overdue tasks retrieved successfully.", newDashboardTasks(result.Tasks))
	case model.DashboardCompletedView:
		h.succeed(ctx, w, r, routeDashboard, start, http.StatusOK,
			"Completed tasks retrieved successfully.", newDashboardTasks(result.Tasks))
	default:
		h.succeed(ctx, w, r, routeDashboard, start, http.StatusOK,
			"Admin dashboard data retrieved successfully.", result.Summary)
	}
}
