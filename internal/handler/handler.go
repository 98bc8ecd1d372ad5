// Package handler exposes the task workflow over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hiroki-koketsu/todo-workflow/internal/model"
	"github.com/hiroki-koketsu/todo-workflow/internal/service"
	"github.com/hiroki-koketsu/todo-workflow/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/todo-workflow/internal/handler")

// Route patterns, relative to the /api/todo mount point. They double as
// the http.route metric attribute.
const (
	routeEmployees   = "/employee-list"
	routeCreate      = "/create-task"
	routeList        = "/tasks-list"
	routeDetail      = "/task-detail/{id}"
	routeRequest     = "/tasks/{id}/request-complete"
	routeDecision    = "/tasks/{id}/approve-or-reject"
	routeDashboard   = "/dashboard"
	internalErrorMsg = "internal server error"
)

// TaskHandler handles HTTP requests for the task workflow.
type TaskHandler struct {
	tasks   *service.TaskService
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks *service.TaskService, logger *slog.Logger, metrics *telemetry.Metrics) *TaskHandler {
	return &TaskHandler{
		tasks:   tasks,
		logger:  logger,
		metrics: metrics,
	}
}

// Routes returns the task workflow routes. Callers mount them behind
// Authenticate.
func (h *TaskHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get(routeEmployees, h.ListEmployees)
	r.Post(routeCreate, h.CreateTask)
	r.Get(routeList, h.ListTasks)
	r.Get(routeDetail, h.GetTaskDetail)
	r.Patch(routeDetail, h.EditTask)
	r.Patch(routeRequest, h.RequestCompletion)
	r.Patch(routeDecision, h.DecideCompletion)
	r.Get(routeDashboard, h.Dashboard)

	return r
}

// Health returns a health check response.
func (h *TaskHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeJSON reads the request body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// errorResponse maps err to a status code, body key and message.
func errorResponse(err error) (int, string, string) {
	var te model.TaskError
	if !errors.As(err, &te) {
		return http.StatusInternalServerError, model.KeyError, internalErrorMsg
	}

	switch te.Kind {
	case model.KindValidation, model.KindBadRequest, model.KindConflict:
		return http.StatusBadRequest, te.Key, te.Message
	case model.KindNotFound:
		return http.StatusNotFound, te.Key, te.Message
	case model.KindForbidden:
		return http.StatusForbidden, te.Key, te.Message
	case model.KindUnauthorized:
		return http.StatusUnauthorized, te.Key, te.Message
	default:
		return http.StatusInternalServerError, model.KeyError, internalErrorMsg
	}
}

func (h *TaskHandler) succeed(ctx context.Context, w http.ResponseWriter, r *http.Request, route string, start time.Time, status int, message string, body any) {
	respondJSON(w, status, envelope{Status: status, Message: message, Response: body})
	h.recordMetrics(ctx, r.Method, route, status, start)
}

func (h *TaskHandler) fail(ctx context.Context, w http.ResponseWriter, r *http.Request, route string, start time.Time, err error) {
	status, key, message := errorResponse(err)

	if status == http.StatusInternalServerError {
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.logger.ErrorContext(ctx, "request failed",
			slog.String("route", route),
			slog.Any("error", err),
		)
	} else {
		h.logger.WarnContext(ctx, "request rejected",
			slog.String("route", route),
			slog.Int("status", status),
			slog.String("reason", message),
		)
	}

	respondError(w, status, key, message)
	h.recordMetrics(ctx, r.Method, route, status, start)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, key, message string) {
	respondJSON(w, status, map[string]string{key: message})
}

func writeError(w http.ResponseWriter, err error) {
	status, key, message := errorResponse(err)
	respondError(w, status, key, message)
}

func (h *TaskHandler) recordMetrics(ctx context.Context, method, route string, status int, start time.Time) {
	duration := time.Since(start).Seconds()

	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", "/api/todo"+route),
		attribute.Int("http.status_code", status),
	)

	h.metrics.RequestCounter.Add(ctx, 1, attrs)
	h.metrics.RequestDuration.Record(ctx, duration, attrs)
}
