package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hiroki-koketsu/todo-workflow/internal/auth"
	"github.com/hiroki-koketsu/todo-workflow/internal/model"
	"github.com/hiroki-koketsu/todo-workflow/internal/repository"
	"github.com/hiroki-koketsu/todo-workflow/internal/service"
	"github.com/hiroki-koketsu/todo-workflow/internal/telemetry"
	"go.opentelemetry.io/otel/metric/noop"
)

const testSecret = "handler-secret"

// Seeded user ids.
const (
	adminID int64 = iota + 1
	otherAdminID
	taskAdminID
	employeeID
	otherEmployeeID
)

type testEnv struct {
	router http.Handler
	tasks  *repository.TaskRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := repository.NewUserRepository(
		&model.User{ID: adminID, FirstName: "Ada", LastName: "Admin", Email: "ada@example.com", Role: model.RoleAdmin, IsActive: true},
		&model.User{ID: otherAdminID, FirstName: "Other", LastName: "Admin", Role: model.RoleAdmin, IsActive: true},
		&model.User{ID: taskAdminID, FirstName: "Todo", LastName: "Admin", Role: model.RoleTaskAdmin, IsActive: true},
		&model.User{ID: employeeID, FirstName: "Ali", LastName: "Veli", Email: "ali@example.com", Role: model.RoleEmployee, IsActive: true},
		&model.User{ID: otherEmployeeID, FirstName: "Ayse", LastName: "Kaya", Email: "ayse@example.com", Role: model.RoleEmployee, IsActive: true},
	)
	tasks := repository.NewTaskRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	metrics, err := telemetry.NewMetrics(noop.NewMeterProvider().Meter("test"), tasks.Count)
	if err != nil {
		t.Fatal(err)
	}
	h := NewTaskHandler(service.NewTaskService(tasks, users, logger), logger, metrics)

	r := chi.NewRouter()
	r.Get("/health", h.Health)
	r.Route("/api/todo", func(r chi.Router) {
		r.Use(Authenticate(auth.NewTokenVerifier(testSecret), users, logger))
		r.Mount("/", h.Routes())
	})

	return &testEnv{router: r, tasks: tasks}
}

func token(t *testing.T, userID int64) string {
	t.Helper()
	claims := auth.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func (e *testEnv) do(t *testing.T, method, path string, userID int64, body string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, out
}

func (e *testEnv) seed(t *testing.T, task *model.Task) string {
	t.Helper()
	created, err := e.tasks.Create(context.Background(), task)
	if err != nil {
		t.Fatal(err)
	}
	return created.ID
}

func response(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	r, ok := body["response"].(map[string]any)
	if !ok {
		t.Fatalf("response is not an object: %v", body)
	}
	return r
}

func assigned(id int64) *int64 { return &id }

func TestCreateTaskEndpoint(t *testing.T) {
	e := newTestEnv(t)

	status, body := e.do(t, http.MethodPost, "/api/todo/create-task", taskAdminID,
		`{"title":"Test Task","description":"This is a test task.","due_date":"2025-12-31T00:00:00Z"}`)
	if status != http.StatusCreated {
		t.Fatalf("status %d: %v", status, body)
	}
	if body["status"] != float64(201) || body["message"] != "Task created successfully." {
		t.Fatalf("envelope %v", body)
	}
	got := response(t, body)
	if got["title"] != "Test Task" || got["is_completed"] != false || got["assigned_user_name"] != nil {
		t.Fatalf("response %v", got)
	}

	stored, err := e.tasks.GetByID(context.Background(), got["id"].(string))
	if err != nil || stored.OwnerID != taskAdminID {
		t.Fatalf("stored %+v, %v", stored, err)
	}
}

func TestCreateTaskEndpointErrors(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name   string
		userID int64
		body   string
		status int
		key    string
		msg    string
	}{
		{"empty title", taskAdminID, `{"title":""}`, http.StatusBadRequest, "error", "title field cannot be empty."},
		{"unknown assignee", taskAdminID, `{"title":"t","assigned_user":999}`, http.StatusNotFound, "error", "assigned_user not found."},
		{"malformed", taskAdminID, `{"title":`, http.StatusBadRequest, "error", "invalid request body"},
		{"employee", employeeID, `{"title":"t"}`, http.StatusForbidden, "detail", "You do not have permission to perform this action."},
		{"anonymous", 0, `{"title":"t"}`, http.StatusUnauthorized, "detail", "Authentication credentials were not provided."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := e.do(t, http.MethodPost, "/api/todo/create-task", tt.userID, tt.body)
			if status != tt.status || body[tt.key] != tt.msg {
				t.Fatalf("got %d %v, want %d {%s: %s}", status, body, tt.status, tt.key, tt.msg)
			}
		})
	}

	if n, _ := e.tasks.Count(context.Background()); n != 0 {
		t.Fatalf("%d tasks persisted", n)
	}
}

func TestInvalidToken(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/todo/tasks-list", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "Given token not valid") {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestCompletionWorkflowEndpoints(t *testing.T) {
	e := newTestEnv(t)
	id := e.seed(t, &model.Task{OwnerID: adminID, AssignedUserID: assigned(employeeID), Title: "t"})
	requestPath := "/api/todo/tasks/" + id + "/request-complete"
	decisionPath := "/api/todo/tasks/" + id + "/approve-or-reject"

	status, body := e.do(t, http.MethodPatch, requestPath, otherEmployeeID, "")
	if status != http.StatusForbidden || body["detail"] != "You are not assigned to this task." {
		t.Fatalf("non-assignee: %d %v", status, body)
	}

	status, body = e.do(t, http.MethodPatch, requestPath, employeeID, "")
	if status != http.StatusOK || body["message"] != "Completion request submitted successfully." {
		t.Fatalf("request: %d %v", status, body)
	}
	if got := response(t, body); got["assigned_user"] != "Ali Veli" || got["complete_requested"] != true {
		t.Fatalf("request response %v", got)
	}

	status, body = e.do(t, http.MethodPatch, requestPath, employeeID, "")
	if status != http.StatusBadRequest || body["detail"] != "Completion request already submitted." {
		t.Fatalf("duplicate: %d %v", status, body)
	}

	status, body = e.do(t, http.MethodPatch, decisionPath, adminID, `{"complete_requested":false}`)
	if status != http.StatusBadRequest || body["detail"] != "reason field is required when rejecting completion request." {
		t.Fatalf("no reason: %d %v", status, body)
	}

	status, body = e.do(t, http.MethodPatch, decisionPath, adminID, `{"complete_requested":false,"reason":"incomplete"}`)
	if status != http.StatusOK || body["message"] != "Completion request rejected by admin." {
		t.Fatalf("reject: %d %v", status, body)
	}
	rejected := response(t, body)
	log, ok := rejected["reason_for_reject"].([]any)
	if !ok || len(log) != 1 {
		t.Fatalf("reason_for_reject %v", rejected["reason_for_reject"])
	}
	if rec := log[0].(map[string]any); rec["id"] != float64(1) || rec["reason"] != "incomplete" {
		t.Fatalf("record %v", rec)
	}

	if status, body = e.do(t, http.MethodPatch, requestPath, employeeID, ""); status != http.StatusOK {
		t.Fatalf("re-request: %d %v", status, body)
	}
	status, body = e.do(t, http.MethodPatch, decisionPath, adminID, `{"is_completed":true}`)
	if status != http.StatusOK || body["message"] != "Task marked as completed by admin." {
		t.Fatalf("approve: %d %v", status, body)
	}
	approved := response(t, body)
	if approved["is_completed"] != true || approved["complete_requested"] != false || len(approved["reason_for_reject"].([]any)) != 1 {
		t.Fatalf("approve response %v", approved)
	}
}

func TestDecisionCheckOrder(t *testing.T) {
	e := newTestEnv(t)
	id := e.seed(t, &model.Task{OwnerID: adminID, Title: "t", CompleteRequested: true})
	path := "/api/todo/tasks/" + id + "/approve-or-reject"

	tests := []struct {
		name   string
		userID int64
		path   string
		body   string
		status int
		msg    string
	}{
		{"role before payload", taskAdminID, path, `not json`, http.StatusForbidden, "Only admins can approve or reject completion requests."},
		{"existence before payload", adminID, "/api/todo/tasks/missing/approve-or-reject", `{}`, http.StatusNotFound, "Task not found."},
		{"ownership before payload", otherAdminID, path, `{}`, http.StatusForbidden, "You are not the owner of this task."},
		{"malformed payload", adminID, path, `not json`, http.StatusBadRequest, model.ErrInvalidDecision.Message},
		{"wrong shape", adminID, path, `{"is_completed":false}`, http.StatusBadRequest, model.ErrInvalidDecision.Message},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := e.do(t, http.MethodPatch, tt.path, tt.userID, tt.body)
			if status != tt.status || body["detail"] != tt.msg {
				t.Fatalf("got %d %v", status, body)
			}
		})
	}
}

func TestTaskDetailEndpoints(t *testing.T) {
	e := newTestEnv(t)
	id := e.seed(t, &model.Task{OwnerID: taskAdminID, Title: "old"})
	path := "/api/todo/task-detail/" + id

	for _, userID := range []int64{adminID, employeeID} {
		status, body := e.do(t, http.MethodGet, path, userID, "")
		if status != http.StatusNotFound || body["detail"] != "Task not found." {
			t.Fatalf("user %d: %d %v", userID, status, body)
		}
	}

	status, body := e.do(t, http.MethodGet, path, taskAdminID, "")
	if status != http.StatusOK || response(t, body)["task_owner"] != "Todo Admin" {
		t.Fatalf("owner get: %d %v", status, body)
	}

	status, body = e.do(t, http.MethodPatch, path, taskAdminID, `{"title":null}`)
	if status != http.StatusBadRequest || body["error"] != "title field cannot be empty." {
		t.Fatalf("null title: %d %v", status, body)
	}

	status, body = e.do(t, http.MethodPatch, path, taskAdminID, `{"title":"new","is_deleted":true}`)
	if status != http.StatusOK || body["message"] != "Task updated successfully." {
		t.Fatalf("edit: %d %v", status, body)
	}
	if got := response(t, body); got["title"] != "new" || got["is_deleted"] != true {
		t.Fatalf("edit response %v", got)
	}

	if status, _ = e.do(t, http.MethodGet, path, taskAdminID, ""); status != http.StatusNotFound {
		t.Fatalf("deleted task still visible: %d", status)
	}
}

func TestTasksListEndpoint(t *testing.T) {
	e := newTestEnv(t)
	var completed string
	for i := 0; i < 4; i++ {
		id := e.seed(t, &model.Task{OwnerID: taskAdminID, Title: "t", IsCompleted: i == 1})
		if i == 1 {
			completed = id
		}
	}

	status, body := e.do(t, http.MethodGet, "/api/todo/tasks-list?is_completed=true", adminID, "")
	if status != http.StatusOK || body["message"] != "Tasks retrieved successfully." {
		t.Fatalf("got %d %v", status, body)
	}
	items := body["response"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["id"] != completed {
		t.Fatalf("items %v", items)
	}

	status, body = e.do(t, http.MethodGet, "/api/todo/tasks-list?due_date_start=soon", adminID, "")
	if status != http.StatusBadRequest || body["error"] != model.ErrInvalidDueDate.Message {
		t.Fatalf("bad date: %d %v", status, body)
	}

	status, body = e.do(t, http.MethodGet, "/api/todo/tasks-list", employeeID, "")
	if status != http.StatusOK || len(body["response"].([]any)) != 0 {
		t.Fatalf("employee: %d %v", status, body)
	}
}

func TestDashboardEndpoint(t *testing.T) {
	e := newTestEnv(t)
	past := time.Now().Add(-24 * time.Hour)
	e.seed(t, &model.Task{OwnerID: adminID, Title: "overdue", DueDate: &past})
	e.seed(t, &model.Task{OwnerID: adminID, Title: "rejected", ReasonForReject: model.RejectionLog{{ID: 1, Reason: "no"}}})
	e.seed(t, &model.Task{OwnerID: adminID, Title: "done", IsCompleted: true, DueDate: &past})

	status, body := e.do(t, http.MethodGet, "/api/todo/dashboard", adminID, "")
	if status != http.StatusOK || body["message"] != "Admin dashboard data retrieved successfully." {
		t.Fatalf("summary: %d %v", status, body)
	}
	summary := response(t, body)
	if summary["total_tasks"] != float64(3) || summary["completed_tasks"] != float64(1) || summary["total_rejections"] != float64(1) {
		t.Fatalf("summary %v", summary)
	}

	status, body = e.do(t, http.MethodGet, "/api/todo/dashboard?is_rejected=true", adminID, "")
	if status != http.StatusOK || body["message"] != "Rejected / overdue tasks retrieved successfully." || len(body["response"].([]any)) != 2 {
		t.Fatalf("stalled: %d %v", status, body)
	}

	status, body = e.do(t, http.MethodGet, "/api/todo/dashboard?is_rejected=False", adminID, "")
	if status != http.StatusOK || body["message"] != "Completed tasks retrieved successfully." || len(body["response"].([]any)) != 1 {
		t.Fatalf("completed: %d %v", status, body)
	}

	status, body = e.do(t, http.MethodGet, "/api/todo/dashboard?is_rejected=", adminID, "")
	if status != http.StatusBadRequest || body["detail"] != "Invalid value for is_rejected. Use 'true' or 'false'." {
		t.Fatalf("invalid: %d %v", status, body)
	}

	status, body = e.do(t, http.MethodGet, "/api/todo/dashboard", taskAdminID, "")
	if status != http.StatusForbidden || body["detail"] != "Only admins can access this dashboard." {
		t.Fatalf("non-admin: %d %v", status, body)
	}
}

func TestEmployeeListEndpoint(t *testing.T) {
	e := newTestEnv(t)

	status, body := e.do(t, http.MethodGet, "/api/todo/employee-list", adminID, "")
	if status != http.StatusOK || body["message"] != "Employee users retrieved successfully." {
		t.Fatalf("got %d %v", status, body)
	}
	items := body["response"].([]any)
	if len(items) != 2 || items[0].(map[string]any)["email"] != "ali@example.com" {
		t.Fatalf("items %v", items)
	}

	if status, _ := e.do(t, http.MethodGet, "/api/todo/employee-list", employeeID, ""); status != http.StatusForbidden {
		t.Fatalf("employee: %d", status)
	}
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	status, body := e.do(t, http.MethodGet, "/health", 0, "")
	if status != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("got %d %v", status, body)
	}
}

func TestRateLimit(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := RateLimit(0.001, 1)(ok)

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	if first.Code != http.StatusNoContent {
		t.Fatalf("first: %d", first.Code)
	}

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	if second.Code != http.StatusTooManyRequests || !strings.Contains(second.Body.String(), "Request was throttled.") {
		t.Fatalf("second: %d %s", second.Code, second.Body.String())
	}
}
