package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func ptr[T any](v T) *T { return &v }

func TestRejectSequence(t *testing.T) {
	task := &Task{Title: "t"}

	for i := 1; i <= 3; i++ {
		if err := task.RequestCompletion(); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if err := task.Reject("not yet"); err != nil {
			t.Fatalf("reject %d: %v", i, err)
		}
		if task.CompleteRequested || task.IsCompleted {
			t.Fatalf("reject %d left flags requested=%v completed=%v", i, task.CompleteRequested, task.IsCompleted)
		}
	}

	task.Approve()
	if err := task.Reject("reopened"); err != nil {
		t.Fatal(err)
	}

	if len(task.ReasonForReject) != 4 {
		t.Fatalf("got %d records, want 4", len(task.ReasonForReject))
	}
	for i, rec := range task.ReasonForReject {
		if rec.ID != i+1 {
			t.Errorf("record %d has id %d", i, rec.ID)
		}
	}
}

func TestRejectRequiresReason(t *testing.T) {
	task := &Task{CompleteRequested: true}
	if err := task.Reject(""); !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("got %v, want ErrReasonRequired", err)
	}
	if !task.CompleteRequested || task.ReasonForReject != nil {
		t.Fatal("failed reject mutated the task")
	}
}

func TestApproveClearsRequest(t *testing.T) {
	task := &Task{CompleteRequested: true, ReasonForReject: RejectionLog{{ID: 1, Reason: "x"}}}
	task.Approve()
	if !task.IsCompleted || task.CompleteRequested {
		t.Fatalf("completed=%v requested=%v", task.IsCompleted, task.CompleteRequested)
	}
	if len(task.ReasonForReject) != 1 {
		t.Fatal("approval touched the rejection log")
	}
}

func TestRequestCompletion(t *testing.T) {
	tests := []struct {
		name string
		task Task
		want error
	}{
		{"fresh", Task{}, nil},
		{"duplicate", Task{CompleteRequested: true}, ErrAlreadyRequested},
		{"completed", Task{IsCompleted: true}, ErrAlreadyCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := tt.task
			err := task.RequestCompletion()
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			if task.IsCompleted && task.CompleteRequested {
				t.Fatal("completed task left with a pending request")
			}
		})
	}
}

func TestApplyEdit(t *testing.T) {
	due := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	t.Run("partial", func(t *testing.T) {
		task := &Task{Title: "old", Description: ptr("keep")}
		var req EditTaskRequest
		if err := json.Unmarshal([]byte(`{"due_date":"2025-12-31T00:00:00Z"}`), &req); err != nil {
			t.Fatal(err)
		}
		if err := task.ApplyEdit(&req); err != nil {
			t.Fatal(err)
		}
		if task.Title != "old" || *task.Description != "keep" || !task.DueDate.Equal(due) {
			t.Fatalf("unexpected task %+v", task)
		}
	})

	for _, body := range []string{`{"title":""}`, `{"title":null}`} {
		t.Run("rejects "+body, func(t *testing.T) {
			task := &Task{Title: "old"}
			var req EditTaskRequest
			if err := json.Unmarshal([]byte(body), &req); err != nil {
				t.Fatal(err)
			}
			if err := task.ApplyEdit(&req); !errors.Is(err, ErrTitleRequired) {
				t.Fatalf("got %v, want ErrTitleRequired", err)
			}
			if task.Title != "old" {
				t.Fatal("title changed")
			}
		})
	}

	t.Run("completing clears request", func(t *testing.T) {
		task := &Task{Title: "x", CompleteRequested: true}
		if err := task.ApplyEdit(&EditTaskRequest{IsCompleted: ptr(true)}); err != nil {
			t.Fatal(err)
		}
		if task.CompleteRequested {
			t.Fatal("completed task still has a pending request")
		}
	})

	t.Run("soft delete", func(t *testing.T) {
		task := &Task{Title: "x"}
		if err := task.ApplyEdit(&EditTaskRequest{IsDeleted: ptr(true)}); err != nil {
			t.Fatal(err)
		}
		if !task.IsDeleted {
			t.Fatal("not deleted")
		}
	})
}

func TestDecisionRequest(t *testing.T) {
	tests := []struct {
		body    string
		want    Decision
		reason  string
		wantErr error
	}{
		{`{"is_completed": true}`, DecisionApprove, "", nil},
		{`{"is_completed": true, "complete_requested": false}`, DecisionApprove, "", nil},
		{`{"complete_requested": false, "reason": "incomplete"}`, DecisionReject, "incomplete", nil},
		{`{"complete_requested": false}`, 0, "", ErrReasonRequired},
		{`{"complete_requested": false, "reason": ""}`, 0, "", ErrReasonRequired},
		{`{"is_completed": false}`, 0, "", ErrInvalidDecision},
		{`{"complete_requested": true, "reason": "x"}`, 0, "", ErrInvalidDecision},
		{`{}`, 0, "", ErrInvalidDecision},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			var req DecisionRequest
			if err := json.Unmarshal([]byte(tt.body), &req); err != nil {
				t.Fatal(err)
			}
			got, reason, err := req.Decision()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want || reason != tt.reason {
				t.Fatalf("got (%v, %q), want (%v, %q)", got, reason, tt.want, tt.reason)
			}
		})
	}
}

func TestRejectionLogColumn(t *testing.T) {
	var empty RejectionLog
	v, err := empty.Value()
	if err != nil || v != nil {
		t.Fatalf("empty log stored as %v, %v", v, err)
	}

	log := RejectionLog(nil).Append("a").Append("b")
	v, err = log.Value()
	if err != nil {
		t.Fatal(err)
	}

	var scanned RejectionLog
	if err := scanned.Scan(v); err != nil {
		t.Fatal(err)
	}
	if len(scanned) != 2 || scanned[1].ID != 2 || scanned[1].Reason != "b" {
		t.Fatalf("scanned %+v", scanned)
	}

	if err := scanned.Scan(nil); err != nil || scanned != nil {
		t.Fatalf("NULL scanned as %+v, %v", scanned, err)
	}
}

func TestAppendDoesNotAlias(t *testing.T) {
	base := make(RejectionLog, 1, 4)
	base[0] = RejectionRecord{ID: 1, Reason: "a"}
	first := base.Append("b")
	second := base.Append("c")
	if first[1].Reason != "b" || second[1].Reason != "c" {
		t.Fatal("appends share a backing array")
	}
}

func TestStalled(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		task Task
		want bool
	}{
		{"overdue", Task{DueDate: &past}, true},
		{"rejected", Task{DueDate: &future, ReasonForReject: RejectionLog{{ID: 1, Reason: "x"}}}, true},
		{"on time", Task{DueDate: &future}, false},
		{"no due date", Task{}, false},
		{"overdue but requested", Task{DueDate: &past, CompleteRequested: true}, false},
		{"completed", Task{DueDate: &past, IsCompleted: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.Stalled(now); got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTaskFilterMatch(t *testing.T) {
	now := time.Now()
	task := &Task{OwnerID: 1, AssignedUserID: ptr(int64(3)), DueDate: &now}

	tests := []struct {
		name   string
		filter TaskFilter
		want   bool
	}{
		{"no filter", TaskFilter{}, true},
		{"owner", TaskFilter{OwnerID: ptr(int64(1))}, true},
		{"other owner", TaskFilter{OwnerID: ptr(int64(2))}, false},
		{"assignee participates", TaskFilter{ParticipantID: ptr(int64(3))}, true},
		{"stranger", TaskFilter{ParticipantID: ptr(int64(4))}, false},
		{"completed only", TaskFilter{IsCompleted: ptr(true)}, false},
		{"inclusive range", TaskFilter{DueFrom: &now, DueTo: &now}, true},
		{"before range", TaskFilter{DueFrom: ptr(now.Add(time.Minute))}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(task); got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}

	deleted := task.Clone()
	deleted.IsDeleted = true
	if (TaskFilter{}).Match(deleted) {
		t.Fatal("deleted task matched")
	}
	if (TaskFilter{DueTo: &now}).Match(&Task{}) {
		t.Fatal("task without due date matched a due date bound")
	}
}

func TestParseRole(t *testing.T) {
	tests := map[string]Role{
		"admin":      RoleAdmin,
		"task-admin": RoleTaskAdmin,
		"todo admin": RoleTaskAdmin,
		"Employee":   RoleEmployee,
	}
	for in, want := range tests {
		got, err := ParseRole(in)
		if err != nil || got != want {
			t.Errorf("ParseRole(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseRole("superuser"); err == nil {
		t.Error("unknown role parsed")
	}
}
