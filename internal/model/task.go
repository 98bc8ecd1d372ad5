package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// RejectionRecord is one numbered annotation explaining why a completion
// request was declined.
type RejectionRecord struct {
	ID     int    `json:"id"`
	Reason string `json:"reason"`
}

// RejectionLog is the append-only history of rejections for a task. A nil log
// means the task was never rejected.
type RejectionLog []RejectionRecord

// Append returns the log with a new record numbered one past the current length.
func (l RejectionLog) Append(reason string) RejectionLog {
	next := make(RejectionLog, len(l), len(l)+1)
	copy(next, l)
	return append(next, RejectionRecord{ID: len(l) + 1, Reason: reason})
}

// Value stores the log as a JSON array, or NULL when empty.
func (l RejectionLog) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	b, err := json.Marshal([]RejectionRecord(l))
	if err != nil {
		return nil, fmt.Errorf("failed to encode rejection log: %w", err)
	}
	return string(b), nil
}

// Scan reads a JSON array column.
func (l *RejectionLog) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported rejection log type %T", src)
	}

	var records []RejectionRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return fmt.Errorf("failed to decode rejection log: %w", err)
	}
	if len(records) == 0 {
		*l = nil
		return nil
	}
	*l = records
	return nil
}

// Task represents a unit of work owned by its creator and optionally
// assigned to another user.
type Task struct {
	ID                string       `json:"id" db:"id"`
	OwnerID           int64        `json:"owner" db:"owner_id"`
	AssignedUserID    *int64       `json:"assigned_user" db:"assigned_user_id"`
	Title             string       `json:"title" db:"title"`
	Description       *string      `json:"description" db:"description"`
	DueDate           *time.Time   `json:"due_date" db:"due_date"`
	IsCompleted       bool         `json:"is_completed" db:"is_completed"`
	CompleteRequested bool         `json:"complete_requested" db:"complete_requested"`
	ReasonForReject   RejectionLog `json:"reason_for_reject" db:"reason_for_reject"`
	IsDeleted         bool         `json:"is_deleted" db:"is_deleted"`
	CreatedAt         time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at" db:"updated_at"`
}

// NewTask builds an unsaved task owned by ownerID. The store assigns the id
// and timestamps.
func NewTask(ownerID int64, req *CreateTaskRequest, assigneeID *int64) *Task {
	return &Task{
		OwnerID:        ownerID,
		AssignedUserID: assigneeID,
		Title:          req.Title,
		Description:    req.Description,
		DueDate:        req.DueDate,
	}
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	if t.AssignedUserID != nil {
		id := *t.AssignedUserID
		c.AssignedUserID = &id
	}
	if t.Description != nil {
		d := *t.Description
		c.Description = &d
	}
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	if t.ReasonForReject != nil {
		c.ReasonForReject = append(RejectionLog(nil), t.ReasonForReject...)
	}
	return &c
}

// OwnedBy reports whether userID created the task.
func (t *Task) OwnedBy(userID int64) bool {
	return t.OwnerID == userID
}

// AssignedTo reports whether userID is the task's assignee.
func (t *Task) AssignedTo(userID int64) bool {
	return t.AssignedUserID != nil && *t.AssignedUserID == userID
}

// RequestCompletion raises the completion flag for owner review.
func (t *Task) RequestCompletion() error {
	if t.CompleteRequested {
		return ErrAlreadyRequested
	}
	if t.IsCompleted {
		return ErrAlreadyCompleted
	}
	t.CompleteRequested = true
	return nil
}

// Approve marks the task completed and clears any pending request.
func (t *Task) Approve() {
	t.IsCompleted = true
	t.CompleteRequested = false
}

// Reject forces the task back to an active, unrequested state and records
// the reason. A pending request is not required.
func (t *Task) Reject(reason string) error {
	if reason == "" {
		return ErrReasonRequired
	}
	t.ReasonForReject = t.ReasonForReject.Append(reason)
	t.CompleteRequested = false
	t.IsCompleted = false
	return nil
}

// ApplyEdit overwrites the fields present in req.
func (t *Task) ApplyEdit(req *EditTaskRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if req.Title.Valid {
		t.Title = req.Title.Value
	}
	if req.Description != nil {
		d := *req.Description
		t.Description = &d
	}
	if req.DueDate != nil {
		due := *req.DueDate
		t.DueDate = &due
	}
	if req.IsCompleted != nil {
		t.IsCompleted = *req.IsCompleted
		if t.IsCompleted {
			t.CompleteRequested = false
		}
	}
	if req.IsDeleted != nil {
		t.IsDeleted = *req.IsDeleted
	}
	return nil
}

// PendingApproval reports whether the assignee is waiting on the owner.
func (t *Task) PendingApproval() bool {
	return t.CompleteRequested && !t.IsCompleted
}

// Stalled reports whether the task is active with no pending request and was
// either rejected before or is past its due date.
func (t *Task) Stalled(now time.Time) bool {
	if t.IsCompleted || t.CompleteRequested {
		return false
	}
	if len(t.ReasonForReject) > 0 {
		return true
	}
	return t.DueDate != nil && t.DueDate.Before(now)
}

// TaskFilter narrows a task listing. Deleted tasks are never returned.
type TaskFilter struct {
	// OwnerID restricts to tasks created by this user.
	OwnerID *int64
	// ParticipantID restricts to tasks this user owns or is assigned to.
	ParticipantID *int64
	IsCompleted   *bool
	DueFrom       *time.Time
	DueTo         *time.Time
}

// Match reports whether t passes the filter.
func (f TaskFilter) Match(t *Task) bool {
	if t.IsDeleted {
		return false
	}
	if f.OwnerID != nil && t.OwnerID != *f.OwnerID {
		return false
	}
	if f.ParticipantID != nil && !t.OwnedBy(*f.ParticipantID) && !t.AssignedTo(*f.ParticipantID) {
		return false
	}
	if f.IsCompleted != nil && t.IsCompleted != *f.IsCompleted {
		return false
	}
	if f.DueFrom != nil && (t.DueDate == nil || t.DueDate.Before(*f.DueFrom)) {
		return false
	}
	if f.DueTo != nil && (t.DueDate == nil || t.DueDate.After(*f.DueTo)) {
		return false
	}
	return true
}
