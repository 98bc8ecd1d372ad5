package model

import (
	"encoding/json"
	"time"
)

// CreateTaskRequest represents the request body for creating a task.
type CreateTaskRequest struct {
	Title        string     `json:"title"`
	Description  *string    `json:"description"`
	DueDate      *time.Time `json:"due_date"`
	AssignedUser *int64     `json:"assigned_user"`
}

// Validate checks if the CreateTaskRequest is valid.
func (r *CreateTaskRequest) Validate() error {
	if r.Title == "" {
		return ErrTitleRequired
	}
	return nil
}

// AssigneeID returns the requested assignee, treating 0 as absent.
func (r *CreateTaskRequest) AssigneeID() *int64 {
	if r.AssignedUser == nil || *r.AssignedUser == 0 {
		return nil
	}
	id := *r.AssignedUser
	return &id
}

// OptionalString distinguishes an absent JSON field from an explicit null.
type OptionalString struct {
	Set   bool
	Valid bool
	Value string
}

func (o *OptionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Valid = false
		return nil
	}
	if err := json.Unmarshal(b, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

// EditTaskRequest is a partial update. Nil fields are left untouched.
type EditTaskRequest struct {
	Title       OptionalString `json:"title"`
	Description *string        `json:"description"`
	DueDate     *time.Time     `json:"due_date"`
	IsCompleted *bool          `json:"is_completed"`
	IsDeleted   *bool          `json:"is_deleted"`
}

// Validate rejects a title that is present but null or empty.
func (r *EditTaskRequest) Validate() error {
	if r.Title.Set && (!r.Title.Valid || r.Title.Value == "") {
		return ErrTitleRequired
	}
	return nil
}

// Decision is the owner's verdict on a completion request.
type Decision int

const (
	DecisionApprove Decision = iota + 1
	DecisionReject
)

func (d Decision) String() string {
	switch d {
	case DecisionApprove:
		return "approve"
	case DecisionReject:
		return "reject"
	default:
		return "unknown"
	}
}

// DecisionRequest is either {"is_completed": true} or
// {"complete_requested": false, "reason": "..."}.
type DecisionRequest struct {
	IsCompleted       *bool   `json:"is_completed"`
	CompleteRequested *bool   `json:"complete_requested"`
	Reason            *string `json:"reason"`
}

// Decision resolves the payload shape. Approval wins when both shapes are sent.
func (r *DecisionRequest) Decision() (Decision, string, error) {
	if r.IsCompleted != nil && *r.IsCompleted {
		return DecisionApprove, "", nil
	}
	if r.CompleteRequested != nil && !*r.CompleteRequested {
		if r.Reason == nil || *r.Reason == "" {
			return 0, "", ErrReasonRequired
		}
		return DecisionReject, *r.Reason, nil
	}
	return 0, "", ErrInvalidDecision
}

// ListTasksQuery carries the raw list filters as received.
type ListTasksQuery struct {
	IsCompleted  string
	DueDateStart string
	DueDateEnd   string
}
