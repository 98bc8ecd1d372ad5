package model

// ErrorKind classifies a TaskError for transport mapping.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindBadRequest
	KindNotFound
	KindForbidden
	KindConflict
	KindUnauthorized
)

// Body keys used by clients to tell validation failures from
// authorization and existence failures.
const (
	KeyError  = "error"
	KeyDetail = "detail"
)

// TaskError represents a domain error for tasks.
type TaskError struct {
	Kind    ErrorKind
	Key     string
	Message string
}

func (e TaskError) Error() string {
	return e.Message
}

var (
	ErrTitleRequired    = TaskError{Kind: KindValidation, Key: KeyError, Message: "title field cannot be empty."}
	ErrAssigneeNotFound = TaskError{Kind: KindNotFound, Key: KeyError, Message: "assigned_user not found."}
	ErrInvalidDueDate   = TaskError{Kind: KindValidation, Key: KeyError, Message: "due date filters must be RFC 3339 timestamps."}
	ErrInvalidBody      = TaskError{Kind: KindValidation, Key: KeyError, Message: "invalid request body"}

	ErrTaskNotFound = TaskError{Kind: KindNotFound, Key: KeyDetail, Message: "Task not found."}
	ErrUserNotFound = TaskError{Kind: KindNotFound, Key: KeyDetail, Message: "User not found."}

	ErrPermissionDenied    = TaskError{Kind: KindForbidden, Key: KeyDetail, Message: "You do not have permission to perform this action."}
	ErrEmployeesOnly       = TaskError{Kind: KindForbidden, Key: KeyDetail, Message: "Only employees can request completion."}
	ErrNotAssignee         = TaskError{Kind: KindForbidden, Key: KeyDetail, Message: "You are not assigned to this task."}
	ErrAdminsOnlyDecision  = TaskError{Kind: KindForbidden, Key: KeyDetail, Message: "Only admins can approve or reject completion requests."}
	ErrNotOwner            = TaskError{Kind: KindForbidden, Key: KeyDetail, Message: "You are not the owner of this task."}
	ErrDashboardAdminsOnly = TaskError{Kind: KindForbidden, Key: KeyDetail, Message: "Only admins can access this dashboard."}

	ErrAlreadyRequested = TaskError{Kind: KindConflict, Key: KeyDetail, Message: "Completion request already submitted."}
	ErrAlreadyCompleted = TaskError{Kind: KindConflict, Key: KeyDetail, Message: "Task is already completed."}

	ErrReasonRequired      = TaskError{Kind: KindBadRequest, Key: KeyDetail, Message: "reason field is required when rejecting completion request."}
	ErrInvalidDecision     = TaskError{Kind: KindBadRequest, Key: KeyDetail, Message: "You must send either 'is_completed': true to approve or 'complete_requested': false with 'reason' to reject."}
	ErrInvalidRejectedFlag = TaskError{Kind: KindBadRequest, Key: KeyDetail, Message: "Invalid value for is_rejected. Use 'true' or 'false'."}

	ErrUnauthenticated = TaskError{Kind: KindUnauthorized, Key: KeyDetail, Message: "Authentication credentials were not provided."}
	ErrInvalidToken    = TaskError{Kind: KindUnauthorized, Key: KeyDetail, Message: "Given token not valid for any token type"}
)
