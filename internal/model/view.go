package model

// TaskView is a task together with the display names responses need.
type TaskView struct {
	Task             *Task
	OwnerName        string
	AssignedUserName *string
}

// DashboardSummary counts the requesting admin's live tasks.
type DashboardSummary struct {
	TotalTasks           int `json:"total_tasks"`
	CompletedTasks       int `json:"completed_tasks"`
	ActiveTasks          int `json:"active_tasks"`
	PendingApprovalTasks int `json:"pending_approval_tasks"`
	TasksWithRejection   int `json:"tasks_with_rejection"`
	TotalRejections      int `json:"total_rejections"`
}

// DashboardView selects what the dashboard returns.
type DashboardView int

const (
	DashboardSummaryView DashboardView = iota
	DashboardStalledView
	DashboardCompletedView
)

// DashboardResult holds either a summary or a task list depending on View.
type DashboardResult struct {
	View    DashboardView
	Summary *DashboardSummary
	Tasks   []*Task
}
