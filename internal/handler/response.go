package handler

import (
	"time"

	"github.com/hiroki-koketsu/todo-workflow/internal/model"
)

// envelope wraps every successful response.
type envelope struct {
	Status   int    `json:"status"`
	Message  string `json:"message"`
	Response any    `json:"response"`
}

type employeeResponse struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

func newEmployeeResponses(users []*model.User) []employeeResponse {
	out := make([]employeeResponse, 0, len(users))
	for _, u := range users {
		out = append(out, employeeResponse{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email})
	}
	return out
}

type createdTaskResponse struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      *string    `json:"description"`
	DueDate          *time.Time `json:"due_date"`
	AssignedUser     *int64     `json:"assigned_user"`
	AssignedUserName *string    `json:"assigned_user_name"`
	IsCompleted      bool       `json:"is_completed"`
	CreatedAt        time.Time  `json:"created_at"`
}

func newCreatedTaskResponse(v *model.TaskView) createdTaskResponse {
	return createdTaskResponse{
		ID:               v.Task.ID,
		Title:            v.Task.Title,
		Description:      v.Task.Description,
		DueDate:          v.Task.DueDate,
		AssignedUser:     v.Task.AssignedUserID,
		AssignedUserName: v.AssignedUserName,
		IsCompleted:      v.Task.IsCompleted,
		CreatedAt:        v.Task.CreatedAt,
	}
}

type taskListItem struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	IsCompleted bool       `json:"is_completed"`
	CreatedAt   time.Time  `json:"created_at"`
	TaskOwner   string     `json:"task_owner"`
}

func newTaskList(views []*model.TaskView) []taskListItem {
	out := make([]taskListItem, 0, len(views))
	for _, v := range views {
		out = append(out, taskListItem{
			ID:          v.Task.ID,
			Title:       v.Task.Title,
			Description: v.Task.Description,
			DueDate:     v.Task.DueDate,
			IsCompleted: v.Task.IsCompleted,
			CreatedAt:   v.Task.CreatedAt,
			TaskOwner:   v.OwnerName,
		})
	}
	return out
}

type taskDetailResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	IsCompleted bool       `json:"is_completed"`
	IsDeleted   bool       `json:"is_deleted"`
	CreatedAt   time.Time  `json:"created_at"`
	TaskOwner   string     `json:"task_owner"`
}

func newTaskDetailResponse(v *model.TaskView) taskDetailResponse {
	return taskDetailResponse{
		ID:          v.Task.ID,
		Title:       v.Task.Title,
		Description: v.Task.Description,
		DueDate:     v.Task.DueDate,
		IsCompleted: v.Task.IsCompleted,
		IsDeleted:   v.Task.IsDeleted,
		CreatedAt:   v.Task.CreatedAt,
		TaskOwner:   v.OwnerName,
	}
}

// completionRequestResponse names the assignee rather than giving its id.
type completionRequestResponse struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	AssignedUser      *string `json:"assigned_user"`
	CompleteRequested bool    `json:"complete_requested"`
}

type decisionResponse struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	IsCompleted       bool               `json:"is_completed"`
	CompleteRequested bool               `json:"complete_requested"`
	ReasonForReject   model.RejectionLog `json:"reason_for_reject"`
}

type dashboardTask struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	Description       *string            `json:"description"`
	DueDate           *time.Time         `json:"due_date"`
	IsCompleted       bool               `json:"is_completed"`
	CompleteRequested bool               `json:"complete_requested"`
	ReasonForReject   model.RejectionLog `json:"reason_for_reject"`
	CreatedAt         time.Time          `json:"created_at"`
}

func newDashboardTasks(tasks []*model.Task) []dashboardTask {
	out := make([]dashboardTask, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, dashboardTask{
			ID:                t.ID,
			Title:             t.Title,
			Description:       t.Description,
			DueDate:           t.DueDate,
			IsCompleted:       t.IsCompleted,
			CompleteRequested: t.CompleteRequested,
			ReasonForReject:   t.ReasonForReject,
			CreatedAt:         t.CreatedAt,
		})
	}
	return out
}
