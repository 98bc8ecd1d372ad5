package service

import (
	"context"
	"strings"

	"github.com/hiroki-koketsu/todo-workflow/internal/auth"
	"github.com/hiroki-koketsu/todo-workflow/internal/model"
	"go.opentelemetry.io/otel/attribute"
)

// Summarize counts tasks for the dashboard.
func Summarize(tasks []*model.Task) *model.DashboardSummary {
	var s model.DashboardSummary
	for _, t := range tasks {
		s.TotalTasks++
		if t.IsCompleted {
			s.CompletedTasks++
		} else {
			s.ActiveTasks++
		}
		if t.PendingApproval() {
			s.PendingApprovalTasks++
		}
		if n := len(t.ReasonForReject); n > 0 {
			s.TasksWithRejection++
			s.TotalRejections += n
		}
	}
	return &s
}

// dashboardView maps the is_rejected query value. nil means no filter.
func dashboardView(isRejected *string) (model.DashboardView, error) {
	if isRejected == nil {
		return model.DashboardSummaryView, nil
	}
	switch strings.ToLower(*isRejected) {
	case "true":
		return model.DashboardStalledView, nil
	case "false":
		return model.DashboardCompletedView, nil
	default:
		return 0, model.ErrInvalidRejectedFlag
	}
}

// Dashboard summarizes the admin's own live tasks, or lists the stalled
// (is_rejected=true) or completed (is_rejected=false) ones.
func (s *TaskService) Dashboard(ctx context.Context, actor *model.User, isRejected *string) (*model.DashboardResult, error) {
	ctx, span := tracer.Start(ctx, "TaskService.Dashboard")
	defer span.End()

	if err := auth.Authorize(actor, auth.ActionViewDashboard, nil); err != nil {
		return nil, err
	}

	view, err := dashboardView(isRejected)
	if err != nil {
		return nil, err
	}

	ownerID := actor.ID
	tasks, err := s.tasks.List(ctx, model.TaskFilter{OwnerID: &ownerID})
	if err != nil {
		return nil, err
	}

	result := &model.DashboardResult{View: view}
	switch view {
	case model.DashboardSummaryView:
		result.Summary = Summarize(tasks)
	case model.DashboardStalledView:
		now := s.now()
		result.Tasks = make([]*model.Task, 0)
		for _, t := range tasks {
			if t.Stalled(now) {
				result.Tasks = append(result.Tasks, t)
			}
		}
	case model.DashboardCompletedView:
		result.Tasks = make([]*model.Task, 0)
		for _, t := range tasks {
			if t.IsCompleted {
				result.Tasks = append(result.Tasks, t)
			}
		}
	}

	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	return result, nil
}
