// Package handlers implements the create-task and complete-task commands.
//
// Each operation returns a Result. The service-call boundary
// (HandleNewTask, HandleCompleteTask, Dispatch) logs failed results and
// discards them, so callers on the hub side never see an error.
package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"gtasks/internal/service"
)

// Result is the outcome of one command.
type Result struct {
	// TaskID is the created or completed task. Empty on early failures.
	TaskID string

	// Err is nil on success.
	Err error
}

// OK reports whether the command succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Handlers issues one-off mutations against the tracked list.
// It holds no state besides its collaborators and is safe for concurrent use.
type Handlers struct {
	svc    service.Service
	listID string
	logger *slog.Logger
}

// New creates Handlers bound to listID.
func New(svc service.Service, listID string, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{svc: svc, listID: listID, logger: logger}
}

// CreateTask inserts a task with the request's title and optional due date.
func (h *Handlers) CreateTask(ctx context.Context, req NewTaskRequest) Result {
	if err := req.Validate(); err != nil {
		return Result{Err: err}
	}

	body := service.Task{Title: req.Title}
	if due, ok := req.Due(); ok {
		body.Due = service.FormatDue(due)
	}
	h.logger.Debug("creating task", "list_id", h.listID, "title", body.Title, "due", body.Due)

	created, err := h.svc.InsertTask(ctx, h.listID, body)
	if err != nil {
		return Result{Err: fmt.Errorf("insert task %q: %w", req.Title, err)}
	}
	return Result{TaskID: created.ID}
}

// CompleteTask looks a task up by title, fetches it, and writes it back with
// status completed. The sequence stops at the first failure.
func (h *Handlers) CompleteTask(ctx context.Context, req CompleteTaskRequest) Result {
	if err := req.Validate(); err != nil {
		return Result{Err: err}
	}

	taskID, err := h.svc.FindTaskID(ctx, h.listID, req.Title)
	if err != nil {
		return Result{Err: fmt.Errorf("find task %q: %w", req.Title, err)}
	}

	task, err := h.svc.GetTask(ctx, h.listID, taskID)
	if err != nil {
		return Result{TaskID: taskID, Err: fmt.Errorf("get task %s: %w", taskID, err)}
	}

	task.Status = service.StatusCompleted
	if _, err := h.svc.UpdateTask(ctx, h.listID, task); err != nil {
		return Result{TaskID: taskID, Err: fmt.Errorf("update task %s: %w", taskID, err)}
	}
	return Result{TaskID: taskID}
}

// HandleNewTask is the fire-and-forget boundary for CreateTask.
func (h *Handlers) HandleNewTask(ctx context.Context, req NewTaskRequest) {
	h.report(ServiceNewTask, req.Title, h.CreateTask(ctx, req))
}

// HandleCompleteTask is the fire-and-forget boundary for CompleteTask.
func (h *Handlers) HandleCompleteTask(ctx context.Context, req CompleteTaskRequest) {
	h.report(ServiceCompleteTask, req.Title, h.CompleteTask(ctx, req))
}

// Dispatch decodes a JSON payload for the named service and runs it through
// the fire-and-forget boundary. Unknown services and schema failures are
// logged and dropped.
func (h *Handlers) Dispatch(ctx context.Context, name string, payload []byte) {
	switch name {
	case ServiceNewTask:
		req, err := DecodeNewTask(payload)
		if err != nil {
			h.logger.Warn("service call rejected", "service", name, "error", err)
			return
		}
		h.HandleNewTask(ctx, req)
	case ServiceCompleteTask:
		req, err := DecodeCompleteTask(payload)
		if err != nil {
			h.logger.Warn("service call rejected", "service", name, "error", err)
			return
		}
		h.HandleCompleteTask(ctx, req)
	default:
		h.logger.Warn("unknown service", "service", name)
	}
}

func (h *Handlers) report(name, title string, res Result) {
	if !res.OK() {
		h.logger.Error("service call failed",
			"service", name, "list_id", h.listID, "title", title, "task_id", res.TaskID, "error", res.Err)
		return
	}
	h.logger.Info("service call succeeded",
		"service", name, "list_id", h.listID, "title", title, "task_id", res.TaskID)
}
