// Package service defines the backend-agnostic interface for task operations.
package service

import "context"

// Service defines the interface for task backend operations.
// All Google Tasks API calls go through this interface.
// The refresher, handlers and commands never import the Google SDK directly.
type Service interface {
	// ListLists returns all task lists in API order.
	ListLists(ctx context.Context) ([]TaskList, error)

	// ResolveList finds a list by name (case-insensitive, trimmed).
	// Returns ErrNotFound or ErrAmbiguous (wrapped) when no single list matches.
	ResolveList(ctx context.Context, name string) (TaskList, error)

	// ListTasks returns every task of a list matching q, across all pages.
	// Results are in API order (no client-side sorting).
	ListTasks(ctx context.Context, listID string, q Query) ([]Task, error)

	// GetTask fetches the full record of a task.
	GetTask(ctx context.Context, listID, taskID string) (Task, error)

	// InsertTask creates a task. Only non-empty fields of task are sent.
	InsertTask(ctx context.Context, listID string, task Task) (Task, error)

	// UpdateTask replaces a task with the given record.
	UpdateTask(ctx context.Context, listID string, task Task) (Task, error)

	// FindTaskID resolves an incomplete task's title to its ID.
	// Matching is exact after trimming and case folding.
	// Returns ErrNotFound or ErrAmbiguous (wrapped) when no single task matches.
	FindTaskID(ctx context.Context, listID, title string) (string, error)
}
