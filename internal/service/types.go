// Package service defines the backend-agnostic interface for task operations.
package service

import (
	"errors"
	"time"
)

// Task status values used by the remote service.
const (
	StatusNeedsAction = "needsAction"
	StatusCompleted   = "completed"
)

// Sentinel errors returned by Service implementations.
var (
	// ErrNotFound indicates a list or task does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAmbiguous indicates a name or title matched more than one item.
	ErrAmbiguous = errors.New("ambiguous")

	// ErrAuth indicates missing, expired or revoked credentials.
	ErrAuth = errors.New("token expired or revoked (run: gtasks login)")

	// ErrTimeout indicates a remote call exceeded its deadline.
	ErrTimeout = errors.New("request timed out")
)

// Task represents a single task item.
// Fields mirror the remote record so a fetched task can be written back
// with only the fields a caller changed.
type Task struct {
	ID        string
	Title     string
	Notes     string
	Status    string // "needsAction" or "completed"
	Due       string // RFC 3339, date part only is meaningful
	Parent    string
	Position  string
	Updated   string
	Completed string
	ETag      string
	WebLink   string
	Hidden    bool
	Deleted   bool
}

// DueTime parses the due timestamp. ok is false when the task has no due date.
func (t Task) DueTime() (due time.Time, ok bool) {
	if t.Due == "" {
		return time.Time{}, false
	}
	due, err := time.Parse(time.RFC3339, t.Due)
	if err != nil {
		return time.Time{}, false
	}
	return due, true
}

// TaskList represents a task list.
type TaskList struct {
	ID        string
	Title     string
	IsDefault bool
}

// Query filters a task listing.
type Query struct {
	// ShowCompleted includes completed tasks.
	ShowCompleted bool

	// DueMax, when set, limits results to tasks due at or before this
	// RFC 3339 timestamp.
	DueMax string
}

// DateLayout is the calendar date form accepted for due dates.
const DateLayout = "2006-01-02"

// FormatDue formats the calendar date of t as midnight UTC with millisecond
// precision, the form the remote service expects for due dates and due
// filters. Only the year, month and day of t (in its own location) are used.
func FormatDue(t time.Time) string {
	return t.Format(DateLayout) + "T00:00:00.000Z"
}
