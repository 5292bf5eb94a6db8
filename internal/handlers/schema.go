package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gtasks/internal/service"
)

// Service names, shared by every transport that accepts commands.
const (
	ServiceNewTask      = "new_task"
	ServiceCompleteTask = "complete_task"
)

// ErrInvalidRequest marks a call rejected by schema validation.
var ErrInvalidRequest = errors.New("invalid request")

// NewTaskRequest is the create-task call schema.
type NewTaskRequest struct {
	Title   string `json:"title"`
	DueDate string `json:"due_date,omitempty"` // YYYY-MM-DD
}

// Validate checks the title and due date.
func (r NewTaskRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidRequest)
	}
	if r.DueDate != "" {
		if _, err := time.Parse(service.DateLayout, r.DueDate); err != nil {
			return fmt.Errorf("%w: due_date %q is not a YYYY-MM-DD date", ErrInvalidRequest, r.DueDate)
		}
	}
	return nil
}

// Due returns the parsed due date. ok is false when none was given.
func (r NewTaskRequest) Due() (due time.Time, ok bool) {
	if r.DueDate == "" {
		return time.Time{}, false
	}
	due, err := time.Parse(service.DateLayout, r.DueDate)
	if err != nil {
		return time.Time{}, false
	}
	return due, true
}

// CompleteTaskRequest is the complete-task call schema.
type CompleteTaskRequest struct {
	Title string `json:"title"`
}

// Validate checks the title.
func (r CompleteTaskRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidRequest)
	}
	return nil
}

// DecodeNewTask parses and validates a JSON create-task payload.
func DecodeNewTask(payload []byte) (NewTaskRequest, error) {
	var req NewTaskRequest
	if err := decodeFields(payload, map[string]*string{
		"title":    &req.Title,
		"due_date": &req.DueDate,
	}); err != nil {
		return NewTaskRequest{}, err
	}
	return req, req.Validate()
}

// DecodeCompleteTask parses and validates a JSON complete-task payload.
func DecodeCompleteTask(payload []byte) (CompleteTaskRequest, error) {
	var req CompleteTaskRequest
	if err := decodeFields(payload, map[string]*string{
		"title": &req.Title,
	}); err != nil {
		return CompleteTaskRequest{}, err
	}
	return req, req.Validate()
}

// decodeFields reads a JSON object whose keys must all appear in fields.
// String values are taken as is; numbers are kept in their literal form.
func decodeFields(payload []byte, fields map[string]*string) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if raw == nil {
		return fmt.Errorf("%w: payload must be a JSON object", ErrInvalidRequest)
	}

	for key, value := range raw {
		dst, ok := fields[key]
		if !ok {
			return fmt.Errorf("%w: unknown key %q", ErrInvalidRequest, key)
		}
		if err := decodeText(value, dst); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidRequest, key, err)
		}
	}
	return nil
}

func decodeText(value json.RawMessage, dst *string) error {
	if string(value) == "null" {
		return nil
	}
	if err := json.Unmarshal(value, dst); err == nil {
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(value, &num); err != nil {
		return errors.New("expected a string")
	}
	*dst = num.String()
	return nil
}
