// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"gtasks/internal/service"
)

// DefaultListID is the ID used for the default list.
const DefaultListID = "@default"

// Calls counts the remote operations a FakeService has served.
type Calls struct {
	ListLists   int
	ResolveList int
	ListTasks   int
	GetTask     int
	InsertTask  int
	UpdateTask  int
	FindTaskID  int
}

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu     sync.RWMutex
	lists  []service.TaskList
	tasks  map[string][]service.Task // listID -> tasks
	calls  Calls
	nextID int

	// Inserted and Updated record request bodies in call order.
	Inserted []service.Task
	Updated  []service.Task

	// Queries records ListTasks filters in call order.
	Queries []service.Query

	// Error injection for testing
	ListListsErr   error
	ResolveListErr error
	ListTasksErr   func(q service.Query) error
	GetTaskErr     error
	InsertTaskErr  error
	UpdateTaskErr  error
	FindTaskIDErr  error
}

// NewFakeService creates a new FakeService with a default list.
func NewFakeService() *FakeService {
	fs := &FakeService{
		tasks: make(map[string][]service.Task),
	}
	fs.lists = []service.TaskList{
		{ID: DefaultListID, Title: "My Tasks", IsDefault: true},
	}
	fs.tasks[DefaultListID] = nil
	return fs
}

// AddList adds a list to the fake service.
func (f *FakeService) AddList(id, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, service.TaskList{ID: id, Title: title})
	if f.tasks[id] == nil {
		f.tasks[id] = nil
	}
}

// AddTask adds an incomplete task to a list. due may be empty.
func (f *FakeService) AddTask(listID, taskID, title, due string) {
	f.Put(listID, service.Task{
		ID:     taskID,
		Title:  title,
		Due:    due,
		Status: service.StatusNeedsAction,
	})
}

// Put stores a full task record.
func (f *FakeService) Put(listID string, task service.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[listID] = append(f.tasks[listID], task)
}

// Task returns the stored record of a task.
func (f *FakeService) Task(listID, taskID string) (service.Task, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, t := range f.tasks[listID] {
		if t.ID == taskID {
			return t, true
		}
	}
	return service.Task{}, false
}

// Calls returns a copy of the call counters.
func (f *FakeService) Calls() Calls {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls
}

// ListLists implements service.Service.
func (f *FakeService) ListLists(ctx context.Context) ([]service.TaskList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls.ListLists++
	if f.ListListsErr != nil {
		return nil, f.ListListsErr
	}
	result := make([]service.TaskList, len(f.lists))
	copy(result, f.lists)
	return result, nil
}

// ResolveList implements service.Service.
func (f *FakeService) ResolveList(ctx context.Context, name string) (service.TaskList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls.ResolveList++
	if f.ResolveListErr != nil {
		return service.TaskList{}, f.ResolveListErr
	}

	name = strings.TrimSpace(name)
	nameLower := strings.ToLower(name)

	var matches []service.TaskList
	for _, l := range f.lists {
		if strings.ToLower(strings.TrimSpace(l.Title)) == nameLower {
			matches = append(matches, l)
		}
	}

	switch len(matches) {
	case 0:
		return service.TaskList{}, fmt.Errorf("list %q: %w", name, service.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return service.TaskList{}, fmt.Errorf("list %q: %w", name, service.ErrAmbiguous)
	}
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context, listID string, q service.Query) ([]service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls.ListTasks++
	f.Queries = append(f.Queries, q)
	if f.ListTasksErr != nil {
		if err := f.ListTasksErr(q); err != nil {
			return nil, err
		}
	}

	tasks, ok := f.tasks[listID]
	if !ok {
		return nil, service.ErrNotFound
	}

	var result []service.Task
	for _, t := range tasks {
		if !q.ShowCompleted && t.Status == service.StatusCompleted {
			continue
		}
		if q.DueMax != "" && (t.Due == "" || t.Due > q.DueMax) {
			continue
		}
		result = append(result, t)
	}
	return result, nil
}

// GetTask implements service.Service.
func (f *FakeService) GetTask(ctx context.Context, listID, taskID string) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls.GetTask++
	if f.GetTaskErr != nil {
		return service.Task{}, f.GetTaskErr
	}
	for _, t := range f.tasks[listID] {
		if t.ID == taskID {
			return t, nil
		}
	}
	return service.Task{}, service.ErrNotFound
}

// InsertTask implements service.Service.
func (f *FakeService) InsertTask(ctx context.Context, listID string, task service.Task) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls.InsertTask++
	f.Inserted = append(f.Inserted, task)
	if f.InsertTaskErr != nil {
		return service.Task{}, f.InsertTaskErr
	}
	if _, ok := f.tasks[listID]; !ok {
		return service.Task{}, service.ErrNotFound
	}

	f.nextID++
	task.ID = "task-" + strconv.Itoa(f.nextID)
	task.Status = service.StatusNeedsAction
	f.tasks[listID] = append(f.tasks[listID], task)
	return task, nil
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, listID string, task service.Task) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls.UpdateTask++
	f.Updated = append(f.Updated, task)
	if f.UpdateTaskErr != nil {
		return service.Task{}, f.UpdateTaskErr
	}
	for i, t := range f.tasks[listID] {
		if t.ID == task.ID {
			f.tasks[listID][i] = task
			return task, nil
		}
	}
	return service.Task{}, service.ErrNotFound
}

// FindTaskID implements service.Service.
func (f *FakeService) FindTaskID(ctx context.Context, listID, title string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls.FindTaskID++
	if f.FindTaskIDErr != nil {
		return "", f.FindTaskIDErr
	}

	want := strings.ToLower(strings.TrimSpace(title))
	var ids []string
	for _, t := range f.tasks[listID] {
		if t.Status == service.StatusCompleted {
			continue
		}
		if strings.ToLower(strings.TrimSpace(t.Title)) == want {
			ids = append(ids, t.ID)
		}
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("task %q: %w", title, service.ErrNotFound)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("task %q: %w", title, service.ErrAmbiguous)
	}
}
