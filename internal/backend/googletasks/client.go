// Package googletasks implements the service.Service interface using Google Tasks API.
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"gtasks/internal/config"
	"gtasks/internal/service"
)

const (
	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// PageSize is the number of tasks per page.
	PageSize = 100

	// APITimeout is the timeout for a single API call, pagination included.
	APITimeout = 15 * time.Second

	// Scope is the OAuth scope for Google Tasks.
	Scope = tasks.TasksScope
)

// Client implements service.Service using Google Tasks API.
type Client struct {
	svc *tasks.Service
}

// New creates a new Google Tasks client from the configured credentials and
// token files. The token is refreshed automatically when it expires.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	oauthConfig, err := google.ConfigFromJSON(clientJSON, Scope)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials %s: %w", cfg.OAuthClientPath(), err)
	}

	token, err := LoadToken(cfg.TokenPath())
	if err != nil {
		return nil, err
	}

	// The token source outlives ctx's request scope; bind it to a background
	// context so a long-running bridge keeps refreshing.
	tokenSource := oauthConfig.TokenSource(context.Background(), token)
	httpClient := oauth2.NewClient(context.Background(), tokenSource)

	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}

	return &Client{svc: svc}, nil
}

// NewWithHTTPClient creates a client with a custom HTTP client and endpoint
// (for testing). An empty endpoint keeps the production base URL.
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, endpoint string) (*Client, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{svc: svc}, nil
}

// LoadToken reads a stored OAuth token.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("%w: invalid token %s: %v", service.ErrAuth, path, err)
	}
	return &token, nil
}

// ListLists returns all task lists in API order.
func (c *Client) ListLists(ctx context.Context) ([]service.TaskList, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	// First, get the default list to know its real ID
	defaultList, err := c.svc.Tasklists.Get(DefaultListID).Context(ctx).Do()
	if err != nil {
		return nil, wrapError(err)
	}
	defaultRealID := defaultList.Id

	var result []service.TaskList
	err = c.svc.Tasklists.List().MaxResults(100).Pages(ctx, func(resp *tasks.TaskLists) error {
		for _, list := range resp.Items {
			isDefault := list.Id == defaultRealID
			id := list.Id
			if isDefault {
				id = DefaultListID // Normalize to @default
			}
			result = append(result, service.TaskList{
				ID:        id,
				Title:     list.Title,
				IsDefault: isDefault,
			})
		}
		return nil
	})
	if err != nil {
		return nil, wrapError(err)
	}

	return result, nil
}

// ResolveList finds a list by name (case-insensitive, trimmed).
func (c *Client) ResolveList(ctx context.Context, name string) (service.TaskList, error) {
	name = strings.TrimSpace(name)
	nameLower := strings.ToLower(name)

	lists, err := c.ListLists(ctx)
	if err != nil {
		return service.TaskList{}, err
	}

	var matches []service.TaskList
	for _, list := range lists {
		if strings.ToLower(strings.TrimSpace(list.Title)) == nameLower {
			matches = append(matches, list)
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

// ListTasks returns every task matching q, following page tokens.
// Deleted and hidden tasks are never included.
func (c *Client) ListTasks(ctx context.Context, listID string, q service.Query) ([]service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	call := c.svc.Tasks.List(listID).
		MaxResults(PageSize).
		ShowCompleted(q.ShowCompleted).
		ShowDeleted(false).
		ShowHidden(false)
	if q.DueMax != "" {
		call = call.DueMax(q.DueMax)
	}

	result := []service.Task{}
	err := call.Pages(ctx, func(resp *tasks.Tasks) error {
		for _, task := range resp.Items {
			result = append(result, fromAPI(task))
		}
		return nil
	})
	if err != nil {
		return nil, wrapError(err)
	}
	return result, nil
}

// GetTask fetches the full record of a task.
func (c *Client) GetTask(ctx context.Context, listID, taskID string) (service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	task, err := c.svc.Tasks.Get(listID, taskID).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError(err)
	}
	return fromAPI(task), nil
}

// InsertTask creates a new task in the specified list.
func (c *Client) InsertTask(ctx context.Context, listID string, task service.Task) (service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	created, err := c.svc.Tasks.Insert(listID, toAPI(task)).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError(err)
	}
	return fromAPI(created), nil
}

// UpdateTask replaces a task with the given record.
func (c *Client) UpdateTask(ctx context.Context, listID string, task service.Task) (service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	updated, err := c.svc.Tasks.Update(listID, task.ID, toAPI(task)).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError(err)
	}
	return fromAPI(updated), nil
}

// FindTaskID resolves an incomplete task's title to its ID.
// Duplicate titles are reported as ambiguous rather than picking one.
func (c *Client) FindTaskID(ctx context.Context, listID, title string) (string, error) {
	open, err := c.ListTasks(ctx, listID, service.Query{})
	if err != nil {
		return "", err
	}

	want := strings.ToLower(strings.TrimSpace(title))
	var ids []string
	for _, task := range open {
		if strings.ToLower(strings.TrimSpace(task.Title)) == want {
			ids = append(ids, task.ID)
		}
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("task %q: %w", title, service.ErrNotFound)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("task %q matches %d tasks: %w", title, len(ids), service.ErrAmbiguous)
	}
}

func fromAPI(t *tasks.Task) service.Task {
	task := service.Task{
		ID:       t.Id,
		Title:    t.Title,
		Notes:    t.Notes,
		Status:   t.Status,
		Due:      t.Due,
		Parent:   t.Parent,
		Position: t.Position,
		Updated:  t.Updated,
		ETag:     t.Etag,
		WebLink:  t.WebViewLink,
		Hidden:   t.Hidden,
		Deleted:  t.Deleted,
	}
	if t.Completed != nil {
		task.Completed = *t.Completed
	}
	return task
}

// toAPI converts a task to a request body. Empty fields are omitted from
// the encoded JSON.
func toAPI(t service.Task) *tasks.Task {
	body := &tasks.Task{
		Id:          t.ID,
		Title:       t.Title,
		Notes:       t.Notes,
		Status:      t.Status,
		Due:         t.Due,
		Parent:      t.Parent,
		Position:    t.Position,
		Updated:     t.Updated,
		Etag:        t.ETag,
		WebViewLink: t.WebLink,
		Hidden:      t.Hidden,
		Deleted:     t.Deleted,
	}
	if t.Completed != "" {
		completed := t.Completed
		body.Completed = &completed
	}
	return body
}

// wrapError maps API errors onto the service sentinels.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return service.ErrTimeout
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", service.ErrAuth, apiErr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", service.ErrNotFound, apiErr.Message)
		}
		return err
	}

	// oauth2 refresh failures surface as *url.Error wrapping a RetrieveError.
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: %v", service.ErrAuth, retrieveErr)
	}

	return err
}
