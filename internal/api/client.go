// Package api is the typed REST client for the task-management API.
//
// Every method goes through the transport pipeline, so callers get bearer
// auth and the one-shot refresh protocol for free. The client itself is thin
// glue: build the request, hand it to the pipeline, decode the result. All
// decision logic lives in the authz and metrics engines; the workflows
// calling this package gate with CanPerform BEFORE issuing the network call.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sakif/taskflow/internal/model"
	"github.com/sakif/taskflow/internal/transport"
)

const (
	tasksPath         = "/tasks/"
	myTasksPath       = "/tasks/my_tasks/"
	usersPath         = "/users/"
	profilePath       = "/users/profile/"
	updateProfilePath = "/users/update_profile/"
)

// Client performs task and user CRUD against the API.
type Client struct {
	pipeline *transport.Pipeline
}

// NewClient wraps a transport pipeline.
func NewClient(pipeline *transport.Pipeline) *Client {
	return &Client{pipeline: pipeline}
}

// page is the server's paginated envelope. List endpoints return either a
// bare JSON array or this wrapper depending on server-side pagination
// settings, so list decoding tries both.
type page[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}

// decodeList accepts both response shapes for a collection endpoint.
func decodeList[T any](body []byte) ([]T, error) {
	if len(body) == 0 {
		return nil, nil
	}
	var bare []T
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil
	}
	var wrapped page[T]
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("api: decoding list response: %w", err)
	}
	return wrapped.Results, nil
}

// TaskFilter narrows ListTasks server-side. Zero values mean "no filter".
type TaskFilter struct {
	Status   model.Status
	Assignee string // "", a user ID, or "unassigned"
}

func (f TaskFilter) query() url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Assignee != "" {
		q.Set("assignee", f.Assignee)
	}
	return q
}

// ListTasks fetches tasks, optionally filtered.
func (c *Client) ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	resp, err := c.pipeline.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   tasksPath,
		Query:  filter.query(),
	})
	if err != nil {
		return nil, fmt.Errorf("api: listing tasks: %w", err)
	}
	if err := resp.Err(); err != nil {
		return nil, fmt.Errorf("api: listing tasks: %w", err)
	}
	return decodeList[model.Task](resp.Body)
}

// MyTasks fetches the tasks assigned to the authenticated user.
func (c *Client) MyTasks(ctx context.Context) ([]model.Task, error) {
	resp, err := c.pipeline.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   myTasksPath,
	})
	if err != nil {
		return nil, fmt.Errorf("api: listing my tasks: %w", err)
	}
	if err := resp.Err(); err != nil {
		return nil, fmt.Errorf("api: listing my tasks: %w", err)
	}
	return decodeList[model.Task](resp.Body)
}

// GetTask fetches one task by ID.
func (c *Client) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	resp, err := c.pipeline.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   taskPath(id),
	})
	if err != nil {
		return nil, fmt.Errorf("api: fetching task %d: %w", id, err)
	}
	var task model.Task
	if err := resp.Decode(&task); err != nil {
		return nil, fmt.Errorf("api: fetching task %d: %w", id, err)
	}
	return &task, nil
}

// TaskDraft is the writable subset of a task, used for create and update.
type TaskDraft struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Status      model.Status `json:"status,omitempty"`
	Deadline    *time.Time   `json:"deadline,omitempty"`
	Assignee    *int64       `json:"assignee,omitempty"`
}

// CreateTask creates a task. Validate the draft with metrics.ValidateTask
// first; the server enforces the same rules and its messages are the
// fallback, not the primary UX.
func (c *Client) CreateTask(ctx context.Context, draft TaskDraft) (*model.Task, error) {
	payload, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("api: encoding task: %w", err)
	}
	resp, err := c.pipeline.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   tasksPath,
		Body:   payload,
	})
	if err != nil {
		return nil, fmt.Errorf("api: creating task: %w", err)
	}
	var task model.Task
	if err := resp.Decode(&task); err != nil {
		return nil, fmt.Errorf("api: creating task: %w", err)
	}
	return &task, nil
}

// UpdateTask applies a partial update to a task.
func (c *Client) UpdateTask(ctx context.Context, id int64, draft TaskDraft) (*model.Task, error) {
	payload, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("api: encoding task update: %w", err)
	}
	resp, err := c.pipeline.Do(ctx, transport.Request{
		Method: http.MethodPatch,
		Path:   taskPath(id),
		Body:   payload,
	})
	if err != nil {
		return nil, fmt.Errorf("api: updating task %d: %w", id, err)
	}
	var task model.Task
	if err := resp.Decode(&task); err != nil {
		return nil, fmt.Errorf("api: updating task %d: %w", id, err)
	}
	return &task, nil
}

// UpdateTaskStatus moves a task through its lifecycle.
func (c *Client) UpdateTaskStatus(ctx context.Context, id int64, status model.Status) (*model.Task, error) {
	return c.UpdateTask(ctx, id, TaskDraft{Status: status})
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	resp, err := c.pipeline.Do(ctx, transport.Request{
		Method: http.MethodDelete,
		Path:   taskPath(id),
	})
	if err != nil {
		return fmt.Errorf("api: deleting task %d: %w", id, err)
	}
	if err := resp.Err(); err != nil {
		return fmt.Errorf("api: deleting task %d: %w", id, err)
	}
	return nil
}

// AssignTask sets (or, with nil, clears) a task's assignee.
func (c *Client) AssignTask(ctx context.Context, id int64, assignee *int64) (*model.Task, error) {
	if assignee == nil {
		resp, err := c.pipeline.Do(ctx, transport.Request{
			Method: http.MethodPost,
			Path:   taskPath(id) + "unassign/",
		})
		if err != nil {
			return nil, fmt.Errorf("api: unassigning task %d: %w", id, err)
		}
		var task model.Task
		if err := resp.Decode(&task); err != nil {
			return nil, fmt.Errorf("api: unassigning task %d: %w", id, err)
		}
		return &task, nil
	}

	payload, err := json.Marshal(map[string]int64{"assignee_id": *assignee})
	if err != nil {
		return nil, fmt.Errorf("api: encoding assignment: %w", err)
	}
	resp, err := c.pipeline.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   taskPath(id) + "assign/",
		Body:   payload,
	})
	if err != nil {
		return nil, fmt.Errorf("api: assigning task %d: %w", id, err)
	}
	var task model.Task
	if err := resp.Decode(&task); err != nil {
		return nil, fmt.Errorf("api: assigning task %d: %w", id, err)
	}
	return &task, nil
}

// ListUsers fetches the user collection.
func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	resp, err := c.pipeline.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   usersPath,
	})
	if err != nil {
		return nil, fmt.Errorf("api: listing users: %w", err)
	}
	if err := resp.Err(); err != nil {
		return nil, fmt.Errorf("api: listing users: %w", err)
	}
	return decodeList[model.User](resp.Body)
}

// Profile fetches the authenticated user's own record.
func (c *Client) Profile(ctx context.Context) (*model.User, error) {
	resp, err := c.pipeline.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   profilePath,
	})
	if err != nil {
		return nil, fmt.Errorf("api: fetching profile: %w", err)
	}
	var user model.User
	if err := resp.Decode(&user); err != nil {
		return nil, fmt.Errorf("api: fetching profile: %w", err)
	}
	return &user, nil
}

// UpdateProfile submits a profile edit and returns the server's record.
// Callers follow up with session.Controller.UpdateUser to sync the cache.
func (c *Client) UpdateProfile(ctx context.Context, fields map[string]any) (*model.User, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("api: encoding profile update: %w", err)
	}
	resp, err := c.pipeline.Do(ctx, transport.Request{
		Method: http.MethodPut,
		Path:   updateProfilePath,
		Body:   payload,
	})
	if err != nil {
		return nil, fmt.Errorf("api: updating profile: %w", err)
	}
	var user model.User
	if err := resp.Decode(&user); err != nil {
		return nil, fmt.Errorf("api: updating profile: %w", err)
	}
	return &user, nil
}

func taskPath(id int64) string {
	return tasksPath + strconv.FormatInt(id, 10) + "/"
}
