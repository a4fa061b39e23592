package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response from the control plane.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cluster API error (HTTP %d): %s", e.StatusCode, e.Message)
}

// Client talks JSON over HTTP to a gridd control plane endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient returns a client for the given endpoint, e.g. "http://localhost:5001".
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		// No global timeout: SubscribeEvents holds a response body open for
		// the lifetime of the watch session.
		http: &http.Client{},
	}
}

// Endpoint returns the endpoint this client was created with.
func (c *Client) Endpoint() string { return c.endpoint }

// do issues a request and decodes the JSON response into out (when non-nil).
// Every request carries a fresh correlation id so cluster-side logs can be
// tied back to a single CLI invocation.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.endpoint + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(msg))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", path, err)
	}
	return nil
}

// listPage is the wire shape of every paginated list response.
type listPage[T any] struct {
	Total int `json:"total"`
	Items []T `json:"items"`
}

func listQueryValues(q ListQuery) url.Values {
	v := url.Values{}
	if q.Filter != "" {
		v.Set("filter", q.Filter)
	}
	if q.SessionID != "" {
		v.Set("session_id", q.SessionID)
	}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("page_size", strconv.Itoa(q.PageSize))
	if q.SortBy != "" {
		v.Set("sort_by", q.SortBy)
	}
	if q.SortDirection != "" {
		v.Set("sort_direction", string(q.SortDirection))
	}
	return v
}

// ── Tasks ─────────────────────────────────────────────────────────────────────

// ListTasks returns one page of tasks matching the query, plus the total
// number of matches.
func (c *Client) ListTasks(ctx context.Context, q ListQuery) (int, []Task, error) {
	var page listPage[Task]
	if err := c.do(ctx, http.MethodGet, "/api/v1/tasks", listQueryValues(q), nil, &page); err != nil {
		return 0, nil, err
	}
	return page.Total, page.Items, nil
}

// GetTask fetches a single task by id. Returns ErrNotFound when absent.
func (c *Client) GetTask(ctx context.Context, id string) (Task, error) {
	var t Task
	if err := c.do(ctx, http.MethodGet, "/api/v1/tasks/"+url.PathEscape(id), nil, nil, &t); err != nil {
		return Task{}, err
	}
	return t, nil
}

// SubmitTasks submits task definitions to a session and returns the created
// tasks.
func (c *Client) SubmitTasks(ctx context.Context, sessionID string, defs []TaskDefinition) ([]Task, error) {
	var created []Task
	body := struct {
		Tasks []TaskDefinition `json:"tasks"`
	}{Tasks: defs}
	path := "/api/v1/sessions/" + url.PathEscape(sessionID) + "/tasks"
	if err := c.do(ctx, http.MethodPost, path, nil, body, &created); err != nil {
		return nil, err
	}
	return created, nil
}

// CancelTasks cancels the given tasks. They need not belong to one session.
func (c *Client) CancelTasks(ctx context.Context, ids []string) error {
	body := struct {
		IDs []string `json:"ids"`
	}{IDs: ids}
	return c.do(ctx, http.MethodPost, "/api/v1/tasks/cancel", nil, body, nil)
}

// ── Results ───────────────────────────────────────────────────────────────────

// ListResults returns one page of results matching the query, plus the total
// number of matches.
func (c *Client) ListResults(ctx context.Context, q ListQuery) (int, []Result, error) {
	var page listPage[Result]
	if err := c.do(ctx, http.MethodGet, "/api/v1/results", listQueryValues(q), nil, &page); err != nil {
		return 0, nil, err
	}
	return page.Total, page.Items, nil
}

// GetResult fetches a single result by id. Returns ErrNotFound when absent.
func (c *Client) GetResult(ctx context.Context, id string) (Result, error) {
	var r Result
	if err := c.do(ctx, http.MethodGet, "/api/v1/results/"+url.PathEscape(id), nil, nil, &r); err != nil {
		return Result{}, err
	}
	return r, nil
}

// CreateResults creates results in a session, with or without data, and
// returns the created records.
func (c *Client) CreateResults(ctx context.Context, sessionID string, defs []ResultDefinition) ([]Result, error) {
	body := struct {
		Results []ResultDefinition `json:"results"`
	}{Results: defs}
	var created []Result
	path := "/api/v1/sessions/" + url.PathEscape(sessionID) + "/results"
	if err := c.do(ctx, http.MethodPost, path, nil, body, &created); err != nil {
		return nil, err
	}
	return created, nil
}

// UploadResultData uploads the data of a result created without it.
func (c *Client) UploadResultData(ctx context.Context, sessionID, resultID string, data []byte) error {
	body := struct {
		Data []byte `json:"data"`
	}{Data: data}
	path := "/api/v1/sessions/" + url.PathEscape(sessionID) +
		"/results/" + url.PathEscape(resultID) + "/data"
	return c.do(ctx, http.MethodPost, path, nil, body, nil)
}

// DeleteResultData deletes the data backing the given results; the result
// metadata itself remains queryable.
func (c *Client) DeleteResultData(ctx context.Context, ids []string) error {
	body := struct {
		IDs []string `json:"ids"`
	}{IDs: ids}
	return c.do(ctx, http.MethodPost, "/api/v1/results/delete-data", nil, body, nil)
}

// ── Sessions ──────────────────────────────────────────────────────────────────

// ListSessions returns one page of sessions matching the query, plus the
// total number of matches.
func (c *Client) ListSessions(ctx context.Context, q ListQuery) (int, []Session, error) {
	var page listPage[Session]
	if err := c.do(ctx, http.MethodGet, "/api/v1/sessions", listQueryValues(q), nil, &page); err != nil {
		return 0, nil, err
	}
	return page.Total, page.Items, nil
}

// GetSession fetches a single session by id. Returns ErrNotFound when absent.
func (c *Client) GetSession(ctx context.Context, id string) (Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodGet, "/api/v1/sessions/"+url.PathEscape(id), nil, nil, &s); err != nil {
		return Session{}, err
	}
	return s, nil
}

// CreateSession creates a session with the given default task options and
// partitions, returning its id.
func (c *Client) CreateSession(ctx context.Context, opts TaskOptions, partitionIDs []string) (string, error) {
	body := struct {
		Options      TaskOptions `json:"options"`
		PartitionIDs []string    `json:"partition_ids"`
	}{Options: opts, PartitionIDs: partitionIDs}
	var created struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/sessions", nil, body, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// sessionAction posts a lifecycle action and returns the updated session.
func (c *Client) sessionAction(ctx context.Context, id, action string) (Session, error) {
	var s Session
	path := "/api/v1/sessions/" + url.PathEscape(id) + "/" + action
	if err := c.do(ctx, http.MethodPost, path, nil, nil, &s); err != nil {
		return Session{}, err
	}
	return s, nil
}

// CancelSession cancels a running session and its pending tasks.
func (c *Client) CancelSession(ctx context.Context, id string) (Session, error) {
	return c.sessionAction(ctx, id, "cancel")
}

// PauseSession pauses scheduling for a session.
func (c *Client) PauseSession(ctx context.Context, id string) (Session, error) {
	return c.sessionAction(ctx, id, "pause")
}

// ResumeSession resumes a paused session.
func (c *Client) ResumeSession(ctx context.Context, id string) (Session, error) {
	return c.sessionAction(ctx, id, "resume")
}

// CloseSession closes a session to new task submissions.
func (c *Client) CloseSession(ctx context.Context, id string) (Session, error) {
	return c.sessionAction(ctx, id, "close")
}

// PurgeSession deletes the payloads and results of a closed or cancelled
// session while keeping the session itself queryable.
func (c *Client) PurgeSession(ctx context.Context, id string) (Session, error) {
	return c.sessionAction(ctx, id, "purge")
}

// StopSubmission blocks clients and/or workers from submitting new tasks to a
// session.
func (c *Client) StopSubmission(ctx context.Context, id string, clients, workers bool) (Session, error) {
	body := struct {
		Clients bool `json:"clients"`
		Workers bool `json:"workers"`
	}{Clients: clients, Workers: workers}
	var s Session
	path := "/api/v1/sessions/" + url.PathEscape(id) + "/stop-submission"
	if err := c.do(ctx, http.MethodPost, path, nil, body, &s); err != nil {
		return Session{}, err
	}
	return s, nil
}

// CountTasksByStatus returns the number of tasks in each status for a
// session, keyed by status label. Statuses with no tasks may be absent.
func (c *Client) CountTasksByStatus(ctx context.Context, sessionID string) (map[string]int, error) {
	counts := make(map[string]int)
	path := "/api/v1/sessions/" + url.PathEscape(sessionID) + "/task-counts"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

// DeleteSession deletes a session and everything it owns.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/sessions/"+url.PathEscape(id), nil, nil, nil)
}

// ── Partitions ────────────────────────────────────────────────────────────────

// ListPartitions returns one page of partitions, plus the total number.
func (c *Client) ListPartitions(ctx context.Context, q ListQuery) (int, []Partition, error) {
	var page listPage[Partition]
	if err := c.do(ctx, http.MethodGet, "/api/v1/partitions", listQueryValues(q), nil, &page); err != nil {
		return 0, nil, err
	}
	return page.Total, page.Items, nil
}

// GetPartition fetches a single partition by id. Returns ErrNotFound when
// absent.
func (c *Client) GetPartition(ctx context.Context, id string) (Partition, error) {
	var p Partition
	if err := c.do(ctx, http.MethodGet, "/api/v1/partitions/"+url.PathEscape(id), nil, nil, &p); err != nil {
		return Partition{}, err
	}
	return p, nil
}

// ── Cluster ───────────────────────────────────────────────────────────────────

// Versions reports the versions of the cluster components.
func (c *Client) Versions(ctx context.Context) (VersionInfo, error) {
	var v VersionInfo
	if err := c.do(ctx, http.MethodGet, "/api/v1/versions", nil, nil, &v); err != nil {
		return VersionInfo{}, err
	}
	return v, nil
}

// Health reports the health of the cluster components.
func (c *Client) Health(ctx context.Context) ([]HealthCheck, error) {
	var checks []HealthCheck
	if err := c.do(ctx, http.MethodGet, "/api/v1/health", nil, nil, &checks); err != nil {
		return nil, err
	}
	return checks, nil
}

// WithTimeout derives a context bounded by the usual request deadline for
// unary calls. Callers of SubscribeEvents must not use it.
func WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 30*time.Second)
}
