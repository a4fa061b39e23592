package watch

import (
	"context"

	"github.com/polyxo/gridctl/internal/api"
)

// TaskOps adapts the task surface of the API client to the watch subsystem.
// Tasks carry metadata that changes alongside status (owner pod, status
// message), so status events also trigger a refresh.
type TaskOps struct {
	Client *api.Client
}

func (TaskOps) Labels() []string { return api.TaskStatusLabels() }

func (TaskOps) ID(t api.Task) string          { return t.ID }
func (TaskOps) SessionOf(t api.Task) string   { return t.SessionID }
func (TaskOps) StatusLabel(t api.Task) string { return t.Status.String() }

func (o TaskOps) Get(ctx context.Context, id string) (api.Task, error) {
	return o.Client.GetTask(ctx, id)
}

func (o TaskOps) List(ctx context.Context, q api.ListQuery) (int, []api.Task, error) {
	if q.SortBy == "" {
		q.SortBy = "created_at"
	}
	return o.Client.ListTasks(ctx, q)
}

func (o TaskOps) Subscribe(ctx context.Context, sessionID string, types []api.EventType, filter string) (api.EventStream, error) {
	return o.Client.SubscribeEvents(ctx, sessionID, types, filter)
}

func (TaskOps) StatusEvents() []api.EventType  { return []api.EventType{api.EventTaskStatusUpdate} }
func (TaskOps) CreatedEvents() []api.EventType { return []api.EventType{api.EventNewTask} }

func (TaskOps) EventEntityID(ev api.Event) string    { return ev.TaskID }
func (TaskOps) EventStatusLabel(ev api.Event) string { return ev.TaskStatus.String() }

func (TaskOps) RefreshOnStatus() bool { return true }

// ResultOps adapts the result surface of the API client to the watch
// subsystem. Result metadata is immutable after creation, so status events
// only update the tracker.
type ResultOps struct {
	Client *api.Client
}

func (ResultOps) Labels() []string { return api.ResultStatusLabels() }

func (ResultOps) ID(r api.Result) string          { return r.ID }
func (ResultOps) SessionOf(r api.Result) string   { return r.SessionID }
func (ResultOps) StatusLabel(r api.Result) string { return r.Status.String() }

func (o ResultOps) Get(ctx context.Context, id string) (api.Result, error) {
	return o.Client.GetResult(ctx, id)
}

func (o ResultOps) List(ctx context.Context, q api.ListQuery) (int, []api.Result, error) {
	if q.SortBy == "" {
		q.SortBy = "created_at"
	}
	return o.Client.ListResults(ctx, q)
}

func (o ResultOps) Subscribe(ctx context.Context, sessionID string, types []api.EventType, filter string) (api.EventStream, error) {
	return o.Client.SubscribeEvents(ctx, sessionID, types, filter)
}

func (ResultOps) StatusEvents() []api.EventType  { return []api.EventType{api.EventResultStatusUpdate} }
func (ResultOps) CreatedEvents() []api.EventType { return []api.EventType{api.EventNewResult} }

func (ResultOps) EventEntityID(ev api.Event) string    { return ev.ResultID }
func (ResultOps) EventStatusLabel(ev api.Event) string { return ev.ResultStatus.String() }

func (ResultOps) RefreshOnStatus() bool { return false }
