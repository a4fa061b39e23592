package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// EventType identifies a kind of server-pushed status event.
type EventType string

const (
	EventTaskStatusUpdate   EventType = "task_status_update"
	EventResultStatusUpdate EventType = "result_status_update"
	EventNewTask            EventType = "new_task"
	EventNewResult          EventType = "new_result"
)

// Event is one server-pushed notification on a session's event stream.
// Which fields are set depends on Type.
type Event struct {
	Type         EventType    `json:"type"`
	SessionID    string       `json:"session_id"`
	TaskID       string       `json:"task_id,omitempty"`
	ResultID     string       `json:"result_id,omitempty"`
	TaskStatus   TaskStatus   `json:"task_status,omitempty"`
	ResultStatus ResultStatus `json:"result_status,omitempty"`
}

// EventStream is a long-lived server-pushed event subscription. Recv blocks
// until the next event, the stream ends, or the subscription context is
// cancelled.
type EventStream interface {
	Recv() (Event, error)
	Close() error
}

// SubscribeEvents opens an event subscription for a session, filtered to the
// given event types and optionally further restricted by a server-side entity
// filter expression. The stream stays open until the context is cancelled or
// the connection is lost.
func (c *Client) SubscribeEvents(ctx context.Context, sessionID string, types []EventType, filter string) (EventStream, error) {
	v := url.Values{}
	for _, t := range types {
		v.Add("type", string(t))
	}
	if filter != "" {
		v.Set("filter", filter)
	}

	u := c.endpoint + "/api/v1/sessions/" + url.PathEscape(sessionID) + "/events?" + v.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building event subscription request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("subscribing to session %s events: %w", sessionID, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "event subscription refused"}
	}

	scanner := bufio.NewScanner(resp.Body)
	// Event payloads can exceed bufio's default 64KB token limit.
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLine)
	return &sseStream{body: resp.Body, scanner: scanner}, nil
}

// maxEventLine caps the size of a single event-stream line.
const maxEventLine = 4 * 1024 * 1024

// sseStream decodes text/event-stream frames whose data lines carry one JSON
// Event each.
type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

func (s *sseStream) Recv() (Event, error) {
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			// Comments, event names, and blank keep-alive lines.
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return Event{}, fmt.Errorf("decoding event: %w", err)
		}
		return ev, nil
	}
	if err := s.scanner.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}

func (s *sseStream) Close() error {
	return s.body.Close()
}
