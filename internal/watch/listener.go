package watch

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/polyxo/gridctl/internal/api"
)

// Handler processes one event from a listener's subscription. Handlers run in
// registration order on the listener goroutine; returning stop=true closes
// the subscription. A returned error is routed to the group's error channel
// and the event is dropped, the listener keeps running.
type Handler func(sessionID string, ev api.Event) (stop bool, err error)

// subscribeFunc matches EntityOps.Subscribe.
type subscribeFunc func(ctx context.Context, sessionID string, types []api.EventType, filter string) (api.EventStream, error)

// Listener owns one background subscription to a session's event stream and
// dispatches every received event to its handlers. Unlike fire-and-forget
// daemon threads it carries an explicit handle: Start launches the goroutine
// under a cancellable context and Stop waits for it to wind down.
type Listener struct {
	subscribe subscribeFunc
	sessionID string
	types     []api.EventType
	filter    string
	handlers  []Handler
	errs      chan<- error

	cancel context.CancelFunc
	done   chan struct{}
}

// NewListener builds a not-yet-started listener. Stream and handler errors
// are reported on errs.
func NewListener(subscribe subscribeFunc, sessionID string, types []api.EventType, filter string, handlers []Handler, errs chan<- error) *Listener {
	return &Listener{
		subscribe: subscribe,
		sessionID: sessionID,
		types:     types,
		filter:    filter,
		handlers:  handlers,
		errs:      errs,
		done:      make(chan struct{}),
	}
}

// Start launches the listener goroutine. The subscription lives until Stop is
// called, ctx is cancelled, or a handler asks to stop.
func (l *Listener) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	go l.run(ctx)
}

// Stop cancels the subscription and waits for the listener goroutine to
// finish, bounded by ctx.
func (l *Listener) Stop(ctx context.Context) error {
	if l.cancel != nil {
		l.cancel()
	}
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for event listener to stop: %w", ctx.Err())
	}
}

func (l *Listener) run(ctx context.Context) {
	defer close(l.done)

	stream, err := l.subscribe(ctx, l.sessionID, l.types, l.filter)
	if err != nil {
		l.report(fmt.Errorf("event subscription failed: %w", err))
		return
	}
	defer stream.Close()

	for {
		ev, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			l.report(fmt.Errorf("event stream closed: %w", err))
			return
		}
		for _, h := range l.handlers {
			stop, err := h(l.sessionID, ev)
			if err != nil {
				l.report(err)
				continue
			}
			if stop {
				return
			}
		}
	}
}

// report forwards an error without ever blocking event delivery. When the
// channel is full the oldest unobserved error already tells the main loop to
// shut down, so further ones can be dropped.
func (l *Listener) report(err error) {
	select {
	case l.errs <- err:
	default:
	}
}
