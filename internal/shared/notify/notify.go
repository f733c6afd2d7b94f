// Package notify delivers status-change events to the outside world
// (Teams webhook cards and SMTP mail). The workflow only emits events;
// rendering and delivery never feed back into a transition.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// EventKind 事件类型
type EventKind string

const (
	KindSubmitted EventKind = "submitted"
	KindApproved  EventKind = "approved"
	KindRejected  EventKind = "rejected"
	KindIssued    EventKind = "issued"
	KindPickedUp  EventKind = "picked_up"
)

// Event carries the request snapshot a channel needs to render a message.
type Event struct {
	Kind            EventKind
	RequestID       string
	RequesterName   string
	RequesterEmail  string
	DeptName        string
	DeptHeadEmail   string
	ItemName        string
	Unit            string
	Quantity        int
	Note            string
	NewStatus       string
	RequestType     string
	IncidentSummary string
}

// Dispatcher is what the workflow sees: fire-and-forget, exactly one call
// per successful transition.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event)
}

// Channel is one delivery target (Teams, mail).
type Channel interface {
	Send(ctx context.Context, ev Event) error
}

// MultiDispatcher fans an event out to every channel asynchronously with a
// bounded timeout. Channel failures are logged and dropped; they must never
// fail or roll back the transition that produced the event.
type MultiDispatcher struct {
	channels []Channel
	logger   *zap.Logger
	timeout  time.Duration
}

func NewMultiDispatcher(logger *zap.Logger, timeout time.Duration, channels ...Channel) *MultiDispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MultiDispatcher{channels: channels, logger: logger, timeout: timeout}
}

func (d *MultiDispatcher) Dispatch(_ context.Context, ev Event) {
	for _, ch := range d.channels {
		go func(ch Channel) {
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()
			if err := ch.Send(ctx, ev); err != nil {
				d.logger.Warn("notification delivery failed",
					zap.String("kind", string(ev.Kind)),
					zap.String("request_id", ev.RequestID),
					zap.Error(err),
				)
			}
		}(ch)
	}
}

// NopDispatcher swallows events. Used in tests.
type NopDispatcher struct{}

func (NopDispatcher) Dispatch(context.Context, Event) {}
