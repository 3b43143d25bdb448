package provision

import (
	"context"
	"sync"
	"time"
)

// EventType identifies the kind of workflow event.
type EventType string

const (
	// Phase transitions.
	EventPhase EventType = "phase.entered"

	// Dependency gating.
	EventGateReady EventType = "gate.ready"
	EventGateProbe EventType = "gate.probe_failed"

	// Site operations.
	EventProbed        EventType = "site.probed"
	EventSiteCreated   EventType = "site.created"
	EventConfigApplied EventType = "config.applied"
	EventVerified      EventType = "site.verified"

	// Terminal.
	EventDone   EventType = "workflow.done"
	EventFailed EventType = "workflow.failed"
)

// Event is a single entry in the workflow timeline.
type Event struct {
	Seq       uint64    `json:"seq"`
	Type      EventType `json:"type"`
	Site      string    `json:"site,omitempty"`
	Phase     Phase     `json:"phase,omitempty"`
	Service   string    `json:"service,omitempty"` // dependent service, for gate events
	Key       string    `json:"key,omitempty"`     // configuration key, for config events
	State     string    `json:"state,omitempty"`   // probe outcome, for site.probed
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventLog is an ordered, replayable event log. Events are appended with
// monotonically increasing sequence numbers. Subscribers can replay from
// the start; WaitFor scans the existing log before blocking. It is how
// the CLI renders progress and how tests observe the workflow without
// instrumenting components.
type EventLog struct {
	mu     sync.Mutex
	events []Event
	seq    uint64
	notify chan struct{} // closed and replaced on each new event
}

// NewEventLog creates an empty event log.
func NewEventLog() *EventLog {
	return &EventLog{
		notify: make(chan struct{}),
	}
}

// Publish appends an event to the log with the next sequence number and
// the current timestamp, then wakes all waiters.
func (l *EventLog) Publish(event Event) {
	l.mu.Lock()
	l.seq++
	event.Seq = l.seq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	l.events = append(l.events, event)
	ch := l.notify
	l.notify = make(chan struct{})
	l.mu.Unlock()

	close(ch) // wake all waiters
}

// Events returns a snapshot of all events in the log.
func (l *EventLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// eventsSince returns events with Seq > seq. Caller must hold l.mu.
// Seq numbers are 1-indexed and contiguous, so events after seq start
// at slice index seq.
func (l *EventLog) eventsSince(seq uint64) []Event {
	start := int(seq)
	if start >= len(l.events) {
		return nil
	}
	out := make([]Event, len(l.events)-start)
	copy(out, l.events[start:])
	return out
}

// Subscribe returns a channel that receives all events from the start of
// the log, then streams new events as they arrive. The channel is closed
// when ctx is cancelled.
//
// The channel is buffered (256). If a subscriber falls behind and the
// buffer fills, new events are dropped for that subscriber (publishers
// never block).
func (l *EventLog) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 256)

	go func() {
		defer close(ch)

		var cursor uint64

		for {
			// Grab current state under lock.
			l.mu.Lock()
			batch := l.eventsSince(cursor)
			notify := l.notify
			l.mu.Unlock()

			// Deliver buffered events.
			for _, e := range batch {
				select {
				case ch <- e:
				case <-ctx.Done():
					return
				default:
					// subscriber fell behind; drop event
				}
				cursor = e.Seq
			}

			// Wait for new events or cancellation.
			select {
			case <-notify:
				// new event published, loop again
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}

// WaitFor scans the existing log for a matching event. If found, returns
// it immediately. Otherwise blocks until a matching event is published or
// the context is cancelled.
func (l *EventLog) WaitFor(ctx context.Context, match func(Event) bool) (Event, error) {
	// First, scan existing events under lock.
	l.mu.Lock()
	for _, e := range l.events {
		if match(e) {
			l.mu.Unlock()
			return e, nil
		}
	}
	cursor := l.seq
	notify := l.notify
	l.mu.Unlock()

	// Not found in existing log; wait for new events.
	for {
		select {
		case <-notify:
			l.mu.Lock()
			batch := l.eventsSince(cursor)
			notify = l.notify
			l.mu.Unlock()

			for _, e := range batch {
				if match(e) {
					return e, nil
				}
				cursor = e.Seq
			}
		case <-ctx.Done():
			return Event{}, ctx.Err()
		}
	}
}
