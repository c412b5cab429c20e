package services

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/corklane/board-backend/internal/core/domain"
	"github.com/corklane/board-backend/internal/core/ports"
)

// EventService owns the listener registry and runs the publish pipeline:
// matching listeners execute sequentially in priority order, then the
// broadcaster fans the event out to live connections.
type EventService struct {
	mu          sync.RWMutex
	listeners   map[string]*listenerEntry
	nextSeq     uint64
	broadcaster ports.Broadcaster
	logger      *slog.Logger
}

// listenerEntry pairs a listener with its registration sequence number,
// which keeps ordering stable for equal priorities.
type listenerEntry struct {
	listener domain.Listener
	seq      uint64
}

var _ ports.EventService = (*EventService)(nil)

// NewEventService creates an event service wired to the given
// broadcaster. A nil broadcaster is allowed until SetBroadcaster is
// called; publishing without one runs listeners only.
func NewEventService(broadcaster ports.Broadcaster, logger *slog.Logger) ports.EventService {
	return &EventService{
		listeners:   make(map[string]*listenerEntry),
		broadcaster: broadcaster,
		logger:      logger.With("component", "event_service"),
	}
}

// RegisterListener stores the listener and returns a closure that
// removes it by ID. Registering the same ID again replaces the previous
// listener; the returned removal is idempotent.
func (s *EventService) RegisterListener(listener domain.Listener) func() {
	if listener.Priority == 0 {
		listener.Priority = domain.DefaultListenerPriority
	}

	s.mu.Lock()
	s.nextSeq++
	s.listeners[listener.ID] = &listenerEntry{
		listener: listener,
		seq:      s.nextSeq,
	}
	s.mu.Unlock()

	id := listener.ID
	return func() {
		s.UnregisterListener(id)
	}
}

// UnregisterListener removes a listener by ID. Removing an unknown ID
// is a no-op.
func (s *EventService) UnregisterListener(id string) {
	s.mu.Lock()
	delete(s.listeners, id)
	s.mu.Unlock()
}

// SetBroadcaster wires the fan-out target. Last write wins; normally
// called exactly once during process construction.
func (s *EventService) SetBroadcaster(b ports.Broadcaster) {
	s.mu.Lock()
	s.broadcaster = b
	s.mu.Unlock()
}

// Publish runs the pipeline for one event. Listeners matching the
// event's type run sequentially in ascending priority order; a listener
// failure or panic is logged and does not stop later listeners. Unless
// skipped via options, the broadcaster then fans the event out, and its
// error propagates to the caller since broadcast is the primary
// delivery path.
func (s *EventService) Publish(ctx context.Context, event domain.Event, opts ...ports.PublishOption) error {
	var options ports.PublishOptions
	for _, opt := range opts {
		opt(&options)
	}

	for _, entry := range s.matchingListeners(event.Type) {
		s.runListener(ctx, entry.listener, event)
	}

	if options.SkipBroadcast {
		return nil
	}

	s.mu.RLock()
	broadcaster := s.broadcaster
	s.mu.RUnlock()

	if broadcaster == nil {
		s.logger.Warn("no broadcaster wired, event not fanned out",
			"event_type", event.Type,
			"event_id", event.ID,
		)
		return nil
	}

	return broadcaster.Broadcast(ctx, event)
}

// matchingListeners snapshots the listeners interested in the given
// type, sorted by (priority, registration order).
func (s *EventService) matchingListeners(eventType domain.EventType) []*listenerEntry {
	s.mu.RLock()
	matched := make([]*listenerEntry, 0, len(s.listeners))
	for _, entry := range s.listeners {
		if entry.listener.Matches(eventType) {
			matched = append(matched, entry)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].listener.Priority != matched[j].listener.Priority {
			return matched[i].listener.Priority < matched[j].listener.Priority
		}
		return matched[i].seq < matched[j].seq
	})
	return matched
}

// runListener invokes one handler with failure isolation: errors and
// panics are logged, never propagated.
func (s *EventService) runListener(ctx context.Context, listener domain.Listener, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("event listener panicked",
				"listener_id", listener.ID,
				"event_type", event.Type,
				"event_id", event.ID,
				"panic", r,
			)
		}
	}()

	if err := listener.Handler(ctx, event); err != nil {
		s.logger.Error("event listener failed",
			"listener_id", listener.ID,
			"event_type", event.Type,
			"event_id", event.ID,
			"error", err,
		)
	}
}
