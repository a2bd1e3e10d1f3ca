package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/cirkle/internal/domain"
	"github.com/arturoeanton/cirkle/internal/service"
)

const heartbeatInterval = 25 * time.Second

// EventBus fans group events out to SSE subscribers.
type EventBus struct {
	mu   sync.RWMutex
	subs map[string][]chan domain.Event // subscribers per group
}

// NewEventBus creates an empty event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[string][]chan domain.Event)}
}

// Publish delivers evt to every subscriber of its group. Slow subscribers
// miss events instead of blocking the publisher.
func (b *EventBus) Publish(evt domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[evt.GroupID] {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribe returns a channel receiving the group's events.
func (b *EventBus) Subscribe(groupID string) chan domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan domain.Event, 16)
	b.subs[groupID] = append(b.subs[groupID], ch)
	return ch
}

// Unsubscribe removes ch and closes it.
func (b *EventBus) Unsubscribe(groupID string, ch chan domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[groupID]
	for i, s := range subs {
		if s == ch {
			b.subs[groupID] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}
	if len(b.subs[groupID]) == 0 {
		delete(b.subs, groupID)
	}
}

// Subscribers returns the number of open subscriptions for a group.
func (b *EventBus) Subscribers(groupID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[groupID])
}

// EventsHandler streams group events via Server-Sent Events.
type EventsHandler struct {
	bus    *EventBus
	groups *service.GroupService
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(bus *EventBus, groups *service.GroupService) *EventsHandler {
	return &EventsHandler{bus: bus, groups: groups}
}

// Register sets up event routes.
func (h *EventsHandler) Register(router fiber.Router) {
	router.Get("/groups/:id/events", h.Stream)
}

// Stream writes every event of the group until the client disconnects.
func (h *EventsHandler) Stream(c fiber.Ctx) error {
	groupID := c.Params("id")
	if _, err := h.groups.RequireMember(c.Context(), groupID, currentUser(c).UserID); err != nil {
		return err
	}

	ch := h.bus.Subscribe(groupID)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer h.bus.Unsubscribe(groupID, ch)

		fmt.Fprintf(w, "event: connected\ndata: {\"group_id\":%q}\n\n", groupID)
		if err := w.Flush(); err != nil {
			return
		}

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()
		for {
			select {
			case evt, ok := <-ch:
				if !ok {
					return
				}
				if err := writeEvent(w, evt); err != nil {
					slog.Debug("SSE client gone", "group_id", groupID, "error", err)
					return
				}
			case <-heartbeat.C:
				fmt.Fprint(w, ": ping\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})
}

func writeEvent(w *bufio.Writer, evt domain.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
	return w.Flush()
}
