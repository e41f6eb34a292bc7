// ABOUTME: Change events the Store emits after each mutation
// ABOUTME: A watcher follows one conversation or, with an empty ID, all of them

package conversation

import (
	"context"
	"log/slog"
	"sync"
)

// watchBuffer is how many undelivered events a watcher may hold
const watchBuffer = 64

// EventType names a store mutation
type EventType string

// Event types published by the Store
const (
	EventCreated  EventType = "created"
	EventSelected EventType = "selected"
	EventDeleted  EventType = "deleted"
	EventAppended EventType = "appended"
	EventMarked   EventType = "marked"
)

// Event describes one store mutation. Message is set for EventAppended and
// is a copy owned by the receiver.
type Event struct {
	Type           EventType
	ConversationID string
	Message        *Message
}

type watcher struct {
	conversationID string
	ch             chan Event
}

func (w *watcher) wants(ev Event) bool {
	return w.conversationID == "" || w.conversationID == ev.ConversationID
}

// eventFeed delivers events to watchers without ever blocking the store.
// A watcher whose buffer is full misses the event.
type eventFeed struct {
	mu       sync.Mutex
	watchers map[*watcher]struct{}
	closed   bool
	logger   *slog.Logger
}

func newEventFeed(logger *slog.Logger) *eventFeed {
	return &eventFeed{
		watchers: make(map[*watcher]struct{}),
		logger:   logger,
	}
}

// watch registers a watcher that lives until ctx is done or the feed closes.
// Watching a closed feed yields an already-closed channel.
func (f *eventFeed) watch(ctx context.Context, conversationID string) <-chan Event {
	w := &watcher{conversationID: conversationID, ch: make(chan Event, watchBuffer)}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(w.ch)
		return w.ch
	}
	f.watchers[w] = struct{}{}
	f.mu.Unlock()

	context.AfterFunc(ctx, func() { f.forget(w) })
	return w.ch
}

func (f *eventFeed) publish(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for w := range f.watchers {
		if !w.wants(ev) {
			continue
		}
		out := ev
		if ev.Message != nil {
			m := *ev.Message
			out.Message = &m
		}
		select {
		case w.ch <- out:
		default:
			f.logger.Debug("event dropped, watcher full",
				"conversation_id", ev.ConversationID,
				"type", ev.Type)
		}
	}
}

func (f *eventFeed) forget(w *watcher) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.watchers[w]; !ok {
		return
	}
	delete(f.watchers, w)
	close(w.ch)
}

// size reports the number of live watchers
func (f *eventFeed) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.watchers)
}

func (f *eventFeed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for w := range f.watchers {
		delete(f.watchers, w)
		close(w.ch)
	}
}
