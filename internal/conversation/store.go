// ABOUTME: Conversation Store - the in-memory collection mirrored to a BlobStore
// ABOUTME: Owns the active-conversation pointer; every mutation writes the full collection through

package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Lyzr-Apps/ultimate-super-space/internal/store"
)

// Store is the single owner of every Conversation. Callers only ever
// receive copies; mutations go through Store methods, which apply them
// synchronously and then hand a serialized snapshot to the background
// writer.
type Store struct {
	mu            sync.RWMutex
	conversations []*Conversation // most recently created first
	activeID      string

	writer *snapshotWriter
	events *eventFeed
	logger *slog.Logger
	now    func() time.Time
}

// Open builds a Store seeded from blobs. It reads exactly once; an absent
// or unparseable blob yields an empty store with no active conversation.
func Open(ctx context.Context, blobs store.BlobStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "conversation")

	s := &Store{
		writer: newSnapshotWriter(blobs, logger),
		events: newEventFeed(logger),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}

	data, err := blobs.Read(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		logger.Debug("no saved conversations")
		return s
	case err != nil:
		logger.Warn("reading saved conversations failed, starting empty", "error", err)
		return s
	}

	conversations, err := decode(data)
	if err != nil {
		logger.Warn("saved conversations are malformed, starting empty", "error", err, "size", len(data))
		return s
	}

	s.conversations = conversations
	if len(conversations) > 0 {
		s.activeID = conversations[0].ID
	}
	logger.Info("loaded conversations", "count", len(conversations))
	return s
}

// decode parses the persisted collection, dropping entries without an ID
func decode(data []byte) ([]*Conversation, error) {
	var raw []*Conversation
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	conversations := make([]*Conversation, 0, len(raw))
	for _, c := range raw {
		if c == nil || c.ID == "" {
			continue
		}
		c.Messages = slices.DeleteFunc(c.Messages, func(m *Message) bool { return m == nil })
		if c.Messages == nil {
			c.Messages = []*Message{}
		}
		conversations = append(conversations, c)
	}
	return conversations, nil
}

// Close waits for pending writes to reach storage and closes subscriptions.
// It does not close the underlying BlobStore.
func (s *Store) Close() {
	s.writer.close()
	s.events.close()
}

// Flush blocks until every mutation made so far has been written.
func (s *Store) Flush() {
	s.writer.flush()
}

// Subscribe streams change events for one conversation, or for all of them
// when conversationID is empty, until ctx is cancelled.
func (s *Store) Subscribe(ctx context.Context, conversationID string) <-chan Event {
	return s.events.watch(ctx, conversationID)
}

// Create inserts a new empty conversation at the head of the collection,
// makes it active and returns its ID.
func (s *Store) Create() string {
	s.mu.Lock()
	c := &Conversation{
		ID:        newID(),
		Title:     DefaultTitle,
		Messages:  []*Message{},
		CreatedAt: s.now(),
	}
	s.conversations = slices.Insert(s.conversations, 0, c)
	s.activeID = c.ID
	s.persistLocked()
	s.mu.Unlock()

	s.logger.Debug("conversation created", "conversation_id", c.ID)
	s.events.publish(Event{Type: EventCreated, ConversationID: c.ID})
	return c.ID
}

// Select makes id the active conversation. Unknown IDs are ignored.
func (s *Store) Select(id string) {
	s.mu.Lock()
	if s.indexLocked(id) < 0 {
		s.mu.Unlock()
		s.logger.Debug("select ignored, no such conversation", "conversation_id", id)
		return
	}
	s.activeID = id
	s.mu.Unlock()

	s.events.publish(Event{Type: EventSelected, ConversationID: id})
}

// Delete removes the conversation. If it was active, the new head becomes
// active, or nothing when the collection is now empty. Unknown IDs are
// ignored.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		s.logger.Debug("delete ignored, no such conversation", "conversation_id", id)
		return
	}
	s.conversations = slices.Delete(s.conversations, i, i+1)
	selected := ""
	if s.activeID == id {
		s.activeID = ""
		if len(s.conversations) > 0 {
			s.activeID = s.conversations[0].ID
		}
		selected = s.activeID
	}
	s.persistLocked()
	s.mu.Unlock()

	s.logger.Debug("conversation deleted", "conversation_id", id)
	s.events.publish(Event{Type: EventDeleted, ConversationID: id})
	if selected != "" {
		s.events.publish(Event{Type: EventSelected, ConversationID: selected})
	}
}

// AppendMessage appends msg to the conversation, mirrors its text into
// LastMessage and, for the first message only, derives the title from it.
// It reports false, changing nothing, when the conversation does not exist.
func (s *Store) AppendMessage(conversationID string, msg *Message) bool {
	if msg == nil {
		return false
	}
	m := *msg

	s.mu.Lock()
	i := s.indexLocked(conversationID)
	if i < 0 {
		s.mu.Unlock()
		s.logger.Debug("append ignored, no such conversation", "conversation_id", conversationID)
		return false
	}
	s.conversations[i].append(&m)
	s.persistLocked()
	s.mu.Unlock()

	s.events.publish(Event{Type: EventAppended, ConversationID: conversationID, Message: &m})
	return true
}

// MarkError overwrites LastMessage with marker, leaving the messages
// untouched. Used after a failed send so the conversation list can flag it.
func (s *Store) MarkError(conversationID, marker string) bool {
	s.mu.Lock()
	i := s.indexLocked(conversationID)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.conversations[i].LastMessage = marker
	s.persistLocked()
	s.mu.Unlock()

	s.events.publish(Event{Type: EventMarked, ConversationID: conversationID})
	return true
}

// Get returns a copy of the conversation, or nil if it does not exist.
func (s *Store) Get(id string) *Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexLocked(id)
	if i < 0 {
		return nil
	}
	return s.conversations[i].clone()
}

// ActiveID returns the active conversation ID, or "" when none is active.
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Active returns a copy of the active conversation, or nil.
func (s *Store) Active() *Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.activeID == "" {
		return nil
	}
	i := s.indexLocked(s.activeID)
	if i < 0 {
		return nil
	}
	return s.conversations[i].clone()
}

// Len returns the number of conversations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

// List returns copies of every conversation in collection order.
func (s *Store) List() []*Conversation {
	return slices.Collect(s.Filter(""))
}

// Filter yields the conversations whose title contains query, ignoring
// case, in collection order. An empty query yields every conversation.
// The sequence is lazy and can be ranged over any number of times; each
// pass sees the collection as it is when that item is reached.
func (s *Store) Filter(query string) iter.Seq[*Conversation] {
	needle := strings.ToLower(query)
	return func(yield func(*Conversation) bool) {
		for i := 0; ; i++ {
			c, ok := s.at(i, needle)
			if !ok {
				return
			}
			if c == nil {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

// at returns a copy of the i-th conversation when it matches needle, nil
// when it does not, and false once i is past the end.
func (s *Store) at(i int, needle string) (*Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i >= len(s.conversations) {
		return nil, false
	}
	c := s.conversations[i]
	if needle != "" && !strings.Contains(strings.ToLower(c.Title), needle) {
		return nil, true
	}
	return c.clone(), true
}

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.conversations, func(c *Conversation) bool { return c.ID == id })
}

// persistLocked serializes the collection and queues it for writing.
// Must be called with s.mu held so snapshots are queued in mutation order.
func (s *Store) persistLocked() {
	if s.conversations == nil {
		s.conversations = []*Conversation{}
	}
	data, err := json.Marshal(s.conversations)
	if err != nil {
		s.logger.Error("serializing conversations failed", "error", err)
		return
	}
	if !s.writer.enqueue(data) {
		s.logger.Warn("store closed, mutation not persisted")
	}
}
