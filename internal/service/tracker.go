// Package service provides the orchestration logic for the bot.
package service

import (
	"container/list"
	"sync"

	"github.com/charotAmine/databricks-genieslack/pkg/metrics"
)

const defaultTrackerMaxEntries = 4096

// FeedbackRef identifies the Genie message a feedback prompt refers to.
type FeedbackRef struct {
	ConversationID string
	MessageID      string
}

// Tracker maps chat threads to Genie conversations and posted feedback
// prompts to the (conversation, message) pair they rate. Both tables are
// LRU-bounded so a long-lived process cannot grow without limit. All
// operations are safe for concurrent use.
type Tracker struct {
	mu            sync.Mutex
	conversations *lruMap[string]
	feedback      *lruMap[FeedbackRef]
}

// NewTracker creates a tracker holding at most maxEntries bindings per table.
func NewTracker(maxEntries int) *Tracker {
	if maxEntries <= 0 {
		maxEntries = defaultTrackerMaxEntries
	}
	return &Tracker{
		conversations: newLRUMap[string](maxEntries),
		feedback:      newLRUMap[FeedbackRef](maxEntries),
	}
}

// Conversation returns the conversation bound to a thread, if any.
func (t *Tracker) Conversation(threadID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conversations.get(threadID)
}

// BindConversation binds a thread to a conversation. The first binding wins:
// once a thread is bound, later calls with a different conversation are
// no-ops, so every follow-up in the thread continues the same conversation.
func (t *Tracker) BindConversation(threadID, conversationID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.conversations.get(threadID); ok {
		return
	}
	t.conversations.put(threadID, conversationID)
	metrics.TrackedThreads.Set(float64(t.conversations.len()))
}

// BindFeedback records which answer a posted feedback prompt refers to.
func (t *Tracker) BindFeedback(promptID, conversationID, messageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.feedback.put(promptID, FeedbackRef{ConversationID: conversationID, MessageID: messageID})
}

// Feedback returns the answer a feedback prompt refers to, if known.
func (t *Tracker) Feedback(promptID string) (FeedbackRef, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.feedback.get(promptID)
}

// Threads returns the number of tracked thread bindings.
func (t *Tracker) Threads() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conversations.len()
}

// FeedbackBindings returns the number of tracked feedback bindings.
func (t *Tracker) FeedbackBindings() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.feedback.len()
}

// lruMap is a small bounded map with least-recently-used eviction. Not safe
// for concurrent use; the Tracker serializes access.
type lruMap[V any] struct {
	max   int
	items map[string]*list.Element
	order *list.List
}

type lruEntry[V any] struct {
	key   string
	value V
}

func newLRUMap[V any](max int) *lruMap[V] {
	return &lruMap[V]{
		max:   max,
		items: make(map[string]*list.Element),
		order: list.New(),
	}
}

func (m *lruMap[V]) get(key string) (V, bool) {
	if el, ok := m.items[key]; ok {
		m.order.MoveToFront(el)
		return el.Value.(*lruEntry[V]).value, true
	}
	var zero V
	return zero, false
}

func (m *lruMap[V]) put(key string, value V) {
	if el, ok := m.items[key]; ok {
		el.Value.(*lruEntry[V]).value = value
		m.order.MoveToFront(el)
		return
	}
	m.items[key] = m.order.PushFront(&lruEntry[V]{key: key, value: value})
	if m.order.Len() > m.max {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.items, oldest.Value.(*lruEntry[V]).key)
	}
}

func (m *lruMap[V]) len() int {
	return m.order.Len()
}
