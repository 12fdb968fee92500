// Package notification fans out playback state changes to remote watchers.
package notification

import (
	"sync"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tapedeck/internal/app/playback"
)

// Update is one state change delivered to a watcher.
type Update struct {
	SequenceNo uint64
	Fields     playback.Field // Fields changed since the previous update the watcher received
	State      playback.Snapshot
}

// Subscription receives updates. A slow reader only ever sees the latest
// update; skipped updates are folded into its Fields.
type Subscription struct {
	id string
	ch chan Update
}

// ID returns the subscription ID.
func (s *Subscription) ID() string {
	return s.id
}

// Updates returns the update channel. It is closed on Unsubscribe or Close.
func (s *Subscription) Updates() <-chan Update {
	return s.ch
}

// offer replaces any unread update with u. Called with the manager lock held.
func (s *Subscription) offer(u Update) {
	for {
		select {
		case s.ch <- u:
			return
		default:
		}
		select {
		case old := <-s.ch:
			u.Fields |= old.Fields
		default:
		}
	}
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.Mutex
	subscriptions map[string]*Subscription
	sequenceNo    uint64
	closed        bool
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*Subscription),
	}
}

// Attach broadcasts every change of store. The returned function detaches it.
func (m *Manager) Attach(store *playback.Store) (detach func()) {
	return store.Subscribe(playback.FieldAll, func(c playback.Change) {
		m.Broadcast(c.Fields, c.State)
	})
}

// Subscribe adds a new subscription.
func (m *Manager) Subscribe() *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub := &Subscription{
		id: uuid.New().String(),
		ch: make(chan Update, 1),
	}
	if m.closed {
		close(sub.ch)
		return sub
	}
	m.subscriptions[sub.id] = sub
	zlog.Debug().Msgf("notification: subscribed: id=%s subscribers=%d", sub.id, len(m.subscriptions))
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[subscriptionID]
	if !ok {
		return
	}
	delete(m.subscriptions, subscriptionID)
	close(sub.ch)
	zlog.Debug().Msgf("notification: unsubscribed: id=%s subscribers=%d", subscriptionID, len(m.subscriptions))
}

// Broadcast sends a state change to all subscribers without blocking and
// returns its sequence number.
func (m *Manager) Broadcast(fields playback.Field, state playback.Snapshot) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sequenceNo++
	if m.closed {
		return m.sequenceNo
	}

	u := Update{SequenceNo: m.sequenceNo, Fields: fields, State: state}
	for _, sub := range m.subscriptions {
		sub.offer(u)
	}
	return m.sequenceNo
}

// SequenceNo returns the sequence number of the last broadcast.
func (m *Manager) SequenceNo() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sequenceNo
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscriptions)
}

// Close closes every subscription. Later subscriptions are closed immediately.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	for id, sub := range m.subscriptions {
		close(sub.ch)
		delete(m.subscriptions, id)
	}
}
