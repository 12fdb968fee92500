package nowplaying

import "sync"

// handlerSet stores the action handlers registered on a surface.
type handlerSet struct {
	mu       sync.RWMutex
	handlers map[Action]ActionHandler
}

func (h *handlerSet) set(action Action, handler ActionHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.handlers == nil {
		h.handlers = make(map[Action]ActionHandler)
	}
	if handler == nil {
		delete(h.handlers, action)
		return
	}
	h.handlers[action] = handler
}

// call runs the handler for d.Action outside the lock and reports whether one was set.
func (h *handlerSet) call(d ActionDetails) bool {
	h.mu.RLock()
	handler := h.handlers[d.Action]
	h.mu.RUnlock()

	if handler == nil {
		return false
	}
	handler(d)
	return true
}

// announcer decides when a track becomes worth announcing: once per track,
// the first time it is seen playing.
type announcer struct {
	mu        sync.Mutex
	metadata  *Metadata
	state     SessionState
	announced string
}

// setMetadata records m and returns the metadata to announce, if any.
func (a *announcer) setMetadata(m *Metadata) *Metadata {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.metadata = m
	if m == nil {
		a.announced = ""
	}
	return a.nextLocked()
}

// setState records state and returns the metadata to announce, if any.
func (a *announcer) setState(state SessionState) *Metadata {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = state
	return a.nextLocked()
}

func (a *announcer) nextLocked() *Metadata {
	if a.metadata == nil || a.state != SessionPlaying || a.announced == a.metadata.TrackID {
		return nil
	}
	a.announced = a.metadata.TrackID
	m := *a.metadata
	return &m
}
