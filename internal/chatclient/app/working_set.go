package app

import (
	"slices"
	"sync"

	"club_chat_service/internal/chat/domain"
)

// WorkingSet messages held for the open channel, newest first.
// Confirmed ids are unique; an echo and its confirmed copy share one slot.
type WorkingSet struct {
	mu       sync.Mutex
	messages []domain.Message
	ids      map[string]struct{}
	changes  chan struct{}
}

// NewWorkingSet create empty WorkingSet
func NewWorkingSet() *WorkingSet {
	return &WorkingSet{
		ids:     make(map[string]struct{}),
		changes: make(chan struct{}, 1),
	}
}

// Changes coalesced change notifications
func (w *WorkingSet) Changes() <-chan struct{} {
	return w.changes
}

func (w *WorkingSet) notify() {
	select {
	case w.changes <- struct{}{}:
	default:
	}
}

// AppendIfNew add older messages at the tail, skipping ids already held.
// Returns how many entries changed.
func (w *WorkingSet) AppendIfNew(msgs []domain.Message) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	changed := 0
	for _, m := range msgs {
		if m.ID != "" {
			if _, ok := w.ids[m.ID]; ok {
				continue
			}
		}
		if w.reconcileLocked(m) {
			changed++
			continue
		}
		w.messages = append(w.messages, m)
		if m.ID != "" {
			w.ids[m.ID] = struct{}{}
		}
		changed++
	}
	if changed > 0 {
		w.notify()
	}
	return changed
}

// Prepend add a newer message at the head. A confirmed copy of a held echo
// replaces it in place; an already held id is dropped.
func (w *WorkingSet) Prepend(m domain.Message) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if m.ID != "" {
		if _, ok := w.ids[m.ID]; ok {
			return false
		}
	}
	if !w.reconcileLocked(m) {
		w.messages = slices.Insert(w.messages, 0, m)
		if m.ID != "" {
			w.ids[m.ID] = struct{}{}
		}
	}
	w.notify()
	return true
}

// reconcileLocked replace the echo carrying m.ClientMsgID with confirmed m
func (w *WorkingSet) reconcileLocked(m domain.Message) bool {
	if m.ID == "" || m.ClientMsgID == "" {
		return false
	}
	for i := range w.messages {
		held := w.messages[i]
		if held.IsEcho() && held.ClientMsgID == m.ClientMsgID {
			m.Status = domain.StatusSent
			w.messages[i] = m
			w.ids[m.ID] = struct{}{}
			return true
		}
	}
	return false
}

// MarkFailed flag the echo with clientMsgID as failed; it stays visible
func (w *WorkingSet) MarkFailed(clientMsgID string) bool {
	if clientMsgID == "" {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.messages {
		if w.messages[i].IsEcho() && w.messages[i].ClientMsgID == clientMsgID {
			if w.messages[i].Status == domain.StatusFailed {
				return false
			}
			w.messages[i].Status = domain.StatusFailed
			w.notify()
			return true
		}
	}
	return false
}

// Snapshot copy of the held messages, newest first
func (w *WorkingSet) Snapshot() []domain.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.messages)
}

// Len number of held messages
func (w *WorkingSet) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.messages)
}

// Reset drop everything, used on channel switch
func (w *WorkingSet) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = nil
	w.ids = make(map[string]struct{})
	w.notify()
}
