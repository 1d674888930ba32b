package list

import (
	"sync"
	"time"

	"github.com/mailgrid/mailgrid/internal/services"
)

// DefaultHoverDelay is how long a hover must be sustained before the row's
// full thread content is prefetched.
const DefaultHoverDelay = 1000 * time.Millisecond

// HoverController arms a per-row delay timer on pointer-enter and fires a
// single prefetch when the hover is sustained. Timers are owned resources:
// pointer-leave and teardown stop them explicitly so no timer ever fires
// against a removed row. Each row prefetches at most once per view; a row
// whose content changes arrives under a fresh id, so its mark never goes
// stale. Timers on different rows run independently.
type HoverController struct {
	mu       sync.Mutex
	delay    time.Duration
	timers   map[string]*time.Timer // row id -> armed timer
	done     map[string]struct{}    // row ids already prefetched for their current identity
	prefetch func(threadKey string)
	torn     bool
}

// NewHoverController creates a controller firing prefetch with the row's
// conversation key after delay. A non-positive delay falls back to the
// default.
func NewHoverController(delay time.Duration, prefetch func(threadKey string)) *HoverController {
	if delay <= 0 {
		delay = DefaultHoverDelay
	}
	return &HoverController{
		delay:    delay,
		timers:   make(map[string]*time.Timer),
		done:     make(map[string]struct{}),
		prefetch: prefetch,
	}
}

// Enter starts the hover timer for a row. Nothing is armed outside single
// mode, without an available identity, or when the row already prefetched
// since its last identity change.
func (h *HoverController) Enter(mode Mode, row services.ThreadSummary, identityAvailable bool) {
	if mode != ModeSingle || !identityAvailable || h.prefetch == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.torn {
		return
	}
	if _, ok := h.done[row.ID]; ok {
		return
	}
	if _, armed := h.timers[row.ID]; armed {
		return
	}
	id, key := row.ID, row.SelectionKey()
	h.timers[id] = time.AfterFunc(h.delay, func() { h.fire(id, key) })
}

// Leave cancels the row's timer with no side effect.
func (h *HoverController) Leave(rowID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.timers[rowID]; ok {
		t.Stop()
		delete(h.timers, rowID)
	}
}

// Reset cancels all timers and forgets prefetched marks, for a folder or
// query change that replaces the whole row set.
func (h *HoverController) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, t := range h.timers {
		t.Stop()
		delete(h.timers, id)
	}
	h.done = make(map[string]struct{})
}

// Teardown cancels every outstanding timer. The controller stays inert
// afterwards.
func (h *HoverController) Teardown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.torn = true
	for id, t := range h.timers {
		t.Stop()
		delete(h.timers, id)
	}
}

// fire runs on the timer goroutine. The membership check makes the prefetch
// exactly-once even when Stop races with an already-fired timer.
func (h *HoverController) fire(rowID, threadKey string) {
	h.mu.Lock()
	if h.torn {
		h.mu.Unlock()
		return
	}
	if _, armed := h.timers[rowID]; !armed {
		h.mu.Unlock()
		return
	}
	delete(h.timers, rowID)
	h.done[rowID] = struct{}{}
	h.mu.Unlock()

	h.prefetch(threadKey)
}
