package accel

import "sync"

// Handle is a loaded model held for one stage run.
type Handle struct {
	Model string

	once     sync.Once
	release  func()
	released bool
	mu       sync.Mutex
}

// NewHandle wraps a loaded model. release may be nil.
func NewHandle(model string, release func()) *Handle {
	return &Handle{Model: model, release: release}
}

// Release frees the model. Calls after the first are no-ops; a nil handle is
// ignored.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		if h.release != nil {
			h.release()
		}
		h.mu.Lock()
		h.released = true
		h.mu.Unlock()
	})
}

// Released reports whether Release has run.
func (h *Handle) Released() bool {
	if h == nil {
		return true
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}
