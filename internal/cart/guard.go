package cart

import (
	"sync"
	"time"
)

// guard suppresses duplicate mutating operations for the same dish id. A UI
// click can fire more than once for a single logical action, so each key is
// locked while its operation is in flight and for a short window after it
// completes. Operations on different keys never block each other.
type guard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
	lastDone map[string]time.Time
	window   time.Duration
	now      func() time.Time
}

func newGuard(window time.Duration) *guard {
	if window <= 0 {
		window = 500 * time.Millisecond
	}
	return &guard{
		inFlight: make(map[string]struct{}),
		lastDone: make(map[string]time.Time),
		window:   window,
		now:      time.Now,
	}
}

// tryAcquire reserves the key. It fails while an operation for the same key
// is in flight or completed less than one window ago.
func (g *guard) tryAcquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.inFlight[key]; busy {
		return false
	}
	if done, ok := g.lastDone[key]; ok && g.now().Sub(done) < g.window {
		return false
	}
	g.inFlight[key] = struct{}{}
	return true
}

// release frees the key and starts its quiet window. It must be called for
// every successful tryAcquire, including when the operation fails, so a
// timed-out gateway call never leaves the key locked.
func (g *guard) release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.inFlight, key)
	g.lastDone[key] = g.now()
}
