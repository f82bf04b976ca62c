package acquire

import (
	"context"
	"sync"
	"time"

	"farmacias-turno/internal/components/assert"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const (
	// DefaultIdleConnections is the number of requests that may still be in flight
	// while the page is considered idle.
	DefaultIdleConnections = 2
	// DefaultIdleWindow is how long the in-flight count must stay low.
	DefaultIdleWindow = 500 * time.Millisecond

	idlePollInterval = 50 * time.Millisecond
)

// idleTracker follows the requests a page has in flight through devtools network events.
type idleTracker struct {
	mu         sync.Mutex
	inflight   map[network.RequestID]struct{}
	lastChange time.Time
	now        func() time.Time
}

func newIdleTracker(now func() time.Time) *idleTracker {
	if now == nil {
		now = time.Now
	}
	return &idleTracker{
		inflight:   map[network.RequestID]struct{}{},
		lastChange: now(),
		now:        now,
	}
}

func (t *idleTracker) started(id network.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight[id] = struct{}{}
	t.lastChange = t.now()
}

func (t *idleTracker) finished(id network.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.inflight[id]; !ok {
		return
	}
	delete(t.inflight, id)
	t.lastChange = t.now()
}

func (t *idleTracker) handle(ev any) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.started(e.RequestID)
	case *network.EventLoadingFinished:
		t.finished(e.RequestID)
	case *network.EventLoadingFailed:
		t.finished(e.RequestID)
	}
}

// idle reports whether at most maxInflight requests have been pending for the whole window.
func (t *idleTracker) idle(maxInflight int, window time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) <= maxInflight && t.now().Sub(t.lastChange) >= window
}

func waitNetworkIdle(t *idleTracker, maxInflight int, window time.Duration) chromedp.ActionFunc {
	assert.Positive(window)

	return func(ctx context.Context) error {
		ticker := time.NewTicker(idlePollInterval)
		defer ticker.Stop()
		for {
			if t.idle(maxInflight, window) {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}
}
