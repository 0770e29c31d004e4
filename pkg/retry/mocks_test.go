package retry

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// fakeTimer は待機時間を記録して即座に発火するタイマーです。
type fakeTimer struct {
	mu    *sync.Mutex
	waits *[]time.Duration
	c     chan time.Time
}

func (t *fakeTimer) Start(d time.Duration) {
	t.mu.Lock()
	*t.waits = append(*t.waits, d)
	t.mu.Unlock()
	t.c <- time.Now()
}

func (t *fakeTimer) Stop() {}

func (t *fakeTimer) C() <-chan time.Time { return t.c }

type timerRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *timerRecorder) factory() backoff.Timer {
	return &fakeTimer{mu: &r.mu, waits: &r.waits, c: make(chan time.Time, 1)}
}

func (r *timerRecorder) total() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum time.Duration
	for _, w := range r.waits {
		sum += w
	}
	return sum
}
