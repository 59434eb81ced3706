package probe

import (
	"sync"
	"time"
)

// CancelFunc stops a scheduled job. Safe to call more than once.
type CancelFunc func()

// Scheduler abstracts timer-driven work (poll cadence, wake delays, retry
// throttling) so variants never own raw timers and tests can drive ticks
// by hand.
type Scheduler interface {
	// Every runs fn repeatedly at the given interval until cancelled.
	Every(interval time.Duration, fn func()) CancelFunc
	// After runs fn once after the given delay unless cancelled first.
	After(delay time.Duration, fn func()) CancelFunc
}

// TickerScheduler is the production Scheduler, backed by time.Ticker and
// time.AfterFunc.
type TickerScheduler struct{}

func (TickerScheduler) Every(interval time.Duration, fn func()) CancelFunc {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

func (TickerScheduler) After(delay time.Duration, fn func()) CancelFunc {
	timer := time.AfterFunc(delay, fn)
	return func() { timer.Stop() }
}

var _ Scheduler = TickerScheduler{}
