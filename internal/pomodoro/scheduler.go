package pomodoro

import (
	"sync"
	"time"
)

// Scheduler runs fn repeatedly until the returned stop function is called.
// Stop must be safe to call more than once and from inside fn.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (stop func())
}

// TickerScheduler drives callbacks from a time.Ticker on its own goroutine.
type TickerScheduler struct{}

// Every implements Scheduler.
func (TickerScheduler) Every(interval time.Duration, fn func()) func() {
	t := time.NewTicker(interval)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		for {
			select {
			case <-done:
				return
			case <-t.C:
				fn()
			}
		}
	}()

	return func() {
		once.Do(func() {
			t.Stop()
			close(done)
		})
	}
}
