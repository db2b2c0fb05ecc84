package discussion

import (
	"sync"
	"sync/atomic"
	"time"
)

type TimerPurpose string

const (
	// TimerPurposeInterruptionWindow closes the post-utterance window in which
	// the human may take the floor.
	TimerPurposeInterruptionWindow TimerPurpose = "interruption_window"
	// TimerPurposePlaybackGrace stands in for the client's playback-complete
	// signal when a bot utterance shipped without audio.
	TimerPurposePlaybackGrace TimerPurpose = "playback_grace"
)

// WindowTimer owns the single pending timer of a session. Arming replaces any
// live timer. Expiry and cancellation race through one atomic claim per timer:
// exactly one side wins, so an expiry callback never runs for a timer that was
// cancelled first, and Cancel reports false once expiry has claimed it.
type WindowTimer struct {
	mu      sync.Mutex
	pending *timerHandle
}

type timerHandle struct {
	purpose  TimerPurpose
	deadline time.Time
	claimed  atomic.Bool
	timer    *time.Timer
}

func NewWindowTimer() *WindowTimer {
	return &WindowTimer{}
}

// Start arms the timer. onExpire runs on a timer goroutine only if expiry wins
// the claim; it is never invoked with any WindowTimer lock held.
func (w *WindowTimer) Start(d time.Duration, purpose TimerPurpose, onExpire func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.cancel()
	}
	h := &timerHandle{purpose: purpose, deadline: time.Now().Add(d)}
	h.timer = time.AfterFunc(d, func() {
		if h.claimed.CompareAndSwap(false, true) {
			onExpire()
		}
	})
	w.pending = h
}

// Cancel claims the live timer. It reports false when no timer is armed or
// expiry already won the race.
func (w *WindowTimer) Cancel() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil {
		return false
	}
	won := w.pending.cancel()
	w.pending = nil
	return won
}

// Active reports whether an armed, unclaimed timer exists.
func (w *WindowTimer) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending != nil && !w.pending.claimed.Load()
}

// Purpose returns the live timer's purpose, if one is active.
func (w *WindowTimer) Purpose() (TimerPurpose, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil || w.pending.claimed.Load() {
		return "", false
	}
	return w.pending.purpose, true
}

func (h *timerHandle) cancel() bool {
	if h.claimed.CompareAndSwap(false, true) {
		h.timer.Stop()
		return true
	}
	return false
}
