package lifecycle

import "time"

// Signal is a single-slot, level-triggered flag. Setting it while it is
// already pending has no further effect; Wait consumes it.
type Signal struct {
	ch chan struct{}
}

// NewSignal returns a cleared signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Set raises the signal. It never blocks.
func (s *Signal) Set() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// IsSet reports whether the signal is pending.
func (s *Signal) IsSet() bool {
	return len(s.ch) > 0
}

// Wait blocks until the signal is raised or timeout elapses and reports
// whether it consumed the signal.
func (s *Signal) Wait(timeout time.Duration) bool {
	select {
	case <-s.ch:
		return true
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.ch:
		return true
	case <-timer.C:
		return false
	}
}
