package savewidget

import (
	"sync"
	"time"

	"github.com/starford/nbsave/internal/clock"
	"github.com/starford/nbsave/internal/models"
)

// checkpointScheduler owns the last checkpoint time and keeps the
// checkpoint region fresh. Each render arms the next one; at most one
// timer is pending at any time.
type checkpointScheduler struct {
	clock  clock.Clock
	region Region

	mu      sync.Mutex
	last    time.Time
	has     bool
	timer   clock.Timer
	gen     uint64
	stopped bool
}

// set stores cp (nil means no checkpoint) and renders immediately.
func (s *checkpointScheduler) set(cp *models.Checkpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cp == nil {
		s.last, s.has = time.Time{}, false
	} else {
		s.last, s.has = cp.LastModified, true
	}
	s.renderLocked()
}

func (s *checkpointScheduler) renderLocked() {
	s.cancelLocked()
	if !s.has {
		s.region.SetText(NoCheckpointLabel, NoCheckpointLabel)
		return
	}

	now := s.clock.Now()
	text, tooltip := checkpointLabel(s.last, now)
	s.region.SetText(text, tooltip)

	if s.stopped {
		return
	}
	gen := s.gen
	s.timer = s.clock.AfterFunc(refreshDelay(now.Sub(s.last)), func() {
		s.fire(gen)
	})
}

// fire is the timer callback. A callback whose generation was superseded
// by a later set or stop does nothing.
func (s *checkpointScheduler) fire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.stopped {
		return
	}
	s.timer = nil
	s.renderLocked()
}

func (s *checkpointScheduler) cancelLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *checkpointScheduler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.cancelLocked()
}
