package stream

import (
	"sync"

	"ProjectZukan/internal/entity"
)

// FrameSlot holds the latest (frame, detections) pair. One goroutine publishes,
// any number of handlers read. The lock only guards the pointer swap.
type FrameSlot struct {
	mu     sync.RWMutex
	snap   *entity.Snapshot
	seq    uint64
	notify chan struct{}
}

func NewFrameSlot() *FrameSlot {
	return &FrameSlot{notify: make(chan struct{})}
}

// Publish replaces the whole snapshot and wakes every waiter. The caller must not
// mutate snap's slices afterwards; readers share them.
func (s *FrameSlot) Publish(snap entity.Snapshot) uint64 {
	s.mu.Lock()
	s.seq++
	snap.Seq = s.seq
	s.snap = &snap
	ch := s.notify
	s.notify = make(chan struct{})
	s.mu.Unlock()

	close(ch)
	return snap.Seq
}

func (s *FrameSlot) Peek() (entity.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snap == nil {
		return entity.Snapshot{}, false
	}
	return *s.snap, true
}

func (s *FrameSlot) Seq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// WaitNext returns a channel that is closed once a snapshot newer than since exists.
func (s *FrameSlot) WaitNext(since uint64) <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.seq > since {
		done := make(chan struct{})
		close(done)
		return done
	}
	return s.notify
}
