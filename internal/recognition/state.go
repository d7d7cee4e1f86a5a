// Package recognition holds the identities recognized in the most recently
// completed pipeline cycle.
package recognition

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/facecam/internal/constants"
	"github.com/kozaktomas/facecam/internal/facematch"
)

// Snapshot is the immutable result of one completed cycle.
type Snapshot struct {
	// Cycle counts completed cycles; zero means none has completed yet.
	Cycle uint64             `json:"cycle"`
	At    time.Time          `json:"at"`
	Faces []facematch.Result `json:"faces"`
}

// State is written once per cycle by the producer loop and read by any
// number of goroutines. Replace publishes a whole new Snapshot, so readers see
// one cycle's faces or the next one's, never a mix.
type State struct {
	current atomic.Pointer[Snapshot]

	listeners []chan *Snapshot
	mu        sync.RWMutex
}

// NewState creates a state holding an empty snapshot.
func NewState() *State {
	s := &State{}
	s.current.Store(&Snapshot{Faces: []facematch.Result{}})
	return s
}

// Current returns the latest snapshot. Callers must not modify it.
func (s *State) Current() *Snapshot {
	return s.current.Load()
}

// Faces returns the faces of the latest completed cycle. Before the first
// cycle completes it is empty, never nil.
func (s *State) Faces() []facematch.Result {
	return s.current.Load().Faces
}

// Replace publishes the results of a completed cycle. Listeners are notified
// when the set of recognized names differs from the previous cycle.
func (s *State) Replace(results []facematch.Result) *Snapshot {
	faces := make([]facematch.Result, len(results))
	copy(faces, results)

	prev := s.current.Load()
	next := &Snapshot{Cycle: prev.Cycle + 1, At: time.Now(), Faces: faces}
	s.current.Store(next)

	if !sameNames(prev.Faces, next.Faces) {
		s.notify(next)
	}
	return next
}

func sameNames(a, b []facematch.Result) bool {
	return slices.EqualFunc(a, b, func(x, y facematch.Result) bool {
		return x.Name == y.Name
	})
}

// AddListener adds a change listener.
func (s *State) AddListener() chan *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan *Snapshot, constants.EventChannelBuffer)
	s.listeners = append(s.listeners, ch)
	return ch
}

// RemoveListener removes a change listener and closes its channel.
func (s *State) RemoveListener(ch chan *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, listener := range s.listeners {
		if listener == ch {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

func (s *State) notify(snap *Snapshot) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, listener := range s.listeners {
		select {
		case listener <- snap:
		default:
			// Listener buffer full, skip.
		}
	}
}
