package stream

import (
	"sync"
	"time"

	"github.com/kozaktomas/facecam/internal/constants"
)

// Frame is one encoded output frame.
type Frame struct {
	Seq  uint64
	Data []byte
	At   time.Time
}

// Broadcaster fans encoded frames out to viewers. A viewer that falls behind
// loses its oldest queued frame, so every viewer sees the latest frames and
// the producer never waits.
type Broadcaster struct {
	listeners []chan Frame
	closed    bool
	mu        sync.RWMutex
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// AddListener adds a viewer. The channel is closed by RemoveListener,
// Disconnect or Close.
func (b *Broadcaster) AddListener() chan Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Frame, constants.FrameChannelBuffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes a viewer and closes its channel.
func (b *Broadcaster) RemoveListener(ch chan Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// Listeners returns the number of viewers.
func (b *Broadcaster) Listeners() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Publish sends f to every viewer without blocking.
func (b *Broadcaster) Publish(f Frame) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- f:
			continue
		default:
		}
		// Full: drop the oldest queued frame and retry once.
		select {
		case <-listener:
		default:
		}
		select {
		case listener <- f:
		default:
		}
	}
}

// Disconnect closes and drops every current viewer channel. Unlike Close,
// viewers added afterwards are served normally.
func (b *Broadcaster) Disconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, listener := range b.listeners {
		close(listener)
	}
	b.listeners = nil
}

// Close closes every viewer channel. Later listeners get a closed channel.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, listener := range b.listeners {
		close(listener)
	}
	b.listeners = nil
	b.closed = true
}
