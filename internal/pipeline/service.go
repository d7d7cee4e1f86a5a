package pipeline

import (
	"context"
	"sync"

	"github.com/kozaktomas/facecam/internal/stream"
)

// Service runs the producer loop of a pipeline in the background and fans its
// frames out to stream viewers. The loop runs between Acquire and Release.
type Service struct {
	pipeline *Pipeline
	frames   *stream.Broadcaster

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewService wraps p. Frames are published to b.
func NewService(p *Pipeline, b *stream.Broadcaster) *Service {
	return &Service{pipeline: p, frames: b}
}

// Pipeline returns the wrapped pipeline.
func (s *Service) Pipeline() *Pipeline {
	return s.pipeline
}

// Frames returns the broadcaster viewers subscribe to.
func (s *Service) Frames() *stream.Broadcaster {
	return s.frames
}

// Acquire opens the device and starts the producer loop if it is not running.
// Device errors are returned to the caller; nothing is retried.
func (s *Service) Acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running() {
		return nil
	}
	if err := s.pipeline.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		// Run reuses the handle acquired above and releases it on exit.
		s.pipeline.Run(ctx, func(f Frame) {
			if f.JPEG == nil {
				return
			}
			s.frames.Publish(stream.Frame{Seq: f.Seq, Data: f.JPEG, At: f.At})
		})
	}()
	return nil
}

// Release stops the producer loop and frees the device. It waits for the
// in-flight cycle to finish, then ends every open viewer stream. It is safe
// to call repeatedly.
func (s *Service) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	err := s.pipeline.Release()
	if s.done != nil {
		<-s.done
		s.frames.Disconnect()
	}
	s.cancel = nil
	s.done = nil
	return err
}

// Running reports whether the producer loop is active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running()
}

func (s *Service) running() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}
