package actions

import (
	"context"
	"fmt"
	"sync"
)

// Step is a leaf Body around a single context-aware operation.
//
// A pausable step pauses by canceling the in-flight operation and
// re-issuing it from scratch on resume, so the operation must be
// idempotent with respect to its goal (walk to X, place block at Y).
type Step struct {
	name     string
	pausable bool
	execute  func(ctx context.Context) error

	mu          sync.Mutex
	stopOp      context.CancelFunc
	gate        chan struct{} // non-nil while paused
	interrupted bool
}

// NewStep returns a step that can be paused
func NewStep(name string, execute func(ctx context.Context) error) *Step {
	return &Step{name: name, pausable: true, execute: execute}
}

// NewAtomicStep returns a step that rejects pause and resume
func NewAtomicStep(name string, execute func(ctx context.Context) error) *Step {
	return &Step{name: name, execute: execute}
}

func (s *Step) Run(ctx context.Context) error {
	for {
		s.mu.Lock()
		if gate := s.gate; gate != nil {
			s.mu.Unlock()
			select {
			case <-gate:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		opCtx, stop := context.WithCancel(ctx)
		s.stopOp = stop
		s.interrupted = false
		s.mu.Unlock()

		err := s.execute(opCtx)

		s.mu.Lock()
		interrupted := s.interrupted
		s.stopOp = nil
		s.mu.Unlock()
		stop()

		if err == nil {
			return nil
		}
		if interrupted && ctx.Err() == nil {
			continue
		}
		return err
	}
}

func (s *Step) Pause(context.Context) error {
	if !s.pausable {
		return fmt.Errorf("%w: %s cannot be paused", ErrUnsupportedOperation, s.name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gate == nil {
		s.gate = make(chan struct{})
	}
	if s.stopOp != nil {
		s.interrupted = true
		s.stopOp()
	}
	return nil
}

func (s *Step) Resume(context.Context) error {
	if !s.pausable {
		return fmt.Errorf("%w: %s cannot be resumed", ErrUnsupportedOperation, s.name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gate != nil {
		close(s.gate)
		s.gate = nil
	}
	return nil
}

func (s *Step) Cancel(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopOp != nil {
		s.stopOp()
	}
	return nil
}

func (s *Step) CanPause() bool {
	return s.pausable
}
