package actions

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Children yields the child instances of a composite one at a time.
// ok=false ends the sequence.
type Children interface {
	Next(ctx context.Context) (child *Instance, ok bool, err error)
}

// RunHooks may be implemented by a Children source that needs setup and
// teardown around the child loop.
type RunHooks interface {
	BeforeRun(ctx context.Context) error
	AfterRun(ctx context.Context) error
}

// Composite is a Body that runs children sequentially and forwards
// pause, resume and cancel to whichever child is active.
type Composite struct {
	children Children

	mu        sync.Mutex
	current   *Instance
	canceled  bool
	changed   chan struct{}
	finished  chan struct{}
	closeOnce sync.Once
}

// NewComposite wraps a child source as a Body
func NewComposite(children Children) *Composite {
	return &Composite{
		children: children,
		changed:  make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Current returns the active child, if any
func (c *Composite) Current() *Instance {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Composite) Run(ctx context.Context) (err error) {
	defer c.closeOnce.Do(func() { close(c.finished) })

	if hooks, ok := c.children.(RunHooks); ok {
		if err := hooks.BeforeRun(ctx); err != nil {
			return err
		}
		defer func() {
			if aerr := hooks.AfterRun(ctx); err == nil {
				err = aerr
			}
		}()
	}

	for {
		child, ok, err := c.children.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if !c.activate(child) {
			return nil
		}

		if err := child.Start(ctx); err != nil {
			c.activate(nil)
			return err
		}
		st, err := child.Wait(ctx)
		c.activate(nil)
		if err != nil {
			return err
		}

		if st == StateFailed {
			return errors.New(child.Message())
		}
		if c.isCanceled() {
			return nil
		}
	}
}

// activate sets the active child. It refuses a new child once cancel
// has been requested.
func (c *Composite) activate(child *Instance) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if child != nil && c.canceled {
		return false
	}
	c.current = child
	close(c.changed)
	c.changed = make(chan struct{})
	return true
}

func (c *Composite) isCanceled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canceled
}

func (c *Composite) snapshot() (*Instance, <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.changed
}

// Cancel stops the child loop. A child that has been activated but not
// yet started is waited on until it leaves READY, then canceled.
func (c *Composite) Cancel(ctx context.Context) error {
	c.mu.Lock()
	c.canceled = true
	child := c.current
	c.mu.Unlock()

	if child == nil {
		return nil
	}

	for {
		st := child.State()
		if st != StateReady {
			break
		}
		select {
		case <-child.changes():
		case <-c.finished:
			return nil
		case <-ctx.Done():
			c.mu.Lock()
			c.canceled = false
			c.mu.Unlock()
			return fmt.Errorf("waiting for %s to start: %w", child, ctx.Err())
		}
	}

	if err := child.Cancel(ctx); err != nil && !errors.Is(err, ErrInvalidTransition) {
		return err
	}
	return nil
}

// Pause waits for a pausable active child and pauses it. The wait wakes
// on changes at every nesting level below this composite, since an inner
// composite can become pausable without its own instance changing state.
func (c *Composite) Pause(ctx context.Context) error {
	for {
		signals := c.pauseSignals()
		child, _ := c.snapshot()
		if child != nil && child.State() == StateRunning && child.CanPause() {
			return child.Pause(ctx)
		}

		cases := make([]reflect.SelectCase, 0, len(signals)+2)
		cases = append(cases,
			reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())},
			reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(c.finished)},
		)
		for _, signal := range signals {
			cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(signal)})
		}
		switch chosen, _, _ := reflect.Select(cases); chosen {
		case 0:
			return fmt.Errorf("waiting for a pausable child: %w", ctx.Err())
		case 1:
			return fmt.Errorf("%w: composite finished before pause", ErrInvalidTransition)
		}
	}
}

// pauseSignals returns channels that close when the active child changes
// anywhere in the chain of nested composites below c
func (c *Composite) pauseSignals() []<-chan struct{} {
	child, changed := c.snapshot()
	signals := []<-chan struct{}{changed}
	if child != nil {
		signals = append(signals, child.pauseSignals()...)
	}
	return signals
}

func (c *Composite) Resume(ctx context.Context) error {
	child, _ := c.snapshot()
	if child == nil {
		return nil
	}
	return child.Resume(ctx)
}

func (c *Composite) CanPause() bool {
	child, _ := c.snapshot()
	return child != nil && child.CanPause()
}
