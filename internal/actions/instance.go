package actions

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Body is the behavior behind an instance. Run performs the work and
// returns nil on success; the remaining hooks are invoked by the instance
// while it holds its transition lock.
type Body interface {
	Run(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Cancel(ctx context.Context) error
	CanPause() bool
}

// pauseSignaler is implemented by bodies whose pausability can change
// without their instance changing state
type pauseSignaler interface {
	pauseSignals() []<-chan struct{}
}

// Scheduler admits an instance into RUNNING. Admit must run enter only if
// no other job is RUNNING, and must hold its own lock while doing so.
type Scheduler interface {
	Admit(id string, enter func() error) error
}

// Info is a read-only snapshot of an instance
type Info struct {
	ID      string `json:"id"`
	Action  string `json:"action"`
	Args    []Arg  `json:"args"`
	State   State  `json:"state"`
	Message string `json:"message"`
}

type outcome struct {
	err error
}

// Instance is one execution of an action
type Instance struct {
	id         string
	actionName string
	args       []Arg
	body       Body
	base       context.Context

	mu        sync.Mutex // serializes transitions
	scheduler Scheduler
	runCancel context.CancelFunc
	pending   *outcome // body finished while paused

	pauseMu   sync.Mutex
	stopPause context.CancelFunc // aborts a pause that is waiting on the body

	state atomic.Value // State

	evMu    sync.Mutex
	message string
	history []Event
	changed chan struct{} // closed and replaced on every event

	done     chan struct{}
	doneOnce sync.Once
}

// NewInstance creates a READY instance. base bounds the body's run context.
func NewInstance(id, actionName string, args []Arg, body Body, base context.Context) *Instance {
	if base == nil {
		base = context.Background()
	}
	in := &Instance{
		id:         id,
		actionName: actionName,
		args:       CloneArgs(args),
		body:       body,
		base:       base,
		changed:    make(chan struct{}),
		done:       make(chan struct{}),
	}
	in.state.Store(StateReady)
	return in
}

// BindScheduler makes this instance a job: transitions into RUNNING go
// through s. Must be called before Start.
func (in *Instance) BindScheduler(s Scheduler) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.scheduler = s
}

func (in *Instance) ID() string         { return in.id }
func (in *Instance) ActionName() string { return in.actionName }
func (in *Instance) Args() []Arg        { return CloneArgs(in.args) }

func (in *Instance) State() State {
	return in.state.Load().(State)
}

func (in *Instance) Message() string {
	in.evMu.Lock()
	defer in.evMu.Unlock()
	return in.message
}

// CanPause reports whether a pause request would currently be honored by the body
func (in *Instance) CanPause() bool {
	return in.body.CanPause()
}

// Info returns a snapshot suitable for listing
func (in *Instance) Info() Info {
	return Info{
		ID:      in.id,
		Action:  in.actionName,
		Args:    in.Args(),
		State:   in.State(),
		Message: in.Message(),
	}
}

func (in *Instance) String() string {
	if in.id == "" {
		return in.actionName
	}
	return fmt.Sprintf("%s#%s", in.actionName, in.id)
}

// Start moves a READY instance to RUNNING and launches its body
func (in *Instance) Start(ctx context.Context) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if st := in.State(); st != StateReady {
		return in.reject("start", st)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to start %s: %w", in, err)
	}

	runCtx, cancel := context.WithCancel(in.base)
	err := in.admit(func() error {
		in.state.Store(StateRunning)
		return nil
	})
	if err != nil {
		cancel()
		return err
	}
	in.runCancel = cancel
	in.emit(EventStart)

	go in.run(runCtx)
	return nil
}

// Pause moves a RUNNING instance to PAUSED after the body's pause hook succeeds
func (in *Instance) Pause(ctx context.Context) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if st := in.State(); st != StateRunning {
		return in.reject("pause", st)
	}
	pauseCtx, stop := context.WithCancel(ctx)
	in.pauseMu.Lock()
	in.stopPause = stop
	in.pauseMu.Unlock()
	defer func() {
		in.pauseMu.Lock()
		in.stopPause = nil
		in.pauseMu.Unlock()
		stop()
	}()

	if err := in.body.Pause(pauseCtx); err != nil {
		return fmt.Errorf("failed to pause %s: %w", in, err)
	}
	in.state.Store(StatePaused)
	in.emit(EventPause)
	return nil
}

// Resume moves a PAUSED instance back to RUNNING
func (in *Instance) Resume(ctx context.Context) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if st := in.State(); st != StatePaused {
		return in.reject("resume", st)
	}

	err := in.admit(func() error {
		if in.pending == nil {
			if err := in.body.Resume(ctx); err != nil {
				return fmt.Errorf("failed to resume %s: %w", in, err)
			}
		}
		in.state.Store(StateRunning)
		return nil
	})
	if err != nil {
		return err
	}
	in.emit(EventResume)

	if p := in.pending; p != nil {
		in.pending = nil
		in.complete(p.err)
	}
	return nil
}

// Cancel stops a RUNNING or PAUSED instance. A pause still waiting on
// the body is abandoned first so cancel does not queue behind it.
func (in *Instance) Cancel(ctx context.Context) error {
	in.pauseMu.Lock()
	if in.stopPause != nil {
		in.stopPause()
	}
	in.pauseMu.Unlock()

	in.mu.Lock()
	defer in.mu.Unlock()

	if st := in.State(); st != StateRunning && st != StatePaused {
		return in.reject("cancel", st)
	}
	if err := in.body.Cancel(ctx); err != nil {
		return fmt.Errorf("failed to cancel %s: %w", in, err)
	}
	in.pending = nil
	in.state.Store(StateCanceled)
	in.emit(EventCancel)
	in.release()
	return nil
}

// Done is closed once the instance reaches a terminal state
func (in *Instance) Done() <-chan struct{} {
	return in.done
}

// Wait blocks until the instance is terminal or ctx ends
func (in *Instance) Wait(ctx context.Context) (State, error) {
	select {
	case <-in.done:
		return in.State(), nil
	case <-ctx.Done():
		return in.State(), ctx.Err()
	}
}

// Await blocks until cond holds for the current state or ctx ends
func (in *Instance) Await(ctx context.Context, cond func(State) bool) (State, error) {
	for {
		changed := in.changes()
		st := in.State()
		if cond(st) {
			return st, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return in.State(), ctx.Err()
		}
	}
}

// Events returns a copy of the event history
func (in *Instance) Events() []Event {
	in.evMu.Lock()
	defer in.evMu.Unlock()
	out := make([]Event, len(in.history))
	copy(out, in.history)
	return out
}

// Watch replays the history and then follows new events. The channel is
// closed after the terminal event or when ctx ends.
func (in *Instance) Watch(ctx context.Context) <-chan Event {
	ch := make(chan Event)
	go func() {
		defer close(ch)
		next := 0
		for {
			in.evMu.Lock()
			batch := append([]Event(nil), in.history[next:]...)
			changed := in.changed
			in.evMu.Unlock()

			for _, ev := range batch {
				select {
				case ch <- ev:
				case <-ctx.Done():
					return
				}
				next++
				if ev.State.IsTerminal() {
					return
				}
			}

			select {
			case <-changed:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// pauseSignals returns channels that close when this instance or any
// composite nested in its body changes
func (in *Instance) pauseSignals() []<-chan struct{} {
	signals := []<-chan struct{}{in.changes()}
	if s, ok := in.body.(pauseSignaler); ok {
		signals = append(signals, s.pauseSignals()...)
	}
	return signals
}

func (in *Instance) changes() <-chan struct{} {
	in.evMu.Lock()
	defer in.evMu.Unlock()
	return in.changed
}

func (in *Instance) admit(enter func() error) error {
	if in.scheduler == nil {
		return enter()
	}
	return in.scheduler.Admit(in.id, enter)
}

func (in *Instance) reject(op string, st State) error {
	return fmt.Errorf("%w: cannot %s %s in state %s", ErrInvalidTransition, op, in, st)
}

func (in *Instance) run(ctx context.Context) {
	err := in.runBody(ctx)

	in.mu.Lock()
	defer in.mu.Unlock()
	switch in.State() {
	case StateRunning:
		in.complete(err)
	case StatePaused:
		in.pending = &outcome{err: err}
	}
}

func (in *Instance) runBody(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", in.actionName, r)
		}
	}()
	return in.body.Run(ctx)
}

// complete applies a body outcome; caller holds mu and state is RUNNING
func (in *Instance) complete(err error) {
	if err == nil {
		in.state.Store(StateSucceeded)
		in.emit(EventSucceed)
	} else {
		in.evMu.Lock()
		in.message = err.Error()
		in.evMu.Unlock()
		in.state.Store(StateFailed)
		in.emit(EventFail)
	}
	in.release()
}

func (in *Instance) release() {
	if in.runCancel != nil {
		in.runCancel()
	}
	in.doneOnce.Do(func() { close(in.done) })
}

func (in *Instance) emit(kind EventKind) {
	in.evMu.Lock()
	defer in.evMu.Unlock()

	in.history = append(in.history, Event{
		Seq:        len(in.history) + 1,
		Kind:       kind,
		InstanceID: in.id,
		ActionName: in.actionName,
		State:      in.State(),
		Message:    in.message,
		Timestamp:  time.Now(),
	})
	close(in.changed)
	in.changed = make(chan struct{})
}
