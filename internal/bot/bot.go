// Package bot owns the action and job tables of one game bot and
// enforces that at most one of its jobs is RUNNING at any time.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"jordanella.com/gamebot-go/internal/actions"
	"jordanella.com/gamebot-go/internal/events"
	"jordanella.com/gamebot-go/internal/logging"
)

// Bot is the agent jobs run against. It implements actions.Agent for the
// instances it creates and actions.Scheduler for the jobs it owns.
type Bot struct {
	name   string
	ctx    context.Context
	cancel context.CancelFunc
	logger *logging.Logger
	bus    events.EventBus

	mu          sync.RWMutex
	actions     map[string]actions.Action
	actionOrder []string
	updated     time.Time
	jobs        map[string]*actions.Instance
	jobOrder    []string
	gameEvents  []GameEvent

	// runMu makes "no other job is RUNNING" and the move into RUNNING one step
	runMu sync.Mutex

	relayCtx   context.Context
	stopRelays context.CancelFunc
	relays     sync.WaitGroup
	relayDone  map[string]chan struct{}
	closeOnce  sync.Once
}

// Option configures a Bot
type Option func(*Bot)

// WithEventBus publishes registrations and job transitions to bus
func WithEventBus(bus events.EventBus) Option {
	return func(b *Bot) { b.bus = bus }
}

// WithLogger replaces the default logger
func WithLogger(logger *logging.Logger) Option {
	return func(b *Bot) { b.logger = logger }
}

// WithContext bounds the bot and every job it creates by ctx
func WithContext(ctx context.Context) Option {
	return func(b *Bot) { b.ctx = ctx }
}

// New creates a bot with empty action and job tables
func New(name string, opts ...Option) *Bot {
	b := &Bot{
		name:      name,
		ctx:       context.Background(),
		actions:   make(map[string]actions.Action),
		jobs:      make(map[string]*actions.Instance),
		relayDone: make(map[string]chan struct{}),
		updated:   time.Now(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logging.NewLogger("Bot")
	}
	b.ctx, b.cancel = context.WithCancel(b.ctx)
	b.relayCtx, b.stopRelays = context.WithCancel(context.Background())
	return b
}

func (b *Bot) Name() string { return b.name }

// Context implements actions.Agent
func (b *Bot) Context() context.Context { return b.ctx }

// Action implements actions.Agent
func (b *Bot) Action(name string) (actions.Action, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	a, ok := b.actions[name]
	return a, ok
}

// Actions returns every registered action in registration order
func (b *Bot) Actions() []actions.Action {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]actions.Action, 0, len(b.actionOrder))
	for _, name := range b.actionOrder {
		out = append(out, b.actions[name])
	}
	return out
}

// ActionsUpdated is the time of the last registration
func (b *Bot) ActionsUpdated() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.updated
}

// RegisterAction adds action to the table. Names are unique.
func (b *Bot) RegisterAction(action actions.Action) error {
	name := action.Name()

	b.mu.Lock()
	if _, exists := b.actions[name]; exists {
		b.mu.Unlock()
		return fmt.Errorf("%w: action '%s' already registered", actions.ErrDuplicateName, name)
	}
	b.actions[name] = action
	b.actionOrder = append(b.actionOrder, name)
	b.updated = time.Now()
	b.mu.Unlock()

	_, predefined := action.(*actions.Predefined)
	b.logger.InfoWithContext("Registered action", map[string]interface{}{
		"action":     name,
		"predefined": predefined,
	})
	b.publish(events.NewActionRegisteredEvent(b.name, name, predefined))
	return nil
}

// CreateJob instantiates a READY job of the named action and returns its id
func (b *Bot) CreateJob(actionName string, args []actions.Arg) (string, error) {
	action, ok := b.Action(actionName)
	if !ok {
		return "", fmt.Errorf("%w: '%s'", actions.ErrUnknownAction, actionName)
	}

	id := uuid.NewString()
	job, err := action.Instantiate(id, args, b)
	if err != nil {
		return "", err
	}
	job.BindScheduler(b)

	done := make(chan struct{})
	b.mu.Lock()
	b.jobs[id] = job
	b.jobOrder = append(b.jobOrder, id)
	b.relayDone[id] = done
	b.mu.Unlock()

	b.logger.InfoWithContext("Created job", map[string]interface{}{
		"job_id": id,
		"action": actionName,
	})
	b.publish(events.NewJobCreatedEvent(b.name, job.Info()))

	b.relays.Add(1)
	go b.relay(job, done)
	return id, nil
}

// relay forwards a job's transitions to the bus in order
func (b *Bot) relay(job *actions.Instance, done chan struct{}) {
	defer b.relays.Done()
	defer close(done)
	for ev := range job.Watch(b.relayCtx) {
		b.publish(events.NewJobTransitionEvent(b.name, ev))
		if ev.Kind == actions.EventFail {
			b.logger.WarnWithContext("Job failed", map[string]interface{}{
				"job_id":  ev.InstanceID,
				"action":  ev.ActionName,
				"message": ev.Message,
			})
		}
	}
}

func (b *Bot) publish(ev events.Event) {
	if b.bus != nil {
		b.bus.Publish(ev)
	}
}

// Job returns the job with the given id
func (b *Bot) Job(id string) (*actions.Instance, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	job, ok := b.jobs[id]
	return job, ok
}

// Jobs returns every job in creation order, including finished ones
func (b *Bot) Jobs() []*actions.Instance {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*actions.Instance, 0, len(b.jobOrder))
	for _, id := range b.jobOrder {
		out = append(out, b.jobs[id])
	}
	return out
}

func (b *Bot) job(id string) (*actions.Instance, error) {
	job, ok := b.Job(id)
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", actions.ErrUnknownJob, id)
	}
	return job, nil
}

func (b *Bot) StartJob(ctx context.Context, id string) error {
	job, err := b.job(id)
	if err != nil {
		return err
	}
	return job.Start(ctx)
}

func (b *Bot) PauseJob(ctx context.Context, id string) error {
	job, err := b.job(id)
	if err != nil {
		return err
	}
	return job.Pause(ctx)
}

func (b *Bot) ResumeJob(ctx context.Context, id string) error {
	job, err := b.job(id)
	if err != nil {
		return err
	}
	return job.Resume(ctx)
}

func (b *Bot) CancelJob(ctx context.Context, id string) error {
	job, err := b.job(id)
	if err != nil {
		return err
	}
	return job.Cancel(ctx)
}

// IsRunningAnyJob reports whether some job is RUNNING right now
func (b *Bot) IsRunningAnyJob() bool {
	return b.runningExcept("")
}

func (b *Bot) runningExcept(id string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for jobID, job := range b.jobs {
		if jobID != id && job.State() == actions.StateRunning {
			return true
		}
	}
	return false
}

// Admit implements actions.Scheduler
func (b *Bot) Admit(id string, enter func() error) error {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	if b.runningExcept(id) {
		return fmt.Errorf("%w: another job is running", actions.ErrConcurrencyViolation)
	}
	return enter()
}

// CancelAll cancels every RUNNING or PAUSED job
func (b *Bot) CancelAll(ctx context.Context) error {
	var errs []error
	for _, job := range b.Jobs() {
		st := job.State()
		if st != actions.StateRunning && st != actions.StatePaused {
			continue
		}
		if err := job.Cancel(ctx); err != nil && !errors.Is(err, actions.ErrInvalidTransition) {
			errs = append(errs, err)
			continue
		}
		b.logger.InfoWithContext("Canceled job", map[string]interface{}{"job_id": job.ID()})
	}
	return errors.Join(errs...)
}

// Close cancels all jobs, waits (bounded by ctx) for the events of
// finished jobs to be relayed, then stops relaying.
func (b *Bot) Close(ctx context.Context) error {
	var err error
	b.closeOnce.Do(func() {
		err = b.CancelAll(ctx)
		for _, job := range b.Jobs() {
			if !job.State().IsTerminal() {
				continue
			}
			b.mu.RLock()
			done := b.relayDone[job.ID()]
			b.mu.RUnlock()
			select {
			case <-done:
			case <-ctx.Done():
			}
		}
		b.stopRelays()
		b.cancel()
		b.relays.Wait()
	})
	return err
}
