package builtin

import (
	"context"
	"fmt"
	"sync"
	"time"

	"jordanella.com/gamebot-go/internal/actions"
	"jordanella.com/gamebot-go/internal/actuation"
)

// exploreStride is how far each GoTo leg walks along the direction
const exploreStride = 32

func exploreUntil(act actuation.Actuator) actions.Action {
	return actions.MustPredefined("ExploreUntil", "Explore until timeout",
		[]actions.Parameter{
			number("x", "X coordinate of the direction vector"),
			number("y", "Y coordinate of the direction vector"),
			number("z", "Z coordinate of the direction vector"),
			number("timeout", "Timeout in milliseconds"),
		},
		func(v actions.Values, agent actions.Agent) (actions.Body, error) {
			goTo, ok := agent.Action("GoTo")
			if !ok {
				return nil, fmt.Errorf("%w: ExploreUntil depends on 'GoTo'", actions.ErrUnknownAction)
			}
			dir, err := position(v, "x", "y", "z").Normalize()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", actions.ErrValidation, err)
			}
			timeout := v.Number("timeout")
			if timeout <= 0 {
				return nil, fmt.Errorf("%w: timeout (%v) must be greater than 0", actions.ErrValidation, timeout)
			}

			e := &explorer{
				act:     act,
				agent:   agent,
				goTo:    goTo,
				step:    dir.Scale(exploreStride),
				timeout: time.Duration(timeout * float64(time.Millisecond)),
			}
			e.body = actions.NewComposite(e)
			return e.body, nil
		})
}

// explorer yields GoTo legs from wherever the bot currently stands until
// its deadline passes. When the timer fires the active leg is canceled
// and the composite finishes successfully.
type explorer struct {
	act     actuation.Actuator
	agent   actions.Agent
	goTo    actions.Action
	step    actuation.Position
	timeout time.Duration
	body    *actions.Composite

	mu       sync.Mutex
	deadline time.Time
	timer    *time.Timer
	legs     int
}

func (e *explorer) BeforeRun(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deadline = time.Now().Add(e.timeout)
	e.timer = time.AfterFunc(e.timeout, func() {
		// ctx ends when the owning instance finishes
		_ = e.body.Cancel(ctx)
	})
	return nil
}

func (e *explorer) AfterRun(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer != nil {
		e.timer.Stop()
	}
	return nil
}

func (e *explorer) Next(ctx context.Context) (*actions.Instance, bool, error) {
	e.mu.Lock()
	expired := !time.Now().Before(e.deadline)
	e.legs++
	leg := e.legs
	e.mu.Unlock()
	if expired {
		return nil, false, nil
	}

	from, err := e.act.Position(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read position: %w", err)
	}
	to := from.Add(e.step)

	child, err := e.goTo.Instantiate(fmt.Sprintf("explore.%d", leg), []actions.Arg{
		{Name: "x", Value: to.X},
		{Name: "y", Value: to.Y},
		{Name: "z", Value: to.Z},
	}, e.agent)
	if err != nil {
		return nil, false, err
	}
	return child, true, nil
}
