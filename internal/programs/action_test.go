package programs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jordanella.com/gamebot-go/internal/actions"
)

type fakeAgent struct {
	actions map[string]actions.Action
}

func (a *fakeAgent) Context() context.Context { return context.Background() }

func (a *fakeAgent) Action(name string) (actions.Action, bool) {
	act, ok := a.actions[name]
	return act, ok
}

func newAgent(list ...actions.Action) *fakeAgent {
	a := &fakeAgent{actions: map[string]actions.Action{}}
	for _, act := range list {
		a.actions[act.Name()] = act
	}
	return a
}

type recorder struct {
	mu    sync.Mutex
	calls []actions.Values
}

func (r *recorder) action(name string, params []actions.Parameter) actions.Action {
	return actions.MustPredefined(name, "records its args", params, func(args actions.Values, _ actions.Agent) (actions.Body, error) {
		return actions.NewAtomicStep(name, func(context.Context) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.calls = append(r.calls, args)
			return nil
		}), nil
	})
}

func failing(message string) actions.Action {
	return actions.MustPredefined("Fail", "always fails", nil, func(actions.Values, actions.Agent) (actions.Body, error) {
		return actions.NewAtomicStep("Fail", func(context.Context) error { return errors.New(message) }), nil
	})
}

func waitTerminal(t *testing.T, in *actions.Instance) actions.State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := in.Wait(ctx)
	require.NoError(t, err)
	return st
}

func TestProgramActionSubstitutesVariables(t *testing.T) {
	rec := &recorder{}
	goTo := rec.action("GoTo", []actions.Parameter{
		{Name: "x", Type: actions.TypeNumber},
		{Name: "label", Type: actions.TypeString},
	})

	program := &LoopProgram{Count: 2, Body: act("GoTo",
		actions.Arg{Name: "x", Value: "$x"},
		actions.Arg{Name: "label", Value: "$x-literal"},
	)}
	a, err := NewAction("Patrol", "", []Parameter{
		{Parameter: actions.Parameter{Name: "target", Type: actions.TypeNumber}, Variable: "$x"},
	}, program)
	require.NoError(t, err)

	in, err := a.Instantiate("job", []actions.Arg{{Name: "target", Value: 12.0}}, newAgent(goTo))
	require.NoError(t, err)
	require.NoError(t, in.Start(context.Background()))
	assert.Equal(t, actions.StateSucceeded, waitTerminal(t, in))

	require.Len(t, rec.calls, 2)
	for _, call := range rec.calls {
		assert.Equal(t, 12.0, call.Number("x"))
		assert.Equal(t, "$x-literal", call.String("label"))
	}
}

func TestProgramActionFailsWithChildMessage(t *testing.T) {
	rec := &recorder{}
	program := &SequenceProgram{Items: []Program{act("Ok"), act("Fail"), act("Ok")}}
	a, err := NewAction("Flaky", "", nil, program)
	require.NoError(t, err)

	in, err := a.Instantiate("job", nil, newAgent(rec.action("Ok", nil), failing("x")))
	require.NoError(t, err)
	require.NoError(t, in.Start(context.Background()))

	assert.Equal(t, actions.StateFailed, waitTerminal(t, in))
	assert.Equal(t, "x", in.Message())
	assert.Len(t, rec.calls, 1)
}

func TestProgramActionUnknownChildFails(t *testing.T) {
	a, err := NewAction("Lost", "", nil, act("Nowhere"))
	require.NoError(t, err)

	in, err := a.Instantiate("job", nil, newAgent())
	require.NoError(t, err)
	require.NoError(t, in.Start(context.Background()))

	assert.Equal(t, actions.StateFailed, waitTerminal(t, in))
	assert.Contains(t, in.Message(), "Nowhere")
}

func TestProgramActionChildArgMismatchFails(t *testing.T) {
	rec := &recorder{}
	goTo := rec.action("GoTo", []actions.Parameter{{Name: "x", Type: actions.TypeNumber}})
	a, err := NewAction("Bad", "", nil, act("GoTo", actions.Arg{Name: "x", Value: "north"}))
	require.NoError(t, err)

	in, err := a.Instantiate("job", nil, newAgent(goTo))
	require.NoError(t, err)
	require.NoError(t, in.Start(context.Background()))

	assert.Equal(t, actions.StateFailed, waitTerminal(t, in))
	assert.Empty(t, rec.calls)
}

func TestEmptyProgramSucceedsImmediately(t *testing.T) {
	a, err := NewAction("Idle", "", nil, &LoopProgram{Body: act("A"), Count: 0})
	require.NoError(t, err)

	in, err := a.Instantiate("job", nil, newAgent())
	require.NoError(t, err)
	require.NoError(t, in.Start(context.Background()))
	assert.Equal(t, actions.StateSucceeded, waitTerminal(t, in))
}

func TestNewActionValidation(t *testing.T) {
	num := actions.Parameter{Name: "n", Type: actions.TypeNumber}

	tests := []struct {
		name    string
		params  []Parameter
		program Program
	}{
		{"variable without dollar", []Parameter{{Parameter: num, Variable: "n"}}, act("A")},
		{"duplicate variable", []Parameter{
			{Parameter: num, Variable: "$n"},
			{Parameter: actions.Parameter{Name: "m", Type: actions.TypeNumber}, Variable: "$n"},
		}, act("A")},
		{"duplicate parameter", []Parameter{{Parameter: num, Variable: "$a"}, {Parameter: num, Variable: "$b"}}, act("A")},
		{"nil program", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAction("A", "", tt.params, tt.program)
			assert.True(t, errors.Is(err, actions.ErrValidation), "got %v", err)
		})
	}
}

func TestInstantiateValidatesArgs(t *testing.T) {
	a, err := NewAction("A", "", []Parameter{
		{Parameter: actions.Parameter{Name: "n", Type: actions.TypeNumber}, Variable: "$n"},
	}, act("B"))
	require.NoError(t, err)

	_, err = a.Instantiate("job", []actions.Arg{{Name: "n", Value: "one"}}, newAgent())
	assert.True(t, errors.Is(err, actions.ErrValidation))
}
