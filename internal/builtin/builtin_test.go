package builtin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jordanella.com/gamebot-go/internal/actions"
	"jordanella.com/gamebot-go/internal/actuation"
)

type testAgent struct {
	actions map[string]actions.Action
	order   []string
}

func newTestAgent(act actuation.Actuator) *testAgent {
	a := &testAgent{actions: make(map[string]actions.Action)}
	if err := Register(a, act); err != nil {
		panic(err)
	}
	return a
}

func (a *testAgent) RegisterAction(action actions.Action) error {
	if _, exists := a.actions[action.Name()]; exists {
		return actions.ErrDuplicateName
	}
	a.actions[action.Name()] = action
	a.order = append(a.order, action.Name())
	return nil
}

func (a *testAgent) Context() context.Context { return context.Background() }

func (a *testAgent) Action(name string) (actions.Action, bool) {
	action, ok := a.actions[name]
	return action, ok
}

func (a *testAgent) instantiate(t *testing.T, name string, args ...actions.Arg) *actions.Instance {
	t.Helper()
	action, ok := a.Action(name)
	require.True(t, ok, "action %s not registered", name)
	in, err := action.Instantiate("job", args, a)
	require.NoError(t, err)
	return in
}

func arg(name string, value any) actions.Arg {
	return actions.Arg{Name: name, Value: value}
}

func run(t *testing.T, in *actions.Instance) actions.State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, in.Start(ctx))
	state, err := in.Wait(ctx)
	require.NoError(t, err)
	return state
}

func awaitRunning(t *testing.T, in *actions.Instance) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := in.Await(ctx, func(s actions.State) bool { return s == actions.StateRunning })
	require.NoError(t, err)
}

func newSim() *actuation.Simulator {
	sim := actuation.NewSimulator(1000)
	sim.SetActionTime(time.Millisecond)
	return sim
}

func TestRegisterOrder(t *testing.T) {
	agent := newTestAgent(newSim())
	assert.Equal(t, []string{
		"GoTo", "PlaceBlock", "KillMob", "Furnace", "CraftItem", "TakeItemFromFurnace", "ExploreUntil",
	}, agent.order)

	err := Register(agent, newSim())
	require.Error(t, err)
	assert.True(t, errors.Is(err, actions.ErrDuplicateName))
}

func TestGoTo(t *testing.T) {
	sim := newSim()
	agent := newTestAgent(sim)

	in := agent.instantiate(t, "GoTo", arg("x", 3), arg("y", 0), arg("z", 4))
	assert.Equal(t, actions.StateSucceeded, run(t, in))

	pos, err := sim.Position(context.Background())
	require.NoError(t, err)
	assert.Equal(t, actuation.Position{X: 3, Z: 4}, pos)
}

func TestGoToPauseResumesFromWhereItStopped(t *testing.T) {
	sim := actuation.NewSimulator(20)
	agent := newTestAgent(sim)
	ctx := context.Background()

	in := agent.instantiate(t, "GoTo", arg("x", 1000), arg("y", 0), arg("z", 0))
	require.NoError(t, in.Start(ctx))
	awaitRunning(t, in)
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, in.Pause(ctx))
	time.Sleep(20 * time.Millisecond)
	paused, _ := sim.Position(ctx)
	assert.Greater(t, paused.X, 0.0)
	assert.Less(t, paused.X, 1000.0)

	time.Sleep(50 * time.Millisecond)
	still, _ := sim.Position(ctx)
	assert.Equal(t, paused, still)

	require.NoError(t, in.Resume(ctx))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, in.Cancel(ctx))
	time.Sleep(20 * time.Millisecond)

	moved, _ := sim.Position(ctx)
	assert.Greater(t, moved.X, paused.X)
	assert.Equal(t, actions.StateCanceled, in.State())
}

func TestKillMob(t *testing.T) {
	sim := newSim()
	sim.SpawnMob(3)
	agent := newTestAgent(sim)

	assert.Equal(t, actions.StateSucceeded, run(t, agent.instantiate(t, "KillMob", arg("mobId", 3))))

	in := agent.instantiate(t, "KillMob", arg("mobId", 3))
	assert.Equal(t, actions.StateFailed, run(t, in))
	assert.Equal(t, "mob with id 3 not found", in.Message())
}

func TestKillMobCannotPause(t *testing.T) {
	sim := newSim()
	sim.SetActionTime(time.Second)
	sim.SpawnMob(1)
	agent := newTestAgent(sim)
	ctx := context.Background()

	in := agent.instantiate(t, "KillMob", arg("mobId", 1))
	require.NoError(t, in.Start(ctx))
	assert.False(t, in.CanPause())

	err := in.Pause(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, actions.ErrUnsupportedOperation))
	assert.Equal(t, actions.StateRunning, in.State())
	require.NoError(t, in.Cancel(ctx))
}

func TestFurnaceAndTake(t *testing.T) {
	sim := newSim()
	furnacePos := actuation.Position{X: 2, Y: 64, Z: 2}
	sim.SetBlock(furnacePos, "furnace")
	sim.Give("iron_ore", 8)
	sim.Give("coal", 1)
	agent := newTestAgent(sim)

	smelt := agent.instantiate(t, "Furnace",
		arg("x", 2), arg("y", 64), arg("z", 2),
		arg("inputItemName", "iron_ore"), arg("inputItemCount", 8),
		arg("fuelName", "coal"), arg("fuelCount", 1))
	assert.Equal(t, actions.StateSucceeded, run(t, smelt))

	take := agent.instantiate(t, "TakeItemFromFurnace",
		arg("x", 2), arg("y", 64), arg("z", 2), arg("itemType", "output"))
	assert.Equal(t, actions.StateSucceeded, run(t, take))
	assert.Equal(t, 8, sim.Count("smelted_iron_ore"))

	again := agent.instantiate(t, "TakeItemFromFurnace",
		arg("x", 2), arg("y", 64), arg("z", 2), arg("itemType", "output"))
	assert.Equal(t, actions.StateFailed, run(t, again))
	assert.Contains(t, again.Message(), "is empty")
}

func TestInstantiateRejectsBadArgs(t *testing.T) {
	agent := newTestAgent(newSim())

	tests := []struct {
		name   string
		action string
		args   []actions.Arg
	}{
		{
			name:   "unknown furnace slot",
			action: "TakeItemFromFurnace",
			args:   []actions.Arg{arg("x", 0), arg("y", 0), arg("z", 0), arg("itemType", "ash")},
		},
		{
			name:   "fractional craft count",
			action: "CraftItem",
			args: []actions.Arg{arg("itemName", "stick"), arg("count", 1.5),
				arg("craftingTableX", 0), arg("craftingTableY", 0), arg("craftingTableZ", 0)},
		},
		{
			name:   "missing parameter",
			action: "GoTo",
			args:   []actions.Arg{arg("x", 0), arg("y", 0)},
		},
		{
			name:   "wrong type",
			action: "KillMob",
			args:   []actions.Arg{arg("mobId", "zombie")},
		},
		{
			name:   "zero direction",
			action: "ExploreUntil",
			args:   []actions.Arg{arg("x", 0), arg("y", 0), arg("z", 0), arg("timeout", 100)},
		},
		{
			name:   "negative timeout",
			action: "ExploreUntil",
			args:   []actions.Arg{arg("x", 1), arg("y", 0), arg("z", 0), arg("timeout", -1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, ok := agent.Action(tt.action)
			require.True(t, ok)
			_, err := action.Instantiate("job", tt.args, agent)
			require.Error(t, err)
			assert.True(t, errors.Is(err, actions.ErrValidation), "got %v", err)
		})
	}
}

func TestCraftItemNeedsTable(t *testing.T) {
	sim := newSim()
	agent := newTestAgent(sim)
	args := []actions.Arg{arg("itemName", "stick"), arg("count", 4),
		arg("craftingTableX", 1), arg("craftingTableY", 0), arg("craftingTableZ", 1)}

	in := agent.instantiate(t, "CraftItem", args...)
	assert.Equal(t, actions.StateFailed, run(t, in))
	assert.Contains(t, in.Message(), "not a crafting table")

	sim.SetBlock(actuation.Position{X: 1, Z: 1}, "crafting_table")
	assert.Equal(t, actions.StateSucceeded, run(t, agent.instantiate(t, "CraftItem", args...)))
	assert.Equal(t, 4, sim.Count("stick"))
}

func TestExploreUntilSucceedsAtTimeout(t *testing.T) {
	sim := actuation.NewSimulator(100)
	agent := newTestAgent(sim)

	in := agent.instantiate(t, "ExploreUntil", arg("x", 2), arg("y", 0), arg("z", 0), arg("timeout", 150))
	began := time.Now()
	assert.Equal(t, actions.StateSucceeded, run(t, in))
	assert.GreaterOrEqual(t, time.Since(began), 150*time.Millisecond)

	pos, _ := sim.Position(context.Background())
	assert.Greater(t, pos.X, 0.0)
	assert.InDelta(t, 0, pos.Y, 1e-9)
	assert.InDelta(t, 0, pos.Z, 1e-9)
}

func TestExploreUntilCancel(t *testing.T) {
	sim := actuation.NewSimulator(10)
	agent := newTestAgent(sim)
	ctx := context.Background()

	in := agent.instantiate(t, "ExploreUntil", arg("x", 0), arg("y", 0), arg("z", 1), arg("timeout", 60000))
	require.NoError(t, in.Start(ctx))
	awaitRunning(t, in)
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, in.Pause(ctx))
	assert.Equal(t, actions.StatePaused, in.State())
	require.NoError(t, in.Resume(ctx))
	require.NoError(t, in.Cancel(ctx))
	assert.Equal(t, actions.StateCanceled, in.State())
}

func TestExploreUntilRequiresGoTo(t *testing.T) {
	agent := &testAgent{actions: make(map[string]actions.Action)}
	require.NoError(t, agent.RegisterAction(exploreUntil(newSim())))

	action, _ := agent.Action("ExploreUntil")
	_, err := action.Instantiate("job", []actions.Arg{arg("x", 1), arg("y", 0), arg("z", 0), arg("timeout", 10)}, agent)
	require.Error(t, err)
	assert.True(t, errors.Is(err, actions.ErrUnknownAction))
}
