package programs

import (
	"context"
	"fmt"
	"strings"

	"jordanella.com/gamebot-go/internal/actions"
)

// Parameter is an action parameter bound to a program variable
type Parameter struct {
	actions.Parameter `yaml:",inline"`
	Variable string `json:"variable" yaml:"variable"`
}

// Action is an action whose body walks a Program
type Action struct {
	name        string
	description string
	params      []Parameter
	program     Program
}

// NewAction validates the parameters and program and returns the action
func NewAction(name, description string, params []Parameter, program Program) (*Action, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: action name is required", actions.ErrValidation)
	}

	base := make([]actions.Parameter, 0, len(params))
	variables := make(map[string]bool, len(params))
	for _, p := range params {
		if !strings.HasPrefix(p.Variable, "$") {
			return nil, fmt.Errorf("%w: action '%s': variable '%s' of parameter '%s' must start with '$'",
				actions.ErrValidation, name, p.Variable, p.Name)
		}
		if variables[p.Variable] {
			return nil, fmt.Errorf("%w: action '%s': variable '%s' bound more than once",
				actions.ErrValidation, name, p.Variable)
		}
		variables[p.Variable] = true
		base = append(base, p.Parameter)
	}
	if err := actions.ValidateParameters(base); err != nil {
		return nil, fmt.Errorf("action '%s': %w", name, err)
	}
	if err := Check(program); err != nil {
		return nil, fmt.Errorf("action '%s': %w", name, err)
	}

	return &Action{
		name:        name,
		description: description,
		params:      append([]Parameter(nil), params...),
		program:     program,
	}, nil
}

func (a *Action) Name() string        { return a.name }
func (a *Action) Description() string { return a.description }
func (a *Action) Program() Program    { return a.program }

func (a *Action) Parameters() []actions.Parameter {
	out := make([]actions.Parameter, len(a.params))
	for i, p := range a.params {
		out[i] = p.Parameter
	}
	return out
}

// Variables returns the parameters together with their variable names
func (a *Action) Variables() []Parameter {
	return append([]Parameter(nil), a.params...)
}

// Instantiate binds args to variables and returns a composite instance
// that materializes one child per program invocation.
func (a *Action) Instantiate(id string, args []actions.Arg, agent actions.Agent) (*actions.Instance, error) {
	if err := actions.ValidateArgs(args, a.Parameters()); err != nil {
		return nil, fmt.Errorf("action '%s': %w", a.name, err)
	}

	values := actions.ValuesOf(args)
	bindings := make(map[string]any, len(a.params))
	for _, p := range a.params {
		bindings[p.Variable] = values[p.Name]
	}

	children := &programChildren{
		parentID: id,
		cursor:   a.program.Cursor(),
		bindings: bindings,
		agent:    agent,
	}
	return actions.NewInstance(id, a.name, args, actions.NewComposite(children), agent.Context()), nil
}

// Substitute replaces every arg value that is a string exactly equal to a
// bound variable. Structured values are not searched.
func Substitute(args []actions.Arg, bindings map[string]any) []actions.Arg {
	out := make([]actions.Arg, len(args))
	for i, arg := range args {
		out[i] = arg
		if s, ok := arg.Value.(string); ok {
			if v, bound := bindings[s]; bound {
				out[i].Value = v
			}
		}
	}
	return out
}

type programChildren struct {
	parentID string
	cursor   Cursor
	bindings map[string]any
	agent    actions.Agent
	count    int
}

func (c *programChildren) Next(ctx context.Context) (*actions.Instance, bool, error) {
	inv, ok := c.cursor.Next()
	if !ok {
		return nil, false, nil
	}

	action, found := c.agent.Action(inv.Action)
	if !found {
		return nil, false, fmt.Errorf("%w: '%s'", actions.ErrUnknownAction, inv.Action)
	}

	c.count++
	childID := ""
	if c.parentID != "" {
		childID = fmt.Sprintf("%s.%d", c.parentID, c.count)
	}
	child, err := action.Instantiate(childID, Substitute(inv.Args, c.bindings), c.agent)
	if err != nil {
		return nil, false, err
	}
	return child, true, nil
}
