package actions

import (
	"context"
	"fmt"
)

// Agent is what an action needs from the bot that instantiates it
type Agent interface {
	// Context bounds every instance created for this agent
	Context() context.Context
	// Action resolves a registered action by name
	Action(name string) (Action, bool)
}

// Action is an immutable template that produces instances
type Action interface {
	Name() string
	Description() string
	Parameters() []Parameter
	Instantiate(id string, args []Arg, agent Agent) (*Instance, error)
}

// BodyFactory builds the body of a predefined action from validated args
type BodyFactory func(args Values, agent Agent) (Body, error)

// Predefined is an Action whose body is written in Go
type Predefined struct {
	name        string
	description string
	parameters  []Parameter
	newBody     BodyFactory
}

// NewPredefined validates the parameter list and returns the action
func NewPredefined(name, description string, params []Parameter, newBody BodyFactory) (*Predefined, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: action name is required", ErrValidation)
	}
	if newBody == nil {
		return nil, fmt.Errorf("%w: action '%s' has no body", ErrValidation, name)
	}
	if err := ValidateParameters(params); err != nil {
		return nil, fmt.Errorf("action '%s': %w", name, err)
	}
	return &Predefined{
		name:        name,
		description: description,
		parameters:  append([]Parameter(nil), params...),
		newBody:     newBody,
	}, nil
}

// MustPredefined is NewPredefined for package-level tables; it panics on error
func MustPredefined(name, description string, params []Parameter, newBody BodyFactory) *Predefined {
	p, err := NewPredefined(name, description, params, newBody)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Predefined) Name() string        { return p.name }
func (p *Predefined) Description() string { return p.description }

func (p *Predefined) Parameters() []Parameter {
	return append([]Parameter(nil), p.parameters...)
}

func (p *Predefined) Instantiate(id string, args []Arg, agent Agent) (*Instance, error) {
	if err := ValidateArgs(args, p.parameters); err != nil {
		return nil, fmt.Errorf("action '%s': %w", p.name, err)
	}
	body, err := p.newBody(ValuesOf(args), agent)
	if err != nil {
		return nil, fmt.Errorf("action '%s': %w", p.name, err)
	}
	return NewInstance(id, p.name, args, body, agent.Context()), nil
}
