// Package builtin provides the predefined actions every bot starts with.
// Each one is a thin body around a single actuation.Actuator call, except
// ExploreUntil which composes GoTo instances until a deadline.
package builtin

import (
	"fmt"

	"jordanella.com/gamebot-go/internal/actions"
	"jordanella.com/gamebot-go/internal/actuation"
)

// Registrar accepts actions; *bot.Bot satisfies it
type Registrar interface {
	RegisterAction(action actions.Action) error
}

// Actions returns the predefined actions bound to act, in registration order.
// GoTo comes first because ExploreUntil resolves it by name.
func Actions(act actuation.Actuator) []actions.Action {
	return []actions.Action{
		goTo(act),
		placeBlock(act),
		killMob(act),
		furnace(act),
		craftItem(act),
		takeItemFromFurnace(act),
		exploreUntil(act),
	}
}

// Register adds every predefined action to r
func Register(r Registrar, act actuation.Actuator) error {
	for _, a := range Actions(act) {
		if err := r.RegisterAction(a); err != nil {
			return fmt.Errorf("failed to register %s: %w", a.Name(), err)
		}
	}
	return nil
}

func number(name, description string) actions.Parameter {
	return actions.Parameter{Name: name, Description: description, Type: actions.TypeNumber}
}

func text(name, description string) actions.Parameter {
	return actions.Parameter{Name: name, Description: description, Type: actions.TypeString}
}

func position(v actions.Values, x, y, z string) actuation.Position {
	return actuation.Position{X: v.Number(x), Y: v.Number(y), Z: v.Number(z)}
}

// count reads a whole, positive quantity
func count(v actions.Values, name string) (int, error) {
	f := v.Number(name)
	n := int(f)
	if float64(n) != f || n < 1 {
		return 0, fmt.Errorf("%w: %s (%v) must be a positive whole number", actions.ErrValidation, name, f)
	}
	return n, nil
}
