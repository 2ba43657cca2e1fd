package actuation

import (
	"context"
	"fmt"
	"math"
)

// Position is a point in world coordinates
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z}
}

func (p Position) Scale(f float64) Position {
	return Position{X: p.X * f, Y: p.Y * f, Z: p.Z * f}
}

func (p Position) Distance(o Position) float64 {
	dx, dy, dz := p.X-o.X, p.Y-o.Y, p.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Normalize returns the unit vector along p; the zero vector is an error
func (p Position) Normalize() (Position, error) {
	length := p.Distance(Position{})
	if length == 0 {
		return Position{}, fmt.Errorf("direction must not be the zero vector")
	}
	return p.Scale(1 / length), nil
}

// Block returns the integer block coordinates containing p
func (p Position) Block() Position {
	return Position{X: math.Floor(p.X), Y: math.Floor(p.Y), Z: math.Floor(p.Z)}
}

func (p Position) String() string {
	return fmt.Sprintf("(%g, %g, %g)", p.X, p.Y, p.Z)
}

// ItemStack is a quantity of one item type
type ItemStack struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// FurnaceSlot names one of the three furnace slots
type FurnaceSlot string

const (
	SlotInput  FurnaceSlot = "input"
	SlotFuel   FurnaceSlot = "fuel"
	SlotOutput FurnaceSlot = "output"
)

// ParseFurnaceSlot validates a slot name
func ParseFurnaceSlot(s string) (FurnaceSlot, error) {
	switch slot := FurnaceSlot(s); slot {
	case SlotInput, SlotFuel, SlotOutput:
		return slot, nil
	}
	return "", fmt.Errorf("item type '%s' must be one of input, fuel, output", s)
}

// Actuator performs game-world effects on behalf of the bot. Every call
// blocks until the effect completes, fails, or ctx is done; returning
// on ctx cancellation must leave the world in a consistent state.
type Actuator interface {
	Position(ctx context.Context) (Position, error)
	MoveTo(ctx context.Context, target Position) error
	Attack(ctx context.Context, mobID int) error
	PlaceBlock(ctx context.Context, at Position, block string) error
	Smelt(ctx context.Context, furnace Position, input, fuel ItemStack) error
	TakeFromFurnace(ctx context.Context, furnace Position, slot FurnaceSlot) error
	Craft(ctx context.Context, item string, count int, table Position) error
}

// GameEvent is something the game reported on its own, such as a chat line
type GameEvent struct {
	Name string                 `json:"event"`
	Args map[string]interface{} `json:"args"`
}

// EventSource is implemented by actuators that report game events. The
// channel is closed when the source stops for good.
type EventSource interface {
	GameEvents() <-chan GameEvent
}
