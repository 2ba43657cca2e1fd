package actuation

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Simulator is an in-process Actuator with just enough world state to
// exercise actions without a game server: a position that moves at a
// fixed speed, a set of mobs, placed blocks, furnaces and an inventory.
type Simulator struct {
	speed      float64 // blocks per second
	actionTime time.Duration

	mu        sync.Mutex
	pos       Position
	mobs      map[int]bool
	blocks    map[Position]string
	furnaces  map[Position]*furnaceSlots
	inventory map[string]int

	events chan GameEvent
}

// gameEventBuffer bounds the game events waiting for a consumer
const gameEventBuffer = 64

// itemsPerFuel is how many items one unit of fuel smelts
const itemsPerFuel = 8

type furnaceSlots struct {
	input, fuel, output ItemStack
}

func (f *furnaceSlots) slot(s FurnaceSlot) *ItemStack {
	switch s {
	case SlotInput:
		return &f.input
	case SlotFuel:
		return &f.fuel
	}
	return &f.output
}

// NewSimulator creates a simulator at the origin
func NewSimulator(speed float64) *Simulator {
	return &Simulator{
		speed:      speed,
		actionTime: 50 * time.Millisecond,
		mobs:       make(map[int]bool),
		blocks:     make(map[Position]string),
		furnaces:   make(map[Position]*furnaceSlots),
		inventory:  make(map[string]int),
		events:     make(chan GameEvent, gameEventBuffer),
	}
}

// GameEvents implements EventSource
func (s *Simulator) GameEvents() <-chan GameEvent {
	return s.events
}

// Announce reports a game event as if the world had produced it. It
// returns false when the buffer is full and the event was dropped.
func (s *Simulator) Announce(e GameEvent) bool {
	select {
	case s.events <- e:
		return true
	default:
		return false
	}
}

// SetActionTime sets how long non-movement actions take
func (s *Simulator) SetActionTime(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actionTime = d
}

// Teleport moves instantly
func (s *Simulator) Teleport(p Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = p
}

// SpawnMob adds a mob that can be attacked
func (s *Simulator) SpawnMob(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mobs[id] = true
}

// SetBlock places a block without going through the inventory
func (s *Simulator) SetBlock(at Position, block string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[at.Block()] = block
}

// BlockAt returns the block at a position, or "" for air
func (s *Simulator) BlockAt(at Position) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocks[at.Block()]
}

// Give adds items to the inventory
func (s *Simulator) Give(item string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inventory[item] += count
}

// Count returns how many of item the inventory holds
func (s *Simulator) Count(item string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inventory[item]
}

func (s *Simulator) Position(ctx context.Context) (Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos, nil
}

// MoveTo walks in a straight line. On cancellation the position is left
// where the walk had got to.
func (s *Simulator) MoveTo(ctx context.Context, target Position) error {
	s.mu.Lock()
	start := s.pos
	s.mu.Unlock()

	distance := start.Distance(target)
	if distance == 0 {
		return nil
	}
	total := time.Duration(distance / s.speed * float64(time.Second))
	began := time.Now()

	timer := time.NewTimer(total)
	defer timer.Stop()

	select {
	case <-timer.C:
		s.mu.Lock()
		s.pos = target
		s.mu.Unlock()
		return nil
	case <-ctx.Done():
		fraction := float64(time.Since(began)) / float64(total)
		if fraction > 1 {
			fraction = 1
		}
		s.mu.Lock()
		s.pos = start.Add(target.Add(start.Scale(-1)).Scale(fraction))
		s.mu.Unlock()
		return ctx.Err()
	}
}

func (s *Simulator) Attack(ctx context.Context, mobID int) error {
	s.mu.Lock()
	alive := s.mobs[mobID]
	s.mu.Unlock()
	if !alive {
		return fmt.Errorf("mob with id %d not found", mobID)
	}

	if err := s.wait(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.mobs, mobID)
	return nil
}

func (s *Simulator) PlaceBlock(ctx context.Context, at Position, block string) error {
	s.mu.Lock()
	if s.inventory[block] < 1 {
		s.mu.Unlock()
		return fmt.Errorf("no %s in inventory", block)
	}
	if existing := s.blocks[at.Block()]; existing != "" {
		s.mu.Unlock()
		return fmt.Errorf("position %s is occupied by %s", at.Block(), existing)
	}
	s.mu.Unlock()

	if err := s.wait(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inventory[block]--
	s.blocks[at.Block()] = block
	return nil
}

// Smelt loads input and fuel into the furnace and cooks immediately.
// Each unit of fuel smelts itemsPerFuel items; unburnt fuel stays in the
// fuel slot.
func (s *Simulator) Smelt(ctx context.Context, furnace Position, input, fuel ItemStack) error {
	key := furnace.Block()
	needFuel := (input.Count + itemsPerFuel - 1) / itemsPerFuel

	s.mu.Lock()
	if s.blocks[key] != "furnace" {
		s.mu.Unlock()
		return fmt.Errorf("block at %s is not a furnace", key)
	}
	if input.Count < 1 {
		s.mu.Unlock()
		return fmt.Errorf("input count (%d) must be at least 1", input.Count)
	}
	if have := s.inventory[input.Name]; have < input.Count {
		s.mu.Unlock()
		return fmt.Errorf("not enough %s: have %d, need %d", input.Name, have, input.Count)
	}
	if have := s.inventory[fuel.Name]; have < fuel.Count {
		s.mu.Unlock()
		return fmt.Errorf("not enough %s: have %d, need %d", fuel.Name, have, fuel.Count)
	}
	if fuel.Count < needFuel {
		s.mu.Unlock()
		return fmt.Errorf("%d %s cannot smelt %d items", fuel.Count, fuel.Name, input.Count)
	}
	s.mu.Unlock()

	if err := s.wait(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inventory[input.Name] -= input.Count
	s.inventory[fuel.Name] -= fuel.Count

	f := s.furnaces[key]
	if f == nil {
		f = &furnaceSlots{}
		s.furnaces[key] = f
	}
	f.output.Name = "smelted_" + input.Name
	f.output.Count += input.Count
	f.fuel.Name = fuel.Name
	f.fuel.Count += fuel.Count - needFuel
	return nil
}

// TakeFromFurnace moves the contents of one furnace slot into the inventory
func (s *Simulator) TakeFromFurnace(ctx context.Context, furnace Position, slot FurnaceSlot) error {
	key := furnace.Block()

	s.mu.Lock()
	if s.blocks[key] != "furnace" {
		s.mu.Unlock()
		return fmt.Errorf("block at %s is not a furnace", key)
	}
	f := s.furnaces[key]
	if f == nil || f.slot(slot).Count == 0 {
		s.mu.Unlock()
		return fmt.Errorf("%s in the furnace at %s is empty", slot, key)
	}
	s.mu.Unlock()

	if err := s.wait(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stack := f.slot(slot)
	s.inventory[stack.Name] += stack.Count
	*stack = ItemStack{}
	return nil
}

// Craft adds count items; recipes are not modeled
func (s *Simulator) Craft(ctx context.Context, item string, count int, table Position) error {
	if count < 1 {
		return fmt.Errorf("craft count (%d) must be at least 1", count)
	}
	if block := s.BlockAt(table); block != "crafting_table" {
		return fmt.Errorf("target block at %s is not a crafting table", table.Block())
	}
	if err := s.wait(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inventory[item] += count
	return nil
}

func (s *Simulator) wait(ctx context.Context) error {
	s.mu.Lock()
	d := s.actionTime
	s.mu.Unlock()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
