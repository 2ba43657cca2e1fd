package programs

import (
	"fmt"

	"jordanella.com/gamebot-go/internal/actions"
)

// Invocation is one action call produced by walking a program
type Invocation struct {
	Action string
	Args   []actions.Arg
}

// Cursor walks a program once. Next returns false when exhausted.
type Cursor interface {
	Next() (Invocation, bool)
}

// Program is a tree of action invocations. Every call to Cursor starts
// a fresh walk.
type Program interface {
	Cursor() Cursor
}

// ActionProgram invokes a single action
type ActionProgram struct {
	Action string
	Args   []actions.Arg
}

// SequenceProgram runs its items in order
type SequenceProgram struct {
	Items []Program
}

// LoopProgram runs Body Count times
type LoopProgram struct {
	Body  Program
	Count int
}

func (p *ActionProgram) Cursor() Cursor   { return &actionCursor{program: p} }
func (p *SequenceProgram) Cursor() Cursor { return &sequenceCursor{items: p.Items} }
func (p *LoopProgram) Cursor() Cursor     { return &loopCursor{body: p.Body, count: p.Count} }

type actionCursor struct {
	program *ActionProgram
	visited bool
}

func (c *actionCursor) Next() (Invocation, bool) {
	if c.visited {
		return Invocation{}, false
	}
	c.visited = true
	return Invocation{Action: c.program.Action, Args: actions.CloneArgs(c.program.Args)}, true
}

type sequenceCursor struct {
	items []Program
	index int
	cur   Cursor
}

func (c *sequenceCursor) Next() (Invocation, bool) {
	for c.index < len(c.items) {
		if c.cur == nil {
			c.cur = c.items[c.index].Cursor()
		}
		if inv, ok := c.cur.Next(); ok {
			return inv, true
		}
		c.index++
		c.cur = nil
	}
	return Invocation{}, false
}

type loopCursor struct {
	body  Program
	count int
	pass  int
	cur   Cursor
}

func (c *loopCursor) Next() (Invocation, bool) {
	for c.pass < c.count {
		if c.cur == nil {
			c.cur = c.body.Cursor()
		}
		if inv, ok := c.cur.Next(); ok {
			return inv, true
		}
		c.pass++
		c.cur = nil
	}
	return Invocation{}, false
}

// Collect walks p to the end. Intended for tests and previews.
func Collect(p Program) []Invocation {
	var out []Invocation
	cur := p.Cursor()
	for {
		inv, ok := cur.Next()
		if !ok {
			return out
		}
		out = append(out, inv)
	}
}

// Check verifies that a hand-built tree is well formed: no nil nodes,
// non-negative loop counts and no cycles.
func Check(p Program) error {
	return check(p, map[Program]bool{}, "program")
}

func check(p Program, onPath map[Program]bool, path string) error {
	if p == nil {
		return fmt.Errorf("%w: %s is nil", actions.ErrValidation, path)
	}

	switch node := p.(type) {
	case *ActionProgram:
		if node == nil {
			return fmt.Errorf("%w: %s is nil", actions.ErrValidation, path)
		}
		if node.Action == "" {
			return fmt.Errorf("%w: %s: action name is required", actions.ErrValidation, path)
		}
		return nil

	case *SequenceProgram:
		if node == nil {
			return fmt.Errorf("%w: %s is nil", actions.ErrValidation, path)
		}
		if onPath[p] {
			return fmt.Errorf("%w: %s: cycle detected", actions.ErrValidation, path)
		}
		onPath[p] = true
		defer delete(onPath, p)
		for i, item := range node.Items {
			if err := check(item, onPath, fmt.Sprintf("%s.sequence[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil

	case *LoopProgram:
		if node == nil {
			return fmt.Errorf("%w: %s is nil", actions.ErrValidation, path)
		}
		if node.Count < 0 {
			return fmt.Errorf("%w: %s: loop count %d must not be negative", actions.ErrValidation, path, node.Count)
		}
		if onPath[p] {
			return fmt.Errorf("%w: %s: cycle detected", actions.ErrValidation, path)
		}
		onPath[p] = true
		defer delete(onPath, p)
		return check(node.Body, onPath, path+".loop")

	default:
		return fmt.Errorf("%w: %s: unsupported program node %T", actions.ErrValidation, path, p)
	}
}
