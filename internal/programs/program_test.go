package programs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jordanella.com/gamebot-go/internal/actions"
)

func act(name string, args ...actions.Arg) *ActionProgram {
	return &ActionProgram{Action: name, Args: args}
}

func names(invs []Invocation) []string {
	var out []string
	for _, inv := range invs {
		out = append(out, inv.Action)
	}
	return out
}

func TestProgramIteration(t *testing.T) {
	tests := []struct {
		name    string
		program Program
		want    []string
	}{
		{"single action", act("A"), []string{"A"}},
		{"sequence", &SequenceProgram{Items: []Program{act("A"), act("B")}}, []string{"A", "B"}},
		{"empty sequence", &SequenceProgram{}, nil},
		{"loop", &LoopProgram{Body: act("A"), Count: 3}, []string{"A", "A", "A"}},
		{"zero loop", &LoopProgram{Body: act("A"), Count: 0}, nil},
		{"loop of empty body", &LoopProgram{Body: &SequenceProgram{}, Count: 1000}, nil},
		{
			"sequence skips empty children",
			&SequenceProgram{Items: []Program{&SequenceProgram{}, act("A"), &LoopProgram{Body: act("X")}, act("B")}},
			[]string{"A", "B"},
		},
		{
			"nested loop of sequence",
			&LoopProgram{Count: 2, Body: &SequenceProgram{Items: []Program{act("A"), &LoopProgram{Body: act("B"), Count: 2}}}},
			[]string{"A", "B", "B", "A", "B", "B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(Collect(tt.program)))
		})
	}
}

func TestCursorsAreIndependent(t *testing.T) {
	p := &SequenceProgram{Items: []Program{act("A"), act("B")}}
	first := p.Cursor()
	inv, ok := first.Next()
	require.True(t, ok)
	assert.Equal(t, "A", inv.Action)

	assert.Equal(t, []string{"A", "B"}, names(Collect(p)))

	inv, ok = first.Next()
	require.True(t, ok)
	assert.Equal(t, "B", inv.Action)
	_, ok = first.Next()
	assert.False(t, ok)
}

func TestInvocationArgsAreCopies(t *testing.T) {
	p := act("GoTo", actions.Arg{Name: "x", Value: 1.0})
	inv, _ := p.Cursor().Next()
	inv.Args[0].Value = 99.0
	assert.Equal(t, 1.0, p.Args[0].Value)
}

func TestCheck(t *testing.T) {
	cyclic := &SequenceProgram{}
	cyclic.Items = []Program{act("A"), &LoopProgram{Body: cyclic, Count: 1}}

	shared := act("A")
	diamond := &SequenceProgram{Items: []Program{shared, shared}}

	tests := []struct {
		name    string
		program Program
		wantErr bool
	}{
		{"valid", &SequenceProgram{Items: []Program{act("A")}}, false},
		{"shared subtree is not a cycle", diamond, false},
		{"cycle", cyclic, true},
		{"negative loop", &LoopProgram{Body: act("A"), Count: -1}, true},
		{"nil program", nil, true},
		{"nil loop body", &LoopProgram{Count: 1}, true},
		{"empty action name", act(""), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.program)
			if tt.wantErr {
				assert.True(t, errors.Is(err, actions.ErrValidation), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
