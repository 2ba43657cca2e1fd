package programs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jordanella.com/gamebot-go/internal/actions"
)

func TestParseJSON(t *testing.T) {
	doc := `{
		"type": "sequence",
		"sequence": {"items": [
			{"type": "action", "action": {"name": "GoTo", "args": [
				{"name": "x", "value": "$x"}, {"name": "y", "value": 64}, {"name": "z", "value": 0}
			]}},
			{"type": "loop", "loop": {"count": 2, "program":
				{"type": "action", "action": {"name": "KillMob", "args": [{"name": "mobId", "value": 7}]}}
			}}
		]}
	}`

	p, err := ParseJSON([]byte(doc))
	require.NoError(t, err)

	invs := Collect(p)
	assert.Equal(t, []string{"GoTo", "KillMob", "KillMob"}, names(invs))
	assert.Equal(t, "$x", invs[0].Args[0].Value)
	assert.Equal(t, 64.0, invs[0].Args[1].Value)
}

func TestParseJSONRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed", `{"type":`},
		{"unknown type", `{"type": "parallel", "parallel": {}}`},
		{"missing type", `{"action": {"name": "A", "args": []}}`},
		{"action without args", `{"type": "action", "action": {"name": "A"}}`},
		{"action with empty name", `{"type": "action", "action": {"name": "", "args": []}}`},
		{"arg without value", `{"type": "action", "action": {"name": "A", "args": [{"name": "x"}]}}`},
		{"negative loop", `{"type": "loop", "loop": {"count": -1, "program": {"type": "sequence", "sequence": {"items": []}}}}`},
		{"fractional loop", `{"type": "loop", "loop": {"count": 1.5, "program": {"type": "sequence", "sequence": {"items": []}}}}`},
		{"mismatched payload", `{"type": "loop", "sequence": {"items": []}}`},
		{"invalid nested item", `{"type": "sequence", "sequence": {"items": [{"type": "action"}]}}`},
		{"not an object", `[1, 2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, actions.ErrValidation), "got %v", err)
		})
	}
}

func TestParseYAML(t *testing.T) {
	doc := `
type: loop
loop:
  count: 3
  program:
    type: action
    action:
      name: PlaceBlock
      args:
        - {name: x, value: 1}
        - {name: blockName, value: $block}
`
	p, err := ParseYAML([]byte(doc))
	require.NoError(t, err)
	invs := Collect(p)
	require.Len(t, invs, 3)
	assert.Equal(t, "$block", invs[2].Args[1].Value)
}

func TestParseDefinition(t *testing.T) {
	doc := `{
		"name": "GoHome",
		"description": "walk home",
		"parameters": [{"name": "height", "type": "number", "description": "y", "variable": "$h"}],
		"program": {"type": "action", "action": {"name": "GoTo", "args": [
			{"name": "x", "value": 0}, {"name": "y", "value": "$h"}, {"name": "z", "value": 0}
		]}}
	}`

	def, err := ParseDefinitionJSON([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "GoHome", def.Name)
	require.Len(t, def.Parameters, 1)
	assert.Equal(t, "$h", def.Parameters[0].Variable)
	assert.Equal(t, actions.TypeNumber, def.Parameters[0].Type)

	a, err := def.Build()
	require.NoError(t, err)
	assert.Equal(t, "GoHome", a.Name())
}

func TestParseDefinitionRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing program", `{"name": "A", "description": "", "parameters": []}`},
		{"variable without dollar", `{"name": "A", "description": "", "parameters": [{"name": "p", "type": "number", "description": "", "variable": "h"}], "program": {"type": "sequence", "sequence": {"items": []}}}`},
		{"bad parameter type", `{"name": "A", "description": "", "parameters": [{"name": "p", "type": "integer", "description": "", "variable": "$h"}], "program": {"type": "sequence", "sequence": {"items": []}}}`},
		{"invalid program", `{"name": "A", "description": "", "parameters": [], "program": {"type": "loop"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDefinitionJSON([]byte(tt.doc))
			assert.True(t, errors.Is(err, actions.ErrValidation), "got %v", err)
		})
	}
}
