package programs

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"jordanella.com/gamebot-go/internal/actions"
)

//go:embed schema/*.schema.json
var schemaFS embed.FS

const (
	programSchemaURL    = "file:///program.schema.json"
	definitionSchemaURL = "file:///definition.schema.json"
)

var (
	programSchema    *jsonschema.Schema
	definitionSchema *jsonschema.Schema
)

func init() {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	for url, file := range map[string]string{
		programSchemaURL:    "schema/program.schema.json",
		definitionSchemaURL: "schema/definition.schema.json",
	} {
		data, err := schemaFS.ReadFile(file)
		if err != nil {
			panic(fmt.Sprintf("programs: failed to read %s: %v", file, err))
		}
		if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
			panic(fmt.Sprintf("programs: failed to add %s: %v", file, err))
		}
	}

	programSchema = compiler.MustCompile(programSchemaURL)
	definitionSchema = compiler.MustCompile(definitionSchemaURL)
}

// ParseJSON decodes and validates a program document
func ParseJSON(data []byte) (Program, error) {
	doc, err := decodeJSON(data)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc)
}

// ParseYAML accepts the same document shape written as YAML
func ParseYAML(data []byte) (Program, error) {
	doc, err := decodeYAML(data)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc)
}

// FromDocument validates an already decoded document (maps, slices,
// float64) and builds the program tree.
func FromDocument(doc any) (Program, error) {
	if err := programSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: invalid program: %s", actions.ErrValidation, describe(err))
	}
	return build(doc)
}

func decodeJSON(data []byte) (any, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: malformed JSON: %v", actions.ErrValidation, err)
	}
	return doc, nil
}

// decodeYAML converts YAML into the JSON data model so both formats
// share one schema.
func decodeYAML(data []byte) (any, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: malformed YAML: %v", actions.ErrValidation, err)
	}
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: YAML is not representable as JSON: %v", actions.ErrValidation, err)
	}
	return decodeJSON(normalized)
}

func describe(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	var leaves []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			leaves = append(leaves, fmt.Sprintf("%s: %s", loc, e.Message))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return strings.Join(leaves, "; ")
}

// build assumes doc has passed programSchema
func build(doc any) (Program, error) {
	node, _ := doc.(map[string]any)
	switch node["type"] {
	case "action":
		body, _ := node["action"].(map[string]any)
		name, _ := body["name"].(string)
		rawArgs, _ := body["args"].([]any)
		args := make([]actions.Arg, 0, len(rawArgs))
		for _, ra := range rawArgs {
			a, _ := ra.(map[string]any)
			argName, _ := a["name"].(string)
			args = append(args, actions.Arg{Name: argName, Value: a["value"]})
		}
		return &ActionProgram{Action: name, Args: args}, nil

	case "loop":
		body, _ := node["loop"].(map[string]any)
		count, _ := body["count"].(float64)
		inner, err := build(body["program"])
		if err != nil {
			return nil, err
		}
		return &LoopProgram{Body: inner, Count: int(count)}, nil

	case "sequence":
		body, _ := node["sequence"].(map[string]any)
		rawItems, _ := body["items"].([]any)
		items := make([]Program, 0, len(rawItems))
		for _, ri := range rawItems {
			item, err := build(ri)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return &SequenceProgram{Items: items}, nil
	}
	return nil, fmt.Errorf("%w: unknown program type %v", actions.ErrValidation, node["type"])
}

// Definition describes a program-defined action as submitted by callers
type Definition struct {
	Name        string
	Description string
	Parameters  []Parameter
	Program     Program
}

// ParseDefinitionJSON decodes and validates an action definition document
func ParseDefinitionJSON(data []byte) (*Definition, error) {
	doc, err := decodeJSON(data)
	if err != nil {
		return nil, err
	}
	return DefinitionFromDocument(doc)
}

// ParseDefinitionYAML is ParseDefinitionJSON for YAML input
func ParseDefinitionYAML(data []byte) (*Definition, error) {
	doc, err := decodeYAML(data)
	if err != nil {
		return nil, err
	}
	return DefinitionFromDocument(doc)
}

// DefinitionFromDocument validates a decoded definition document
func DefinitionFromDocument(doc any) (*Definition, error) {
	if err := definitionSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: invalid action definition: %s", actions.ErrValidation, describe(err))
	}
	node, _ := doc.(map[string]any)

	def := &Definition{}
	def.Name, _ = node["name"].(string)
	def.Description, _ = node["description"].(string)

	rawParams, _ := node["parameters"].([]any)
	for _, rp := range rawParams {
		p, _ := rp.(map[string]any)
		name, _ := p["name"].(string)
		typ, _ := p["type"].(string)
		desc, _ := p["description"].(string)
		variable, _ := p["variable"].(string)
		def.Parameters = append(def.Parameters, Parameter{
			Parameter: actions.Parameter{Name: name, Description: desc, Type: actions.ParamType(typ)},
			Variable:  variable,
		})
	}

	program, err := build(node["program"])
	if err != nil {
		return nil, err
	}
	def.Program = program
	return def, nil
}

// Build turns a validated definition into an Action
func (d *Definition) Build() (*Action, error) {
	return NewAction(d.Name, d.Description, d.Parameters, d.Program)
}
