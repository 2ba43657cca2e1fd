package actions

import (
	"encoding/json"
	"fmt"
)

// ParamType is the primitive type tag of a parameter
type ParamType string

const (
	TypeNumber  ParamType = "number"
	TypeString  ParamType = "string"
	TypeBoolean ParamType = "boolean"
	TypeObject  ParamType = "object"
)

// Valid reports whether t is one of the known type tags
func (t ParamType) Valid() bool {
	switch t {
	case TypeNumber, TypeString, TypeBoolean, TypeObject:
		return true
	}
	return false
}

// Parameter declares one named, typed input of an action
type Parameter struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Type        ParamType `json:"type" yaml:"type"`
}

// Arg is a named value supplied at instantiation
type Arg struct {
	Name  string `json:"name" yaml:"name"`
	Value any    `json:"value" yaml:"value"`
}

// TypeOf returns the primitive type tag of a runtime value.
// Maps, slices and nil all report as object.
func TypeOf(v any) ParamType {
	switch v.(type) {
	case string:
		return TypeString
	case bool:
		return TypeBoolean
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return TypeNumber
	default:
		return TypeObject
	}
}

// ValidateParameters checks a parameter list at action construction
func ValidateParameters(params []Parameter) error {
	seen := make(map[string]bool, len(params))
	for i, p := range params {
		if p.Name == "" {
			return fmt.Errorf("%w: parameter %d: name is required", ErrValidation, i)
		}
		if !p.Type.Valid() {
			return fmt.Errorf("%w: parameter '%s': invalid type '%s' (must be: number, string, boolean, object)", ErrValidation, p.Name, p.Type)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: parameter '%s' declared more than once", ErrValidation, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// ValidateArgs checks that args match params exactly: unique names, same
// count, every parameter present with a value of the declared type.
func ValidateArgs(args []Arg, params []Parameter) error {
	byName := make(map[string]Arg, len(args))
	for _, a := range args {
		if _, dup := byName[a.Name]; dup {
			return fmt.Errorf("%w: argument '%s' supplied more than once", ErrValidation, a.Name)
		}
		byName[a.Name] = a
	}

	if len(args) != len(params) {
		return fmt.Errorf("%w: expected %d arguments, got %d", ErrValidation, len(params), len(args))
	}

	for _, p := range params {
		a, ok := byName[p.Name]
		if !ok {
			return fmt.Errorf("%w: missing argument '%s'", ErrValidation, p.Name)
		}
		if got := TypeOf(a.Value); got != p.Type {
			return fmt.Errorf("%w: argument '%s' must be %s, got %s", ErrValidation, p.Name, p.Type, got)
		}
	}
	return nil
}

// Values is a by-name view of validated arguments
type Values map[string]any

// ValuesOf indexes args by name
func ValuesOf(args []Arg) Values {
	v := make(Values, len(args))
	for _, a := range args {
		v[a.Name] = a.Value
	}
	return v
}

// Number returns the named value as float64, or 0 if it is not numeric
func (v Values) Number(name string) float64 {
	switch n := v[name].(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}

// Int returns the named numeric value truncated to int
func (v Values) Int(name string) int {
	return int(v.Number(name))
}

// String returns the named value if it is a string
func (v Values) String(name string) string {
	s, _ := v[name].(string)
	return s
}

// Bool returns the named value if it is a boolean
func (v Values) Bool(name string) bool {
	b, _ := v[name].(bool)
	return b
}

// CloneArgs returns a shallow copy of args
func CloneArgs(args []Arg) []Arg {
	if args == nil {
		return []Arg{}
	}
	out := make([]Arg, len(args))
	copy(out, args)
	return out
}
