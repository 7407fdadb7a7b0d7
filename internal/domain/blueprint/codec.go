package blueprint

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// Format selects a graph file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks JSON for .json files and YAML otherwise.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// DecodeGraph reads a graph file. JSON is accepted as well since it is a
// YAML subset; map key order is preserved either way.
func DecodeGraph(data []byte) (*Graph, error) {
	var raw interface{}
	if err := yaml.UnmarshalWithOptions(data, &raw, yaml.UseOrderedMap()); err != nil {
		return nil, fmt.Errorf("failed to parse graph: %w", err)
	}
	return GraphFromValue(fromTyped(raw))
}

// EncodeGraph writes g in the requested format.
func EncodeGraph(g *Graph, format Format) ([]byte, error) {
	v := GraphToValue(g)
	if format == FormatJSON {
		return v.MarshalJSON()
	}
	return yaml.Marshal(v)
}

// GraphToValue converts g into its file representation.
func GraphToValue(g *Graph) Value {
	inputs := make([]Value, 0, g.Inputs.Len())
	for _, name := range g.Inputs.Names() {
		def, _ := g.Inputs.Default(name)
		item := NewMap()
		item.Set("name", String(name))
		item.Set("default", def)
		inputs = append(inputs, MapValue(item))
	}

	entities := make([]Value, 0, g.Len())
	for _, e := range g.Entities() {
		item := NewMap()
		item.Set("id", String(e.ID))
		item.Set("backend_type", String(e.BackendType))
		item.Set("inputs", MapValue(e.Inputs.Clone()))
		item.Set("values", MapValue(e.Values.Clone()))
		steps := NewMap()
		for _, name := range e.Steps.Names() {
			st, _ := e.Steps.Get(name)
			steps.Set(name, StepToValue(st))
		}
		item.Set("steps", MapValue(steps))
		deps := make([]Value, 0, len(e.Dependencies))
		for _, dep := range e.Dependencies {
			deps = append(deps, String(dep))
		}
		item.Set("dependencies", List(deps...))
		entities = append(entities, MapValue(item))
	}

	root := NewMap()
	root.Set("inputs", List(inputs...))
	root.Set("entities", List(entities...))
	return MapValue(root)
}

// StepToValue flattens a step into a map with an optional variables list.
func StepToValue(s *Step) Value {
	out := s.Fields.Clone()
	if s.Variables != nil {
		vars := make([]Value, 0, len(s.Variables))
		for _, v := range s.Variables {
			item := NewMap()
			item.Set("name", String(v.Name))
			item.Set("value", v.Value.Clone())
			vars = append(vars, MapValue(item))
		}
		out.Set(VariablesField, List(vars...))
	}
	return MapValue(out)
}

// StepFromValue builds a step from a map value.
func StepFromValue(v Value) (*Step, error) {
	m, ok := v.Map()
	if !ok {
		return nil, fmt.Errorf("step must be a map, got %s: %w", v.Kind(), ErrInvalidPath)
	}
	step := NewStep()
	for _, key := range m.Keys() {
		item, _ := m.Get(key)
		if key != VariablesField {
			step.Fields.Set(key, item.Clone())
			continue
		}
		vars, err := VariablesFromValue(item)
		if err != nil {
			return nil, err
		}
		step.Variables = vars
	}
	return step, nil
}

// VariablesFromValue reads a [{name, value}] list. A map {name: value} is
// accepted too.
func VariablesFromValue(v Value) ([]Variable, error) {
	out := []Variable{}
	if m, ok := v.Map(); ok {
		for _, key := range m.Keys() {
			item, _ := m.Get(key)
			out = append(out, Variable{Name: key, Value: item.Clone()})
		}
		return out, nil
	}
	if v.Kind() != KindList {
		if v.IsNull() {
			return out, nil
		}
		return nil, fmt.Errorf("variables must be a list, got %s: %w", v.Kind(), ErrInvalidPath)
	}
	for _, item := range v.Items() {
		m, ok := item.Map()
		if !ok {
			return nil, fmt.Errorf("variable must be a map: %w", ErrInvalidPath)
		}
		nameVal, _ := m.Get("name")
		name, ok := nameVal.Str()
		if !ok || name == "" {
			return nil, fmt.Errorf("variable without name: %w", ErrInvalidPath)
		}
		value, _ := m.Get("value")
		out = append(out, Variable{Name: name, Value: value.Clone()})
	}
	return out, nil
}

// GraphFromValue is the inverse of GraphToValue.
func GraphFromValue(v Value) (*Graph, error) {
	root, ok := v.Map()
	if !ok {
		return nil, fmt.Errorf("graph document must be a map: %w", ErrInvalidPath)
	}
	g := NewGraph()

	inputs, _ := root.Get("inputs")
	if m, ok := inputs.Map(); ok {
		for _, name := range m.Keys() {
			def, _ := m.Get(name)
			g.Inputs.Set(name, def.Clone())
		}
	}
	for _, item := range inputs.Items() {
		m, ok := item.Map()
		if !ok {
			return nil, fmt.Errorf("input must be a map: %w", ErrInvalidPath)
		}
		nameVal, _ := m.Get("name")
		name, ok := nameVal.Str()
		if !ok || name == "" {
			return nil, fmt.Errorf("input without name: %w", ErrInvalidPath)
		}
		def, _ := m.Get("default")
		g.Inputs.Set(name, def.Clone())
	}

	entities, _ := root.Get("entities")
	for i, item := range entities.Items() {
		e, err := entityFromValue(item)
		if err != nil {
			return nil, fmt.Errorf("entity %d: %w", i, err)
		}
		if err := g.AddEntity(e); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func entityFromValue(v Value) (*Entity, error) {
	m, ok := v.Map()
	if !ok {
		return nil, fmt.Errorf("entity must be a map: %w", ErrInvalidPath)
	}
	str := func(key string) string {
		val, _ := m.Get(key)
		s, _ := val.Str()
		return s
	}
	e := NewEntity(str("id"), str("backend_type"))
	if e.ID == "" {
		return nil, fmt.Errorf("entity without id: %w", ErrInvalidPath)
	}
	if inputs, ok := m.Get("inputs"); ok {
		if im, ok := inputs.Map(); ok {
			e.Inputs = im.Clone()
		}
	}
	if values, ok := m.Get("values"); ok {
		if vm, ok := values.Map(); ok {
			e.Values = vm.Clone()
		}
	}
	if steps, ok := m.Get("steps"); ok {
		if sm, ok := steps.Map(); ok {
			for _, name := range sm.Keys() {
				raw, _ := sm.Get(name)
				step, err := StepFromValue(raw)
				if err != nil {
					return nil, fmt.Errorf("step %q: %w", name, err)
				}
				e.Steps.Set(name, step)
			}
		}
	}
	deps, _ := m.Get("dependencies")
	for _, dep := range deps.Items() {
		if id, ok := dep.Str(); ok {
			e.AddDependency(id)
		}
	}
	return e, nil
}
