package render

import (
	"fmt"

	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/contracts"
	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
)

// DefaultName is the blueprint name used when none is configured.
const DefaultName = "generated_blueprint"

// Document is the rendered blueprint.
type Document struct {
	Blueprint Blueprint `json:"blueprint" yaml:"blueprint"`
}

// Blueprint is the body of a rendered document.
type Blueprint struct {
	Name     string   `json:"name" yaml:"name"`
	Inputs   []Input  `json:"inputs" yaml:"inputs"`
	Entities []Entity `json:"entities" yaml:"entities"`
}

// Input is a typed blueprint input. A nil Default marks a required input.
type Input struct {
	Name    string           `json:"name" yaml:"name"`
	Type    string           `json:"type" yaml:"type"`
	Default *blueprint.Value `json:"default,omitempty" yaml:"default,omitempty"`
}

// Entity is one rendered entity.
type Entity struct {
	ID        string     `json:"id" yaml:"id"`
	Type      string     `json:"type" yaml:"type"`
	Backend   Backend    `json:"backend" yaml:"backend"`
	Interface *Interface `json:"interface,omitempty" yaml:"interface,omitempty"`
}

// Backend carries values and steps.
type Backend struct {
	Values *blueprint.Map `json:"values,omitempty" yaml:"values,omitempty"`
	Steps  *blueprint.Map `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// Interface carries entity-scoped inputs and dependencies.
type Interface struct {
	Inputs       *blueprint.Map `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Dependencies []Dependency   `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// Dependency names an entity read by another.
type Dependency struct {
	Identifier string `json:"identifier" yaml:"identifier"`
}

// YAML encodes the document.
func (d *Document) YAML() ([]byte, error) {
	out, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode blueprint YAML: %w", err)
	}
	return out, nil
}

// JSON encodes the document.
func (d *Document) JSON() ([]byte, error) {
	out, err := sonic.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode blueprint JSON: %w", err)
	}
	return out, nil
}

// Encode writes the document in format.
func (d *Document) Encode(format blueprint.Format) ([]byte, error) {
	if format == blueprint.FormatJSON {
		return d.JSON()
	}
	return d.YAML()
}

// Renderer turns a graph into a Document. Expressions are emitted verbatim.
type Renderer struct {
	contracts *contracts.Registry
	name      string
}

// New creates a renderer. An empty name falls back to DefaultName.
func New(registry *contracts.Registry, name string) *Renderer {
	if registry == nil {
		registry = contracts.Default()
	}
	if name == "" {
		name = DefaultName
	}
	return &Renderer{contracts: registry, name: name}
}

// Render builds the document for g without modifying it.
func (r *Renderer) Render(g *blueprint.Graph) *Document {
	doc := &Document{Blueprint: Blueprint{
		Name:     r.name,
		Inputs:   make([]Input, 0, g.Inputs.Len()),
		Entities: make([]Entity, 0, g.Len()),
	}}

	for _, name := range g.Inputs.Names() {
		def, _ := g.Inputs.Default(name)
		doc.Blueprint.Inputs = append(doc.Blueprint.Inputs, Input{
			Name:    name,
			Type:    def.TypeName(),
			Default: defaultOf(def),
		})
	}

	for _, e := range g.Entities() {
		doc.Blueprint.Entities = append(doc.Blueprint.Entities, r.renderEntity(e))
	}
	return doc
}

func (r *Renderer) renderEntity(e *blueprint.Entity) Entity {
	out := Entity{ID: e.ID, Type: e.BackendType}

	if e.Values.Len() > 0 {
		out.Backend.Values = e.Values.Clone()
	}
	if e.Steps.Len() > 0 {
		steps := blueprint.NewMap()
		for _, name := range e.Steps.Names() {
			step, _ := e.Step(name)
			steps.Set(name, blueprint.StepToValue(step))
		}
		out.Backend.Steps = steps
	}

	iface := &Interface{}
	// Infrastructure entities never expose entity inputs, even if some slipped in.
	if c, ok := r.contracts.ContractFor(e.BackendType); ok && c.Style == contracts.StyleDeployment && e.Inputs.Len() > 0 {
		iface.Inputs = interfaceInputs(e.Inputs)
	}
	for _, dep := range e.Dependencies {
		iface.Dependencies = append(iface.Dependencies, Dependency{Identifier: dep})
	}
	if iface.Inputs != nil || len(iface.Dependencies) > 0 {
		out.Interface = iface
	}
	return out
}

func interfaceInputs(inputs *blueprint.Map) *blueprint.Map {
	out := blueprint.NewMap()
	for _, name := range inputs.Keys() {
		v, _ := inputs.Get(name)
		spec := blueprint.NewMap()
		spec.Set("type", blueprint.String(v.TypeName()))
		if def := defaultOf(v); def != nil {
			spec.Set("default", def.Clone())
		}
		out.Set(name, blueprint.MapValue(spec))
	}
	return out
}

// Nulls and expressions never produce a default.
func defaultOf(v blueprint.Value) *blueprint.Value {
	if v.IsNull() || v.IsExpr() {
		return nil
	}
	return &v
}
