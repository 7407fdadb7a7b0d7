package knowledge

import (
	"sort"

	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
)

// InputSpec describes one declared input of a template, component or pipeline.
type InputSpec struct {
	Type     string `json:"type,omitempty" yaml:"type,omitempty" toml:"type,omitempty"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty" toml:"required,omitempty"`
	Default  any    `json:"default,omitempty" yaml:"default,omitempty" toml:"default,omitempty"`
}

// HasDefault reports whether a default value is declared.
func (s InputSpec) HasDefault() bool { return s.Default != nil }

// DefaultValue returns the default as a blueprint value.
func (s InputSpec) DefaultValue() blueprint.Value { return blueprint.FromAny(s.Default) }

// Template is an infrastructure-as-code template.
type Template struct {
	ID      string               `json:"id" yaml:"-" toml:"-"`
	Inputs  map[string]InputSpec `json:"inputs,omitempty" yaml:"inputs,omitempty" toml:"inputs,omitempty"`
	Outputs map[string]string    `json:"outputs,omitempty" yaml:"outputs,omitempty" toml:"outputs,omitempty"`
}

// RequiredInputs returns required input names, sorted.
func (t *Template) RequiredInputs() []string {
	var out []string
	for name, spec := range t.Inputs {
		if spec.Required {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// HasOutput reports whether the template declares field as an output.
func (t *Template) HasOutput(field string) bool {
	_, ok := t.Outputs[field]
	return ok
}

// Component is a deployable catalogue component.
type Component struct {
	ID        string               `json:"id" yaml:"-" toml:"-"`
	Inputs    map[string]InputSpec `json:"inputs,omitempty" yaml:"inputs,omitempty" toml:"inputs,omitempty"`
	Pipelines map[string]string    `json:"pipelines,omitempty" yaml:"pipelines,omitempty" toml:"pipelines,omitempty"`
}

// Infrastructure is a deployment target inside an environment.
type Infrastructure struct {
	ID               string   `json:"id" yaml:"id" toml:"id"`
	RequiredBindings []string `json:"required_bindings,omitempty" yaml:"required_bindings,omitempty" toml:"required_bindings,omitempty"`
}

// Environment groups infrastructures.
type Environment struct {
	ID              string           `json:"id" yaml:"-" toml:"-"`
	Infrastructures []Infrastructure `json:"infrastructures,omitempty" yaml:"infrastructures,omitempty" toml:"infrastructures,omitempty"`
}

// Pipeline is a lifecycle pipeline usable by one backend type.
type Pipeline struct {
	ID          string               `json:"id" yaml:"-" toml:"-"`
	BackendType string               `json:"backend_type" yaml:"backend_type" toml:"backend_type"`
	Inputs      map[string]InputSpec `json:"inputs,omitempty" yaml:"inputs,omitempty" toml:"inputs,omitempty"`
}

// Catalogue is the file form of a knowledge base.
type Catalogue struct {
	Templates    map[string]*Template    `json:"templates,omitempty" yaml:"templates,omitempty" toml:"templates,omitempty"`
	Components   map[string]*Component   `json:"components,omitempty" yaml:"components,omitempty" toml:"components,omitempty"`
	Environments map[string]*Environment `json:"environments,omitempty" yaml:"environments,omitempty" toml:"environments,omitempty"`
	Pipelines    map[string]*Pipeline    `json:"pipelines,omitempty" yaml:"pipelines,omitempty" toml:"pipelines,omitempty"`
}

// Base answers metadata lookups. A missing record is not an error: unknown
// resources are treated as opaque external references.
type Base struct {
	templates    map[string]*Template
	components   map[string]*Component
	environments map[string]*Environment
	pipelines    map[string]*Pipeline
}

// New creates an empty knowledge base.
func New() *Base {
	return &Base{
		templates:    make(map[string]*Template),
		components:   make(map[string]*Component),
		environments: make(map[string]*Environment),
		pipelines:    make(map[string]*Pipeline),
	}
}

// Merge adds every record of c, replacing records with the same id.
func (b *Base) Merge(c *Catalogue) {
	if c == nil {
		return
	}
	for id, t := range c.Templates {
		if t == nil {
			continue
		}
		t.ID = id
		b.templates[id] = t
	}
	for id, comp := range c.Components {
		if comp == nil {
			continue
		}
		comp.ID = id
		b.components[id] = comp
	}
	for id, env := range c.Environments {
		if env == nil {
			continue
		}
		env.ID = id
		b.environments[id] = env
	}
	for id, p := range c.Pipelines {
		if p == nil {
			continue
		}
		p.ID = id
		b.pipelines[id] = p
	}
}

// Template returns template metadata.
func (b *Base) Template(id string) (*Template, bool) {
	t, ok := b.templates[id]
	return t, ok
}

// Component returns component metadata.
func (b *Base) Component(id string) (*Component, bool) {
	c, ok := b.components[id]
	return c, ok
}

// Environment returns environment metadata.
func (b *Base) Environment(id string) (*Environment, bool) {
	e, ok := b.environments[id]
	return e, ok
}

// Infrastructure returns an infrastructure of an environment.
func (b *Base) Infrastructure(envID, infraID string) (*Infrastructure, bool) {
	env, ok := b.environments[envID]
	if !ok {
		return nil, false
	}
	for i := range env.Infrastructures {
		if env.Infrastructures[i].ID == infraID {
			return &env.Infrastructures[i], true
		}
	}
	return nil, false
}

// Pipeline returns pipeline metadata.
func (b *Base) Pipeline(id string) (*Pipeline, bool) {
	p, ok := b.pipelines[id]
	return p, ok
}

// PipelinesFor returns the ids of pipelines usable by backendType, sorted.
func (b *Base) PipelinesFor(backendType string) []string {
	var out []string
	for id, p := range b.pipelines {
		if p.BackendType == backendType {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Catalogue returns the records held by b.
func (b *Base) Catalogue() *Catalogue {
	c := &Catalogue{
		Templates:    make(map[string]*Template, len(b.templates)),
		Components:   make(map[string]*Component, len(b.components)),
		Environments: make(map[string]*Environment, len(b.environments)),
		Pipelines:    make(map[string]*Pipeline, len(b.pipelines)),
	}
	for id, t := range b.templates {
		c.Templates[id] = t
	}
	for id, comp := range b.components {
		c.Components[id] = comp
	}
	for id, env := range b.environments {
		c.Environments[id] = env
	}
	for id, p := range b.pipelines {
		c.Pipelines[id] = p
	}
	return c
}

// Stats reports record counts.
type Stats struct {
	Templates    int `json:"templates"`
	Components   int `json:"components"`
	Environments int `json:"environments"`
	Pipelines    int `json:"pipelines"`
}

// Stats returns record counts.
func (b *Base) Stats() Stats {
	return Stats{
		Templates:    len(b.templates),
		Components:   len(b.components),
		Environments: len(b.environments),
		Pipelines:    len(b.pipelines),
	}
}
