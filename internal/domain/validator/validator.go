package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/contracts"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/knowledge"
)

// Strictness controls how far dependency references are checked.
type Strictness uint8

const (
	// Structural checks that a referenced dependency is declared and exists.
	Structural Strictness = iota
	// Outputs also requires the field to be a declared output of the
	// dependency's template when that template is known.
	Outputs
)

// ParseStrictness maps "structural" and "outputs" to a level.
func ParseStrictness(s string) (Strictness, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "structural":
		return Structural, nil
	case "outputs":
		return Outputs, nil
	default:
		return Structural, fmt.Errorf("unknown strictness %q", s)
	}
}

func (s Strictness) String() string {
	if s == Outputs {
		return "outputs"
	}
	return "structural"
}

// Options configures a Validator.
type Options struct {
	Strictness Strictness
}

// Validator checks a graph against backend contracts and known resources.
// It never mutates the graph and never fails: problems are findings.
type Validator struct {
	contracts *contracts.Registry
	kb        *knowledge.Base
	opts      Options
}

// New creates a validator.
func New(registry *contracts.Registry, kb *knowledge.Base, opts Options) *Validator {
	if registry == nil {
		registry = contracts.Default()
	}
	if kb == nil {
		kb = knowledge.New()
	}
	return &Validator{contracts: registry, kb: kb, opts: opts}
}

// Validate returns the findings for g, ordered by entity then by check:
// contract, pipeline, expressions, resource-specific.
func (v *Validator) Validate(g *blueprint.Graph) []blueprint.MissingRequirement {
	var findings []blueprint.MissingRequirement
	for _, e := range g.Entities() {
		findings = append(findings, v.ValidateEntity(g, e)...)
	}
	return dedupe(findings)
}

// ValidateEntity runs every check on one entity.
func (v *Validator) ValidateEntity(g *blueprint.Graph, e *blueprint.Entity) []blueprint.MissingRequirement {
	c, ok := v.contracts.ContractFor(e.BackendType)
	if !ok {
		return []blueprint.MissingRequirement{{
			EntityID: e.ID,
			Path:     blueprint.RootBackend,
			Reason:   fmt.Sprintf("Unknown backend type: %s", e.BackendType),
			Options:  v.contracts.BackendTypes(),
		}}
	}

	var out []blueprint.MissingRequirement
	out = append(out, checkContract(e, c)...)
	out = append(out, v.checkPipelines(e, c)...)
	out = append(out, v.checkExpressions(g, e, c)...)
	out = append(out, v.checkResource(e, c)...)
	return out
}

// Satisfied reports whether e has no findings.
func (v *Validator) Satisfied(g *blueprint.Graph, e *blueprint.Entity) bool {
	return len(v.ValidateEntity(g, e)) == 0
}

func checkContract(e *blueprint.Entity, c *contracts.Contract) []blueprint.MissingRequirement {
	var out []blueprint.MissingRequirement
	for _, path := range c.RequiredValues {
		if val, ok := e.Value(path); !ok || val.IsEmpty() {
			out = append(out, blueprint.MissingRequirement{
				EntityID: e.ID,
				Path:     blueprint.ValuesPath(path),
				Reason:   fmt.Sprintf("Required value 'values.%s' is missing", path),
			})
		}
	}

	for _, sc := range c.Steps {
		if !sc.Required {
			continue
		}
		step, ok := e.Step(sc.Name)
		if !ok {
			out = append(out, blueprint.MissingRequirement{
				EntityID: e.ID,
				Path:     blueprint.StepPath(sc.Name),
				Reason:   fmt.Sprintf("Required step '%s' is missing", sc.Name),
			})
			continue
		}
		for _, field := range sc.Fields {
			if !step.Fields.Has(field) {
				out = append(out, blueprint.MissingRequirement{
					EntityID: e.ID,
					Path:     blueprint.StepPath(sc.Name, field),
					Reason:   fmt.Sprintf("Required field '%s' in step '%s' is missing", field, sc.Name),
				})
			}
		}
	}
	return out
}

// Unknown pipelines are accepted as external references.
func (v *Validator) checkPipelines(e *blueprint.Entity, c *contracts.Contract) []blueprint.MissingRequirement {
	if c.PipelineField == "" {
		return nil
	}
	var out []blueprint.MissingRequirement
	for _, name := range e.Steps.Names() {
		step, _ := e.Step(name)
		raw, ok := step.Field(c.PipelineField)
		if !ok {
			continue
		}
		id, ok := raw.Literal()
		if !ok {
			continue
		}
		pipeline, ok := v.kb.Pipeline(id)
		if !ok {
			continue
		}
		for _, input := range sortedInputs(pipeline.Inputs) {
			spec := pipeline.Inputs[input]
			if !spec.Required || spec.HasDefault() {
				continue
			}
			if _, wired := step.Variable(input); wired {
				continue
			}
			out = append(out, blueprint.MissingRequirement{
				EntityID: e.ID,
				Path:     blueprint.VariablePath(name, input),
				Reason:   fmt.Sprintf("Pipeline '%s' requires input '%s'", id, input),
			})
		}
	}
	return out
}

func (v *Validator) checkExpressions(g *blueprint.Graph, e *blueprint.Entity, c *contracts.Contract) []blueprint.MissingRequirement {
	var out []blueprint.MissingRequirement
	for _, name := range e.Steps.Names() {
		step, _ := e.Step(name)
		if !step.HasVariables() {
			continue
		}
		allowed := c.AllowedScopes(name)
		for _, variable := range step.Variables {
			at := site{
				path:    blueprint.VariablePath(name, variable.Name),
				label:   fmt.Sprintf("variable '%s'", variable.Name),
				allowed: allowed,
			}
			for _, s := range variable.Value.Strings() {
				for _, ref := range blueprint.Expressions(s) {
					out = append(out, v.checkReference(g, e, at, ref)...)
				}
			}
		}
	}

	walkValues(e.Values, "", func(path, s string) {
		at := site{
			path:    blueprint.ValuesPath(path),
			label:   fmt.Sprintf("value '%s'", path),
			allowed: blueprint.AllScopes,
		}
		for _, ref := range blueprint.Expressions(s) {
			out = append(out, v.checkReference(g, e, at, ref)...)
		}
	})
	return out
}

type site struct {
	path    string
	label   string
	allowed []blueprint.Scope
}

func (v *Validator) checkReference(g *blueprint.Graph, e *blueprint.Entity, at site, ref blueprint.Reference) []blueprint.MissingRequirement {
	finding := func(path, reason string) []blueprint.MissingRequirement {
		return []blueprint.MissingRequirement{{EntityID: e.ID, Path: path, Reason: reason}}
	}

	if ref.Scope == blueprint.ScopeUnknown {
		return finding(at.path, fmt.Sprintf("Expression '%s' in %s has an unknown scope", ref.Path, at.label))
	}
	if !scopeAllowed(at.allowed, ref.Scope) {
		return finding(at.path, fmt.Sprintf("%s uses '%s' which is not allowed here", capitalize(at.label), ref.Scope))
	}

	switch ref.Scope {
	case blueprint.ScopeEnvConfig:
		if !g.Inputs.Has(ref.Name) {
			return finding(blueprint.EnvConfigPath(ref.Name),
				fmt.Sprintf("Global input '%s' referenced in %s does not exist", ref.Name, at.label))
		}
	case blueprint.ScopeEntityConfig:
		if !e.Inputs.Has(ref.Name) {
			return finding(blueprint.ConfigPath(ref.Name),
				fmt.Sprintf("Entity input '%s' referenced in %s does not exist", ref.Name, at.label))
		}
	case blueprint.ScopeDependencies:
		if ref.Malformed() {
			return finding(at.path, fmt.Sprintf("Expression '%s' in %s must read dependencies.<id>.output.<field>", ref.Path, at.label))
		}
		if !e.HasDependency(ref.DependencyID) {
			return finding(at.path, fmt.Sprintf("Dependency '%s' referenced in %s is not declared in entity dependencies", ref.DependencyID, at.label))
		}
		dep, ok := g.Entity(ref.DependencyID)
		if !ok {
			return finding(at.path, fmt.Sprintf("Dependency entity '%s' does not exist in the graph", ref.DependencyID))
		}
		if v.opts.Strictness == Outputs {
			if tmpl, ok := v.templateOf(dep); ok && !tmpl.HasOutput(ref.Field) {
				return finding(at.path, fmt.Sprintf("Template '%s' of dependency '%s' has no output '%s'", tmpl.ID, dep.ID, ref.Field))
			}
		}
	}
	return nil
}

func (v *Validator) checkResource(e *blueprint.Entity, c *contracts.Contract) []blueprint.MissingRequirement {
	switch c.Style {
	case contracts.StyleInfrastructure:
		return v.checkInfrastructure(e, c)
	case contracts.StyleDeployment:
		return v.checkDeployment(e, c)
	}
	return nil
}

func (v *Validator) checkInfrastructure(e *blueprint.Entity, c *contracts.Contract) []blueprint.MissingRequirement {
	var out []blueprint.MissingRequirement
	if e.Inputs.Len() > 0 {
		out = append(out, blueprint.MissingRequirement{
			EntityID: e.ID,
			Path:     blueprint.RootInputs,
			Reason: fmt.Sprintf("Infrastructure entities cannot have entity-level inputs. Found: [%s]. "+
				"Template inputs must be wired via pipeline variables referencing env.config or dependencies.",
				strings.Join(e.Inputs.Keys(), ", ")),
		})
	}

	create, ok := e.Step(c.Lifecycle.Create)
	if !ok || c.TemplateField == "" {
		return out
	}
	raw, _ := create.Field(c.TemplateField)
	templateID, _ := raw.Str()
	if raw.IsEmpty() {
		return append(out, blueprint.MissingRequirement{
			EntityID: e.ID,
			Path:     blueprint.StepPath(c.Lifecycle.Create, c.TemplateField),
			Reason:   fmt.Sprintf("Template ID is required for %s step", c.Lifecycle.Create),
		})
	}

	tmpl, known := v.kb.Template(templateID)
	if !known {
		return out
	}
	if _, ok := e.Step(c.Lifecycle.Apply); !ok {
		return out
	}
	for _, input := range tmpl.RequiredInputs() {
		if wiredIn(e, c.Lifecycle.Mutating(), input) {
			continue
		}
		out = append(out, blueprint.MissingRequirement{
			EntityID: e.ID,
			Path:     blueprint.VariablePath(c.Lifecycle.Apply, input),
			Reason:   fmt.Sprintf("Required template input '%s' must be wired as pipeline variable", input),
		})
	}
	return out
}

// Bindings are checked only when the placement names a known infrastructure.
func (v *Validator) checkDeployment(e *blueprint.Entity, c *contracts.Contract) []blueprint.MissingRequirement {
	infra, ok := v.Infrastructure(e, c)
	if !ok {
		return nil
	}
	var out []blueprint.MissingRequirement
	for _, binding := range infra.RequiredBindings {
		path := c.Placement.BindingPath(binding)
		if val, ok := e.Value(path); ok && !val.IsEmpty() {
			continue
		}
		out = append(out, blueprint.MissingRequirement{
			EntityID: e.ID,
			Path:     blueprint.ValuesPath(path),
			Reason:   fmt.Sprintf("Infrastructure '%s' requires binding '%s'", infra.ID, binding),
		})
	}
	return out
}

// Infrastructure resolves the infrastructure a deployment entity targets.
func (v *Validator) Infrastructure(e *blueprint.Entity, c *contracts.Contract) (*knowledge.Infrastructure, bool) {
	if c.Placement.EnvironmentPath == "" {
		return nil, false
	}
	envVal, _ := e.Value(c.Placement.EnvironmentPath)
	infraVal, _ := e.Value(c.Placement.InfrastructurePath)
	envID, ok1 := envVal.Literal()
	infraID, ok2 := infraVal.Literal()
	if !ok1 || !ok2 || envID == "" || infraID == "" {
		return nil, false
	}
	return v.kb.Infrastructure(envID, infraID)
}

func (v *Validator) templateOf(e *blueprint.Entity) (*knowledge.Template, bool) {
	c, ok := v.contracts.ContractFor(e.BackendType)
	if !ok || c.TemplateField == "" {
		return nil, false
	}
	raw, _ := e.StepField(c.Lifecycle.Create, c.TemplateField)
	id, ok := raw.Literal()
	if !ok {
		return nil, false
	}
	return v.kb.Template(id)
}

func wiredIn(e *blueprint.Entity, steps []string, input string) bool {
	for _, name := range steps {
		step, ok := e.Step(name)
		if !ok {
			continue
		}
		if _, ok := step.Variable(input); ok {
			return true
		}
	}
	return false
}

func walkValues(m *blueprint.Map, prefix string, fn func(path, s string)) {
	for _, key := range m.Keys() {
		val, _ := m.Get(key)
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if nested, ok := val.Map(); ok {
			walkValues(nested, path, fn)
			continue
		}
		for _, s := range val.Strings() {
			fn(path, s)
		}
	}
}

func scopeAllowed(allowed []blueprint.Scope, scope blueprint.Scope) bool {
	for _, s := range allowed {
		if s == scope {
			return true
		}
	}
	return false
}

func sortedInputs(inputs map[string]knowledge.InputSpec) []string {
	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func dedupe(in []blueprint.MissingRequirement) []blueprint.MissingRequirement {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]blueprint.MissingRequirement, 0, len(in))
	for _, r := range in {
		if _, ok := seen[r.Key()]; ok {
			continue
		}
		seen[r.Key()] = struct{}{}
		out = append(out, r)
	}
	return out
}
