package resolver

import (
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/contracts"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/knowledge"
	"go.uber.org/zap"
)

// Policy selects whether bindings are auto-wired.
type Policy uint8

const (
	// AutoWire fills unset bindings from compatible dependency outputs.
	AutoWire Policy = iota
	// Disabled leaves bindings to be asked like any other required value.
	Disabled
)

// PolicyFromBool maps a feature flag onto a policy.
func PolicyFromBool(enabled bool) Policy {
	if enabled {
		return AutoWire
	}
	return Disabled
}

func (p Policy) String() string {
	if p == Disabled {
		return "disabled"
	}
	return "autowire"
}

// Resolver wires infrastructure bindings of deployment entities to outputs
// of their declared infrastructure dependencies. It never asks questions.
type Resolver struct {
	contracts *contracts.Registry
	kb        *knowledge.Base
	policy    Policy
	logger    *zap.Logger
}

// New creates a resolver.
func New(registry *contracts.Registry, kb *knowledge.Base, policy Policy, logger *zap.Logger) *Resolver {
	if registry == nil {
		registry = contracts.Default()
	}
	if kb == nil {
		kb = knowledge.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{contracts: registry, kb: kb, policy: policy, logger: logger}
}

// Policy returns the configured policy.
func (r *Resolver) Policy() Policy { return r.policy }

// Resolve returns a copy of g with every resolvable binding set. The input
// graph is not modified and a second pass adds nothing.
func (r *Resolver) Resolve(g *blueprint.Graph) *blueprint.Graph {
	out := g.Clone()
	if r.policy == Disabled {
		return out
	}
	for _, e := range out.Entities() {
		r.resolveEntity(out, e)
	}
	return out
}

func (r *Resolver) resolveEntity(g *blueprint.Graph, e *blueprint.Entity) {
	c, ok := r.contracts.ContractFor(e.BackendType)
	if !ok || c.Style != contracts.StyleDeployment || c.Placement.EnvironmentPath == "" {
		return
	}
	envVal, _ := e.Value(c.Placement.EnvironmentPath)
	infraVal, _ := e.Value(c.Placement.InfrastructurePath)
	envID, ok1 := envVal.Literal()
	infraID, ok2 := infraVal.Literal()
	if !ok1 || !ok2 || envID == "" || infraID == "" {
		return
	}
	infra, ok := r.kb.Infrastructure(envID, infraID)
	if !ok {
		return
	}

	for _, binding := range infra.RequiredBindings {
		path := c.Placement.BindingPath(binding)
		if current, ok := e.Value(path); ok && !current.IsEmpty() {
			continue
		}
		expr, ok := r.compatibleOutput(g, e, binding)
		if !ok {
			continue
		}
		if err := e.Values.SetPath(path, blueprint.Expr(expr)); err != nil {
			continue
		}
		r.logger.Debug("Binding auto-wired",
			zap.String("entity", e.ID),
			zap.String("binding", binding),
			zap.String("expression", expr))
	}
}

// compatibleOutput scans declared dependencies in order. A namespace binding
// accepts an output named "name" or "namespace"; any other binding needs an
// output of the same name.
func (r *Resolver) compatibleOutput(g *blueprint.Graph, e *blueprint.Entity, binding string) (string, bool) {
	for _, depID := range e.Dependencies {
		dep, ok := g.Entity(depID)
		if !ok {
			continue
		}
		c, ok := r.contracts.ContractFor(dep.BackendType)
		if !ok || c.Style != contracts.StyleInfrastructure || c.TemplateField == "" {
			continue
		}
		raw, _ := dep.StepField(c.Lifecycle.Create, c.TemplateField)
		templateID, ok := raw.Literal()
		if !ok || templateID == "" {
			continue
		}
		tmpl, ok := r.kb.Template(templateID)
		if !ok {
			continue
		}

		if binding == "namespace" {
			for _, field := range []string{"name", "namespace"} {
				if tmpl.HasOutput(field) {
					return blueprint.DependencyRef(depID, field), true
				}
			}
		}
		if tmpl.HasOutput(binding) {
			return blueprint.DependencyRef(depID, binding), true
		}
	}
	return "", false
}
