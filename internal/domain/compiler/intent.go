package compiler

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/EnvForge/backend/internal/collaborator"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/contracts"
	"go.uber.org/zap"
)

var (
	notIDChars = regexp.MustCompile(`[^a-z0-9_]+`)
	idSuffix   = regexp.MustCompile(`_e(\d+)$`)
)

type created struct {
	entity *blueprint.Entity
	spec   collaborator.EntitySpec
}

// addEntities creates an entity per spec and returns the new ids. All
// entities are registered before dependencies are linked, so specs may
// depend on each other in any order.
func (c *Compiler) addEntities(specs []collaborator.EntitySpec) []string {
	made := make([]created, 0, len(specs))
	for _, spec := range specs {
		e := c.newEntity(spec)
		if err := c.graph.AddEntity(e); err != nil {
			c.logger.Warn("Skipping entity", zap.String("entity_id", e.ID), zap.Error(err))
			continue
		}
		c.remember(spec, e.ID)
		made = append(made, created{entity: e, spec: spec})
	}

	ids := make([]string, 0, len(made))
	for _, m := range made {
		c.linkDependencies(m.entity, m.spec)
		ids = append(ids, m.entity.ID)
		c.logger.Debug("Entity created",
			zap.String("entity_id", m.entity.ID),
			zap.String("backend_type", m.entity.BackendType),
			zap.Strings("dependencies", m.entity.Dependencies))
	}
	return ids
}

// newEntity initialises an entity from its spec. A template seeds the
// create step of an infrastructure entity; a component seeds the
// identifier of a deployment entity.
func (c *Compiler) newEntity(spec collaborator.EntitySpec) *blueprint.Entity {
	c.counter++
	e := blueprint.NewEntity(fmt.Sprintf("%s_e%d", baseName(spec), c.counter), spec.BackendType)

	if contract, ok := c.registry.ContractFor(spec.BackendType); ok {
		switch contract.Style {
		case contracts.StyleInfrastructure:
			if spec.Template != "" && contract.Lifecycle.Create != "" && contract.TemplateField != "" {
				step := blueprint.NewStep()
				step.Fields.Set(contract.TemplateField, blueprint.String(spec.Template))
				if contract.VersionField != "" {
					step.Fields.Set(contract.VersionField, blueprint.String(contract.DefaultVersion))
				}
				e.Steps.Set(contract.Lifecycle.Create, step)
			}
		case contracts.StyleDeployment:
			if spec.Component != "" && contract.IdentifierPath != "" {
				_ = e.Values.SetPath(contract.IdentifierPath, blueprint.String(spec.Component))
			}
		}
	}

	keys := make([]string, 0, len(spec.Inputs))
	for k := range spec.Inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e.Inputs.Set(k, blueprint.FromAny(spec.Inputs[k]))
	}
	return e
}

// baseName picks the human-readable part of an entity id.
func baseName(spec collaborator.EntitySpec) string {
	for _, candidate := range []string{spec.ID, spec.Component, spec.Template, spec.BackendType} {
		name := strings.Trim(notIDChars.ReplaceAllString(strings.ToLower(candidate), "_"), "_")
		if name != "" {
			return name
		}
	}
	return "entity"
}

// remember maps every name an entity can be referred to by onto its id.
func (c *Compiler) remember(spec collaborator.EntitySpec, id string) {
	c.names[id] = id
	for _, name := range []string{spec.ID, spec.Component, spec.Template} {
		if name != "" {
			c.names[name] = id
		}
	}
}

// lookup resolves a logical name or an existing id.
func (c *Compiler) lookup(ref string) (string, bool) {
	if id, ok := c.names[ref]; ok {
		return id, true
	}
	if c.graph.Has(ref) {
		return ref, true
	}
	return "", false
}

func (c *Compiler) linkDependencies(e *blueprint.Entity, spec collaborator.EntitySpec) {
	refs := append(append([]string(nil), spec.Dependencies...), spec.DependencyNames...)
	for _, ref := range refs {
		id, ok := c.lookup(ref)
		if !ok || id == e.ID {
			c.logger.Warn("Dropping unresolved dependency",
				zap.String("entity_id", e.ID),
				zap.String("dependency", ref))
			continue
		}
		e.AddDependency(id)
	}
}

// applyBindings writes values the caller supplied with the intent. Keys
// are "<entity ref>.<path>"; dependency expressions may use logical names.
func (c *Compiler) applyBindings(intent *collaborator.Intent) {
	for _, key := range intent.BindingKeys() {
		ref, path, ok := strings.Cut(key, ".")
		id, found := c.lookup(ref)
		if !ok || !found {
			c.logger.Warn("Ignoring binding for unknown entity", zap.String("binding", key))
			continue
		}
		value := intent.Bindings[key]
		if s, isString := value.(string); isString {
			value = c.rewriteReferences(s)
		}
		err := c.ApplyUpdate(Update{
			EntityID:       id,
			Path:           path,
			Value:          value,
			Classification: blueprint.Literal,
		})
		if err != nil {
			c.logger.Warn("Ignoring binding", zap.String("binding", key), zap.Error(err))
		}
	}
}

// rewriteReferences maps logical dependency names in expressions onto
// entity ids.
func (c *Compiler) rewriteReferences(s string) string {
	for _, ref := range blueprint.Expressions(s) {
		if ref.Scope != blueprint.ScopeDependencies || ref.Malformed() {
			continue
		}
		id, ok := c.lookup(ref.DependencyID)
		if !ok || id == ref.DependencyID {
			continue
		}
		s = strings.ReplaceAll(s, ref.Raw, blueprint.DependencyRef(id, ref.Field))
	}
	return s
}

// adopt takes over g, continuing id numbering after its highest suffix.
func (c *Compiler) adopt(g *blueprint.Graph) {
	c.graph = g
	c.counter = 0
	c.names = make(map[string]string, g.Len())
	for _, id := range g.IDs() {
		c.names[id] = id
		if m := idSuffix.FindStringSubmatch(id); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > c.counter {
				c.counter = n
			}
		}
	}
}
