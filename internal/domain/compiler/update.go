package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/contracts"
	"go.uber.org/zap"
)

var errInvalidValue = errors.New("invalid value")

// Update is one classified value destined for an entity path.
type Update struct {
	EntityID       string
	Path           string
	Value          any
	Classification blueprint.Classification
	// Default is the blueprint input default for BlueprintInput updates.
	Default any
}

// ApplyUpdate is the single mutation primitive for answers. Paths are
// backend_type, values.<path>, config.<name>, env.config.<name>, inputs, steps.<step>,
// steps.<step>.<field>, steps.<step>.variables and
// steps.<step>.variables.<name>.
func (c *Compiler) ApplyUpdate(u Update) error {
	e, err := c.graph.MustEntity(u.EntityID)
	if err != nil {
		return err
	}
	path, err := blueprint.ParsePath(u.Path)
	if err != nil {
		return fmt.Errorf("update %s %q: %w", u.EntityID, u.Path, err)
	}
	contract, _ := c.registry.ContractFor(e.BackendType)

	switch {
	case path.Root == blueprint.RootEnvConfig:
		err = c.setGlobal(path.Rest, u)
	case path.Root == blueprint.RootInputs:
		c.promoteInputs(e, contract)
	case path.Root == blueprint.RootBackend:
		err = c.setBackend(e, u)
	default:
		err = c.dispatch(e, contract, path, u)
	}
	if err != nil {
		return fmt.Errorf("update %s %q: %w", u.EntityID, u.Path, err)
	}

	c.metrics.RecordUpdate(u.Classification.String())
	c.logger.Debug("Update applied",
		zap.String("entity_id", u.EntityID),
		zap.String("path", u.Path),
		zap.Stringer("classification", u.Classification))
	return nil
}

func (c *Compiler) dispatch(e *blueprint.Entity, contract *contracts.Contract, path blueprint.ParsedPath, u Update) error {
	infra := contract != nil && contract.Style == contracts.StyleInfrastructure

	switch u.Classification {
	case blueprint.VariableReference:
		s, ok := u.Value.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return fmt.Errorf("variable reference must be a scope path: %w", errInvalidValue)
		}
		ref := blueprint.Expr(blueprint.Wrap(s))
		if infra {
			return c.place(e, contract, path, ref)
		}
		return c.write(e, contract, path, ref)

	case blueprint.BlueprintInput:
		name, err := inputName(u.Value)
		if err != nil {
			return err
		}
		c.declare(name, u.Default)
		return c.wireInput(e, contract, path, name)

	case blueprint.EntityInput:
		name := targetName(path)
		if infra {
			if !c.graph.Inputs.Has(name) {
				c.graph.Inputs.Set(name, blueprint.FromAny(u.Value))
			}
			return c.wireInput(e, contract, path, name)
		}
		e.Inputs.Set(name, blueprint.FromAny(u.Value))
		if path.Root == blueprint.RootConfig {
			return nil
		}
		return c.write(e, contract, path, blueprint.Expr(blueprint.EntityRef(name)))

	default:
		value := blueprint.FromAny(u.Value)
		if infra && path.Variable != "" && !value.IsExpr() {
			// Template inputs of infrastructure become blueprint inputs
			// defaulting to the literal.
			if !c.graph.Inputs.Has(path.Variable) {
				c.graph.Inputs.Set(path.Variable, value)
			}
			return c.wireInput(e, contract, path, path.Variable)
		}
		if infra {
			return c.place(e, contract, path, value)
		}
		return c.write(e, contract, path, value)
	}
}

// wireInput points the target at blueprint input name.
func (c *Compiler) wireInput(e *blueprint.Entity, contract *contracts.Contract, path blueprint.ParsedPath, name string) error {
	return c.place(e, contract, path, blueprint.Expr(blueprint.EnvRef(name)))
}

// place writes value at path. Variable targets are mirrored into every
// existing variable-carrying step of the entity.
func (c *Compiler) place(e *blueprint.Entity, contract *contracts.Contract, path blueprint.ParsedPath, value blueprint.Value) error {
	if err := c.write(e, contract, path, value); err != nil {
		return err
	}
	if path.Variable != "" {
		c.mirror(e, contract, path.Variable, value)
	}
	return nil
}

func (c *Compiler) mirror(e *blueprint.Entity, contract *contracts.Contract, variable string, value blueprint.Value) {
	if contract == nil {
		return
	}
	for _, name := range contract.VariableSteps() {
		if step, ok := e.Step(name); ok {
			step.SetVariable(variable, value.Clone())
		}
	}
}

func (c *Compiler) write(e *blueprint.Entity, contract *contracts.Contract, path blueprint.ParsedPath, value blueprint.Value) error {
	switch path.Root {
	case blueprint.RootValues:
		return e.Values.SetPath(path.Rest, value)
	case blueprint.RootConfig:
		e.Inputs.Set(path.Rest, value)
		return nil
	case blueprint.RootSteps:
		return c.writeStep(e, contract, path, value)
	}
	return blueprint.ErrInvalidPath
}

func (c *Compiler) writeStep(e *blueprint.Entity, contract *contracts.Contract, path blueprint.ParsedPath, value blueprint.Value) error {
	switch {
	case path.Variable != "":
		c.ensureStep(e, path.Step).SetVariable(path.Variable, value)
		return nil

	case path.Field == blueprint.VariablesField:
		vars := []blueprint.Variable{}
		if k := value.Kind(); k == blueprint.KindList || k == blueprint.KindMap {
			parsed, err := blueprint.VariablesFromValue(value)
			if err != nil {
				return err
			}
			vars = parsed
		}
		c.ensureStep(e, path.Step).Variables = vars
		return nil

	case path.Field != "":
		c.ensureStep(e, path.Step).Fields.Set(path.Field, value)
		return nil
	}

	if _, ok := value.Map(); ok {
		step, err := blueprint.StepFromValue(value)
		if err != nil {
			return err
		}
		e.Steps.Set(path.Step, step)
		return nil
	}
	id, ok := value.Literal()
	if !ok || id == "" {
		return fmt.Errorf("step %q needs a step object or a pipeline id, got %s: %w", path.Step, value.Kind(), errInvalidValue)
	}
	field := "pipeline"
	if contract != nil && contract.PipelineField != "" {
		field = contract.PipelineField
	}
	e.Steps.Set(path.Step, blueprint.PipelineStep(field, id))
	return nil
}

func (c *Compiler) ensureStep(e *blueprint.Entity, name string) *blueprint.Step {
	step, ok := e.Step(name)
	if !ok {
		step = blueprint.NewStep()
		e.Steps.Set(name, step)
	}
	return step
}

// setBackend corrects the backend type of an entity. Only registered
// backend types are accepted.
func (c *Compiler) setBackend(e *blueprint.Entity, u Update) error {
	s, ok := u.Value.(string)
	if !ok {
		return fmt.Errorf("backend type must be a string: %w", errInvalidValue)
	}
	s = strings.TrimSpace(s)
	if _, known := c.registry.ContractFor(s); !known {
		return fmt.Errorf("backend type %q not one of %s: %w", s, strings.Join(c.registry.BackendTypes(), ", "), errInvalidValue)
	}
	e.BackendType = s
	return nil
}

// setGlobal sets or clears the default of a blueprint input. A null value
// makes the input required; inputs are never removed.
func (c *Compiler) setGlobal(name string, u Update) error {
	switch u.Classification {
	case blueprint.VariableReference:
		s, ok := u.Value.(string)
		if !ok {
			return fmt.Errorf("variable reference must be a scope path: %w", errInvalidValue)
		}
		c.graph.Inputs.Set(name, blueprint.Expr(blueprint.Wrap(s)))
	case blueprint.BlueprintInput:
		c.declare(name, u.Default)
	default:
		c.graph.Inputs.Set(name, blueprint.FromAny(u.Value))
	}
	return nil
}

func (c *Compiler) declare(name string, def any) {
	if def != nil {
		c.graph.Inputs.Set(name, blueprint.FromAny(def))
		return
	}
	c.graph.Inputs.Declare(name)
}

// promoteInputs moves entity inputs of an infrastructure entity to
// blueprint inputs, keeping literal values as defaults. Inputs the entity's
// template requires are wired into its variable steps.
func (c *Compiler) promoteInputs(e *blueprint.Entity, contract *contracts.Contract) {
	required := make(map[string]bool)
	if contract != nil {
		raw, _ := e.StepField(contract.Lifecycle.Create, contract.TemplateField)
		if id, ok := raw.Literal(); ok {
			if tmpl, ok := c.kb.Template(id); ok {
				for _, name := range tmpl.RequiredInputs() {
					required[name] = true
				}
			}
		}
	}

	for _, name := range e.Inputs.Keys() {
		v, _ := e.Inputs.Get(name)
		switch {
		case v.IsExpr() || v.IsNull():
			c.graph.Inputs.Declare(name)
		default:
			if def, ok := c.graph.Inputs.Default(name); !ok || def.IsNull() {
				c.graph.Inputs.Set(name, v)
			}
		}
		if required[name] {
			c.mirror(e, contract, name, blueprint.Expr(blueprint.EnvRef(name)))
		}
	}
	e.Inputs.Clear()
}

// inputName accepts "name", "env.config.name" or "${{env.config.name}}".
func inputName(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("blueprint input name must be a string: %w", errInvalidValue)
	}
	s = strings.TrimSpace(s)
	if refs := blueprint.Expressions(s); len(refs) == 1 && refs[0].Scope == blueprint.ScopeEnvConfig {
		s = refs[0].Name
	}
	s = strings.TrimPrefix(s, string(blueprint.ScopeEnvConfig)+".")
	if s == "" || strings.ContainsAny(s, " \t.") {
		return "", fmt.Errorf("blueprint input name %q: %w", s, errInvalidValue)
	}
	return s, nil
}

// targetName names the input an entity-input answer creates.
func targetName(path blueprint.ParsedPath) string {
	switch {
	case path.Variable != "":
		return path.Variable
	case path.Field != "":
		return path.Field
	case path.Rest != "":
		segs := blueprint.SplitPath(path.Rest)
		return segs[len(segs)-1]
	}
	return path.Step
}
