package compiler

import (
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/contracts"
	"go.uber.org/zap"
)

// autofill gives apply and destroy steps a pipeline wherever exactly one
// choice exists. Steps that already name a pipeline are left alone.
func (c *Compiler) autofill() {
	for _, e := range c.graph.Entities() {
		contract, ok := c.registry.ContractFor(e.BackendType)
		if !ok || contract.PipelineField == "" {
			continue
		}
		for _, name := range contract.Lifecycle.Mutating() {
			step, exists := e.Step(name)
			if exists {
				if _, has := step.Field(contract.PipelineField); has {
					continue
				}
			}
			pipeline, ok := c.defaultPipeline(e, contract, name)
			if !ok {
				continue
			}
			if !exists {
				e.Steps.Set(name, blueprint.PipelineStep(contract.PipelineField, pipeline))
			} else {
				step.Fields.Set(contract.PipelineField, blueprint.String(pipeline))
				if step.Variables == nil {
					step.Variables = []blueprint.Variable{}
				}
			}
			c.logger.Debug("Pipeline auto-filled",
				zap.String("entity_id", e.ID),
				zap.String("step", name),
				zap.String("pipeline", pipeline))
		}
	}
}

// defaultPipeline prefers the pipeline a known component declares for the
// step, then the only pipeline registered for the backend type.
func (c *Compiler) defaultPipeline(e *blueprint.Entity, contract *contracts.Contract, step string) (string, bool) {
	if contract.IdentifierPath != "" {
		raw, _ := e.Value(contract.IdentifierPath)
		if id, ok := raw.Literal(); ok {
			if comp, ok := c.kb.Component(id); ok && comp.Pipelines[step] != "" {
				return comp.Pipelines[step], true
			}
		}
	}
	if ids := c.kb.PipelinesFor(e.BackendType); len(ids) == 1 {
		return ids[0], true
	}
	return "", false
}
