package contracts

import (
	"sort"

	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
)

// Known backend types.
const (
	BackendHarnessIACM = "HarnessIACM"
	BackendCatalog     = "Catalog"
)

// Style separates infrastructure-as-code backends from deployment backends.
// Infrastructure entities never carry entity-scoped inputs.
type Style uint8

const (
	StyleInfrastructure Style = iota
	StyleDeployment
)

func (s Style) String() string {
	if s == StyleDeployment {
		return "deployment"
	}
	return "infrastructure"
}

// VariableSource says where the variables of a step come from.
type VariableSource uint8

const (
	// SourceExplicit steps permit only the scopes listed in AllowedScopes.
	SourceExplicit VariableSource = iota
	// SourcePipeline steps delegate input checks to pipeline metadata and
	// accept every expression scope.
	SourcePipeline
)

// VariableSpec describes the variables a step accepts.
type VariableSpec struct {
	Source        VariableSource
	AllowedScopes []blueprint.Scope
}

// Scopes returns the expression scopes permitted in the step.
func (v *VariableSpec) Scopes() []blueprint.Scope {
	if v == nil {
		return nil
	}
	if v.Source == SourcePipeline {
		return blueprint.AllScopes
	}
	return v.AllowedScopes
}

// StepContract declares one lifecycle step.
type StepContract struct {
	Name      string
	Required  bool
	Fields    []string
	Variables *VariableSpec
}

// Lifecycle names the steps that play the create, apply and destroy roles.
type Lifecycle struct {
	Create  string
	Apply   string
	Destroy string
}

// Mutating returns the steps that run pipelines against the resource.
func (l Lifecycle) Mutating() []string {
	var out []string
	for _, s := range []string{l.Apply, l.Destroy} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Placement locates where a deployment entity names its target.
type Placement struct {
	EnvironmentPath    string // under values
	InfrastructurePath string // under values
	BindingPrefix      string // bindings live at values.<prefix>.<binding>
}

// BindingPath returns the values path of a binding.
func (p Placement) BindingPath(binding string) string {
	return blueprint.JoinPath(p.BindingPrefix, binding)
}

// Contract is the required shape of one backend type.
type Contract struct {
	BackendType    string
	Style          Style
	RequiredValues []string // dot paths under values
	Steps          []StepContract
	Lifecycle      Lifecycle

	TemplateField  string
	VersionField   string
	DefaultVersion string
	PipelineField  string
	IdentifierPath string // values path naming a component, deployment only
	Placement      Placement
}

// Step returns the contract of a step.
func (c *Contract) Step(name string) (StepContract, bool) {
	for _, s := range c.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepContract{}, false
}

// AllowedScopes returns the scopes a step's variables may use. Steps the
// contract does not know allow none.
func (c *Contract) AllowedScopes(step string) []blueprint.Scope {
	s, ok := c.Step(step)
	if !ok {
		return nil
	}
	return s.Variables.Scopes()
}

// PipelineSourced reports whether a step takes its variables from a pipeline.
func (c *Contract) PipelineSourced(step string) bool {
	s, ok := c.Step(step)
	return ok && s.Variables != nil && s.Variables.Source == SourcePipeline
}

// VariableSteps returns the steps whose variables can carry template inputs,
// in contract order.
func (c *Contract) VariableSteps() []string {
	var out []string
	for _, s := range c.Steps {
		if s.Variables != nil {
			out = append(out, s.Name)
		}
	}
	return out
}

// Registry looks contracts up by backend type. It is immutable once built.
type Registry struct {
	contracts map[string]*Contract
}

// NewRegistry builds a registry from contracts.
func NewRegistry(contracts ...*Contract) *Registry {
	r := &Registry{contracts: make(map[string]*Contract, len(contracts))}
	for _, c := range contracts {
		r.contracts[c.BackendType] = c
	}
	return r
}

// Default returns the registry with the built-in backends.
func Default() *Registry {
	return NewRegistry(HarnessIACM(), Catalog())
}

// ContractFor returns the contract for backendType.
func (r *Registry) ContractFor(backendType string) (*Contract, bool) {
	c, ok := r.contracts[backendType]
	return c, ok
}

// BackendTypes lists the registered backends, sorted.
func (r *Registry) BackendTypes() []string {
	out := make([]string, 0, len(r.contracts))
	for name := range r.contracts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

var pipelineVariables = &VariableSpec{Source: SourcePipeline}

// HarnessIACM is the infrastructure-as-code backend.
func HarnessIACM() *Contract {
	return &Contract{
		BackendType:    BackendHarnessIACM,
		Style:          StyleInfrastructure,
		RequiredValues: []string{"workspace"},
		Steps: []StepContract{
			{Name: "create", Required: true, Fields: []string{"template", "version"}},
			{Name: "apply", Required: true, Fields: []string{"pipeline"}, Variables: pipelineVariables},
			{Name: "destroy", Required: true, Fields: []string{"pipeline"}, Variables: pipelineVariables},
			{Name: "delete", Required: false},
		},
		Lifecycle:      Lifecycle{Create: "create", Apply: "apply", Destroy: "destroy"},
		TemplateField:  "template",
		VersionField:   "version",
		DefaultVersion: "v1",
		PipelineField:  "pipeline",
	}
}

// Catalog is the service deployment backend.
func Catalog() *Contract {
	return &Contract{
		BackendType: BackendCatalog,
		Style:       StyleDeployment,
		RequiredValues: []string{
			"identifier",
			"environment.identifier",
			"environment.infra.identifier",
		},
		Steps: []StepContract{
			{Name: "apply", Required: true, Fields: []string{"pipeline"}, Variables: pipelineVariables},
			{Name: "destroy", Required: true, Fields: []string{"pipeline"}, Variables: pipelineVariables},
		},
		Lifecycle:      Lifecycle{Apply: "apply", Destroy: "destroy"},
		PipelineField:  "pipeline",
		IdentifierPath: "identifier",
		Placement: Placement{
			EnvironmentPath:    "environment.identifier",
			InfrastructurePath: "environment.infra.identifier",
			BindingPrefix:      "environment.infra",
		},
	}
}
