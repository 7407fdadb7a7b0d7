package validator

import (
	"testing"

	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/contracts"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipelineStep(pipeline string, vars ...blueprint.Variable) *blueprint.Step {
	s := blueprint.PipelineStep("pipeline", pipeline)
	s.Variables = append(s.Variables, vars...)
	return s
}

func completeNamespace() *blueprint.Entity {
	e := blueprint.NewEntity("ns", contracts.BackendHarnessIACM)
	e.Values.Set("workspace", blueprint.String("team-ws"))
	create := blueprint.NewStep()
	create.Fields.Set("template", blueprint.String("TempNamespace"))
	create.Fields.Set("version", blueprint.String("v1"))
	e.Steps.Set("create", create)
	name := blueprint.Variable{Name: "name", Value: blueprint.Expr(blueprint.EnvRef("ns_name"))}
	e.Steps.Set("apply", pipelineStep("RunIaCM", name))
	e.Steps.Set("destroy", pipelineStep("RunIaCM", name))
	return e
}

func completeFrontend() *blueprint.Entity {
	e := blueprint.NewEntity("frontend", contracts.BackendCatalog)
	e.Values.Set("identifier", blueprint.String("frontend"))
	set := func(path, v string) {
		_ = e.Values.SetPath(path, blueprint.String(v))
	}
	set("environment.identifier", "mycluster")
	set("environment.infra.identifier", "ssemteamdelegate")
	set("environment.infra.namespace", blueprint.DependencyRef("ns", "name"))
	e.Steps.Set("apply", pipelineStep("DeployService"))
	e.Steps.Set("destroy", pipelineStep("UninstallService"))
	e.AddDependency("ns")
	return e
}

func completeGraph(t *testing.T) *blueprint.Graph {
	t.Helper()
	g := blueprint.NewGraph()
	g.Inputs.Declare("ns_name")
	require.NoError(t, g.AddEntity(completeNamespace()))
	require.NoError(t, g.AddEntity(completeFrontend()))
	return g
}

func newValidator(opts Options) *Validator {
	return New(contracts.Default(), knowledge.Default(), opts)
}

func paths(findings []blueprint.MissingRequirement) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.EntityID+":"+f.Path)
	}
	return out
}

func TestCompleteGraphHasNoFindings(t *testing.T) {
	g := completeGraph(t)
	v := newValidator(Options{})

	assert.Empty(t, v.Validate(g))
	for _, e := range g.Entities() {
		assert.True(t, v.Satisfied(g, e), e.ID)
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	g := blueprint.NewGraph()
	require.NoError(t, g.AddEntity(blueprint.NewEntity("a", contracts.BackendHarnessIACM)))
	require.NoError(t, g.AddEntity(blueprint.NewEntity("b", contracts.BackendCatalog)))
	require.NoError(t, g.AddEntity(blueprint.NewEntity("c", "Mystery")))

	v := newValidator(Options{})
	first := v.Validate(g)
	second := v.Validate(g)
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestUnknownBackend(t *testing.T) {
	g := blueprint.NewGraph()
	e := blueprint.NewEntity("x", "Mystery")
	e.Inputs.Set("anything", blueprint.String("${{nowhere.at.all}}"))
	require.NoError(t, g.AddEntity(e))

	findings := newValidator(Options{}).Validate(g)
	require.Len(t, findings, 1)
	assert.Equal(t, "backend_type", findings[0].Path)
	assert.Equal(t, []string{contracts.BackendCatalog, contracts.BackendHarnessIACM}, findings[0].Options)
}

func TestContractFindings(t *testing.T) {
	tests := []struct {
		name   string
		entity func() *blueprint.Entity
		want   []string
	}{
		{
			name:   "empty infrastructure entity",
			entity: func() *blueprint.Entity { return blueprint.NewEntity("ns", contracts.BackendHarnessIACM) },
			want:   []string{"ns:values.workspace", "ns:steps.create", "ns:steps.apply", "ns:steps.destroy"},
		},
		{
			name: "empty deployment entity",
			entity: func() *blueprint.Entity {
				return blueprint.NewEntity("fe", contracts.BackendCatalog)
			},
			want: []string{
				"fe:values.identifier",
				"fe:values.environment.identifier",
				"fe:values.environment.infra.identifier",
				"fe:steps.apply",
				"fe:steps.destroy",
			},
		},
		{
			name: "empty string counts as missing",
			entity: func() *blueprint.Entity {
				e := completeNamespace()
				e.Values.Set("workspace", blueprint.String(""))
				return e
			},
			want: []string{"ns:values.workspace"},
		},
		{
			name: "missing step field and template reported once",
			entity: func() *blueprint.Entity {
				e := completeNamespace()
				create, _ := e.Step("create")
				create.Fields.Delete("template")
				return e
			},
			want: []string{"ns:steps.create.template"},
		},
		{
			name: "empty template",
			entity: func() *blueprint.Entity {
				e := completeNamespace()
				create, _ := e.Step("create")
				create.Fields.Set("template", blueprint.String(""))
				return e
			},
			want: []string{"ns:steps.create.template"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := blueprint.NewGraph()
			g.Inputs.Declare("ns_name")
			require.NoError(t, g.AddEntity(tt.entity()))
			assert.Equal(t, tt.want, paths(newValidator(Options{}).Validate(g)))
		})
	}
}

func TestInfrastructureRules(t *testing.T) {
	t.Run("entity inputs are rejected", func(t *testing.T) {
		g := completeGraph(t)
		ns, _ := g.Entity("ns")
		ns.Inputs.Set("name", blueprint.String("team"))
		ns.Inputs.Set("size", blueprint.Int(3))

		findings := newValidator(Options{}).Validate(g)
		require.Len(t, findings, 1)
		assert.Equal(t, "inputs", findings[0].Path)
		assert.Contains(t, findings[0].Reason, "name, size")
	})

	t.Run("template input must be wired once apply exists", func(t *testing.T) {
		g := blueprint.NewGraph()
		e := completeNamespace()
		apply, _ := e.Step("apply")
		apply.Variables = []blueprint.Variable{}
		destroy, _ := e.Step("destroy")
		destroy.Variables = []blueprint.Variable{}
		require.NoError(t, g.AddEntity(e))

		findings := newValidator(Options{}).Validate(g)
		assert.Equal(t, []string{"ns:steps.apply.variables.name"}, paths(findings))
	})

	t.Run("wiring in destroy is enough", func(t *testing.T) {
		g := blueprint.NewGraph()
		g.Inputs.Declare("ns_name")
		e := completeNamespace()
		apply, _ := e.Step("apply")
		apply.Variables = []blueprint.Variable{}
		require.NoError(t, g.AddEntity(e))

		assert.Empty(t, newValidator(Options{}).Validate(g))
	})

	t.Run("unknown template is accepted", func(t *testing.T) {
		g := blueprint.NewGraph()
		e := completeNamespace()
		create, _ := e.Step("create")
		create.Fields.Set("template", blueprint.String("SomethingExternal"))
		for _, name := range []string{"apply", "destroy"} {
			s, _ := e.Step(name)
			s.Variables = []blueprint.Variable{}
		}
		require.NoError(t, g.AddEntity(e))

		assert.Empty(t, newValidator(Options{}).Validate(g))
	})
}

func TestExpressionFindings(t *testing.T) {
	tests := []struct {
		name  string
		value string
		deps  []string
		want  string
	}{
		{"missing global input", "${{env.config.absent}}", nil, "ns:env.config.absent"},
		{"missing entity input", "${{entity.config.absent}}", nil, "ns:config.absent"},
		{"undeclared dependency", "${{dependencies.db.output.url}}", nil, "ns:steps.apply.variables.extra"},
		{"declared but absent dependency", "${{dependencies.db.output.url}}", []string{"db"}, "ns:steps.apply.variables.extra"},
		{"malformed dependency", "${{dependencies.db.url}}", []string{"db"}, "ns:steps.apply.variables.extra"},
		{"unknown scope", "${{secrets.token}}", nil, "ns:steps.apply.variables.extra"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := blueprint.NewGraph()
			g.Inputs.Declare("ns_name")
			e := completeNamespace()
			for _, dep := range tt.deps {
				e.AddDependency(dep)
			}
			apply, _ := e.Step("apply")
			apply.SetVariable("extra", blueprint.String(tt.value))
			require.NoError(t, g.AddEntity(e))

			assert.Equal(t, []string{tt.want}, paths(newValidator(Options{}).Validate(g)))
		})
	}
}

func TestScopeNotAllowedInCreate(t *testing.T) {
	g := completeGraph(t)
	ns, _ := g.Entity("ns")
	create, _ := ns.Step("create")
	create.SetVariable("name", blueprint.Expr(blueprint.EnvRef("ns_name")))

	findings := newValidator(Options{}).Validate(g)
	require.Len(t, findings, 1)
	assert.Equal(t, "steps.create.variables.name", findings[0].Path)
	assert.Contains(t, findings[0].Reason, "not allowed")
}

func TestValueExpressionsAreChecked(t *testing.T) {
	g := completeGraph(t)
	fe, _ := g.Entity("frontend")
	fe.Dependencies = nil

	findings := newValidator(Options{}).Validate(g)
	assert.Equal(t, []string{"frontend:values.environment.infra.namespace"}, paths(findings))
}

func TestOutputStrictness(t *testing.T) {
	g := completeGraph(t)
	fe, _ := g.Entity("frontend")
	require.NoError(t, fe.Values.SetPath("environment.infra.namespace", blueprint.String(blueprint.DependencyRef("ns", "namespace"))))

	assert.Empty(t, newValidator(Options{Strictness: Structural}).Validate(g))

	findings := newValidator(Options{Strictness: Outputs}).Validate(g)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Reason, "has no output 'namespace'")
}

func TestPipelineInputs(t *testing.T) {
	kb := knowledge.Default()
	kb.Merge(&knowledge.Catalogue{Pipelines: map[string]*knowledge.Pipeline{
		"DeployService": {
			BackendType: contracts.BackendCatalog,
			Inputs: map[string]knowledge.InputSpec{
				"token":  {Required: true},
				"region": {Required: true, Default: "eu"},
				"notes":  {},
			},
		},
	}})

	g := completeGraph(t)
	findings := New(contracts.Default(), kb, Options{}).Validate(g)
	assert.Equal(t, []string{"frontend:steps.apply.variables.token"}, paths(findings))

	fe, _ := g.Entity("frontend")
	apply, _ := fe.Step("apply")
	apply.SetVariable("token", blueprint.Expr(blueprint.EnvRef("ns_name")))
	assert.Empty(t, New(contracts.Default(), kb, Options{}).Validate(g))
}

func TestDeploymentBindings(t *testing.T) {
	t.Run("missing binding on known infrastructure", func(t *testing.T) {
		g := completeGraph(t)
		fe, _ := g.Entity("frontend")
		infra, _ := fe.Values.Lookup("environment.infra")
		m, _ := infra.Map()
		m.Delete("namespace")

		findings := newValidator(Options{}).Validate(g)
		require.Len(t, findings, 1)
		assert.Equal(t, "values.environment.infra.namespace", findings[0].Path)
		assert.Contains(t, findings[0].Reason, "ssemteamdelegate")
	})

	t.Run("unknown infrastructure is accepted", func(t *testing.T) {
		g := completeGraph(t)
		fe, _ := g.Entity("frontend")
		require.NoError(t, fe.Values.SetPath("environment.infra.identifier", blueprint.String("elsewhere")))
		infra, _ := fe.Values.Lookup("environment.infra")
		m, _ := infra.Map()
		m.Delete("namespace")

		assert.Empty(t, newValidator(Options{}).Validate(g))
	})
}

func TestParseStrictness(t *testing.T) {
	s, err := ParseStrictness("OUTPUTS")
	require.NoError(t, err)
	assert.Equal(t, Outputs, s)

	s, err = ParseStrictness("")
	require.NoError(t, err)
	assert.Equal(t, Structural, s)

	_, err = ParseStrictness("paranoid")
	assert.Error(t, err)
}
