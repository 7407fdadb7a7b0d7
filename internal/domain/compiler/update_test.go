package compiler

import (
	"testing"

	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stack returns a compiler holding ns_e1 (infrastructure) and frontend_e2
// (deployment) after the first validation pass.
func stack(t *testing.T) *Compiler {
	t.Helper()
	c := newTestCompiler(t, nil)
	start(t, c, stackIntent)
	return c
}

func variable(t *testing.T, c *Compiler, id, step, name string) blueprint.Value {
	t.Helper()
	e, ok := c.Graph().Entity(id)
	require.True(t, ok)
	s, ok := e.Step(step)
	require.True(t, ok, step)
	v, ok := s.Variable(name)
	require.True(t, ok, name)
	return v
}

func TestBlueprintInputMirrorsIntoSiblingSteps(t *testing.T) {
	c := stack(t)
	require.NoError(t, c.ApplyUpdate(Update{
		EntityID:       "ns_e1",
		Path:           "steps.destroy.variables.name",
		Value:          "namespace_name",
		Classification: blueprint.BlueprintInput,
	}))

	def, ok := c.Graph().Inputs.Default("namespace_name")
	require.True(t, ok)
	assert.True(t, def.IsNull())

	want := blueprint.Expr("${{env.config.namespace_name}}")
	assert.Equal(t, want, variable(t, c, "ns_e1", "apply", "name"))
	assert.Equal(t, want, variable(t, c, "ns_e1", "destroy", "name"))
}

func TestInfrastructureVariablesMirror(t *testing.T) {
	tests := []struct {
		name string
		u    Update
		want blueprint.Value
	}{
		{
			name: "variable reference",
			u: Update{EntityID: "ns_e1", Path: "steps.apply.variables.name",
				Value: "env.config.ns_name", Classification: blueprint.VariableReference},
			want: blueprint.Expr("${{env.config.ns_name}}"),
		},
		{
			name: "literal expression",
			u:    Update{EntityID: "ns_e1", Path: "steps.apply.variables.name", Value: "${{env.config.ns_name}}"},
			want: blueprint.Expr("${{env.config.ns_name}}"),
		},
		{
			name: "reference written on destroy",
			u: Update{EntityID: "ns_e1", Path: "steps.destroy.variables.name",
				Value: "${{dependencies.db_e3.output.name}}", Classification: blueprint.VariableReference},
			want: blueprint.Expr("${{dependencies.db_e3.output.name}}"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := stack(t)
			require.NoError(t, c.ApplyUpdate(tt.u))
			assert.Equal(t, tt.want, variable(t, c, "ns_e1", "apply", "name"))
			assert.Equal(t, tt.want, variable(t, c, "ns_e1", "destroy", "name"))
			assert.False(t, c.Graph().Inputs.Has("name"))
		})
	}
}

func TestDeploymentReferenceNotMirrored(t *testing.T) {
	c := stack(t)
	require.NoError(t, c.ApplyUpdate(Update{EntityID: "frontend_e2", Path: "steps.apply.variables.tag",
		Value: "env.config.tag", Classification: blueprint.VariableReference}))

	assert.Equal(t, blueprint.Expr("${{env.config.tag}}"), variable(t, c, "frontend_e2", "apply", "tag"))
	fe, _ := c.Graph().Entity("frontend_e2")
	if step, ok := fe.Step("destroy"); ok {
		_, set := step.Variable("tag")
		assert.False(t, set)
	}
}

func TestBlueprintInputWithDefault(t *testing.T) {
	c := stack(t)
	require.NoError(t, c.ApplyUpdate(Update{
		EntityID:       "frontend_e2",
		Path:           "values.environment.identifier",
		Value:          "${{env.config.cluster}}",
		Classification: blueprint.BlueprintInput,
		Default:        "mycluster",
	}))

	def, _ := c.Graph().Inputs.Default("cluster")
	assert.Equal(t, blueprint.String("mycluster"), def)
	fe, _ := c.Graph().Entity("frontend_e2")
	v, _ := fe.Value("environment.identifier")
	assert.Equal(t, blueprint.Expr("${{env.config.cluster}}"), v)
}

func TestApplyUpdate(t *testing.T) {
	tests := []struct {
		name  string
		u     Update
		check func(t *testing.T, c *Compiler)
	}{
		{
			name: "variable reference on values",
			u: Update{EntityID: "frontend_e2", Path: "values.environment.infra.namespace",
				Value: "dependencies.ns_e1.output.name", Classification: blueprint.VariableReference},
			check: func(t *testing.T, c *Compiler) {
				fe, _ := c.Graph().Entity("frontend_e2")
				v, _ := fe.Value("environment.infra.namespace")
				assert.Equal(t, blueprint.Expr("${{dependencies.ns_e1.output.name}}"), v)
			},
		},
		{
			name: "entity input on deployment",
			u:    Update{EntityID: "frontend_e2", Path: "config.replicas", Value: 3, Classification: blueprint.EntityInput},
			check: func(t *testing.T, c *Compiler) {
				fe, _ := c.Graph().Entity("frontend_e2")
				v, ok := fe.Inputs.Get("replicas")
				require.True(t, ok)
				assert.Equal(t, blueprint.Int(3), v)
			},
		},
		{
			name: "entity input on deployment value",
			u:    Update{EntityID: "frontend_e2", Path: "steps.apply.variables.version", Value: "v2", Classification: blueprint.EntityInput},
			check: func(t *testing.T, c *Compiler) {
				fe, _ := c.Graph().Entity("frontend_e2")
				v, _ := fe.Inputs.Get("version")
				assert.Equal(t, blueprint.String("v2"), v)
				assert.Equal(t, blueprint.Expr("${{entity.config.version}}"), variable(t, c, "frontend_e2", "apply", "version"))
			},
		},
		{
			name: "entity input on infrastructure becomes blueprint input",
			u:    Update{EntityID: "ns_e1", Path: "steps.apply.variables.name", Value: "team-ns", Classification: blueprint.EntityInput},
			check: func(t *testing.T, c *Compiler) {
				ns, _ := c.Graph().Entity("ns_e1")
				assert.Equal(t, 0, ns.Inputs.Len())
				def, _ := c.Graph().Inputs.Default("name")
				assert.Equal(t, blueprint.String("team-ns"), def)
				assert.Equal(t, blueprint.Expr("${{env.config.name}}"), variable(t, c, "ns_e1", "destroy", "name"))
			},
		},
		{
			name: "literal variable on deployment stays literal",
			u:    Update{EntityID: "frontend_e2", Path: "steps.apply.variables.replicas", Value: 2},
			check: func(t *testing.T, c *Compiler) {
				assert.Equal(t, blueprint.Int(2), variable(t, c, "frontend_e2", "apply", "replicas"))
				assert.False(t, c.Graph().Inputs.Has("replicas"))
			},
		},
		{
			name: "pipeline id replaces step",
			u:    Update{EntityID: "ns_e1", Path: "steps.delete", Value: "RunIaCM"},
			check: func(t *testing.T, c *Compiler) {
				ns, _ := c.Graph().Entity("ns_e1")
				p, ok := ns.StepField("delete", "pipeline")
				require.True(t, ok)
				assert.Equal(t, blueprint.String("RunIaCM"), p)
				step, _ := ns.Step("delete")
				assert.NotNil(t, step.Variables)
			},
		},
		{
			name: "step object replaces step",
			u: Update{EntityID: "ns_e1", Path: "steps.apply",
				Value: map[string]any{"pipeline": "Custom", "variables": []any{map[string]any{"name": "name", "value": "x"}}}},
			check: func(t *testing.T, c *Compiler) {
				ns, _ := c.Graph().Entity("ns_e1")
				p, _ := ns.StepField("apply", "pipeline")
				assert.Equal(t, blueprint.String("Custom"), p)
				assert.Equal(t, blueprint.String("x"), variable(t, c, "ns_e1", "apply", "name"))
			},
		},
		{
			name: "step field",
			u:    Update{EntityID: "ns_e1", Path: "steps.create.version", Value: "v2"},
			check: func(t *testing.T, c *Compiler) {
				ns, _ := c.Graph().Entity("ns_e1")
				v, _ := ns.StepField("create", "version")
				assert.Equal(t, blueprint.String("v2"), v)
			},
		},
		{
			name: "empty variables list",
			u:    Update{EntityID: "ns_e1", Path: "steps.delete.variables", Value: []any{}},
			check: func(t *testing.T, c *Compiler) {
				ns, _ := c.Graph().Entity("ns_e1")
				step, ok := ns.Step("delete")
				require.True(t, ok)
				assert.NotNil(t, step.Variables)
				assert.Empty(t, step.Variables)
			},
		},
		{
			name: "global input default",
			u:    Update{EntityID: "ns_e1", Path: "env.config.region", Value: "eu-west-1"},
			check: func(t *testing.T, c *Compiler) {
				def, _ := c.Graph().Inputs.Default("region")
				assert.Equal(t, blueprint.String("eu-west-1"), def)
			},
		},
		{
			name: "global input cleared to required",
			u:    Update{EntityID: "ns_e1", Path: "env.config.region", Value: nil},
			check: func(t *testing.T, c *Compiler) {
				def, ok := c.Graph().Inputs.Default("region")
				require.True(t, ok)
				assert.True(t, def.IsNull())
			},
		},
		{
			name: "nested value",
			u:    Update{EntityID: "frontend_e2", Path: "values.environment.infra.extra.zone", Value: "a"},
			check: func(t *testing.T, c *Compiler) {
				fe, _ := c.Graph().Entity("frontend_e2")
				v, _ := fe.Value("environment.infra.extra.zone")
				assert.Equal(t, blueprint.String("a"), v)
				infra, _ := fe.Value("environment.infra.identifier")
				assert.Equal(t, blueprint.String("ssemteamdelegate"), infra)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := stack(t)
			require.NoError(t, c.ApplyUpdate(tt.u))
			tt.check(t, c)
		})
	}
}

func TestApplyUpdateErrors(t *testing.T) {
	tests := []struct {
		name   string
		u      Update
		target error
	}{
		{"unknown entity", Update{EntityID: "ghost_e9", Path: "values.x", Value: "y"}, blueprint.ErrUnknownEntity},
		{"bad path", Update{EntityID: "ns_e1", Path: "somewhere.else", Value: "y"}, blueprint.ErrInvalidPath},
		{"step needs a pipeline id", Update{EntityID: "ns_e1", Path: "steps.apply", Value: 7}, errInvalidValue},
		{"reference needs text", Update{EntityID: "ns_e1", Path: "values.workspace", Value: 7, Classification: blueprint.VariableReference}, errInvalidValue},
		{"input name with spaces", Update{EntityID: "ns_e1", Path: "values.workspace", Value: "my input", Classification: blueprint.BlueprintInput}, errInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := stack(t)
			err := c.ApplyUpdate(tt.u)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestBackendTypeCorrection(t *testing.T) {
	c := newTestCompiler(t, nil)
	resp := start(t, c, `{"entities": [{"id": "ns", "backend_type": "HarnessIACN", "template": "TempNamespace"}]}`)
	require.Equal(t, []string{"backend_type"}, paths(resp.Findings))

	err := c.ApplyUpdate(Update{EntityID: "ns_e1", Path: "backend_type", Value: "Nope"})
	assert.ErrorIs(t, err, errInvalidValue)

	require.NoError(t, c.ApplyUpdate(Update{EntityID: "ns_e1", Path: "backend_type", Value: " HarnessIACM "}))
	ns, _ := c.Graph().Entity("ns_e1")
	assert.Equal(t, "HarnessIACM", ns.BackendType)
}

func TestPromoteInputsWiresTemplateInputs(t *testing.T) {
	c := newTestCompiler(t, nil)
	start(t, c, `{"entities": [{"id": "ns", "backend_type": "HarnessIACM", "template": "TempNamespace",
  "inputs": {"name": "team-ns", "owner": "${{env.config.owner}}"}}]}`)

	require.NoError(t, c.ApplyUpdate(Update{EntityID: "ns_e1", Path: "inputs"}))

	ns, _ := c.Graph().Entity("ns_e1")
	assert.Equal(t, 0, ns.Inputs.Len())
	def, _ := c.Graph().Inputs.Default("name")
	assert.Equal(t, blueprint.String("team-ns"), def)
	owner, ok := c.Graph().Inputs.Default("owner")
	require.True(t, ok)
	assert.True(t, owner.IsNull())

	assert.Equal(t, blueprint.Expr("${{env.config.name}}"), variable(t, c, "ns_e1", "apply", "name"))
	assert.Equal(t, blueprint.Expr("${{env.config.name}}"), variable(t, c, "ns_e1", "destroy", "name"))
}

func TestInputName(t *testing.T) {
	tests := []struct {
		in      any
		want    string
		wantErr bool
	}{
		{"region", "region", false},
		{"env.config.region", "region", false},
		{"${{ env.config.region }}", "region", false},
		{" region ", "region", false},
		{"", "", true},
		{42, "", true},
		{"a.b", "", true},
	}
	for _, tt := range tests {
		got, err := inputName(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "%v", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
