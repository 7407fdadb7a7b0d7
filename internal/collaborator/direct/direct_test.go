package direct

import (
	"context"
	"testing"

	"github.com/GriffinCanCode/EnvForge/backend/internal/collaborator"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func req(entity, path string) blueprint.MissingRequirement {
	return blueprint.MissingRequirement{EntityID: entity, Path: path, Reason: "missing"}
}

func TestInterpret(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		text      string
		wantValue any
		wantClass blueprint.Classification
		wantError string
	}{
		{
			name:      "plain literal",
			path:      "values.workspace",
			text:      "  dev-workspace ",
			wantValue: "dev-workspace",
		},
		{
			name:      "quoted literal with trailing period",
			path:      "values.workspace",
			text:      `"team ws".`,
			wantValue: "team ws",
		},
		{
			name:      "integer keeps its type",
			path:      "config.replicas",
			text:      "3",
			wantValue: int64(3),
		},
		{
			name:      "leading zero stays a string",
			path:      "config.code",
			text:      "007",
			wantValue: "007",
		},
		{
			name:      "boolean",
			path:      "config.enabled",
			text:      "true",
			wantValue: true,
		},
		{
			name:      "expression is a reference",
			path:      "steps.apply.variables.name",
			text:      "${{ env.config.ns }}",
			wantValue: "${{ env.config.ns }}",
			wantClass: blueprint.VariableReference,
		},
		{
			name:      "bare scope path is wrapped",
			path:      "steps.apply.variables.name",
			text:      "dependencies.ns.output.name",
			wantValue: "${{dependencies.ns.output.name}}",
			wantClass: blueprint.VariableReference,
		},
		{
			name:      "input keyword uses last path segment",
			path:      "values.workspace",
			text:      "make it user input",
			wantValue: "workspace",
			wantClass: blueprint.BlueprintInput,
		},
		{
			name:      "input keyword with explicit name",
			path:      "steps.apply.variables.name",
			text:      "a parameter called Cluster-Name",
			wantValue: "cluster_name",
			wantClass: blueprint.BlueprintInput,
		},
		{
			name:      "identifier with spaces is rejected",
			path:      "steps.apply.pipeline",
			text:      "run the deploy pipeline",
			wantError: collaborator.ErrNoIdentifier,
		},
		{
			name:      "step path becomes a pipeline step",
			path:      "steps.apply",
			text:      "RunIaCM",
			wantValue: map[string]any{"pipeline": "RunIaCM", "variables": []any{}},
		},
		{
			name:      "variables path becomes empty list",
			path:      "steps.apply.variables",
			text:      "none",
			wantValue: []any{},
		},
		{
			name:      "empty answer",
			path:      "values.workspace",
			text:      "   ",
			wantError: ErrEmptyAnswer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Interpret(tt.path, tt.text)
			assert.Equal(t, tt.path, a.Path)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, a.Error)
				assert.True(t, a.Failed())
				return
			}
			assert.Empty(t, a.Error)
			assert.Equal(t, tt.wantValue, a.Value)
			assert.Equal(t, tt.wantClass, a.Classification)
		})
	}
}

func TestExtractIntent(t *testing.T) {
	c := New(nil)
	text := "```json\n" + `{"entities":[{"backend_type":"HarnessIACM","template":"TempNamespace"}],"bindings":{"TempNamespace.values.workspace":"ws"}}` + "\n```"

	intent, err := c.ExtractIntent(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, intent.Entities, 1)
	assert.Equal(t, "TempNamespace", intent.Entities[0].Template)
	assert.Equal(t, []string{"TempNamespace.values.workspace"}, intent.BindingKeys())

	yamlIntent := "entities:\n  - backend_type: Catalog\n    component: frontend\n"
	intent, err = c.ExtractIntent(context.Background(), yamlIntent)
	require.NoError(t, err)
	assert.Equal(t, "frontend", intent.Entities[0].Component)

	_, err = c.ExtractIntent(context.Background(), `{"entities":[{"template":"x"}]}`)
	assert.Error(t, err, "backend_type is required")
}

func TestDetectEntities(t *testing.T) {
	c := New(nil)
	ctx := context.Background()

	d, err := c.DetectEntities(ctx, "dev-workspace", []string{"ns_e1"})
	require.NoError(t, err)
	assert.Empty(t, d.NewEntities)

	d, err = c.DetectEntities(ctx, `{"new_entities":[{"id":"ns_e1","backend_type":"HarnessIACM"},{"backend_type":"Catalog","component":"frontend"}]}`, []string{"ns_e1"})
	require.NoError(t, err)
	require.Len(t, d.NewEntities, 1)
	assert.Equal(t, "frontend", d.NewEntities[0].Component)
}

func TestFormulate(t *testing.T) {
	c := New(nil)
	ctx := context.Background()
	ec := &collaborator.EntityContext{ID: "fe", BackendType: "Catalog"}

	r := req("fe", "values.identifier")
	r.Options = []string{"a", "b"}
	q, err := c.Formulate(ctx, r, ec)
	require.NoError(t, err)
	assert.Equal(t, "Entity 'fe' (Catalog) needs 'values.identifier': missing. Options: a, b.", q)

	batch, err := c.FormulateBatch(ctx, []blueprint.MissingRequirement{req("fe", "values.a"), req("fe", "values.b")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Entity 'fe' needs 2 values:\n- values.a: missing\n- values.b: missing", batch)
}

func TestParseAnswer(t *testing.T) {
	c := New(nil)
	ctx := context.Background()
	r := req("ns", "values.workspace")

	a, err := c.ParseAnswer(ctx, `{"value":"ws","classification":"literal"}`, r, nil)
	require.NoError(t, err)
	assert.Equal(t, "values.workspace", a.Path)
	assert.Equal(t, "ws", a.Value)

	a, err = c.ParseAnswer(ctx, `{"value":null,"error":"no idea"}`, r, nil)
	require.NoError(t, err)
	assert.True(t, a.Failed())

	a, err = c.ParseAnswer(ctx, "dev-ws", r, nil)
	require.NoError(t, err)
	assert.Equal(t, "dev-ws", a.Value)

	a, err = c.ParseAnswer(ctx, "${{env.config.ws}}", r, nil)
	require.NoError(t, err)
	assert.Equal(t, "${{env.config.ws}}", a.Value)
	assert.Equal(t, blueprint.VariableReference, a.Classification)
}

func TestParseAnswerRejectsUnreadableDocuments(t *testing.T) {
	c := New(nil)
	r := req("ns", "steps.apply.variables.name")

	tests := []struct {
		name string
		text string
	}{
		{"keyed by path with error marker", `{"steps.apply.variables.name": {"value": null, "error": "Could not extract valid identifier"}}`},
		{"keyed by other path", `{"values.other":"x"}`},
		{"list", `["a", "b"]`},
		{"truncated", `{"value": `},
		{"fenced", "```json\n{\"values.other\": 1}\n```"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := c.ParseAnswer(context.Background(), tt.text, r, nil)
			require.NoError(t, err)
			assert.True(t, a.Failed())
			assert.Equal(t, ErrUnreadableDocument, a.Error)
			assert.Equal(t, r.Path, a.Path)
			assert.Nil(t, a.Value)
		})
	}
}

func TestParseCompound(t *testing.T) {
	c := New(nil)
	ctx := context.Background()

	answers, err := c.ParseCompound(ctx, "just a value", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, answers)

	answers, err = c.ParseCompound(ctx, `{"values.workspace":"ws","steps.apply.variables.name":"${{env.config.ns}}"}`, nil, nil)
	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Equal(t, "steps.apply.variables.name", answers[0].Path)
	assert.Equal(t, blueprint.VariableReference, answers[0].Classification)
	assert.Equal(t, "values.workspace", answers[1].Path)
	assert.Equal(t, "ws", answers[1].Value)

	answers, err = c.ParseCompound(ctx, "values.workspace: ws\nvalues.identifier: fe\n", nil, nil)
	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Equal(t, "values.identifier", answers[0].Path)
	assert.Equal(t, "fe", answers[0].Value)

	_, err = c.ParseCompound(ctx, `{"values.workspace": `, nil, nil)
	assert.Error(t, err)
}

func TestStructured(t *testing.T) {
	assert.True(t, structured(`{"a":1}`))
	assert.True(t, structured("a.b: 1\nc: 2"))
	assert.False(t, structured("a.b: 1"))
	assert.False(t, structured("name: ${{env.config.x}}\nother: y"))
	assert.False(t, structured("please use dev"))
}
