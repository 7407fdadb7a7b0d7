package resolver

import (
	"testing"

	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/contracts"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namespaceEntity(id, template string) *blueprint.Entity {
	e := blueprint.NewEntity(id, contracts.BackendHarnessIACM)
	create := blueprint.NewStep()
	create.Fields.Set("template", blueprint.String(template))
	create.Fields.Set("version", blueprint.String("v1"))
	e.Steps.Set("create", create)
	return e
}

func frontendEntity(deps ...string) *blueprint.Entity {
	e := blueprint.NewEntity("frontend", contracts.BackendCatalog)
	e.Values.Set("identifier", blueprint.String("frontend"))
	_ = e.Values.SetPath("environment.identifier", blueprint.String("mycluster"))
	_ = e.Values.SetPath("environment.infra.identifier", blueprint.String("ssemteamdelegate"))
	for _, dep := range deps {
		e.AddDependency(dep)
	}
	return e
}

func buildGraph(t *testing.T, entities ...*blueprint.Entity) *blueprint.Graph {
	t.Helper()
	g := blueprint.NewGraph()
	for _, e := range entities {
		require.NoError(t, g.AddEntity(e))
	}
	return g
}

func namespaceBinding(g *blueprint.Graph) (string, bool) {
	fe, _ := g.Entity("frontend")
	v, ok := fe.Value("environment.infra.namespace")
	if !ok {
		return "", false
	}
	return v.Str()
}

func TestResolveWiresNamespace(t *testing.T) {
	g := buildGraph(t, namespaceEntity("ns", "TempNamespace"), frontendEntity("ns"))
	r := New(contracts.Default(), knowledge.Default(), AutoWire, nil)

	resolved := r.Resolve(g)

	got, ok := namespaceBinding(resolved)
	require.True(t, ok)
	assert.Equal(t, "${{dependencies.ns.output.name}}", got)

	_, ok = namespaceBinding(g)
	assert.False(t, ok, "input graph must not change")
}

func TestResolveIsIdempotent(t *testing.T) {
	g := buildGraph(t, namespaceEntity("ns", "TempNamespace"), frontendEntity("ns"))
	r := New(contracts.Default(), knowledge.Default(), AutoWire, nil)

	once := r.Resolve(g)
	twice := r.Resolve(once)

	a, err := blueprint.EncodeGraph(once, blueprint.FormatJSON)
	require.NoError(t, err)
	b, err := blueprint.EncodeGraph(twice, blueprint.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestResolveLeavesBindingUnset(t *testing.T) {
	tests := []struct {
		name     string
		entities func() []*blueprint.Entity
	}{
		{
			name: "undeclared dependency",
			entities: func() []*blueprint.Entity {
				return []*blueprint.Entity{namespaceEntity("ns", "TempNamespace"), frontendEntity()}
			},
		},
		{
			name: "unknown template",
			entities: func() []*blueprint.Entity {
				return []*blueprint.Entity{namespaceEntity("ns", "Mystery"), frontendEntity("ns")}
			},
		},
		{
			name: "dependency is a deployment",
			entities: func() []*blueprint.Entity {
				other := blueprint.NewEntity("ns", contracts.BackendCatalog)
				return []*blueprint.Entity{other, frontendEntity("ns")}
			},
		},
		{
			name: "dependency missing from graph",
			entities: func() []*blueprint.Entity {
				return []*blueprint.Entity{frontendEntity("ns")}
			},
		},
	}

	r := New(contracts.Default(), knowledge.Default(), AutoWire, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildGraph(t, tt.entities()...)
			_, ok := namespaceBinding(r.Resolve(g))
			assert.False(t, ok)
		})
	}
}

func TestResolveKeepsExistingBinding(t *testing.T) {
	fe := frontendEntity("ns")
	_ = fe.Values.SetPath("environment.infra.namespace", blueprint.String("team-a"))
	g := buildGraph(t, namespaceEntity("ns", "TempNamespace"), fe)

	got, ok := namespaceBinding(New(nil, knowledge.Default(), AutoWire, nil).Resolve(g))
	require.True(t, ok)
	assert.Equal(t, "team-a", got)
}

func TestResolveExactOutputMatch(t *testing.T) {
	kb := knowledge.Default()
	kb.Merge(&knowledge.Catalogue{
		Templates: map[string]*knowledge.Template{
			"Cluster": {Outputs: map[string]string{"cluster": "string"}},
		},
		Environments: map[string]*knowledge.Environment{
			"mycluster": {Infrastructures: []knowledge.Infrastructure{
				{ID: "ssemteamdelegate", RequiredBindings: []string{"namespace", "cluster"}},
			}},
		},
	})
	g := buildGraph(t, namespaceEntity("ns", "TempNamespace"), namespaceEntity("k8s", "Cluster"), frontendEntity("ns", "k8s"))

	resolved := New(contracts.Default(), kb, AutoWire, nil).Resolve(g)
	fe, _ := resolved.Entity("frontend")

	ns, _ := fe.Value("environment.infra.namespace")
	cluster, _ := fe.Value("environment.infra.cluster")
	assert.Equal(t, blueprint.Expr("${{dependencies.ns.output.name}}"), ns)
	assert.Equal(t, blueprint.Expr("${{dependencies.k8s.output.cluster}}"), cluster)
}

func TestDisabledPolicy(t *testing.T) {
	g := buildGraph(t, namespaceEntity("ns", "TempNamespace"), frontendEntity("ns"))
	r := New(contracts.Default(), knowledge.Default(), PolicyFromBool(false), nil)

	resolved := r.Resolve(g)
	assert.NotSame(t, g, resolved)
	_, ok := namespaceBinding(resolved)
	assert.False(t, ok)
	assert.Equal(t, "disabled", r.Policy().String())
}
