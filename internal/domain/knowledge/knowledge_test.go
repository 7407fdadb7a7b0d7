package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogue(t *testing.T) {
	b := Default()

	tmpl, ok := b.Template("TempNamespace")
	require.True(t, ok)
	assert.Equal(t, []string{"name"}, tmpl.RequiredInputs())
	assert.True(t, tmpl.HasOutput("name"))
	assert.False(t, tmpl.HasOutput("namespace"))

	comp, ok := b.Component("frontend")
	require.True(t, ok)
	assert.Equal(t, "DeployService", comp.Pipelines["apply"])
	assert.Equal(t, "UninstallService", comp.Pipelines["destroy"])
	assert.True(t, comp.Inputs["replicas"].HasDefault())

	infra, ok := b.Infrastructure("mycluster", "ssemteamdelegate")
	require.True(t, ok)
	assert.Equal(t, []string{"namespace"}, infra.RequiredBindings)

	_, ok = b.Infrastructure("mycluster", "other")
	assert.False(t, ok)
	_, ok = b.Infrastructure("nowhere", "ssemteamdelegate")
	assert.False(t, ok)

	assert.Equal(t, []string{"RunIaCM"}, b.PipelinesFor("HarnessIACM"))
	assert.Equal(t, []string{"DeployService", "UninstallService"}, b.PipelinesFor("Catalog"))
	assert.Empty(t, b.PipelinesFor("Unknown"))

	assert.Equal(t, Stats{Templates: 1, Components: 1, Environments: 1, Pipelines: 3}, b.Stats())
}

func TestParseFormats(t *testing.T) {
	tomlDoc := `
[templates.Bucket]
outputs = { arn = "string" }

[templates.Bucket.inputs.region]
type = "string"
required = true

[pipelines.RunBucket]
backend_type = "HarnessIACM"

[pipelines.RunBucket.inputs.token]
required = true
`
	c, err := Parse([]byte(tomlDoc), ".toml")
	require.NoError(t, err)
	require.Contains(t, c.Templates, "Bucket")
	assert.True(t, c.Templates["Bucket"].Inputs["region"].Required)
	assert.Equal(t, "HarnessIACM", c.Pipelines["RunBucket"].BackendType)

	_, err = Parse([]byte("{}"), ".ini")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "team")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(`
pipelines:
  DestroyIaCM:
    backend_type: HarnessIACM
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "b.toml"), []byte(`
[environments.staging]
infrastructures = [{ id = "k8s", required_bindings = ["namespace", "cluster"] }]
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	b, err := Load(dir, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"DestroyIaCM", "RunIaCM"}, b.PipelinesFor("HarnessIACM"))
	infra, ok := b.Infrastructure("staging", "k8s")
	require.True(t, ok)
	assert.Equal(t, []string{"namespace", "cluster"}, infra.RequiredBindings)

	// built-in records survive
	_, ok = b.Template("TempNamespace")
	assert.True(t, ok)
}

func TestLoadMissingPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.Error(t, err)

	b, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, 1, b.Stats().Templates)
}
