package collaborator

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaBase = "https://envforge.schemas.local/collaborator/"

const entitySchema = `{
  "type": "object",
  "required": ["backend_type"],
  "properties": {
    "id": {"type": "string"},
    "backend_type": {"type": "string", "minLength": 1},
    "template": {"type": "string"},
    "component": {"type": "string"},
    "dependencies": {"type": "array", "items": {"type": "string"}},
    "dependency_names": {"type": "array", "items": {"type": "string"}},
    "inputs": {"type": "object"}
  }
}`

var schemaSources = map[string]string{
	"intent": `{
  "type": "object",
  "required": ["entities"],
  "properties": {
    "entities": {"type": "array", "items": ` + entitySchema + `},
    "bindings": {"type": "object"}
  }
}`,
	"discovery": `{
  "type": "object",
  "properties": {
    "new_entities": {"type": "array", "items": ` + entitySchema + `}
  }
}`,
	"answer": `{
  "type": "object",
  "properties": {
    "path": {"type": "string"},
    "classification": {"enum": ["literal", "blueprint_input", "entity_input", "variable_reference"]},
    "error": {"type": ["string", "null"]}
  },
  "anyOf": [{"required": ["value"]}, {"required": ["error"]}]
}`,
}

var schemas = mustCompileSchemas()

func mustCompileSchemas() map[string]*jsonschema.Schema {
	out := make(map[string]*jsonschema.Schema, len(schemaSources))
	for name, src := range schemaSources {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		url := schemaBase + name + ".schema.json"
		if err := c.AddResource(url, strings.NewReader(src)); err != nil {
			panic(fmt.Sprintf("collaborator: load %s schema: %v", name, err))
		}
		compiled, err := c.Compile(url)
		if err != nil {
			panic(fmt.Sprintf("collaborator: compile %s schema: %v", name, err))
		}
		out[name] = compiled
	}
	return out
}

// validatePayload checks decoded JSON against a named schema.
func validatePayload(name string, payload any) error {
	schema, ok := schemas[name]
	if !ok {
		return fmt.Errorf("no schema named %q", name)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("%s payload rejected: %w", name, err)
	}
	return nil
}
