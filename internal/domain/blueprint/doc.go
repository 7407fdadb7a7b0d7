// Package blueprint holds the in-memory graph a blueprint is compiled from.
//
// A Graph owns ordered global inputs and entities. Each entity carries
// entity-scoped inputs, backend values, lifecycle steps and declared
// dependencies. Payloads are tagged Values so dot-path reads and writes
// work generically while keeping expressions distinct from literals.
//
// Key Components:
//   - Value / Map: tagged payload and insertion-ordered map
//   - Entity / Step / Variable: graph nodes and lifecycle operations
//   - Graph / GlobalInputs: the monotonic container
//   - Reference: parsed ${{ scope.path }} expressions
//   - MissingRequirement / Classification: validation findings and answer tags
//
// Graph files are YAML or JSON:
//
//	g, err := blueprint.DecodeGraph(data)
//	out, err := blueprint.EncodeGraph(g, blueprint.FormatYAML)
package blueprint
