// Package compiler drives a blueprint graph from a structured intent to a
// rendered document.
//
// The Compiler is a state machine:
//
//	start -> intent_parsed -> graph_created -> validation
//	validation -> needs_input | graph_complete
//	needs_input -> validation | needs_input | graph_created
//	graph_complete -> yaml_rendered -> graph_created
//
// Each pass through validation auto-fills unambiguous pipelines, runs the
// resolver and then the validator. Findings are asked about one entity at
// a time; answers are applied through ApplyUpdate, the only place the
// graph is mutated after intent parsing. Entities are never removed.
//
// A Compiler is not safe for concurrent use. Callers own the round limit.
package compiler
