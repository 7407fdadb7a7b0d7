// Command blueprintc compiles blueprint graphs without a server.
//
// Usage:
//
//	# Report what a graph file still needs
//	blueprintc validate graph.yaml
//
//	# Fill resolvable bindings and print the graph
//	blueprintc resolve graph.yaml -o json
//
//	# Resolve, validate and render the blueprint document
//	blueprintc render graph.yaml
//
//	# Compile an intent, answering questions from a script
//	blueprintc compile --intent intent.yaml --answers answers.yaml
//
// Configuration comes from the same environment variables as the server;
// flags override them.
package main
