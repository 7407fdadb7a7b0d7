// Package app assembles the blueprint compiler stack from configuration.
//
// It loads the knowledge base, builds the contract registry, validator,
// resolver and renderer, selects the collaborator (offline rules or a
// remote text-understanding service behind a circuit breaker) and wires a
// session manager with optional snapshot storage. The server and the CLI
// both start here.
//
// Example Usage:
//
//	a, err := app.New(cfg, app.Options{Logger: logger, Metrics: metrics})
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//	s := a.Sessions.Create()
package app
