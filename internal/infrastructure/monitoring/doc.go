/*
Package monitoring provides Prometheus metrics for the blueprint compiler service.

# Features

- HTTP request metrics (latency, throughput, size) labelled by route template
- Compiler metrics (rounds, validation passes, findings, transitions, rendered blueprints)
- Collaborator call metrics (duration, outcome, fallbacks)
- Session and WebSocket metrics

A nil *Metrics is valid; every recording method is a no-op on it.

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetricsWith(reg)

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", monitoring.Handler(reg))

	timer := monitoring.NewTimer(metrics, "answers")
	// ... call the collaborator ...
	timer.Stop("success")
*/
package monitoring
