// Package server assembles the HTTP server: middleware chain, REST
// handlers, the conversation stream and the metrics endpoints.
//
// Routes:
//   - /, /health, /knowledge: service information
//   - /sessions, /snapshots: conversational compilation
//   - /graph/{validate,resolve,render}: stateless graph operations
//   - /stream: WebSocket conversation stream
//   - /metrics: Prometheus exposition
//   - /stats: running totals as JSON
package server
