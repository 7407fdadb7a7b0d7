// Package http provides the REST API of the blueprint compiler.
//
// Endpoints:
//   - Health: /, /health, /knowledge
//   - Sessions: POST/GET /sessions, GET/DELETE /sessions/:id
//   - Conversation: POST /sessions/:id/messages
//   - Output: GET /sessions/:id/document, GET /sessions/:id/graph
//   - Persistence: POST /sessions/:id/snapshot, GET /snapshots,
//     POST /snapshots/:id/restore, POST /sessions/resume
//   - Stateless: POST /graph/validate, /graph/resolve, /graph/render
//
// Error mapping: unknown session 404, malformed id or body 400, round
// limit 409, document requested before completion 422, no snapshot
// store 503.
//
// Example Usage:
//
//	handlers := http.NewHandlers(sessions, http.Options{Logger: logger})
//	handlers.Register(router)
package http
