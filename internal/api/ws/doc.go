// Package ws streams a blueprint conversation over a WebSocket.
//
// A connection binds to one session at a time, either a new one or an
// existing one, and exchanges JSON messages with it.
//
// Message Types (Client → Server):
//   - start: Create a session, optionally with an opening message
//   - attach: Bind to an existing session by session_id
//   - message: Feed one input (intent, answer or new entities)
//   - document: Request the rendered blueprint (format yaml or json)
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - system: Connection greeting with the connection id
//   - session: Session summary after start or attach
//   - response: Compiler response plus the updated session summary
//   - document: Rendered blueprint
//   - pong: Keep-alive reply
//   - error: Error occurred
//
// Example Usage:
//
//	handler := ws.NewHandler(sessions, logger, metrics)
//	router.GET("/stream", handler.HandleConnection)
package ws
