// Package ws serves capture jobs over a persistent WebSocket connection.
//
// Message Types (Client → Server):
//   - screenshot: submit a capture job ({requestId?, options})
//   - ping: keep-alive ping
//
// Message Types (Server → Client):
//   - system: welcome with the connection id
//   - accepted: job registered, queued or running
//   - screenshot: finished capture as a data URI
//   - screenshot_error: rejected options, rate limited or failed job
//   - pong: ping reply
//   - error: malformed, unknown or rate limited non-job frame
//
// Every connection owns its jobs in the shared dispatcher. When the peer
// goes away its queued jobs are dropped; running ones finish and their
// result is discarded. Writes are serialized per connection, and the
// accepted frame of a job is always written before its result.
//
// Example Usage:
//
//	handler := ws.NewHandler(dispatcher, metrics, logger.Component("ws"), ws.DefaultConfig())
//	router.GET("/stream", handler.HandleConnection)
package ws
