// Package http provides the REST surface of the capture service.
//
// Endpoints:
//   - Info: GET / and GET /health
//   - Stats: GET /stats (job totals, p50/p95 duration)
//   - Capture: POST /captures (synchronous, answers with image bytes)
//   - Status: GET /jobs/:id (needs the Redis status store)
//
// POST /captures shares the dispatcher with the WebSocket endpoint, so it
// queues behind socket jobs and obeys the same concurrency limit. The job id
// is returned in the X-Job-ID header.
//
// Example Usage:
//
//	handlers := http.NewHandlers(dispatcher, statusStore, metrics, logger)
//	router.GET("/health", handlers.Health)
//	router.POST("/captures", handlers.Capture)
package http
