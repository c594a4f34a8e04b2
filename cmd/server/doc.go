// Package main is the entry point for the page capture server.
//
// The server accepts screenshot jobs over a WebSocket (/stream) and over
// REST (POST /captures), renders pages in a shared Chrome instance and
// returns full-page images. At most MAX_CONCURRENT_TASKS jobs render at
// once; the rest wait in arrival order.
//
// Configuration:
//   - Environment variables (see internal/infrastructure/config)
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Local headless Chrome, 5 concurrent jobs
//	./server -port 8080
//
//	# Remote browser, development logging
//	RENDERER_CONTROL_URL=http://chrome:9222 ./server -dev -max-concurrent 3
//
// Signals:
//   - SIGINT, SIGTERM: stop accepting jobs, drain running ones within
//     SHUTDOWN_TIMEOUT, then exit
package main
