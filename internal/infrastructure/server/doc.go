/*
Package server assembles the capture service.

New builds, in order: logger, metrics registry, page renderer (go-rod unless
one is injected), optional Redis status store, capture pipeline, dispatcher
and the gin router:

	GET  /          service info
	GET  /health    dispatcher load, 503 while closing
	GET  /stats     totals and latency quantiles
	POST /captures  synchronous capture, raw image body
	GET  /jobs/:id  job status (requires the status store)
	GET  /stream    WebSocket job protocol
	GET  /metrics   Prometheus exposition

Shutdown closes the listener first so no new jobs arrive, then drains the
dispatcher within the caller's deadline.
*/
package server
