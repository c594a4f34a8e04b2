/*
Package monitoring provides Prometheus metrics for the capture service.

# Overview

Each Metrics value owns a private registry, so several servers (or tests)
can live in one process without duplicate registration panics.

# Series

- capture_http_requests_total, capture_http_request_duration_seconds
- capture_ws_connections, capture_ws_messages_total{direction,type}
- capture_jobs_active, capture_jobs_pending, capture_jobs_total{state}
- capture_job_duration_seconds
- capture_uptime_seconds

Metrics implements dispatch.Observer, so job gauges follow every state change
of the dispatcher it is registered with.

# Usage

	metrics := monitoring.NewMetrics()
	defer metrics.Close()

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	d, _ := dispatch.New(runner, 5, dispatch.WithObserver(metrics))
*/
package monitoring
