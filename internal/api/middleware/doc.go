// Package middleware provides the HTTP middleware of the capture service.
//
//   - CORS: any origin, GET/POST, X-Job-ID exposed to browsers
//   - RateLimit: per-IP token bucket, idle clients evicted
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.RateLimitConfig{
//		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
//		Burst:             cfg.RateLimit.Burst,
//	}))
package middleware
