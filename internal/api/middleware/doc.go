// Package middleware provides the HTTP middleware of the blueprint API.
//
// Middleware stack:
//   - RequestID: Accepts or generates an X-Request-ID per request
//   - AccessLog: One structured log line per request
//   - CORS: Cross-origin resource sharing with configurable origins
//   - RateLimit: Per-IP token bucket rate limiting with idle cleanup
//   - GlobalRateLimit: One token bucket shared by all clients
//
// Example Usage:
//
//	router.Use(middleware.RequestID(), middleware.AccessLog(logger))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
