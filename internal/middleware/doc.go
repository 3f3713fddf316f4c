// Package middleware provides HTTP middleware for the festival registration API.
//
// # Available Middleware
//
//   - RequestID: assigns or propagates X-Request-ID
//   - Logger: one structured slog line per request
//   - Recovery: converts panics into a problem+json 500
//   - Tracing: OpenTelemetry server span per request
//   - CORS and Compress
//   - AdminToken: bcrypt-checked bearer token for maintenance routes
//   - RateLimit: token bucket per client, applied to submissions
//   - Idempotency: replays the first response for a repeated Idempotency-Key
//
// Middlewares compose with Chain; the first argument wraps outermost:
//
//	handler := middleware.Chain(mux,
//		middleware.Recovery,
//		middleware.RequestID,
//		middleware.Logger,
//	)
//
// # Context Values
//
//   - GetRequestID(ctx): the request identifier
//   - IsAdmin(ctx): whether AdminToken admitted the request
package middleware
