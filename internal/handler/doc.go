// Package handler provides the HTTP surface of the festival registration service.
//
// Each handler struct wraps one service and serves one feature area:
// registrations, the event catalog, the participant directory, and the
// admin maintenance operations. Routes.Register mounts all of them on a
// ServeMux using method patterns.
//
// # Response Format
//
//   - WriteData: single resource with optional links
//   - WriteCollection: list of resources with a count
//   - WriteError: RFC 9457 Problem Details
//
// Validator rejections are mapped to Problem Details with code 4004 and the
// rejection code in the reason member, so clients can branch on it without
// parsing the human-readable detail.
//
// # Admin Routes
//
// Everything under /v1/admin is wrapped by the AdminGuard middleware, which
// checks a bearer token against a bcrypt hash from configuration.
package handler
