// Package middleware adapts authcore to net/http.
//
// # Gates
//
//   - [Authenticate] reads the bearer token, calls Engine.Authenticate and
//     injects the principal id and the raw access token into the request
//     context.
//   - [ClientIP] records the caller's address for audit events.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself; every decision is delegated to the
// Engine and failures are rendered with authcore.RespondError.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly.
//   - Access Redis.
package middleware
