// Package kv provides the expiring key-value primitive used for refresh-token
// pins and access-token blacklist entries.
//
// # Architecture boundaries
//
// This package stores opaque string values under caller-chosen keys. It does
// NOT know about tokens, principals, or key naming; those belong to the token
// service.
//
// # Failure model
//
// A missing key is reported as [ErrNotFound]. Every backend failure is wrapped
// in [ErrUnavailable] so callers can fail closed without inspecting driver
// errors.
package kv
