// Package otp generates, delivers and validates short-lived numeric one-time
// codes bound to a (principal, purpose) pair.
//
// # Invariants
//
//   - For a (principal, purpose) pair at most one unused record is fresh.
//     Generate demotes older unused codes before it creates the new one.
//   - A record is consumable iff it is fresh, unused, and now < ExpiresAt.
//   - Every validation failure yields the same [ErrInvalidCode], whether the
//     code never existed, expired, was already used, or was superseded.
//
// Storage is abstracted by [Repository]; package sqlstore provides SQLite and
// PostgreSQL implementations. Delivery is abstracted by [Sender].
package otp
