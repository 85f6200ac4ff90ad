// Package authcore is the authentication core: credential and one-time-code
// login, single-session JWT continuation with server-side revocation, and the
// account flows that sit on top of them.
//
// The public surface is [Engine], built with [Builder], configured through
// [Config]. Engine methods are safe for concurrent use once built.
//
// # Architecture boundaries
//
// Token issuance and revocation live in package token, one-time codes in
// package otp, and delivery in package notify. authcore orchestrates them and
// maps every failure onto the [Kind] taxonomy so HTTP adapters can render the
// uniform [Response] envelope.
//
// # What this package must NOT do
//
//   - Reveal which check failed behind an Unauthorized result.
//   - Store user records itself; that is the [UserDirectory]'s job.
//   - Return rollback failures to callers; they are logged.
package authcore
