// Package token implements the access/refresh token lifecycle: signing,
// verification, rotation and server-side revocation.
//
// # State
//
// The service owns two families of keys in the [kv.Store]:
//
//   - pin:<principal>  the single currently valid refresh token
//   - bl_<token>       a blacklisted access token
//
// No other component reads or writes those keys.
//
// # Failure model
//
// Verification fails closed. A store error during VerifyAccessToken or
// VerifyRefreshToken is returned as [ErrStoreUnavailable], never as success.
// Issuance either completes fully (signed and pinned) or returns an error and
// no token. The service does not retry.
package token
