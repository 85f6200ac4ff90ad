// Package jwt signs and parses the compact session tokens issued by authcore.
//
// A [Manager] is bound to one token kind (access or refresh) and one key set.
// The principal id travels in the audience claim, the configured issuer in
// iss, and every token carries a random jti so two tokens minted in the same
// second never compare equal.
package jwt
