// Package password hashes and verifies credentials.
//
// Two algorithms are provided behind [Hasher]: [Bcrypt], the default, and
// [Argon2], which encodes hashes in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Detect] picks the algorithm that produced a stored hash so existing
// credentials keep verifying after the configured algorithm changes.
//
// Policy such as minimum length is enforced by the authcore Engine, not here.
// Plaintext is never logged.
package password
