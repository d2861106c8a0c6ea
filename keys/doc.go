// Package keys manages handler signing keys for custody attestations.
//
// The core is a pair of pure, deterministic primitives: attestation-key
// formatting and site-scoped seed derivation, so a depot or warehouse can
// hold a subkey without ever seeing the handler's root seed.
//
// The filesystem keystore is a local-first convenience for the CLI and is
// not part of the protocol contract.
package keys
