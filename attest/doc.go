// Package attest implements signed custody handoff attestations.
//
// An attestation is the minimal statement "I am taking custody of item X at
// location Y", signed over a domain binding that scopes the signature to one
// scheme, version, network, and ledger address. A signature produced for one
// domain never verifies under another.
//
// Signatures are self-describing: the wire token carries the algorithm and
// the public key alongside the raw signature, so the signer's handler
// identity is recoverable from (domain, claim, signature) alone with no
// external lookup.
//
// Everything in this package is pure: no I/O, no clocks.
package attest
