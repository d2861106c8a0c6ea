package keys

import (
	"crypto/ed25519"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"immutrack.io/custody/attest"
)

// SignClaimWithSeed signs a handoff claim with the key derived from seed and
// returns the attestation signature token.
func SignClaimWithSeed(d attest.Domain, c attest.Claim, seed []byte) (string, error) {
	if len(seed) != ed25519.SeedSize {
		return "", fmt.Errorf("keys: seed must be %d bytes", ed25519.SeedSize)
	}
	return attest.SignClaimEd25519(d, c, ed25519.NewKeyFromSeed(seed))
}

// GenerateDilithium3Keypair returns a new Dilithium3 keypair for handlers
// that attest with the post-quantum algorithm.
func GenerateDilithium3Keypair(rand io.Reader) (*mode3.PublicKey, *mode3.PrivateKey, error) {
	return mode3.GenerateKey(rand)
}
