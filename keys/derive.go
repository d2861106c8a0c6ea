package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"

	"immutrack.io/custody/attest"
)

// AttestationKeyFromSeed returns the attestation key string for an Ed25519
// seed, in the "<alg>:<base64 pub>" form the verifier expects.
func AttestationKeyFromSeed(seed []byte) string {
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	key, err := attest.AttestationKeyEd25519(pub)
	if err != nil {
		// Unreachable: NewKeyFromSeed always yields a full-size public key.
		return ""
	}
	return key
}

// PrivateKeyFromSeed returns the Ed25519 private key for a seed.
func PrivateKeyFromSeed(seed []byte) ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(seed)
}

// IdentityFromSeed returns the handler identity a seed's key attests as.
func IdentityFromSeed(seed []byte) (attest.Identity, error) {
	key := AttestationKeyFromSeed(seed)
	if key == "" {
		return attest.ZeroIdentity, errors.New("keys: invalid seed")
	}
	return attest.IdentityFromAttestationKey(key)
}

// DeriveSiteSeed deterministically derives a site-scoped Ed25519 seed from a
// handler's root seed. Each site key attests as its own identity, so a
// compromised site key never exposes the root.
func DeriveSiteSeed(rootSeed []byte, site string) ([]byte, error) {
	if len(rootSeed) != ed25519.SeedSize {
		return nil, fmt.Errorf("keys: root seed must be %d bytes", ed25519.SeedSize)
	}
	if err := CheckSite(site); err != nil {
		return nil, err
	}

	h := sha256.New()
	_, _ = h.Write(rootSeed)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("immutrack-custody-keys-v1"))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("site:"))
	_, _ = h.Write([]byte(site))
	sum := h.Sum(nil)
	if len(sum) < ed25519.SeedSize {
		return nil, errors.New("keys: kdf output too short")
	}
	out := make([]byte, ed25519.SeedSize)
	copy(out, sum[:ed25519.SeedSize])
	return out, nil
}
