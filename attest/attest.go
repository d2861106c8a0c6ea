package attest

import (
	"crypto/ed25519"
	"encoding/base64"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"

	"immutrack.io/custody/codec"
)

// Domain binds an attestation to one deployment. All four fields must match
// the verifier's configured values exactly: a claim signed for one network or
// ledger address must never be replayable on another.
type Domain struct {
	Scheme  string   `cbor:"scheme"`
	Version string   `cbor:"version"`
	Network string   `cbor:"network"`
	Ledger  Identity `cbor:"ledger"`
}

// DefaultScheme and DefaultVersion are the values custody deployments use
// unless configured otherwise.
const (
	DefaultScheme  = "immutrack-custody"
	DefaultVersion = "1"
)

func (d Domain) complete() bool {
	return d.Scheme != "" && d.Version != "" && d.Network != "" && !d.Ledger.IsZero()
}

// Claim is the minimal handoff statement: "I am taking custody of item
// ItemID at Location". It deliberately excludes the timestamp (the server is
// the timestamp authority) and the handler identity (the recovered signer IS
// the handler).
type Claim struct {
	ItemID   uint64 `cbor:"itemId"`
	Location string `cbor:"location"`
}

// signedPayload is the structure the signature covers. Canonical CBOR of
// this value is hashed with sha3-256 and the digest is signed.
type signedPayload struct {
	Domain Domain `cbor:"domain"`
	Claim  Claim  `cbor:"claim"`
}

// SigningDigest returns the sha3-256 digest an attestation signature for
// (domain, claim) must cover.
func SigningDigest(d Domain, c Claim) ([]byte, error) {
	if !d.complete() {
		return nil, newError(KindSignature, "IMMU-SIG-201", "incomplete domain binding")
	}
	b, err := codec.Marshal(signedPayload{Domain: d, Claim: c})
	if err != nil {
		return nil, wrapError(KindInternal, "IMMU-SIG-301", "canonical encoding failed", err)
	}
	sum := sha3.Sum256(b)
	return sum[:], nil
}

// Supported signature algorithms.
const (
	AlgEd25519    = "ed25519"
	AlgDilithium3 = "dilithium3"
)

// RecoverSigner verifies signature over (domain, claim) and returns the
// signer's handler identity.
//
// The signature token is self-describing ("<alg>:<base64 pub>:<base64 sig>"),
// so recovery needs no external state. A structurally malformed token, an
// unsupported algorithm, or a signature that does not verify all fail with
// KindSignature.
//
// Recovery succeeding says nothing about WHICH handler the caller claimed to
// be; comparing the recovered identity against a claimed one is the caller's
// responsibility, so mismatch diagnostics can report who actually signed.
func RecoverSigner(d Domain, c Claim, signature string) (Identity, error) {
	alg, pub, sig, err := decodeSignature(signature)
	if err != nil {
		return Identity{}, err
	}
	digest, err := SigningDigest(d, c)
	if err != nil {
		return Identity{}, err
	}

	switch alg {
	case AlgEd25519:
		if !ed25519.Verify(ed25519.PublicKey(pub), digest, sig) {
			return Identity{}, newError(KindSignature, "IMMU-SIG-401", "signature invalid")
		}
	case AlgDilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return Identity{}, wrapError(KindSignature, "IMMU-SIG-113", "invalid dilithium3 public key", err)
		}
		if !mode3.Verify(&pk, digest, sig) {
			return Identity{}, newError(KindSignature, "IMMU-SIG-401", "signature invalid")
		}
	default:
		return Identity{}, newError(KindSignature, "IMMU-SIG-111", "unsupported signature algorithm")
	}
	return identityFromKey(alg, pub), nil
}

// SignClaimEd25519 returns the signature token for (domain, claim) under an
// Ed25519 key.
func SignClaimEd25519(d Domain, c Claim, priv ed25519.PrivateKey) (string, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return "", newError(KindSignature, "IMMU-SIG-112", "invalid ed25519 private key length")
	}
	digest, err := SigningDigest(d, c)
	if err != nil {
		return "", err
	}
	pub := priv.Public().(ed25519.PublicKey)
	sig := ed25519.Sign(priv, digest)
	return encodeSignature(AlgEd25519, pub, sig), nil
}

// SignClaimDilithium3 returns the signature token for (domain, claim) under a
// Dilithium3 keypair.
func SignClaimDilithium3(d Domain, c Claim, pub *mode3.PublicKey, priv *mode3.PrivateKey) (string, error) {
	if pub == nil || priv == nil {
		return "", newError(KindSignature, "IMMU-SIG-501", "missing dilithium3 keypair")
	}
	digest, err := SigningDigest(d, c)
	if err != nil {
		return "", err
	}
	pubBytes, err := pub.MarshalBinary()
	if err != nil {
		return "", wrapError(KindSignature, "IMMU-SIG-113", "invalid dilithium3 public key", err)
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(priv, digest, sig)
	return encodeSignature(AlgDilithium3, pubBytes, sig), nil
}

// AttestationKeyEd25519 encodes an Ed25519 public key into the
// "<alg>:<base64>" attestation key form.
func AttestationKeyEd25519(pub ed25519.PublicKey) (string, error) {
	if len(pub) != ed25519.PublicKeySize {
		return "", newError(KindSignature, "IMMU-SIG-112", "invalid ed25519 public key length")
	}
	return AlgEd25519 + ":" + base64.StdEncoding.EncodeToString(pub), nil
}

// AttestationKeyDilithium3 encodes a Dilithium3 public key into the
// "<alg>:<base64>" attestation key form.
func AttestationKeyDilithium3(pub *mode3.PublicKey) (string, error) {
	if pub == nil {
		return "", newError(KindSignature, "IMMU-SIG-113", "missing dilithium3 public key")
	}
	b, err := pub.MarshalBinary()
	if err != nil {
		return "", wrapError(KindSignature, "IMMU-SIG-113", "invalid dilithium3 public key", err)
	}
	return AlgDilithium3 + ":" + base64.StdEncoding.EncodeToString(b), nil
}

func encodeSignature(alg string, pub, sig []byte) string {
	return alg + ":" + base64.StdEncoding.EncodeToString(pub) + ":" + base64.StdEncoding.EncodeToString(sig)
}

func decodeSignature(token string) (alg string, pub, sig []byte, err error) {
	if token == "" {
		return "", nil, nil, newError(KindSignature, "IMMU-SIG-101", "missing signature")
	}
	alg, rest, ok := strings.Cut(token, ":")
	if !ok {
		return "", nil, nil, newError(KindSignature, "IMMU-SIG-102", "invalid signature encoding")
	}
	pubEnc, sigEnc, ok := strings.Cut(rest, ":")
	if !ok {
		return "", nil, nil, newError(KindSignature, "IMMU-SIG-102", "invalid signature encoding")
	}
	pub, err = decodeBase64(pubEnc)
	if err != nil {
		return "", nil, nil, wrapError(KindSignature, "IMMU-SIG-103", "invalid public key base64", err)
	}
	sig, err = decodeBase64(sigEnc)
	if err != nil {
		return "", nil, nil, wrapError(KindSignature, "IMMU-SIG-104", "invalid signature base64", err)
	}
	// Validate lengths where the scheme has fixed sizes.
	switch alg {
	case AlgEd25519:
		if len(pub) != ed25519.PublicKeySize {
			return "", nil, nil, newError(KindSignature, "IMMU-SIG-112", "invalid ed25519 public key length")
		}
		if len(sig) != ed25519.SignatureSize {
			return "", nil, nil, newError(KindSignature, "IMMU-SIG-114", "invalid ed25519 signature length")
		}
	case AlgDilithium3:
		if len(sig) != mode3.SignatureSize {
			return "", nil, nil, newError(KindSignature, "IMMU-SIG-115", "invalid dilithium3 signature length")
		}
	}
	return alg, pub, sig, nil
}

func decodeAttestationKey(key string) (alg string, pub []byte, err error) {
	if key == "" {
		return "", nil, newError(KindSignature, "IMMU-SIG-105", "missing attestation key")
	}
	alg, enc, ok := strings.Cut(key, ":")
	if !ok {
		return "", nil, newError(KindSignature, "IMMU-SIG-106", "invalid attestation key encoding")
	}
	pub, err = decodeBase64(enc)
	if err != nil {
		return "", nil, wrapError(KindSignature, "IMMU-SIG-103", "invalid public key base64", err)
	}
	switch alg {
	case AlgEd25519:
		if len(pub) != ed25519.PublicKeySize {
			return "", nil, newError(KindSignature, "IMMU-SIG-112", "invalid ed25519 public key length")
		}
	case AlgDilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return "", nil, wrapError(KindSignature, "IMMU-SIG-113", "invalid dilithium3 public key", err)
		}
	default:
		return "", nil, newError(KindSignature, "IMMU-SIG-111", "unsupported signature algorithm")
	}
	return alg, pub, nil
}

func decodeBase64(s string) ([]byte, error) {
	// Prefer standard padded encoding, but accept raw encoding too.
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
