package attest

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// IdentitySize is the length of a handler identity in bytes.
const IdentitySize = 20

// Identity is an address-like identifier for a party that records transfers.
//
// The canonical text form is "0x" followed by 40 lowercase hex digits.
// Parsing is case-insensitive; comparison on parsed values is exact.
type Identity [IdentitySize]byte

// ZeroIdentity is the null identity sentinel. It marks the "from" side of an
// item's first transfer, when no prior custodian exists.
var ZeroIdentity Identity

// String returns the canonical lowercase hex form.
func (id Identity) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// IsZero reports whether id is the null identity sentinel.
func (id Identity) IsZero() bool { return id == ZeroIdentity }

// MarshalText implements encoding.TextMarshaler using the canonical form.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseIdentity parses a handler identity in "0x<40 hex>" form.
// Hex case is ignored.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	rest, ok := strings.CutPrefix(strings.ToLower(s), "0x")
	if !ok {
		return id, newError(KindIdentity, "IMMU-ID-101", "identity must start with 0x")
	}
	b, err := hex.DecodeString(rest)
	if err != nil {
		return id, wrapError(KindIdentity, "IMMU-ID-102", "identity must be hex", err)
	}
	if len(b) != IdentitySize {
		return id, newError(KindIdentity, "IMMU-ID-103", "identity must be 20 bytes")
	}
	copy(id[:], b)
	return id, nil
}

// identityFromKey derives the handler identity for an algorithm-tagged
// public key: the trailing 20 bytes of sha3-256 over "<alg>:<raw key>".
//
// Binding the algorithm into the digest means the same raw key bytes under
// two algorithms name two distinct identities.
func identityFromKey(alg string, pub []byte) Identity {
	d := sha3.New256()
	_, _ = d.Write([]byte(alg))
	_, _ = d.Write([]byte{':'})
	_, _ = d.Write(pub)
	sum := d.Sum(nil)

	var id Identity
	copy(id[:], sum[len(sum)-IdentitySize:])
	return id
}

// IdentityFromAttestationKey derives the handler identity for a public
// attestation key in "<alg>:<base64>" form.
func IdentityFromAttestationKey(key string) (Identity, error) {
	alg, pub, err := decodeAttestationKey(key)
	if err != nil {
		return Identity{}, err
	}
	return identityFromKey(alg, pub), nil
}
