package keys

import (
	"crypto/ed25519"
	"strings"
	"testing"

	"immutrack.io/custody/attest"
)

func testSeed(fill byte) []byte {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = fill + byte(i)
	}
	return seed
}

func TestDeriveSiteSeedDeterministic(t *testing.T) {
	root := testSeed(0)

	a, err := DeriveSiteSeed(root, "warehouse-a")
	if err != nil {
		t.Fatalf("DeriveSiteSeed: %v", err)
	}
	b, err := DeriveSiteSeed(root, "warehouse-a")
	if err != nil {
		t.Fatalf("DeriveSiteSeed: %v", err)
	}
	if string(a) != string(b) {
		t.Fatal("expected deterministic derivation")
	}

	c, err := DeriveSiteSeed(root, "warehouse-b")
	if err != nil {
		t.Fatalf("DeriveSiteSeed: %v", err)
	}
	if string(a) == string(c) {
		t.Fatal("expected different sites to derive different seeds")
	}
	if string(a) == string(root) {
		t.Fatal("site seed must differ from the root seed")
	}
}

func TestAttestationKeyFromSeedFormat(t *testing.T) {
	key := AttestationKeyFromSeed(testSeed(0x42))
	if !strings.HasPrefix(key, attest.AlgEd25519+":") {
		t.Fatalf("expected ed25519 prefix, got %q", key)
	}
	if _, err := attest.IdentityFromAttestationKey(key); err != nil {
		t.Fatalf("attestation key not parseable: %v", err)
	}
}

func TestIdentityFromSeedMatchesSignature(t *testing.T) {
	seed := testSeed(7)
	id, err := IdentityFromSeed(seed)
	if err != nil {
		t.Fatalf("IdentityFromSeed: %v", err)
	}

	owner, err := attest.ParseIdentity("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
	if err != nil {
		t.Fatalf("ParseIdentity: %v", err)
	}
	d := attest.Domain{
		Scheme:  attest.DefaultScheme,
		Version: attest.DefaultVersion,
		Network: "testnet",
		Ledger:  owner,
	}
	c := attest.Claim{ItemID: 1, Location: "Dock"}
	sig, err := SignClaimWithSeed(d, c, seed)
	if err != nil {
		t.Fatalf("SignClaimWithSeed: %v", err)
	}
	recovered, err := attest.RecoverSigner(d, c, sig)
	if err != nil {
		t.Fatalf("RecoverSigner: %v", err)
	}
	if recovered != id {
		t.Fatalf("recovered %s, want %s", recovered, id)
	}
}
