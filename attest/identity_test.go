package attest

import (
	"crypto/rand"
	"testing"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

func TestParseIdentity_CaseInsensitive(t *testing.T) {
	lower, err := ParseIdentity("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	if err != nil {
		t.Fatalf("ParseIdentity lower: %v", err)
	}
	mixed, err := ParseIdentity("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	if err != nil {
		t.Fatalf("ParseIdentity mixed: %v", err)
	}
	if lower != mixed {
		t.Fatal("identity parse must be case-insensitive")
	}
	if got := mixed.String(); got != "0x70997970c51812dc3a010c7d01b50e0d17dc79c8" {
		t.Fatalf("canonical form must be lowercase, got %s", got)
	}
}

func TestParseIdentity_Rejects(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"missing prefix", "70997970c51812dc3a010c7d01b50e0d17dc79c8"},
		{"not hex", "0xzz997970c51812dc3a010c7d01b50e0d17dc79c8"},
		{"short", "0x7099"},
		{"long", "0x70997970c51812dc3a010c7d01b50e0d17dc79c8ff"},
		{"empty", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseIdentity(tc.input); err == nil {
				t.Fatalf("expected rejection of %q", tc.input)
			} else if !IsKind(err, KindIdentity) {
				t.Fatalf("expected KindIdentity, got %v", err)
			}
		})
	}
}

func TestIdentity_TextRoundTrip(t *testing.T) {
	want, err := ParseIdentity("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	if err != nil {
		t.Fatalf("ParseIdentity: %v", err)
	}
	text, err := want.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	var got Identity
	if err := got.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if got != want {
		t.Fatal("text round trip mismatch")
	}
}

func TestIdentityFromAttestationKey_Dilithium3(t *testing.T) {
	pub, priv, err := mode3.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	key, err := AttestationKeyDilithium3(pub)
	if err != nil {
		t.Fatalf("AttestationKeyDilithium3: %v", err)
	}
	want, err := IdentityFromAttestationKey(key)
	if err != nil {
		t.Fatalf("IdentityFromAttestationKey: %v", err)
	}

	domain := testDomain()
	claim := Claim{ItemID: 5, Location: "Customs"}
	sig, err := SignClaimDilithium3(domain, claim, pub, priv)
	if err != nil {
		t.Fatalf("SignClaimDilithium3: %v", err)
	}
	got, err := RecoverSigner(domain, claim, sig)
	if err != nil {
		t.Fatalf("RecoverSigner: %v", err)
	}
	if got != want {
		t.Fatalf("dilithium3 identity mismatch: got %s want %s", got, want)
	}
}
