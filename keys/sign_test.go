package keys

import (
	"io"
	"testing"

	"immutrack.io/custody/attest"
)

type deterministicReader struct{ b byte }

func (r *deterministicReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.b
		r.b++
	}
	return len(p), nil
}

func TestSignClaimWithSeedRejectsBadSeed(t *testing.T) {
	d := attest.Domain{Scheme: attest.DefaultScheme, Version: attest.DefaultVersion, Network: "testnet"}
	if _, err := SignClaimWithSeed(d, attest.Claim{}, []byte("short")); err == nil {
		t.Fatal("expected seed length error")
	}
}

func TestGenerateDilithium3KeypairSignsClaims(t *testing.T) {
	pk, sk, err := GenerateDilithium3Keypair(io.Reader(&deterministicReader{}))
	if err != nil {
		t.Fatalf("GenerateDilithium3Keypair: %v", err)
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
	c := attest.Claim{ItemID: 9, Location: "Depot"}
	sig, err := attest.SignClaimDilithium3(d, c, pk, sk)
	if err != nil {
		t.Fatalf("SignClaimDilithium3: %v", err)
	}
	if _, err := attest.RecoverSigner(d, c, sig); err != nil {
		t.Fatalf("RecoverSigner: %v", err)
	}
}
