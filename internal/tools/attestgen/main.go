// attestgen generates attestation test vectors: a deterministic keypair from
// a one-byte seed, a signed handoff claim, and everything a verifier needs to
// check the token independently.
package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"immutrack.io/custody/attest"
)

type vector struct {
	Domain         attest.Domain `json:"domain"`
	Claim          attest.Claim  `json:"claim"`
	SeedHex        string        `json:"seedHex"`
	AttestationKey string        `json:"attestationKey"`
	Handler        string        `json:"handler"`
	DigestHex      string        `json:"digestHex"`
	Signature      string        `json:"signature"`
}

func main() {
	var (
		seedByteStr = flag.String("seed", "", "single byte seed (decimal or 0xNN)")
		itemID      = flag.Uint64("item", 0, "claim item id")
		location    = flag.String("location", "", "claim location")
		network     = flag.String("network", "testnet", "domain network")
		ledgerAddr  = flag.String("ledger", "", "domain ledger address 0x...")
		outPath     = flag.String("out", "", "output file path")
	)
	flag.Parse()

	if *seedByteStr == "" || *itemID == 0 || *location == "" || *ledgerAddr == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: attestgen -seed <0xA1> -item <id> -location <text> -ledger <0x..> -out <file.json> [-network <net>]")
		os.Exit(2)
	}
	seedByte, err := parseSeedByte(*seedByteStr)
	if err != nil {
		fatalf("parse -seed: %v", err)
	}
	ledgerID, err := attest.ParseIdentity(*ledgerAddr)
	if err != nil {
		fatalf("parse -ledger: %v", err)
	}

	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = seedByte
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	key, err := attest.AttestationKeyEd25519(pub)
	if err != nil {
		fatalf("attestation key: %v", err)
	}
	handler, err := attest.IdentityFromAttestationKey(key)
	if err != nil {
		fatalf("derive identity: %v", err)
	}

	domain := attest.Domain{
		Scheme:  attest.DefaultScheme,
		Version: attest.DefaultVersion,
		Network: *network,
		Ledger:  ledgerID,
	}
	claim := attest.Claim{ItemID: *itemID, Location: *location}

	digest, err := attest.SigningDigest(domain, claim)
	if err != nil {
		fatalf("signing digest: %v", err)
	}
	token, err := attest.SignClaimEd25519(domain, claim, priv)
	if err != nil {
		fatalf("sign claim: %v", err)
	}
	recovered, err := attest.RecoverSigner(domain, claim, token)
	if err != nil {
		fatalf("verify generated token: %v", err)
	}
	if recovered != handler {
		fatalf("recovered %s, want %s", recovered, handler)
	}

	out, err := json.MarshalIndent(vector{
		Domain:         domain,
		Claim:          claim,
		SeedHex:        hex.EncodeToString(seed),
		AttestationKey: key,
		Handler:        handler.String(),
		DigestHex:      hex.EncodeToString(digest),
		Signature:      token,
	}, "", "  ")
	if err != nil {
		fatalf("encode vector: %v", err)
	}
	if err := os.WriteFile(*outPath, append(out, '\n'), 0o644); err != nil {
		fatalf("write: %v", err)
	}
}

func parseSeedByte(s string) (byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		s = s[2:]
	}
	v, err := strconv.ParseUint(s, base, 8)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
