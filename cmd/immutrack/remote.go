package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"immutrack.io/custody/attest"
	"immutrack.io/custody/custodyapi"
	"immutrack.io/custody/keys"
	"immutrack.io/custody/pipeline"
)

const defaultTimeout = 15 * time.Second

func resolveSeed(seedHex string) ([]byte, error) {
	if seedHex != "" {
		return keys.ParseSeedHex(seedHex)
	}
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	return seed, nil
}

// flagProvided reports whether a flag was set explicitly, so zero values
// (notably --item 0) stay distinguishable from an omitted flag.
func flagProvided(fs *flag.FlagSet, name string) bool {
	provided := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			provided = true
		}
	})
	return provided
}

// signingFlags is the shared flag surface for commands that produce an
// attestation signature: the claim, the domain, and the signer.
type signingFlags struct {
	item     uint64
	location string
	network  string
	ledger   string

	seedHex string
	signer  string
	site    string
	keyFile string
}

func (f *signingFlags) register(fs *flag.FlagSet) {
	fs.Uint64Var(&f.item, "item", 0, "Item identifier")
	fs.StringVar(&f.location, "location", "", "Handoff location")
	fs.StringVar(&f.network, "network", "", "Network identifier of the attestation domain")
	fs.StringVar(&f.ledger, "ledger", "", "Ledger address 0x... of the attestation domain")
	fs.StringVar(&f.seedHex, "seed-hex", "", "Inline ed25519 seed, 64 hex chars")
	fs.StringVar(&f.signer, "signer", "", "Stored key name to sign with")
	fs.StringVar(&f.site, "site", "", "Site key of --signer to sign with")
	fs.StringVar(&f.keyFile, "key-file", "", "Seed file to sign with")
}

func (f *signingFlags) resolve(fs *flag.FlagSet, errOut io.Writer) (attest.Domain, attest.Claim, []byte, int) {
	if !flagProvided(fs, "item") || f.location == "" {
		fmt.Fprintln(errOut, "missing --item or --location")
		return attest.Domain{}, attest.Claim{}, nil, 2
	}
	if f.network == "" || f.ledger == "" {
		fmt.Fprintln(errOut, "missing --network or --ledger")
		return attest.Domain{}, attest.Claim{}, nil, 2
	}
	ledgerID, err := attest.ParseIdentity(f.ledger)
	if err != nil {
		fmt.Fprintf(errOut, "invalid ledger address: %v\n", err)
		return attest.Domain{}, attest.Claim{}, nil, 2
	}

	ks, err := keys.OpenStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return attest.Domain{}, attest.Claim{}, nil, 1
	}
	seed, err := ks.LoadSeed(f.seedHex, f.signer, f.site, f.keyFile)
	if err != nil {
		fmt.Fprintf(errOut, "load signer: %v\n", err)
		return attest.Domain{}, attest.Claim{}, nil, 1
	}

	domain := attest.Domain{
		Scheme:  attest.DefaultScheme,
		Version: attest.DefaultVersion,
		Network: f.network,
		Ledger:  ledgerID,
	}
	claim := attest.Claim{ItemID: f.item, Location: f.location}
	return domain, claim, seed, 0
}

func dialServer(addr string, errOut io.Writer) (*custodyapi.Client, int) {
	if addr == "" {
		fmt.Fprintln(errOut, "missing --server")
		return nil, 2
	}
	client, err := custodyapi.Dial(addr, custodyapi.DialOptions{Timeout: defaultTimeout})
	if err != nil {
		fmt.Fprintf(errOut, "dial %s: %v\n", addr, err)
		return nil, 1
	}
	client.Timeout = defaultTimeout
	return client, 0
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func cmdRegister(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var server, name, location, timestamp, by string
	var item uint64
	fs.StringVar(&server, "server", "", "custodyd address")
	fs.Uint64Var(&item, "item", 0, "Item identifier")
	fs.StringVar(&name, "name", "", "Item name")
	fs.StringVar(&location, "location", "", "Initial location")
	fs.StringVar(&timestamp, "timestamp", "", "Registration timestamp (server time when omitted)")
	fs.StringVar(&by, "by", "", "Registering identity 0x... (optional)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !flagProvided(fs, "item") || name == "" || location == "" {
		fmt.Fprintln(errOut, "missing --item, --name or --location")
		return 2
	}

	client, code := dialServer(server, errOut)
	if code != 0 {
		return code
	}
	defer client.Close()

	result, err := client.Register(context.Background(), pipeline.RegisterRequest{
		ItemID:       item,
		Name:         name,
		Location:     location,
		Timestamp:    timestamp,
		RegisteredBy: by,
	})
	if err != nil {
		fmt.Fprintf(errOut, "register: %v\n", err)
		return 1
	}
	if err := printJSON(out, result); err != nil {
		fmt.Fprintf(errOut, "encode result: %v\n", err)
		return 1
	}
	return 0
}

func cmdAuthorize(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("authorize", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var server, handler string
	var revoke bool
	fs.StringVar(&server, "server", "", "custodyd address")
	fs.StringVar(&handler, "handler", "", "Handler identity 0x...")
	fs.BoolVar(&revoke, "revoke", false, "Revoke instead of grant")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if handler == "" {
		fmt.Fprintln(errOut, "missing --handler")
		return 2
	}

	client, code := dialServer(server, errOut)
	if code != 0 {
		return code
	}
	defer client.Close()

	result, err := client.Authorize(context.Background(), pipeline.AuthorizeRequest{
		Handler:    handler,
		Authorized: !revoke,
	})
	if err != nil {
		fmt.Fprintf(errOut, "authorize: %v\n", err)
		return 1
	}
	if err := printJSON(out, result); err != nil {
		fmt.Fprintf(errOut, "encode result: %v\n", err)
		return 1
	}
	return 0
}

func cmdTransfer(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("transfer", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var server string
	var sig signingFlags
	fs.StringVar(&server, "server", "", "custodyd address")
	sig.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	domain, claim, seed, code := sig.resolve(fs, errOut)
	if code != 0 {
		return code
	}
	token, err := keys.SignClaimWithSeed(domain, claim, seed)
	if err != nil {
		fmt.Fprintf(errOut, "sign claim: %v\n", err)
		return 1
	}
	id, err := keys.IdentityFromSeed(seed)
	if err != nil {
		fmt.Fprintf(errOut, "derive identity: %v\n", err)
		return 1
	}

	client, code := dialServer(server, errOut)
	if code != 0 {
		return code
	}
	defer client.Close()

	result, err := client.Transfer(context.Background(), pipeline.TransferRequest{
		Handler:   id.String(),
		Claim:     claim,
		Signature: token,
	})
	if err != nil {
		fmt.Fprintf(errOut, "transfer: %v\n", err)
		return 1
	}
	if err := printJSON(out, result); err != nil {
		fmt.Fprintf(errOut, "encode result: %v\n", err)
		return 1
	}
	return 0
}

func cmdHistory(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var server string
	var item uint64
	fs.StringVar(&server, "server", "", "custodyd address")
	fs.Uint64Var(&item, "item", 0, "Item identifier")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !flagProvided(fs, "item") {
		fmt.Fprintln(errOut, "missing --item")
		return 2
	}

	client, code := dialServer(server, errOut)
	if code != 0 {
		return code
	}
	defer client.Close()

	events, err := client.History(context.Background(), item)
	if err != nil {
		fmt.Fprintf(errOut, "history: %v\n", err)
		return 1
	}
	if err := printJSON(out, events); err != nil {
		fmt.Fprintf(errOut, "encode result: %v\n", err)
		return 1
	}
	return 0
}

func cmdItem(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("item", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var server string
	var item uint64
	fs.StringVar(&server, "server", "", "custodyd address")
	fs.Uint64Var(&item, "item", 0, "Item identifier")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !flagProvided(fs, "item") {
		fmt.Fprintln(errOut, "missing --item")
		return 2
	}

	client, code := dialServer(server, errOut)
	if code != 0 {
		return code
	}
	defer client.Close()

	rec, err := client.Item(context.Background(), item)
	if err != nil {
		fmt.Fprintf(errOut, "item: %v\n", err)
		return 1
	}
	if err := printJSON(out, rec); err != nil {
		fmt.Fprintf(errOut, "encode result: %v\n", err)
		return 1
	}
	return 0
}

func cmdAudit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var server, outPath string
	var item uint64
	fs.StringVar(&server, "server", "", "custodyd address")
	fs.Uint64Var(&item, "item", 0, "Item identifier")
	fs.StringVar(&outPath, "out", "", "Write bundle bytes to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !flagProvided(fs, "item") {
		fmt.Fprintln(errOut, "missing --item")
		return 2
	}

	client, code := dialServer(server, errOut)
	if code != 0 {
		return code
	}
	defer client.Close()

	bundle, err := client.AuditExport(context.Background(), item)
	if err != nil {
		fmt.Fprintf(errOut, "audit export: %v\n", err)
		return 1
	}

	if outPath != "" {
		if err := os.WriteFile(outPath, bundle.Bytes, 0o644); err != nil {
			fmt.Fprintf(errOut, "write bundle: %v\n", err)
			return 1
		}
	} else if _, err := out.Write(bundle.Bytes); err != nil {
		fmt.Fprintf(errOut, "write bundle: %v\n", err)
		return 1
	}
	fmt.Fprintf(errOut, "CID: %s\n", bundle.CID)
	return 0
}
