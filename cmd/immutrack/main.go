// immutrack is the custody CLI: local key management, claim signing, and
// client commands against a custodyd node.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"immutrack.io/custody/attest"
	"immutrack.io/custody/keys"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "sign":
		return cmdSign(args[1:], out, errOut)
	case "register":
		return cmdRegister(args[1:], out, errOut)
	case "authorize":
		return cmdAuthorize(args[1:], out, errOut)
	case "transfer":
		return cmdTransfer(args[1:], out, errOut)
	case "history":
		return cmdHistory(args[1:], out, errOut)
	case "item":
		return cmdItem(args[1:], out, errOut)
	case "audit":
		return cmdAudit(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "immutrack: custody tracking CLI")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  immutrack key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  immutrack key derive --name <name> --site <site> [--force]")
	fmt.Fprintln(w, "  immutrack key list")
	fmt.Fprintln(w, "  immutrack key export --name <name> [--site <site>]")
	fmt.Fprintln(w, "  immutrack sign --item <id> --location <text> --network <net> --ledger <0x..> (--seed-hex <64hex> | --signer <name> [--site <site>] | --key-file <path>)")
	fmt.Fprintln(w, "  immutrack register --server <addr> --item <id> --name <text> --location <text> [--timestamp <t>] [--by <0x..>]")
	fmt.Fprintln(w, "  immutrack authorize --server <addr> --handler <0x..> [--revoke]")
	fmt.Fprintln(w, "  immutrack transfer --server <addr> --item <id> --location <text> --network <net> --ledger <0x..> (signing flags as for sign)")
	fmt.Fprintln(w, "  immutrack history --server <addr> --item <id>")
	fmt.Fprintln(w, "  immutrack item --server <addr> --item <id>")
	fmt.Fprintln(w, "  immutrack audit --server <addr> --item <id> [--out <file>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - --seed-hex must be 32 bytes (64 hex chars) ed25519 seed")
	fmt.Fprintln(w, "  - keys are stored under ~/.immutrack/keys/<name> (0600 seed files)")
	fmt.Fprintln(w, "  - --network and --ledger must match the custodyd deployment exactly")
	fmt.Fprintln(w, "  - transfer signs locally; the seed never leaves this machine")
	fmt.Fprintln(w, "  - audit writes canonical bundle bytes and prints the bundle CID to stderr")
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: immutrack key <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: init, derive, list, export")
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(args[1:], out, errOut)
	case "derive":
		return cmdKeyDerive(args[1:], out, errOut)
	case "list":
		return cmdKeyList(args[1:], out, errOut)
	case "export":
		return cmdKeyExport(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n", args[0])
		return 2
	}
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key init", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var name, seedHex string
	var force bool
	fs.StringVar(&name, "name", "", "Handler key name")
	fs.StringVar(&seedHex, "seed-hex", "", "ed25519 seed as 64 hex chars (random when omitted)")
	fs.BoolVar(&force, "force", false, "Overwrite an existing key")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}

	seed, err := resolveSeed(seedHex)
	if err != nil {
		fmt.Fprintf(errOut, "invalid seed: %v\n", err)
		return 2
	}
	ks, err := keys.OpenStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	key, path, err := ks.InitializeRootKey(name, seed, force)
	if err != nil {
		fmt.Fprintf(errOut, "init key: %v\n", err)
		return 1
	}
	id, err := attest.IdentityFromAttestationKey(key)
	if err != nil {
		fmt.Fprintf(errOut, "derive identity: %v\n", err)
		return 1
	}
	fmt.Fprintf(errOut, "stored %s\n", path)
	fmt.Fprintf(out, "%s\t%s\n", id, key)
	return 0
}

func cmdKeyDerive(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key derive", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var name, site string
	var force bool
	fs.StringVar(&name, "name", "", "Handler key name")
	fs.StringVar(&site, "site", "", "Site to derive a key for")
	fs.BoolVar(&force, "force", false, "Overwrite an existing site key")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" || site == "" {
		fmt.Fprintln(errOut, "usage: immutrack key derive --name <name> --site <site> [--force]")
		return 2
	}

	ks, err := keys.OpenStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	key, path, err := ks.DeriveSiteKey(name, site, force)
	if err != nil {
		fmt.Fprintf(errOut, "derive key: %v\n", err)
		return 1
	}
	id, err := attest.IdentityFromAttestationKey(key)
	if err != nil {
		fmt.Fprintf(errOut, "derive identity: %v\n", err)
		return 1
	}
	fmt.Fprintf(errOut, "stored %s\n", path)
	fmt.Fprintf(out, "%s\t%s\n", id, key)
	return 0
}

func cmdKeyList(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key list", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	ks, err := keys.OpenStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	entries, err := ks.ListKeys()
	if err != nil {
		fmt.Fprintf(errOut, "list keys: %v\n", err)
		return 1
	}
	for _, e := range entries {
		if len(e.Sites) == 0 {
			fmt.Fprintln(out, e.Handler)
			continue
		}
		for _, site := range e.Sites {
			fmt.Fprintf(out, "%s\t%s\n", e.Handler, site)
		}
	}
	return 0
}

func cmdKeyExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key export", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var name, site string
	fs.StringVar(&name, "name", "", "Handler key name")
	fs.StringVar(&site, "site", "", "Exported site key (root key when omitted)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	ks, err := keys.OpenStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	key, err := ks.ExportKey(name, site)
	if err != nil {
		fmt.Fprintf(errOut, "export key: %v\n", err)
		return 1
	}
	id, err := attest.IdentityFromAttestationKey(key)
	if err != nil {
		fmt.Fprintf(errOut, "derive identity: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "%s\t%s\n", id, key)
	return 0
}

func cmdSign(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var sig signingFlags
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
	fmt.Fprintf(errOut, "Handler: %s\n", id)
	fmt.Fprintln(out, token)
	return 0
}
