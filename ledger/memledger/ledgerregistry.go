package memledger

import (
	"flag"
	"fmt"

	"immutrack.io/custody/attest"
	"immutrack.io/custody/ledger"
	"immutrack.io/custody/ledger/ledgerregistry"
)

var (
	flagOwner  string
	flagWriter string
)

func init() {
	ledgerregistry.MustRegister(ledgerregistry.Backend{
		Name:        "mem",
		Description: "In-process custody ledger (volatile; dev and test only)",
		Usage:       ledgerregistry.UsageCLI | ledgerregistry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagOwner, "mem-owner", "", "Owner identity 0x... (for --backend=mem)")
			fs.StringVar(&flagWriter, "mem-writer", "", "Writer identity 0x...; defaults to owner (for --backend=mem)")
		},
		Open: func() (ledger.Ledger, func() error, error) {
			if flagOwner == "" {
				return nil, nil, fmt.Errorf("missing --mem-owner")
			}
			owner, err := attest.ParseIdentity(flagOwner)
			if err != nil {
				return nil, nil, err
			}
			var writer attest.Identity
			if flagWriter != "" {
				writer, err = attest.ParseIdentity(flagWriter)
				if err != nil {
					return nil, nil, err
				}
			}
			l, err := New(Config{Owner: owner, Writer: writer})
			return l, nil, err
		},
	})
}
