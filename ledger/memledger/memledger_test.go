package memledger_test

import (
	"testing"

	"immutrack.io/custody/ledger"
	"immutrack.io/custody/ledger/memledger"
	"immutrack.io/custody/ledger/testkit"
)

func TestMemLedgerConformance(t *testing.T) {
	testkit.RunLedgerConformance(t, func(t *testing.T, cfg testkit.Config) ledger.Ledger {
		l, err := memledger.New(memledger.Config{Owner: cfg.Owner, Writer: cfg.Writer})
		if err != nil {
			t.Fatalf("memledger.New: %v", err)
		}
		return l
	})
}

func TestNewRequiresOwner(t *testing.T) {
	if _, err := memledger.New(memledger.Config{}); err == nil {
		t.Fatal("expected missing owner to be rejected")
	}
}
