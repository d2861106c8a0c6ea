package main

import (
	"bytes"
	"strings"
	"testing"
)

// Item id 0 is a valid identifier; only an omitted --item is a usage error.
func TestItemZeroIsNotMissing(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"item", []string{"item", "--item", "0"}, "missing --server"},
		{"history", []string{"history", "--item", "0"}, "missing --server"},
		{"audit", []string{"audit", "--item", "0"}, "missing --server"},
		{"register", []string{"register", "--item", "0"}, "missing --item, --name or --location"},
		{"sign", []string{"sign", "--item", "0", "--location", "Dock 4"}, "missing --network or --ledger"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			if code := run(tc.args, &out, &errOut); code != 2 {
				t.Fatalf("run(%v) = %d, want 2", tc.args, code)
			}
			if !strings.Contains(errOut.String(), tc.want) {
				t.Fatalf("stderr = %q, want %q", errOut.String(), tc.want)
			}
			if tc.name != "register" && strings.Contains(errOut.String(), "missing --item") {
				t.Fatalf("stderr = %q, --item 0 reported as missing", errOut.String())
			}
		})
	}
}

func TestOmittedItemIsMissing(t *testing.T) {
	for _, args := range [][]string{
		{"item", "--server", "localhost:7788"},
		{"history", "--server", "localhost:7788"},
		{"audit", "--server", "localhost:7788"},
	} {
		var out, errOut bytes.Buffer
		if code := run(args, &out, &errOut); code != 2 {
			t.Fatalf("run(%v) = %d, want 2", args, code)
		}
		if !strings.Contains(errOut.String(), "missing --item") {
			t.Fatalf("stderr = %q, want missing --item", errOut.String())
		}
	}
}
