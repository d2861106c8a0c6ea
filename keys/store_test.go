package keys

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *KeyStore {
	t.Helper()
	ks, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	return ks
}

func TestInitializeAndExportRootKey(t *testing.T) {
	ks := newTestStore(t)
	seed := testSeed(1)

	key, path, err := ks.InitializeRootKey("alice", seed, false)
	if err != nil {
		t.Fatalf("InitializeRootKey: %v", err)
	}
	if key != AttestationKeyFromSeed(seed) {
		t.Fatalf("attestation key mismatch: %q", key)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("key file mode = %v, want 0600", info.Mode().Perm())
	}

	exported, err := ks.ExportKey("alice", "")
	if err != nil {
		t.Fatalf("ExportKey: %v", err)
	}
	if exported != key {
		t.Fatalf("ExportKey = %q, want %q", exported, key)
	}

	// A second init without overwrite must not clobber the seed.
	if _, _, err := ks.InitializeRootKey("alice", testSeed(2), false); err == nil {
		t.Fatal("expected overwrite refusal")
	}
}

func TestDeriveSiteKeyAndList(t *testing.T) {
	ks := newTestStore(t)
	rootSeed := testSeed(3)

	if _, _, err := ks.InitializeRootKey("bob", rootSeed, false); err != nil {
		t.Fatalf("InitializeRootKey: %v", err)
	}
	siteKey, path, err := ks.DeriveSiteKey("bob", "warehouse-a", false)
	if err != nil {
		t.Fatalf("DeriveSiteKey: %v", err)
	}
	wantSeed, err := DeriveSiteSeed(rootSeed, "warehouse-a")
	if err != nil {
		t.Fatalf("DeriveSiteSeed: %v", err)
	}
	if siteKey != AttestationKeyFromSeed(wantSeed) {
		t.Fatalf("site key mismatch: %q", siteKey)
	}
	if filepath.Base(path) != "warehouse-a.key" {
		t.Fatalf("unexpected site key path %q", path)
	}

	entries, err := ks.ListKeys()
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if len(entries) != 1 || entries[0].Handler != "bob" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if len(entries[0].Sites) != 1 || entries[0].Sites[0] != "warehouse-a" {
		t.Fatalf("unexpected sites %+v", entries[0].Sites)
	}
}

func TestLoadSeedPriority(t *testing.T) {
	ks := newTestStore(t)
	rootSeed := testSeed(4)
	if _, _, err := ks.InitializeRootKey("carol", rootSeed, false); err != nil {
		t.Fatalf("InitializeRootKey: %v", err)
	}

	// Inline hex wins over the stored key.
	inline := testSeed(5)
	got, err := ks.LoadSeed("0x"+hex.EncodeToString(inline), "carol", "", "")
	if err != nil {
		t.Fatalf("LoadSeed inline: %v", err)
	}
	if string(got) != string(inline) {
		t.Fatal("inline seed not preferred")
	}

	got, err = ks.LoadSeed("", "carol", "", "")
	if err != nil {
		t.Fatalf("LoadSeed stored: %v", err)
	}
	if string(got) != string(rootSeed) {
		t.Fatal("stored root seed not loaded")
	}

	if _, err := ks.LoadSeed("", "", "", ""); err == nil {
		t.Fatal("expected error when no signer provided")
	}
}
