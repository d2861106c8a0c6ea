package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// KeyStore is a local-first filesystem keystore for handler seeds.
//
// Layout: <dir>/<handler>/root.key holds the root seed, and
// <dir>/<handler>/sites/<site>.key holds derived site seeds. Seeds are hex,
// one per file, mode 0600.
type KeyStore struct {
	Directory string
}

// KeyEntry describes one stored handler key and its derived site keys.
type KeyEntry struct {
	Handler string
	Sites   []string
}

// DefaultDirectory returns the default keystore location, ~/.immutrack/keys.
func DefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".immutrack", "keys"), nil
}

// OpenStore opens a keystore rooted at directory, defaulting to
// DefaultDirectory when empty.
func OpenStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = DefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

func (ks *KeyStore) rootKeyPath(handler string) string {
	return filepath.Join(ks.Directory, handler, "root.key")
}

func (ks *KeyStore) siteKeyPath(handler, site string) string {
	return filepath.Join(ks.Directory, handler, "sites", site+".key")
}

// CheckHandlerName validates a keystore handler name.
func CheckHandlerName(name string) error {
	if name == "" {
		return errors.New("handler name cannot be empty")
	}
	for _, char := range name {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in handler name", char)
	}
	return nil
}

// CheckSite validates a site name.
func CheckSite(site string) error {
	if site == "" {
		return errors.New("site cannot be empty")
	}
	for _, char := range site {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in site", char)
	}
	return nil
}

// ParseSeedHex parses a hex seed, with or without a 0x prefix.
func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimSpace(seedHex)
	seedHex = strings.TrimPrefix(seedHex, "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(data))
	}
	return data, nil
}

func (ks *KeyStore) saveSeedToFile(filePath string, seed []byte, overwrite bool) error {
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("expected seed length of %d bytes", ed25519.SeedSize)
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(filePath, flags, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		return err
	}
	return file.Close()
}

func (ks *KeyStore) loadSeedFromFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(strings.TrimSpace(string(data)))
}

// InitializeRootKey stores a handler's root seed and returns its attestation
// key and file path.
func (ks *KeyStore) InitializeRootKey(handler string, seed []byte, overwrite bool) (attestationKey string, filePath string, err error) {
	if err := CheckHandlerName(handler); err != nil {
		return "", "", err
	}
	filePath = ks.rootKeyPath(handler)
	if err := ks.saveSeedToFile(filePath, seed, overwrite); err != nil {
		return "", "", err
	}
	return AttestationKeyFromSeed(seed), filePath, nil
}

// DeriveSiteKey derives and stores a site-scoped key under a handler's root.
func (ks *KeyStore) DeriveSiteKey(handler, site string, overwrite bool) (attestationKey string, filePath string, err error) {
	if err := CheckHandlerName(handler); err != nil {
		return "", "", err
	}
	if err := CheckSite(site); err != nil {
		return "", "", err
	}
	rootSeed, err := ks.loadSeedFromFile(ks.rootKeyPath(handler))
	if err != nil {
		return "", "", err
	}
	siteSeed, err := DeriveSiteSeed(rootSeed, site)
	if err != nil {
		return "", "", err
	}
	filePath = ks.siteKeyPath(handler, site)
	if err := ks.saveSeedToFile(filePath, siteSeed, overwrite); err != nil {
		return "", "", err
	}
	return AttestationKeyFromSeed(siteSeed), filePath, nil
}

// ExportKey returns the attestation key for a stored handler key; site may be
// empty for the root key.
func (ks *KeyStore) ExportKey(handler, site string) (string, error) {
	if err := CheckHandlerName(handler); err != nil {
		return "", err
	}
	var seed []byte
	var err error
	if site == "" {
		seed, err = ks.loadSeedFromFile(ks.rootKeyPath(handler))
	} else {
		if err := CheckSite(site); err != nil {
			return "", err
		}
		seed, err = ks.loadSeedFromFile(ks.siteKeyPath(handler, site))
	}
	if err != nil {
		return "", err
	}
	return AttestationKeyFromSeed(seed), nil
}

// LoadSeed resolves a signing seed from, in priority order: an inline hex
// seed, an explicit key file, or a stored handler (optionally site) key.
func (ks *KeyStore) LoadSeed(seedHex, handler, site, keyFile string) ([]byte, error) {
	if seedHex != "" {
		return ParseSeedHex(seedHex)
	}
	if keyFile != "" {
		return ks.loadSeedFromFile(keyFile)
	}
	if handler != "" {
		if err := CheckHandlerName(handler); err != nil {
			return nil, err
		}
		if site == "" {
			return ks.loadSeedFromFile(ks.rootKeyPath(handler))
		}
		if err := CheckSite(site); err != nil {
			return nil, err
		}
		return ks.loadSeedFromFile(ks.siteKeyPath(handler, site))
	}
	return nil, errors.New("no signer provided")
}

// ListKeys lists stored handler keys and their derived site keys.
func (ks *KeyStore) ListKeys() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var handlers []string
	for _, entry := range entries {
		if entry.IsDir() {
			handlers = append(handlers, entry.Name())
		}
	}
	sort.Strings(handlers)

	var result []KeyEntry
	for _, handler := range handlers {
		sitesDir := filepath.Join(ks.Directory, handler, "sites")
		siteEntries, serr := os.ReadDir(sitesDir)
		var sites []string
		if serr == nil {
			for _, siteEntry := range siteEntries {
				if siteEntry.IsDir() {
					continue
				}
				if strings.HasSuffix(siteEntry.Name(), ".key") {
					sites = append(sites, strings.TrimSuffix(siteEntry.Name(), ".key"))
				}
			}
			sort.Strings(sites)
		}
		result = append(result, KeyEntry{Handler: handler, Sites: sites})
	}
	return result, nil
}
