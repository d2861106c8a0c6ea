// Package cidutil derives content identifiers for custody artifacts.
//
// Commit references and audit bundles are identified by CIDv1 with the "raw"
// multicodec and a sha2-256 multihash, so any party holding the canonical
// bytes can recompute and check the identifier.
package cidutil

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// RawSHA256 returns a CIDv1 (raw + sha2-256) derived from data.
func RawSHA256(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// RawSHA256String returns the string form of RawSHA256.
func RawSHA256String(data []byte) string {
	c, err := RawSHA256(data)
	if err != nil {
		// multihash.Sum with SHA2_256 and default length does not fail.
		return ""
	}
	return c.String()
}
