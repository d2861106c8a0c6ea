package ledger

import (
	"github.com/ipfs/go-cid"

	"immutrack.io/custody/cidutil"
	"immutrack.io/custody/codec"
)

// CommitRef is the opaque handle identifying a ledger-accepted mutation,
// used for auditing and correlation.
//
// A commit reference is content-derived: the CIDv1 (raw + sha2-256) of the
// canonical encoding of the committed (sequence, mutation) pair. Any party
// holding the mutation payload and its sequence number can recompute and
// check the reference.
type CommitRef struct {
	c cid.Cid
}

// UndefRef is the zero, undefined commit reference.
var UndefRef CommitRef

// CommitRefFor derives the commit reference for mutation m committed at seq.
func CommitRefFor(seq uint64, m Mutation) (CommitRef, error) {
	if m == nil {
		return UndefRef, ErrInvalidMutation
	}
	b, err := codec.Marshal(struct {
		Sequence uint64 `cbor:"sequence"`
		Kind     string `cbor:"kind"`
		Mutation any    `cbor:"mutation"`
	}{Sequence: seq, Kind: m.Kind(), Mutation: m})
	if err != nil {
		return UndefRef, err
	}
	c, err := cidutil.RawSHA256(b)
	if err != nil {
		return UndefRef, err
	}
	return CommitRef{c: c}, nil
}

// ParseCommitRef parses the string form of a commit reference.
func ParseCommitRef(s string) (CommitRef, error) {
	c, err := cid.Decode(s)
	if err != nil || !c.Defined() {
		return UndefRef, ErrInvalidRef
	}
	return CommitRef{c: c}, nil
}

// Defined reports whether r refers to a committed mutation.
func (r CommitRef) Defined() bool { return r.c.Defined() }

// String returns the canonical string form, or "" when undefined.
func (r CommitRef) String() string {
	if !r.c.Defined() {
		return ""
	}
	return r.c.String()
}

// MarshalText implements encoding.TextMarshaler.
func (r CommitRef) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty text decodes to
// UndefRef.
func (r *CommitRef) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*r = UndefRef
		return nil
	}
	parsed, err := ParseCommitRef(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
