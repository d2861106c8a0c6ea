package ledger

import "immutrack.io/custody/attest"

// Mutation is a ledger state change. Exactly three kinds exist: item
// registration, handler authorization, and custody transfer.
type Mutation interface {
	// Kind returns the stable mutation kind name used on the wire.
	Kind() string
}

// Mutation kind names.
const (
	KindRegisterItem     = "registerItem"
	KindSetAuthorization = "setHandlerAuthorization"
	KindTransferItem     = "transferItem"
)

// RegisterItem creates an item record. Registering an already existing id is
// rejected; idempotent registration is the caller's concern (check existence
// first and skip the mutation).
type RegisterItem struct {
	ItemID       uint64          `cbor:"itemId"`
	Name         string          `cbor:"name"`
	Location     string          `cbor:"location"`
	Timestamp    string          `cbor:"timestamp"`
	RegisteredBy attest.Identity `cbor:"registeredBy"`
}

func (RegisterItem) Kind() string { return KindRegisterItem }

// SetHandlerAuthorization toggles a handler's authorization flag. Only the
// ledger's configured owner identity may submit it.
type SetHandlerAuthorization struct {
	Handler    attest.Identity `cbor:"handler"`
	Authorized bool            `cbor:"authorized"`
}

func (SetHandlerAuthorization) Kind() string { return KindSetAuthorization }

// TransferItem appends a custody transfer to an item's history. The item must
// exist and the receiving handler must be authorized.
type TransferItem struct {
	ItemID    uint64          `cbor:"itemId"`
	To        attest.Identity `cbor:"to"`
	Location  string          `cbor:"location"`
	Timestamp string          `cbor:"timestamp"`
}

func (TransferItem) Kind() string { return KindTransferItem }
