package grpcledger

import (
	"immutrack.io/custody/codec"
	"immutrack.io/custody/ledger"
)

// submission is the CBOR wire form of a sequenced mutation.
type submission struct {
	Sequence uint64           `cbor:"sequence"`
	Kind     string           `cbor:"kind"`
	Payload  codec.RawMessage `cbor:"payload"`
}

func encodeSubmission(seq uint64, m ledger.Mutation) ([]byte, error) {
	if m == nil {
		return nil, ledger.ErrInvalidMutation
	}
	payload, err := codec.Marshal(m)
	if err != nil {
		return nil, err
	}
	return codec.Marshal(submission{Sequence: seq, Kind: m.Kind(), Payload: payload})
}

func decodeSubmission(b []byte) (uint64, ledger.Mutation, error) {
	var sub submission
	if err := codec.Unmarshal(b, &sub); err != nil {
		return 0, nil, ledger.ErrInvalidMutation
	}

	var m ledger.Mutation
	switch sub.Kind {
	case ledger.KindRegisterItem:
		var mut ledger.RegisterItem
		if err := codec.Unmarshal(sub.Payload, &mut); err != nil {
			return 0, nil, ledger.ErrInvalidMutation
		}
		m = mut
	case ledger.KindSetAuthorization:
		var mut ledger.SetHandlerAuthorization
		if err := codec.Unmarshal(sub.Payload, &mut); err != nil {
			return 0, nil, ledger.ErrInvalidMutation
		}
		m = mut
	case ledger.KindTransferItem:
		var mut ledger.TransferItem
		if err := codec.Unmarshal(sub.Payload, &mut); err != nil {
			return 0, nil, ledger.ErrInvalidMutation
		}
		m = mut
	default:
		return 0, nil, ledger.ErrInvalidMutation
	}
	return sub.Sequence, m, nil
}
