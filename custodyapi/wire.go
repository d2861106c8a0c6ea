package custodyapi

import (
	"immutrack.io/custody/attest"
	"immutrack.io/custody/ledger"
	"immutrack.io/custody/pipeline"
)

// Wire shapes are cbor-tagged mirrors of the pipeline request/result types,
// so the over-the-wire encoding stays canonical and stable even if the
// pipeline structs grow.

type registerRequest struct {
	ItemID       uint64 `cbor:"itemId"`
	Name         string `cbor:"name"`
	Location     string `cbor:"location"`
	Timestamp    string `cbor:"timestamp"`
	RegisteredBy string `cbor:"registeredBy"`
}

type registerResponse struct {
	Status string            `cbor:"status"`
	Record ledger.ItemRecord `cbor:"record"`
	Ref    ledger.CommitRef  `cbor:"commitRef"`
}

type authorizeRequest struct {
	Handler    string `cbor:"handler"`
	Authorized bool   `cbor:"authorized"`
}

type authorizeResponse struct {
	Status string           `cbor:"status"`
	Ref    ledger.CommitRef `cbor:"commitRef"`
}

type transferRequest struct {
	Handler   string       `cbor:"handler"`
	Claim     attest.Claim `cbor:"claim"`
	Signature string       `cbor:"signature"`
}

type transferResponse struct {
	Status    string           `cbor:"status"`
	Handler   attest.Identity  `cbor:"handler"`
	Timestamp string           `cbor:"timestamp"`
	Ref       ledger.CommitRef `cbor:"commitRef"`
}

func toRegisterRequest(w registerRequest) pipeline.RegisterRequest {
	return pipeline.RegisterRequest{
		ItemID:       w.ItemID,
		Name:         w.Name,
		Location:     w.Location,
		Timestamp:    w.Timestamp,
		RegisteredBy: w.RegisteredBy,
	}
}

func fromRegisterResult(r pipeline.RegisterResult) registerResponse {
	return registerResponse{Status: string(r.Status), Record: r.Record, Ref: r.Ref}
}

func toAuthorizeRequest(w authorizeRequest) pipeline.AuthorizeRequest {
	return pipeline.AuthorizeRequest{Handler: w.Handler, Authorized: w.Authorized}
}

func fromAuthorizeResult(r pipeline.AuthorizeResult) authorizeResponse {
	return authorizeResponse{Status: string(r.Status), Ref: r.Ref}
}

func toTransferRequest(w transferRequest) pipeline.TransferRequest {
	return pipeline.TransferRequest{Handler: w.Handler, Claim: w.Claim, Signature: w.Signature}
}

func fromTransferResult(r pipeline.TransferResult) transferResponse {
	return transferResponse{
		Status:    string(r.Status),
		Handler:   r.Handler,
		Timestamp: r.Timestamp,
		Ref:       r.Ref,
	}
}
