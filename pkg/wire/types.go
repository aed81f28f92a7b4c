// Package wire defines the data model and binary encoding shared by every
// connection in the system: the peer-to-peer envelope and the
// client-to-node transaction request/receipt pair.
package wire

import (
	"crypto/sha256"
	"fmt"
)

// PublicKeySize is the fixed width of a validator or client identifier.
const PublicKeySize = 32

// HashSize is the width of a transaction hash (SHA-256 of its payload).
const HashSize = 32

// PublicKey identifies a validator or client. It is opaque to this
// package: key generation and PEM/base64 conversion are the external
// crypto collaborator's job (spec §6).
type PublicKey [PublicKeySize]byte

func (k PublicKey) String() string {
	return fmt.Sprintf("%x", k[:4])
}

// TransactionHash uniquely identifies a transaction; it is always
// SHA256(data) (see TransactionRequest.VerifyHash).
type TransactionHash [HashSize]byte

func (h TransactionHash) String() string {
	return fmt.Sprintf("%x", h[:4])
}

// SHA256 hashes an arbitrary payload into a TransactionHash.
func SHA256(data []byte) TransactionHash {
	return sha256.Sum256(data)
}

// Result is the outcome a validator reports for a transaction.
type Result uint8

const (
	// Committed means the transaction was included in a finalized block.
	Committed Result = 0
	// Unaccepted is reserved for future use; the current core never
	// emits it (spec §4.7).
	Unaccepted Result = 1
)

func (r Result) String() string {
	switch r {
	case Committed:
		return "Committed"
	case Unaccepted:
		return "Unaccepted"
	default:
		return fmt.Sprintf("Result(%d)", uint8(r))
	}
}

// TransactionRequest is submitted by a client and forwarded into the
// block-production pipeline. The invariant Hash == SHA256(Data) is
// checked by VerifyHash; callers that receive a request off the wire
// must check it before trusting Hash.
type TransactionRequest struct {
	Requester PublicKey
	Hash      TransactionHash
	Data      []byte
}

// VerifyHash reports whether the request's declared hash matches its
// payload. Malformed requests (hash mismatch) are dropped by the
// receiver per spec §3.
func (t *TransactionRequest) VerifyHash() bool {
	return t.Hash == SHA256(t.Data)
}

// NewTransactionRequest builds a request with Hash computed from data.
func NewTransactionRequest(requester PublicKey, data []byte) *TransactionRequest {
	return &TransactionRequest{
		Requester: requester,
		Hash:      SHA256(data),
		Data:      data,
	}
}

// TransactionReceipt is a single validator's attestation that a
// transaction reached the stated result. One receipt is produced per
// (validator, transaction) pair.
type TransactionReceipt struct {
	Receiptor PublicKey
	Requester PublicKey
	Hash      TransactionHash
	Result    Result
}

// Envelope is the peer-to-peer wrapper carrying an opaque consensus
// message between validators. Receivers must drop envelopes whose To
// does not match their own public key (spec §4.5).
type Envelope struct {
	From PublicKey
	To   PublicKey
	Data []byte
}
