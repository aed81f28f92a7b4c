package wire

import (
	"encoding/binary"
	"fmt"
)

// The wire payload layout is little-endian, fixed-width integers, with a
// 64-bit length prefix on every variable-length field and a one-byte tag
// on every sum type (spec §6). This is the canonical layout this project
// holds across releases; it is not negotiated or versioned.
//
// No third-party codec in the retrieval pack matches this exact shape
// (see DESIGN.md), so it is hand-rolled on top of encoding/binary.

func putPublicKey(buf []byte, k PublicKey) []byte {
	return append(buf, k[:]...)
}

func putHash(buf []byte, h TransactionHash) []byte {
	return append(buf, h[:]...)
}

func putBytes(buf []byte, data []byte) []byte {
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(data)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, data...)
}

func takePublicKey(b []byte) (PublicKey, []byte, error) {
	if len(b) < PublicKeySize {
		return PublicKey{}, nil, fmt.Errorf("wire: short buffer for public key: have %d, want %d", len(b), PublicKeySize)
	}
	var k PublicKey
	copy(k[:], b[:PublicKeySize])
	return k, b[PublicKeySize:], nil
}

func takeHash(b []byte) (TransactionHash, []byte, error) {
	if len(b) < HashSize {
		return TransactionHash{}, nil, fmt.Errorf("wire: short buffer for hash: have %d, want %d", len(b), HashSize)
	}
	var h TransactionHash
	copy(h[:], b[:HashSize])
	return h, b[HashSize:], nil
}

func takeBytes(b []byte) ([]byte, []byte, error) {
	if len(b) < 8 {
		return nil, nil, fmt.Errorf("wire: short buffer for length prefix: have %d, want 8", len(b))
	}
	n := binary.LittleEndian.Uint64(b[:8])
	b = b[8:]
	if uint64(len(b)) < n {
		return nil, nil, fmt.Errorf("wire: short buffer for data: have %d, want %d", len(b), n)
	}
	data := make([]byte, n)
	copy(data, b[:n])
	return data, b[n:], nil
}

// EncodeEnvelope serializes an Envelope: from[32] | to[32] | data(u64 len + bytes).
func EncodeEnvelope(e *Envelope) []byte {
	buf := make([]byte, 0, PublicKeySize*2+8+len(e.Data))
	buf = putPublicKey(buf, e.From)
	buf = putPublicKey(buf, e.To)
	buf = putBytes(buf, e.Data)
	return buf
}

// DecodeEnvelope parses the output of EncodeEnvelope.
func DecodeEnvelope(b []byte) (*Envelope, error) {
	from, b, err := takePublicKey(b)
	if err != nil {
		return nil, fmt.Errorf("wire: decode envelope from: %w", err)
	}
	to, b, err := takePublicKey(b)
	if err != nil {
		return nil, fmt.Errorf("wire: decode envelope to: %w", err)
	}
	data, _, err := takeBytes(b)
	if err != nil {
		return nil, fmt.Errorf("wire: decode envelope data: %w", err)
	}
	return &Envelope{From: from, To: to, Data: data}, nil
}

// EncodeTransactionRequest serializes requester[32] | hash[32] | data(u64 len + bytes).
func EncodeTransactionRequest(t *TransactionRequest) []byte {
	buf := make([]byte, 0, PublicKeySize+HashSize+8+len(t.Data))
	buf = putPublicKey(buf, t.Requester)
	buf = putHash(buf, t.Hash)
	buf = putBytes(buf, t.Data)
	return buf
}

// DecodeTransactionRequest parses the output of EncodeTransactionRequest.
// It does not verify the hash invariant; callers must call VerifyHash.
func DecodeTransactionRequest(b []byte) (*TransactionRequest, error) {
	requester, b, err := takePublicKey(b)
	if err != nil {
		return nil, fmt.Errorf("wire: decode txn requester: %w", err)
	}
	hash, b, err := takeHash(b)
	if err != nil {
		return nil, fmt.Errorf("wire: decode txn hash: %w", err)
	}
	data, _, err := takeBytes(b)
	if err != nil {
		return nil, fmt.Errorf("wire: decode txn data: %w", err)
	}
	return &TransactionRequest{Requester: requester, Hash: hash, Data: data}, nil
}

// EncodeTransactionReceipt serializes receiptor[32] | requester[32] | hash[32] | result(1 byte tag).
func EncodeTransactionReceipt(r *TransactionReceipt) []byte {
	buf := make([]byte, 0, PublicKeySize*2+HashSize+1)
	buf = putPublicKey(buf, r.Receiptor)
	buf = putPublicKey(buf, r.Requester)
	buf = putHash(buf, r.Hash)
	buf = append(buf, byte(r.Result))
	return buf
}

// DecodeTransactionReceipt parses the output of EncodeTransactionReceipt.
func DecodeTransactionReceipt(b []byte) (*TransactionReceipt, error) {
	receiptor, b, err := takePublicKey(b)
	if err != nil {
		return nil, fmt.Errorf("wire: decode receipt receiptor: %w", err)
	}
	requester, b, err := takePublicKey(b)
	if err != nil {
		return nil, fmt.Errorf("wire: decode receipt requester: %w", err)
	}
	hash, b, err := takeHash(b)
	if err != nil {
		return nil, fmt.Errorf("wire: decode receipt hash: %w", err)
	}
	if len(b) < 1 {
		return nil, fmt.Errorf("wire: decode receipt result: short buffer")
	}
	result := Result(b[0])
	if result != Committed && result != Unaccepted {
		return nil, fmt.Errorf("wire: decode receipt result: invalid tag %d", b[0])
	}
	return &TransactionReceipt{Receiptor: receiptor, Requester: requester, Hash: hash, Result: result}, nil
}
