package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionRequestRoundTrip(t *testing.T) {
	req := NewTransactionRequest(PublicKey{1, 2, 3}, []byte("hello consensus"))
	assert.True(t, req.VerifyHash())

	encoded := EncodeTransactionRequest(req)
	decoded, err := DecodeTransactionRequest(encoded)
	require.NoError(t, err)
	assert.Equal(t, req, decoded)
	assert.True(t, decoded.VerifyHash())
}

func TestTransactionRequestEmptyData(t *testing.T) {
	req := NewTransactionRequest(PublicKey{9}, nil)
	encoded := EncodeTransactionRequest(req)
	decoded, err := DecodeTransactionRequest(encoded)
	require.NoError(t, err)
	assert.Equal(t, TransactionHash(SHA256(nil)), decoded.Hash)
}

func TestTransactionRequestHashMismatchDetected(t *testing.T) {
	req := NewTransactionRequest(PublicKey{1}, []byte("original"))
	req.Data = []byte("tampered")
	assert.False(t, req.VerifyHash())
}

func TestTransactionReceiptRoundTrip(t *testing.T) {
	for _, result := range []Result{Committed, Unaccepted} {
		receipt := &TransactionReceipt{
			Receiptor: PublicKey{4, 5, 6},
			Requester: PublicKey{7, 8, 9},
			Hash:      TransactionHash{1, 1, 1},
			Result:    result,
		}
		encoded := EncodeTransactionReceipt(receipt)
		decoded, err := DecodeTransactionReceipt(encoded)
		require.NoError(t, err)
		assert.Equal(t, receipt, decoded)
	}
}

func TestTransactionReceiptInvalidTag(t *testing.T) {
	receipt := &TransactionReceipt{Result: Committed}
	encoded := EncodeTransactionReceipt(receipt)
	encoded[len(encoded)-1] = 0xff
	_, err := DecodeTransactionReceipt(encoded)
	assert.Error(t, err)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env := &Envelope{
		From: PublicKey{1},
		To:   PublicKey{2},
		Data: []byte("opaque consensus message bytes"),
	}
	encoded := EncodeEnvelope(env)
	decoded, err := DecodeEnvelope(encoded)
	require.NoError(t, err)
	assert.Equal(t, env, decoded)
}

func TestEnvelopeEmptyData(t *testing.T) {
	env := &Envelope{From: PublicKey{1}, To: PublicKey{2}}
	encoded := EncodeEnvelope(env)
	decoded, err := DecodeEnvelope(encoded)
	require.NoError(t, err)
	assert.Empty(t, decoded.Data)
}

func TestDecodeTruncatedBufferErrors(t *testing.T) {
	req := NewTransactionRequest(PublicKey{1}, []byte("x"))
	encoded := EncodeTransactionRequest(req)
	for i := 0; i < len(encoded); i++ {
		_, err := DecodeTransactionRequest(encoded[:i])
		assert.Error(t, err, "truncated at %d should error", i)
	}
}
