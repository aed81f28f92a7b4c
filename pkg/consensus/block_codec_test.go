package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shapooo/dash-plat/pkg/wire"
)

func TestBlockCodecRoundTrip(t *testing.T) {
	b := &Block{
		Hash:     Hash{0x01, 0x02},
		Height:   7,
		ParentQC: QC{BlockHash: Hash{0x03}, Height: 6},
		DataHash: wire.TransactionHash{0x09},
		Data:     [][]byte{[]byte("payload-one"), []byte("payload-two")},
	}

	buf, err := EncodeBlock(b)
	require.NoError(t, err)

	got, err := DecodeBlock(buf)
	require.NoError(t, err)
	assert.Equal(t, b.Hash, got.Hash)
	assert.Equal(t, b.Height, got.Height)
	assert.Equal(t, b.ParentQC, got.ParentQC)
	assert.Equal(t, b.DataHash, got.DataHash)
	assert.Equal(t, b.Data, got.Data)
}

func TestBlockCodecGenesisBlock(t *testing.T) {
	tree := NewTree(Hash{0xaa})
	genesis, ok := tree.BlockAtHeight(0)
	require.True(t, ok)

	buf, err := EncodeBlock(genesis)
	require.NoError(t, err)
	got, err := DecodeBlock(buf)
	require.NoError(t, err)
	assert.True(t, IsGenesisQC(got.ParentQC))
}
