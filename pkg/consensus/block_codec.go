package consensus

import "github.com/ethereum/go-ethereum/rlp"

// rlpBlock mirrors Block in a shape rlp can encode directly: Hash and
// QC.BlockHash are fixed-size arrays rlp handles natively, so only the
// field layout needs flattening.
type rlpBlock struct {
	Hash            Hash
	Height          uint64
	ParentQCHash    Hash
	ParentQCHeight  uint64
	ParentQCGenesis bool
	DataHash        [BlockHashSize]byte
	Data            [][]byte
}

// EncodeBlock RLP-encodes a block the way the real consensus library
// would serialize a proposal for gossip between validators (gossip
// itself is out of scope, spec §1; this is the wire shape it would use,
// grounded on xbee-dex/pkg/consensus/chain.go's
// rlp.EncodeToBytes(txns) block-body encoding).
func EncodeBlock(b *Block) ([]byte, error) {
	return rlp.EncodeToBytes(&rlpBlock{
		Hash:            b.Hash,
		Height:          b.Height,
		ParentQCHash:    b.ParentQC.BlockHash,
		ParentQCHeight:  b.ParentQC.Height,
		ParentQCGenesis: b.ParentQC.Genesis,
		DataHash:        b.DataHash,
		Data:            b.Data,
	})
}

// DecodeBlock reverses EncodeBlock.
func DecodeBlock(buf []byte) (*Block, error) {
	var rb rlpBlock
	if err := rlp.DecodeBytes(buf, &rb); err != nil {
		return nil, err
	}
	return &Block{
		Hash: rb.Hash,
		Height: rb.Height,
		ParentQC: QC{
			BlockHash: rb.ParentQCHash,
			Height:    rb.ParentQCHeight,
			Genesis:   rb.ParentQCGenesis,
		},
		DataHash: rb.DataHash,
		Data:     rb.Data,
	}, nil
}
