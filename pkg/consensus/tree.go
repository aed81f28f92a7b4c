package consensus

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Shapooo/dash-plat/pkg/wire"
)

// commitWindow is the HotStuff three-chain depth: a block commits once
// three further blocks have been QC-chained on top of it (glossary
// "HotStuff three-chain"; grounded on xbee-dex/pkg/consensus/chain.go's
// `if round > 3 { c.finalize(round - 3) }`, whose comment cites the same
// three-chain corollary this project's commit rule implements).
const commitWindow = 3

// Tree is a compact, append-only view of the block DAG the real
// consensus library would maintain internally. It is the read side of
// the "external collaborator" boundary (spec §6): pkg/blockprod and
// pkg/clientactor only ever read it through the snapshot accessors
// below, never mutate it directly.
type Tree struct {
	mu                     sync.RWMutex
	blocks                 map[Hash]*Block
	byHeight               map[uint64]*Block
	dataHashes             map[wire.TransactionHash]Hash
	highestCommittedHeight uint64
	highest                *Block
}

// NewTree seeds the tree with a genesis block at height 0, reachable
// through a genesis QC.
func NewTree(genesisHash Hash) *Tree {
	genesis := &Block{
		Hash:     genesisHash,
		Height:   0,
		ParentQC: QC{Genesis: true},
	}
	t := &Tree{
		blocks:     map[Hash]*Block{genesisHash: genesis},
		byHeight:   map[uint64]*Block{0: genesis},
		dataHashes: make(map[wire.TransactionHash]Hash),
		highest:    genesis,
	}
	return t
}

// Insert appends a new block once its parent is known, advancing the
// commit window by the three-chain rule. It is the only mutator; the
// real system calls it as the consensus library delivers newly
// QC-certified blocks.
func (t *Tree) Insert(b *Block) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.blocks[b.Hash]; ok {
		return fmt.Errorf("consensus: block %x already in tree", b.Hash)
	}
	if !IsGenesisQC(b.ParentQC) {
		if _, ok := t.blocks[b.ParentQC.BlockHash]; !ok {
			return fmt.Errorf("consensus: block %x has unknown parent %x", b.Hash, b.ParentQC.BlockHash)
		}
	}

	t.blocks[b.Hash] = b
	t.byHeight[b.Height] = b
	t.dataHashes[b.DataHash] = b.Hash
	if b.Height > t.highest.Height {
		t.highest = b
	}
	if b.Height > commitWindow {
		committable := b.Height - commitWindow
		if committable > t.highestCommittedHeight {
			t.highestCommittedHeight = committable
		}
	}
	return nil
}

// HighestCommittedBlock returns the highest block the three-chain rule
// has finalized so far.
func (t *Tree) HighestCommittedBlock() *Block {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byHeight[t.highestCommittedHeight]
}

// HighestBlock returns the highest block known to the tree regardless
// of commit status — the parent pkg/blockprod extends next.
func (t *Tree) HighestBlock() *Block {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.highest
}

// BlockAtHeight returns the block at height h, if the tree has one.
func (t *Tree) BlockAtHeight(h uint64) (*Block, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.byHeight[h]
	return b, ok
}

// Parent returns b's parent block, unless b extends the genesis QC.
func (t *Tree) Parent(b *Block) (*Block, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if IsGenesisQC(b.ParentQC) {
		return nil, false
	}
	p, ok := t.blocks[b.ParentQC.BlockHash]
	return p, ok
}

// BlockDataHash returns b's data hash.
func (t *Tree) BlockDataHash(b *Block) wire.TransactionHash {
	return b.DataHash
}

// BlockHeight returns b's height.
func (t *Tree) BlockHeight(b *Block) uint64 {
	return b.Height
}

// BlockJustify returns b's parent QC.
func (t *Tree) BlockJustify(b *Block) QC {
	return b.ParentQC
}

// HighestHeight returns the height of the highest block known to the
// tree, regardless of commit status.
func (t *Tree) HighestHeight() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.highest.Height
}

// CommittedHeight returns the height the three-chain rule has
// finalized so far.
func (t *Tree) CommittedHeight() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.highestCommittedHeight
}

// Describe renders up to maxBlocks of the committed chain, most recent
// first, as a human-readable ancestry dump — a linear stand-in for
// xbee-dex/pkg/consensus/chain.go's Graphviz, simplified because this
// project's tree tracks a single committed chain rather than competing
// weighted forks.
func (t *Tree) Describe(maxBlocks int) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out strings.Builder
	h := t.highestCommittedHeight
	for i := 0; i < maxBlocks; i++ {
		b, ok := t.byHeight[h]
		if !ok {
			break
		}
		fmt.Fprintf(&out, "height=%d block=%x data_hash=%x\n", b.Height, b.Hash, b.DataHash)
		if h == 0 {
			break
		}
		h--
	}
	return out.String()
}

// HasDataHash reports whether some block in the tree already carries
// dataHash — the basis for validate_block's duplicate-proposal rejection
// (spec §4.6, B5).
func (t *Tree) HasDataHash(dataHash wire.TransactionHash) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.dataHashes[dataHash]
	return ok
}
