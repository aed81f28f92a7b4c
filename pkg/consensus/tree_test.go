package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shapooo/dash-plat/pkg/wire"
)

func chainOf(t *testing.T, tree *Tree, genesis Hash, n int) []*Block {
	t.Helper()
	blocks := make([]*Block, 0, n)
	parentHash := genesis
	parentHeight := uint64(0)
	genesisQC := true
	for i := 1; i <= n; i++ {
		b := &Block{
			Hash:     Hash{byte(i)},
			Height:   uint64(i),
			DataHash: wire.TransactionHash{byte(i)},
		}
		if genesisQC {
			b.ParentQC = QC{Genesis: true}
		} else {
			b.ParentQC = QC{BlockHash: parentHash, Height: parentHeight}
		}
		require.NoError(t, tree.Insert(b))
		blocks = append(blocks, b)
		parentHash = b.Hash
		parentHeight = b.Height
		genesisQC = false
	}
	return blocks
}

func TestTreeCommitsThreeBehindHighest(t *testing.T) {
	genesis := Hash{0xff}
	tree := NewTree(genesis)
	blocks := chainOf(t, tree, genesis, 5)

	// Highest inserted is height 5; three-chain commits up to height 2.
	committed := tree.HighestCommittedBlock()
	require.NotNil(t, committed)
	assert.Equal(t, uint64(2), committed.Height)
	assert.Equal(t, blocks[1].Hash, committed.Hash)
}

func TestTreeCommitDoesNotRegress(t *testing.T) {
	genesis := Hash{0xff}
	tree := NewTree(genesis)
	chainOf(t, tree, genesis, 4)
	assert.Equal(t, uint64(1), tree.HighestCommittedBlock().Height)

	// A duplicate insert at a lower height must not move the commit
	// pointer backwards.
	err := tree.Insert(&Block{Hash: Hash{0x01}, Height: 1})
	assert.Error(t, err)
	assert.Equal(t, uint64(1), tree.HighestCommittedBlock().Height)
}

func TestTreeHasDataHashDetectsDuplicates(t *testing.T) {
	genesis := Hash{0xff}
	tree := NewTree(genesis)
	blocks := chainOf(t, tree, genesis, 2)

	assert.True(t, tree.HasDataHash(blocks[0].DataHash))
	assert.False(t, tree.HasDataHash(wire.TransactionHash{0xde, 0xad}))
}

func TestTreeInsertRejectsUnknownParent(t *testing.T) {
	genesis := Hash{0xff}
	tree := NewTree(genesis)
	orphan := &Block{
		Hash:     Hash{0x02},
		Height:   1,
		ParentQC: QC{BlockHash: Hash{0x01}},
	}
	err := tree.Insert(orphan)
	assert.Error(t, err)
}

func TestTreeHighestAndCommittedHeightAccessors(t *testing.T) {
	genesis := Hash{0xff}
	tree := NewTree(genesis)
	chainOf(t, tree, genesis, 5)

	assert.Equal(t, uint64(5), tree.HighestHeight())
	assert.Equal(t, uint64(2), tree.CommittedHeight())
}

func TestTreeDescribeRendersCommittedChain(t *testing.T) {
	genesis := Hash{0xff}
	tree := NewTree(genesis)
	chainOf(t, tree, genesis, 5)

	dump := tree.Describe(2)
	assert.Contains(t, dump, "height=2")
	assert.Contains(t, dump, "height=1")
	assert.NotContains(t, dump, "height=3")
}

func TestTreeDescribeStopsAtGenesisWhenNothingCommitted(t *testing.T) {
	genesis := Hash{0xff}
	tree := NewTree(genesis)

	dump := tree.Describe(6)
	assert.Contains(t, dump, "height=0")
}

func TestTreeParentWalksAncestry(t *testing.T) {
	genesis := Hash{0xff}
	tree := NewTree(genesis)
	blocks := chainOf(t, tree, genesis, 3)

	parent, ok := tree.Parent(blocks[2])
	require.True(t, ok)
	assert.Equal(t, blocks[1].Hash, parent.Hash)

	grandparent, ok := tree.Parent(parent)
	require.True(t, ok)
	assert.Equal(t, blocks[0].Hash, grandparent.Hash)

	greatGrandparent, ok := tree.Parent(grandparent)
	require.False(t, ok)
	assert.Nil(t, greatGrandparent)
	assert.True(t, IsGenesisQC(tree.BlockJustify(grandparent)))
}
