// Package blockprod implements the block-production policy (spec
// §4.6, C6): it is the App the consensus library calls produce_block
// and validate_block against. It selects pending client transactions
// while avoiding re-inclusion of a transaction already committed or
// still pending in the three-generation ancestor window behind the
// block being extended.
package blockprod

import (
	"fmt"
	"sync"

	log "github.com/helinwang/log15"

	"github.com/Shapooo/dash-plat/pkg/consensus"
	"github.com/Shapooo/dash-plat/pkg/kvstore"
	"github.com/Shapooo/dash-plat/pkg/wire"
)

// committedMarker is the value written under a committed transaction's
// hash; the store is used as a set, so its contents don't matter.
var committedMarker = []byte{1}

// ancestorWindow is how many generations back pending ancestors are
// checked for duplication (spec §4.6: parent, grandparent,
// great-grandparent).
const ancestorWindow = 3

// Policy holds the retained state spec §4.6 describes: a FIFO of
// not-yet-proposed transactions, the set of transaction hashes already
// known committed (persisted in a kvstore.Store, this policy's
// app-state collaborator per spec §6), and how far the commit frontier
// has been advanced. A Policy is driven by a single consensus-library
// callback goroutine at a time (spec §5); its internal state needs no
// locking beyond what guards incoming.
type Policy struct {
	chainID  uint64
	tree     *consensus.Tree
	incoming chan *wire.TransactionRequest
	store    *kvstore.Store

	mu                         sync.Mutex
	transCache                 []*wire.TransactionRequest
	highestCommittedHeightSeen uint64
}

// New builds a Policy producing blocks against tree. incoming is fed by
// pkg/clientactor as client requests arrive; it must never be closed
// while a produce_block call may be blocked reading it (spec §9 open
// question 4: no orderly shutdown). store records which transaction
// hashes have crossed the commit frontier, so a restart-free process
// never re-proposes one.
func New(chainID uint64, tree *consensus.Tree, incoming chan *wire.TransactionRequest, store *kvstore.Store) *Policy {
	return &Policy{
		chainID:  chainID,
		tree:     tree,
		incoming: incoming,
		store:    store,
	}
}

var _ consensus.App = (*Policy)(nil)

// ChainID identifies the network this policy produces blocks for.
func (p *Policy) ChainID() uint64 {
	return p.chainID
}

// drainIncoming moves every transaction currently queued on incoming
// into transCache without blocking.
func (p *Policy) drainIncoming() {
	for {
		select {
		case req := <-p.incoming:
			p.transCache = append(p.transCache, req)
		default:
			return
		}
	}
}

// pendingAncient collects the data hashes of parent, grandparent, and
// great-grandparent of parent, stopping early at a genesis QC (spec
// §4.6 "skipping genesis QCs").
func (p *Policy) pendingAncient(parent *consensus.Block) map[wire.TransactionHash]struct{} {
	ancient := make(map[wire.TransactionHash]struct{}, ancestorWindow)
	cur := parent
	for i := 0; i < ancestorWindow; i++ {
		if cur == nil {
			break
		}
		ancient[p.tree.BlockDataHash(cur)] = struct{}{}
		if consensus.IsGenesisQC(p.tree.BlockJustify(cur)) {
			break
		}
		next, ok := p.tree.Parent(cur)
		if !ok {
			break
		}
		cur = next
	}
	return ancient
}

// advanceCommittedSet rolls highestCommittedHeightSeen forward to
// parentHeight-ancestorWindow, recording every newly-crossed height's
// data hash into the store (spec §4.6).
func (p *Policy) advanceCommittedSet(parentHeight uint64) {
	if parentHeight < ancestorWindow {
		return
	}
	target := parentHeight - ancestorWindow
	for h := p.highestCommittedHeightSeen + 1; h <= target; h++ {
		if b, ok := p.tree.BlockAtHeight(h); ok {
			hash := p.tree.BlockDataHash(b)
			p.store.Set(hash[:], committedMarker)
		}
	}
	if target > p.highestCommittedHeightSeen {
		p.highestCommittedHeightSeen = target
	}
}

// eligible reports whether candidate can be proposed: its hash must not
// be a pending ancestor's data hash nor already committed.
func (p *Policy) eligible(candidate *wire.TransactionRequest, ancient map[wire.TransactionHash]struct{}) bool {
	if _, ok := ancient[candidate.Hash]; ok {
		return false
	}
	if _, ok := p.store.Get(candidate.Hash[:]); ok {
		return false
	}
	return true
}

// ProduceBlock implements spec §4.6's algorithm: drain incoming
// requests, compute the pending-ancestor and committed exclusion sets,
// then pop transCache until a non-duplicate candidate is found. If
// transCache empties before one is found, it blocks on incoming for at
// least one more request — the one intentional blocking point inside a
// consensus callback (spec §5).
func (p *Policy) ProduceBlock(req consensus.ProduceBlockRequest) (consensus.ProduceBlockResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.drainIncoming()

	parent := req.Parent
	ancient := p.pendingAncient(parent)
	p.advanceCommittedSet(p.tree.BlockHeight(parent))

	for {
		for len(p.transCache) > 0 {
			candidate := p.transCache[0]
			p.transCache = p.transCache[1:]
			if p.eligible(candidate, ancient) {
				return consensus.ProduceBlockResponse{
					DataHash: candidate.Hash,
					Data:     [][]byte{candidate.Data},
				}, nil
			}
			log.Debug("skipping duplicate candidate transaction", "hash", candidate.Hash)
		}
		req, ok := <-p.incoming
		if !ok {
			return consensus.ProduceBlockResponse{}, fmt.Errorf("blockprod: incoming channel closed")
		}
		p.transCache = append(p.transCache, req)
	}
}

// ValidateBlock implements spec §4.6's duplicate-proposal rule (B5): a
// proposal is invalid iff its data hash already identifies some other
// block already in the tree.
func (p *Policy) ValidateBlock(req consensus.ValidateBlockRequest) (consensus.ValidateBlockResponse, error) {
	if p.tree.HasDataHash(req.Proposal.DataHash) {
		return consensus.ValidateBlockResponse{Valid: false}, nil
	}
	return consensus.ValidateBlockResponse{Valid: true}, nil
}
