package clientactor

import (
	"context"
	"time"

	log "github.com/helinwang/log15"

	"github.com/Shapooo/dash-plat/pkg/consensus"
)

// pollPeriod is the Commit Watcher's tick interval (spec §4.8).
const pollPeriod = 500 * time.Millisecond

// CommitWatcher polls the block tree for newly committed heights and
// turns each into a (requester, hash) event for the Client Actor (spec
// §4.8, C8). It runs on its own dedicated goroutine, bridging the
// tree's synchronous snapshot API into the actor's commit channel
// (spec §5's "blocking consensus... polling runs on dedicated threads").
type CommitWatcher struct {
	tree            *consensus.Tree
	actor           *Actor
	receiptedHeight uint64
}

// NewCommitWatcher builds a watcher starting from height 0.
func NewCommitWatcher(tree *consensus.Tree, actor *Actor) *CommitWatcher {
	return &CommitWatcher{tree: tree, actor: actor}
}

// Run ticks every 500ms until ctx is canceled, matching Actor.Run's
// lifetime contract.
func (w *CommitWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(pollPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick()
		}
	}
}

// Tick runs one polling cycle: snapshot the committed frontier, emit a
// commit event for every newly committed height, and advance
// receiptedHeight. Exported so tests can drive it synchronously without
// waiting on the ticker.
func (w *CommitWatcher) Tick() {
	highest := w.tree.HighestCommittedBlock()
	if highest == nil {
		return
	}
	h := highest.Height
	for height := w.receiptedHeight + 1; height <= h; height++ {
		block, ok := w.tree.BlockAtHeight(height)
		if !ok {
			continue
		}
		dataHash := w.tree.BlockDataHash(block)
		requester, ok := w.actor.takeOriginator(dataHash)
		if !ok {
			log.Warn("commit watcher saw unknown block, dropping", "height", height, "hash", dataHash)
			continue
		}
		w.actor.Commits() <- CommitEvent{Requester: requester, Hash: dataHash}
	}
	w.receiptedHeight = h
}
