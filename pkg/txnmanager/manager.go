// Package txnmanager implements the client-side transaction manager
// (spec §4.9, C9): it generates random transactions up to a fixed
// in-flight cap, tracks their progress through receipt collection, and
// recognizes quorum finalization.
package txnmanager

import (
	"crypto/rand"
	"sync"
	"time"

	log "github.com/helinwang/log15"

	"github.com/Shapooo/dash-plat/pkg/wire"
)

// DefaultCap is the client's fixed target in-flight transaction count
// (spec §4.9, §9 open question 2; grounded on
// original:dash-client/src/client.rs's PENDING_TRANSACTIONS = 10).
const DefaultCap = 10

// transactionPayloadSize is the length of the random payload each
// generated transaction carries (spec §4.9, S1's "data=[0x00]*128").
const transactionPayloadSize = 128

// Quorum computes floor(2n/3)+1 for a validator set of size n
// (glossary).
func Quorum(n int) int {
	return (2*n)/3 + 1
}

// pendingEntry tracks one in-flight transaction's age and how many
// receipts have been seen for it.
type pendingEntry struct {
	startedAt    time.Time
	receiptsSeen int
}

// committedEntry records when a transaction was generated and when it
// finalized.
type committedEntry struct {
	startedAt  time.Time
	commitTime time.Time
}

// Manager is the C9 Client Transaction Manager.
type Manager struct {
	requester wire.PublicKey
	quorum    int
	cap       int

	mu             sync.Mutex
	pending        map[wire.TransactionHash]*pendingEntry
	committed      map[wire.TransactionHash]*committedEntry
	sequenceNumber uint64
}

// New builds a Manager submitting transactions as requester, against a
// validator set of validatorCount members.
func New(requester wire.PublicKey, validatorCount int) *Manager {
	return &Manager{
		requester: requester,
		quorum:    Quorum(validatorCount),
		cap:       DefaultCap,
		pending:   make(map[wire.TransactionHash]*pendingEntry),
		committed: make(map[wire.TransactionHash]*committedEntry),
	}
}

// FillPending generates fresh random transactions until the in-flight
// cap is reached, recording each in pending before returning the batch
// for the caller to submit over the network (spec §4.9, B3: the
// (cap+1)-th transaction is only generated after a pending entry
// commits, which this method's cap check naturally enforces).
func (m *Manager) FillPending() []*wire.TransactionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	var generated []*wire.TransactionRequest
	for len(m.pending) < m.cap {
		data := make([]byte, transactionPayloadSize)
		if _, err := rand.Read(data); err != nil {
			log.Error("failed to generate random transaction payload", "err", err)
			break
		}
		req := wire.NewTransactionRequest(m.requester, data)
		m.pending[req.Hash] = &pendingEntry{startedAt: time.Now()}
		m.sequenceNumber++
		generated = append(generated, req)
	}
	return generated
}

// HandleReceipt records one more receipt for hash. The transaction
// moves from pending to committed on exactly the receipt whose arrival
// brings the seen count to quorum (spec §4.9's P2, per the spec's
// stated interpretation — not the off-by-one in
// original:dash-client/src/transaction.rs, which checks the count
// before incrementing; see DESIGN.md open question 1). A receipt for a
// hash this manager does not have pending is logged and ignored.
func (m *Manager) HandleReceipt(hash wire.TransactionHash) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.pending[hash]
	if !ok {
		log.Warn("receipt for unknown transaction, ignoring", "hash", hash)
		return
	}
	entry.receiptsSeen++
	if entry.receiptsSeen >= m.quorum {
		delete(m.pending, hash)
		m.committed[hash] = &committedEntry{
			startedAt:  entry.startedAt,
			commitTime: time.Now(),
		}
	}
}

// PendingCount returns the number of transactions still awaiting
// quorum.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// CommittedCount returns the number of transactions that have reached
// quorum.
func (m *Manager) CommittedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.committed)
}

// IsCommitted reports whether hash has reached quorum.
func (m *Manager) IsCommitted(hash wire.TransactionHash) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.committed[hash]
	return ok
}

// ReceiptsSeen returns how many receipts have been recorded for a
// still-pending hash.
func (m *Manager) ReceiptsSeen(hash wire.TransactionHash) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.pending[hash]
	if !ok {
		return 0, false
	}
	return entry.receiptsSeen, true
}

// SequenceNumber returns the count of transactions generated so far.
func (m *Manager) SequenceNumber() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sequenceNumber
}
