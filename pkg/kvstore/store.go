// Package kvstore implements the generic key-value store the app-state
// side of the external consensus collaborator is built against (spec
// §6's "KV store (get/set/delete/snapshot, out of scope)" —
// pkg/blockprod wires a Store in as its committed-transaction
// bookkeeping, giving the rest of
// the module something real to compile and test an App against). It is
// generalized away from the teacher's DEX-specific account/order schema
// into a plain []byte -> []byte store.
package kvstore

import (
	"bytes"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/trie"
)

// Store is a Merkle-backed key-value store, grounded on
// xbee-dex/pkg/dex/state.go's trie.Database/ethdb.Database pairing and
// original:dash-node/src/kv_store.rs's get/write/clear/snapshot
// contract. Persistence across restarts is a non-goal (spec §1); the
// backing in-memory database here lives only for the process lifetime.
type Store struct {
	db *trie.Database

	mu   sync.Mutex
	trie *trie.Trie
}

// New builds an empty store.
func New() *Store {
	diskDB := rawdb.NewMemoryDatabase()
	db := trie.NewDatabase(diskDB)
	t, err := trie.New(trie.StateTrieID(common.Hash{}), db)
	if err != nil {
		// Only fails on a corrupt root hash; common.Hash{} is always valid.
		panic(err)
	}
	return &Store{db: db, trie: t}
}

// Get returns the value stored under key, if any.
func (s *Store) Get(key []byte) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.trie.MustGet(key)
	return v, v != nil
}

// Set stores value under key, overwriting any prior value.
func (s *Store) Set(key, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trie.MustUpdate(key, value)
}

// Delete removes key, if present.
func (s *Store) Delete(key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trie.MustDelete(key)
}

// WriteBatch groups inserts and deletes for atomic application,
// grounded on original:dash-node/src/kv_store.rs's WriteBatchImpl.
type WriteBatch struct {
	inserts map[string][]byte
	deletes map[string]struct{}
}

// NewWriteBatch returns an empty batch.
func NewWriteBatch() *WriteBatch {
	return &WriteBatch{inserts: make(map[string][]byte), deletes: make(map[string]struct{})}
}

// Put stages an insert, canceling any staged delete of the same key.
func (b *WriteBatch) Put(key, value []byte) {
	delete(b.deletes, string(key))
	b.inserts[string(key)] = value
}

// Delete stages a delete, canceling any staged insert of the same key.
func (b *WriteBatch) Delete(key []byte) {
	delete(b.inserts, string(key))
	b.deletes[string(key)] = struct{}{}
}

// Apply applies every staged insert and delete to the store.
func (s *Store) Apply(b *WriteBatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range b.inserts {
		s.trie.MustUpdate([]byte(k), v)
	}
	for k := range b.deletes {
		s.trie.MustDelete([]byte(k))
	}
}

// Snapshot is an immutable point-in-time copy of every key currently in
// the store, grounded on kv_store.rs's SnapshotImpl wrapping a clone of
// the underlying immutable map.
type Snapshot struct {
	entries map[string][]byte
}

// Get returns the value key had when the snapshot was taken.
func (snap *Snapshot) Get(key []byte) ([]byte, bool) {
	v, ok := snap.entries[string(key)]
	return v, ok
}

// Snapshot walks the current trie and copies every leaf into an
// independent, immutable snapshot (xbee-dex/pkg/dex/state.go's
// Tokens method shows the same NodeIterator leaf-walk this reuses).
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make(map[string][]byte)
	iter := s.trie.NodeIterator(nil)
	for hasNext := true; hasNext; hasNext = iter.Next(true) {
		if !iter.Leaf() {
			continue
		}
		key := bytes.Clone(iter.LeafKey())
		value := bytes.Clone(iter.LeafBlob())
		entries[string(key)] = value
	}
	return &Snapshot{entries: entries}
}
