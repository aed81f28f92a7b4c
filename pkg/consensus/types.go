// Package consensus defines the boundary this project is built against:
// the App and Network contracts an external HotStuff-style consensus
// library drives (spec §1, §6), and a compact block tree exposing the
// read-only snapshot accessors that library would hand the rest of the
// core. The three-chain commit rule itself (spec.md §4.6's parent/
// grandparent/great-grandparent window) is implemented here because
// pkg/blockprod needs a real collaborator to run against; the consensus
// protocol that produces agreement on the tree — view changes, voting,
// pacemaker timeouts — is out of scope (spec §1) and lives entirely
// outside this package in the real system.
package consensus

import "github.com/Shapooo/dash-plat/pkg/wire"

// BlockHashSize matches wire.HashSize; block identity and transaction
// identity are both SHA-256 digests.
const BlockHashSize = wire.HashSize

// Hash identifies a block.
type Hash [BlockHashSize]byte

// QC is a quorum certificate: a vote-collected attestation that some
// block was seen by a quorum of validators. Every non-genesis block
// carries the QC of its parent (spec's glossary: "HotStuff three-chain").
type QC struct {
	BlockHash Hash
	Height    uint64
	Genesis   bool
}

// IsGenesisQC reports whether qc is the bootstrap QC preceding the
// first real block — ancestor-window computations skip it (spec §4.6
// "skipping genesis QCs").
func IsGenesisQC(qc QC) bool {
	return qc.Genesis
}

// Block is one proposed or committed block. Data carries opaque
// application payloads (the transactions pkg/blockprod selected);
// DataHash identifies the block's payload for duplicate detection
// (spec §4.6's validate_block rule).
type Block struct {
	Hash     Hash
	Height   uint64
	ParentQC QC
	DataHash wire.TransactionHash
	Data     [][]byte
}
