// Package overlay implements the validator-addressed messaging layer
// (spec §4.5, C5): it translates pubkey-addressed sends into socket-
// addressed frames over pkg/transport's peer fabric, wraps every frame
// in a wire.Envelope, and exposes the external consensus library's
// Network contract (init/update validator set, broadcast, send, recv).
package overlay

import (
	"sync"

	"github.com/Shapooo/dash-plat/pkg/wire"
)

// ValidatorSet tracks each validator's voting power. The overlay is its
// only writer; reads are concurrent and frequent (spec §5).
type ValidatorSet struct {
	mu     sync.RWMutex
	powers map[wire.PublicKey]uint64
}

// NewValidatorSet returns an empty set.
func NewValidatorSet() *ValidatorSet {
	return &ValidatorSet{powers: make(map[wire.PublicKey]uint64)}
}

// Init replaces the entire set, as the consensus library does on
// startup or on a validator-set rotation (spec §6's init_validator_set).
func (v *ValidatorSet) Init(powers map[wire.PublicKey]uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.powers = make(map[wire.PublicKey]uint64, len(powers))
	for pk, power := range powers {
		v.powers[pk] = power
	}
}

// Update applies incremental changes: a zero power removes the
// validator, matching update_validator_set's insert-or-remove contract.
func (v *ValidatorSet) Update(updates map[wire.PublicKey]uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for pk, power := range updates {
		if power == 0 {
			delete(v.powers, pk)
			continue
		}
		v.powers[pk] = power
	}
}

// Power returns the voting power for pk, if it is a current validator.
func (v *ValidatorSet) Power(pk wire.PublicKey) (uint64, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	p, ok := v.powers[pk]
	return p, ok
}

// Len returns the number of current validators.
func (v *ValidatorSet) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.powers)
}

// Keys returns a snapshot of the current validator public keys, in no
// particular order.
func (v *ValidatorSet) Keys() []wire.PublicKey {
	v.mu.RLock()
	defer v.mu.RUnlock()
	keys := make([]wire.PublicKey, 0, len(v.powers))
	for pk := range v.powers {
		keys = append(keys, pk)
	}
	return keys
}
