package consensus

import "github.com/Shapooo/dash-plat/pkg/wire"

// Network is the collaborator a consensus library calls to move its own
// protocol messages (spec §6); pkg/overlay's *Overlay satisfies it.
type Network interface {
	InitValidatorSet(powers map[wire.PublicKey]uint64)
	UpdateValidatorSet(updates map[wire.PublicKey]uint64)
	Broadcast(data []byte)
	Send(peer wire.PublicKey, data []byte)
	Recv() (sender wire.PublicKey, payload []byte, ok bool)
}
