package overlay

import (
	"sync"

	log "github.com/helinwang/log15"

	"github.com/Shapooo/dash-plat/pkg/consensus"
	"github.com/Shapooo/dash-plat/pkg/transport"
	"github.com/Shapooo/dash-plat/pkg/wire"
)

// Overlay is the Network collaborator the consensus library is written
// against.
var _ consensus.Network = (*Overlay)(nil)

// recvQueueCapacity bounds the decoded-envelope queue fed by the
// background unwrap loop; it mirrors the transport layer's own
// sendQueueCapacity so a burst of inbound traffic never outruns it by
// more than one fabric's worth of buffering.
const recvQueueCapacity = 1000

// Overlay is the C5 Validator Overlay: it is the concrete type behind
// the external consensus library's Network collaborator (spec §6). The
// peer address map is immutable for the Overlay's lifetime and needs no
// locking; the validator set is guarded by its own RWMutex.
type Overlay struct {
	self       wire.PublicKey
	peerAddrs  map[wire.PublicKey]string // immutable
	fabric     *transport.PeerFabric
	Validators *ValidatorSet

	decoded chan *wire.Envelope
	selfCh  chan []byte

	// recvMu serializes Recv so concurrent callers never race on the
	// same decoded/selfCh pop; a contended caller gets "nothing
	// available" rather than blocking (spec §4.5, §5).
	recvMu sync.Mutex
}

// New builds an Overlay for self, addressing each peer in peerAddrs by
// its fixed socket address, and starts the background unwrap loop that
// feeds Recv.
func New(self wire.PublicKey, peerAddrs map[wire.PublicKey]string, fabric *transport.PeerFabric) *Overlay {
	addrs := make(map[wire.PublicKey]string, len(peerAddrs))
	for pk, addr := range peerAddrs {
		addrs[pk] = addr
	}
	o := &Overlay{
		self:       self,
		peerAddrs:  addrs,
		fabric:     fabric,
		Validators: NewValidatorSet(),
		decoded:    make(chan *wire.Envelope, recvQueueCapacity),
		selfCh:     make(chan []byte, recvQueueCapacity),
	}
	go o.unwrapLoop()
	return o
}

// unwrapLoop decodes every frame the peer fabric receives into an
// Envelope, drops ones not addressed to self (spec §7 category 3), and
// queues the rest for Recv.
func (o *Overlay) unwrapLoop() {
	for frame := range o.fabric.Received() {
		env, err := wire.DecodeEnvelope(frame.Payload)
		if err != nil {
			log.Warn("dropping malformed envelope", "from_addr", frame.Addr, "err", err)
			continue
		}
		if env.To != o.self {
			log.Warn("dropping envelope addressed to another validator", "to", env.To, "from", env.From)
			continue
		}
		o.decoded <- env
	}
}

// Send delivers data to peer. A send to self is looped back without
// touching the network (spec §4.5, B4); a send to an address-less
// public key is logged and dropped (spec §7 category 3).
func (o *Overlay) Send(peer wire.PublicKey, data []byte) {
	if peer == o.self {
		o.selfCh <- data
		return
	}
	addr, ok := o.peerAddrs[peer]
	if !ok {
		log.Warn("send to unknown validator, dropping", "peer", peer)
		return
	}
	env := &wire.Envelope{From: o.self, To: peer, Data: data}
	o.fabric.Send(addr, wire.EncodeEnvelope(env))
}

// InitValidatorSet satisfies the consensus library's Network contract
// by replacing the whole validator set (spec §6 init_validator_set).
func (o *Overlay) InitValidatorSet(powers map[wire.PublicKey]uint64) {
	o.Validators.Init(powers)
}

// UpdateValidatorSet satisfies the consensus library's Network contract
// by applying incremental validator-set changes (spec §6
// update_validator_set).
func (o *Overlay) UpdateValidatorSet(updates map[wire.PublicKey]uint64) {
	o.Validators.Update(updates)
}

// Broadcast sends data to every current validator (spec §4.5
// "broadcast = send-to-each").
func (o *Overlay) Broadcast(data []byte) {
	for _, peer := range o.Validators.Keys() {
		o.Send(peer, data)
	}
}

// Recv pops one (sender, payload) pair if one is available, giving
// priority to self-looped messages. It never blocks: if another caller
// currently holds the single-consumer lock, it returns ok=false
// immediately (spec §4.5's try-lock "nothing available" semantics), as
// does an empty queue.
func (o *Overlay) Recv() (sender wire.PublicKey, payload []byte, ok bool) {
	if !o.recvMu.TryLock() {
		return wire.PublicKey{}, nil, false
	}
	defer o.recvMu.Unlock()

	select {
	case data := <-o.selfCh:
		return o.self, data, true
	default:
	}

	select {
	case env := <-o.decoded:
		return env.From, env.Data, true
	default:
		return wire.PublicKey{}, nil, false
	}
}
