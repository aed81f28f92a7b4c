package overlay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shapooo/dash-plat/pkg/transport"
	"github.com/Shapooo/dash-plat/pkg/wire"
)

func newOverlayPair(t *testing.T) (a, b *Overlay, pkA, pkB wire.PublicKey) {
	t.Helper()
	fabricA, err := transport.NewPeerFabric("127.0.0.1:0")
	require.NoError(t, err)
	fabricB, err := transport.NewPeerFabric("127.0.0.1:0")
	require.NoError(t, err)

	addrA := fabricA.ListenAddr()
	addrB := fabricB.ListenAddr()
	pkA = wire.PublicKey{0xaa}
	pkB = wire.PublicKey{0xbb}

	a = New(pkA, map[wire.PublicKey]string{pkB: addrB}, fabricA)
	b = New(pkB, map[wire.PublicKey]string{pkA: addrA}, fabricB)
	return a, b, pkA, pkB
}

func TestOverlaySendRecvAcrossPeers(t *testing.T) {
	a, b, pkA, _ := newOverlayPair(t)

	a.Send(wire.PublicKey{0xbb}, []byte("hello-b"))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for b to receive")
		default:
		}
		sender, payload, ok := b.Recv()
		if ok {
			assert.Equal(t, pkA, sender)
			assert.Equal(t, []byte("hello-b"), payload)
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func TestOverlaySelfSendLoopback(t *testing.T) {
	a, _, pkA, _ := newOverlayPair(t)

	a.Send(pkA, []byte("loopback"))

	sender, payload, ok := a.Recv()
	require.True(t, ok)
	assert.Equal(t, pkA, sender)
	assert.Equal(t, []byte("loopback"), payload)
}

func TestOverlaySendToUnknownPeerDropped(t *testing.T) {
	a, _, _, _ := newOverlayPair(t)
	unknown := wire.PublicKey{0xff}

	// Must not panic or block.
	a.Send(unknown, []byte("nowhere"))

	_, _, ok := a.Recv()
	assert.False(t, ok)
}

func TestOverlayRecvContentionReturnsFalse(t *testing.T) {
	a, _, _, _ := newOverlayPair(t)

	a.recvMu.Lock()
	defer a.recvMu.Unlock()

	_, _, ok := a.Recv()
	assert.False(t, ok)
}

func TestOverlayBroadcastReachesAllValidators(t *testing.T) {
	a, b, _, pkB := newOverlayPair(t)
	a.Validators.Init(map[wire.PublicKey]uint64{pkB: 1})

	a.Broadcast([]byte("to-everyone"))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for broadcast delivery")
		default:
		}
		_, payload, ok := b.Recv()
		if ok {
			assert.Equal(t, []byte("to-everyone"), payload)
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func TestValidatorSetUpdateRemovesOnZeroPower(t *testing.T) {
	vs := NewValidatorSet()
	pk := wire.PublicKey{0x01}
	vs.Init(map[wire.PublicKey]uint64{pk: 5})
	require.Equal(t, 1, vs.Len())

	vs.Update(map[wire.PublicKey]uint64{pk: 0})
	_, ok := vs.Power(pk)
	assert.False(t, ok)
	assert.Equal(t, 0, vs.Len())
}
