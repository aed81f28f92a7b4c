package clientactor

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shapooo/dash-plat/pkg/consensus"
	"github.com/Shapooo/dash-plat/pkg/transport"
	"github.com/Shapooo/dash-plat/pkg/wire"
)

// TestEndToEndSubmitCommitReceipt exercises S1: a client submits a
// transaction, the actor forwards it, and once the watcher observes the
// transaction's block committed, the client receives a Committed
// receipt from this node.
func TestEndToEndSubmitCommitReceipt(t *testing.T) {
	server, err := transport.NewServerFabric("127.0.0.1:0")
	require.NoError(t, err)
	defer server.Close()

	self := wire.PublicKey{0x01}
	toProd := make(chan *wire.TransactionRequest, 10)
	actor := New(self, server, toProd)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go actor.Run(ctx)

	conn, err := net.Dial("tcp", server.ListenAddr())
	require.NoError(t, err)
	defer conn.Close()
	link := transport.NewFramedLink(conn)

	data := make([]byte, 128)
	for i := range data {
		data[i] = 0x00
	}
	req := wire.NewTransactionRequest(wire.PublicKey{0x02}, data)
	require.NoError(t, link.WriteFrame(wire.EncodeTransactionRequest(req)))

	var forwarded *wire.TransactionRequest
	select {
	case forwarded = <-toProd:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for request to reach block production")
	}
	assert.Equal(t, req.Hash, forwarded.Hash)

	genesisHash := consensus.Hash{0xaa}
	tree := consensus.NewTree(genesisHash)
	committedBlock := &consensus.Block{
		Hash:     consensus.Hash{0x01},
		Height:   1,
		ParentQC: consensus.QC{Genesis: true},
		DataHash: req.Hash,
	}
	require.NoError(t, tree.Insert(committedBlock))
	for i := 2; i <= 4; i++ {
		require.NoError(t, tree.Insert(&consensus.Block{
			Hash:     consensus.Hash{byte(i)},
			Height:   uint64(i),
			ParentQC: consensus.QC{BlockHash: consensus.Hash{byte(i - 1)}, Height: uint64(i - 1)},
			DataHash: wire.TransactionHash{byte(i)},
		}))
	}

	watcher := NewCommitWatcher(tree, actor)
	watcher.Tick()

	payload, err := link.ReadFrame()
	require.NoError(t, err)
	receipt, err := wire.DecodeTransactionReceipt(payload)
	require.NoError(t, err)
	assert.Equal(t, self, receipt.Receiptor)
	assert.Equal(t, req.Requester, receipt.Requester)
	assert.Equal(t, req.Hash, receipt.Hash)
	assert.Equal(t, wire.Committed, receipt.Result)
}

func TestMalformedClientFrameDropped(t *testing.T) {
	server, err := transport.NewServerFabric("127.0.0.1:0")
	require.NoError(t, err)
	defer server.Close()

	toProd := make(chan *wire.TransactionRequest, 10)
	actor := New(wire.PublicKey{0x01}, server, toProd)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go actor.Run(ctx)

	conn, err := net.Dial("tcp", server.ListenAddr())
	require.NoError(t, err)
	defer conn.Close()
	link := transport.NewFramedLink(conn)
	require.NoError(t, link.WriteFrame([]byte{0x01, 0x02}))

	select {
	case <-toProd:
		t.Fatal("malformed frame should not have reached block production")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestCommitForUnknownRequesterLoggedAndDropped(t *testing.T) {
	server, err := transport.NewServerFabric("127.0.0.1:0")
	require.NoError(t, err)
	defer server.Close()

	toProd := make(chan *wire.TransactionRequest, 10)
	actor := New(wire.PublicKey{0x01}, server, toProd)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go actor.Run(ctx)

	// No client ever registered requester 0xaa; this must not panic or
	// block.
	actor.Commits() <- CommitEvent{Requester: wire.PublicKey{0xaa}, Hash: wire.TransactionHash{0xbb}}
	time.Sleep(100 * time.Millisecond)
}

func TestCommitWatcherUnknownBlockLoggedAndSkipped(t *testing.T) {
	server, err := transport.NewServerFabric("127.0.0.1:0")
	require.NoError(t, err)
	defer server.Close()
	toProd := make(chan *wire.TransactionRequest, 10)
	actor := New(wire.PublicKey{0x01}, server, toProd)

	genesisHash := consensus.Hash{0xaa}
	tree := consensus.NewTree(genesisHash)
	for i := 1; i <= 4; i++ {
		parentHash := consensus.Hash{byte(i - 1)}
		if i == 1 {
			require.NoError(t, tree.Insert(&consensus.Block{
				Hash:     consensus.Hash{byte(i)},
				Height:   uint64(i),
				ParentQC: consensus.QC{Genesis: true},
				DataHash: wire.TransactionHash{byte(i)},
			}))
			continue
		}
		require.NoError(t, tree.Insert(&consensus.Block{
			Hash:     consensus.Hash{byte(i)},
			Height:   uint64(i),
			ParentQC: consensus.QC{BlockHash: parentHash, Height: uint64(i - 1)},
			DataHash: wire.TransactionHash{byte(i)},
		}))
	}

	watcher := NewCommitWatcher(tree, actor)
	// No PendingOriginatorMap entry was ever recorded for these blocks'
	// data hashes: Tick must not panic and must leave receiptedHeight
	// advanced past them.
	watcher.Tick()
	assert.Equal(t, uint64(1), watcher.receiptedHeight)
}
