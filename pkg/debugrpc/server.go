// Package debugrpc implements a read-mostly chain-introspection service
// over net/rpc + net/http, grounded on
// xbee-dex/pkg/dex/rpc_server.go's RPCServer/WalletService split. It is
// supplemental to the spec proper (spec §6 puts node operation out of
// scope); it gives operators a read-mostly inspection surface. It is
// generalized away from the teacher's wallet balances/order book toward
// this project's committed and highest block heights, a committed-chain
// ancestry dump, and pending/committed transaction counts.
package debugrpc

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/rpc"
	"sync"

	log "github.com/helinwang/log15"

	"github.com/Shapooo/dash-plat/pkg/txnmanager"
	"github.com/Shapooo/dash-plat/pkg/wire"
)

// TxnSubmitter accepts a raw transaction payload for submission
// (teacher's TxnSender, generalized from SendTxn([]byte) to also
// return the resulting hash so a caller can poll for its receipt).
type TxnSubmitter interface {
	SubmitTransaction(data []byte) (wire.TransactionHash, error)
}

// ChainStater exposes read-only chain progress (teacher's ChainStater,
// generalized from DEX round/random-beacon depth to this project's
// committed-vs-highest block height pair).
type ChainStater interface {
	HighestHeight() uint64
	CommittedHeight() uint64
	// Describe renders up to maxBlocks of the committed chain as a
	// human-readable ancestry dump (teacher's Graphviz(int), simplified
	// from a weighted fork graph to a linear dump).
	Describe(maxBlocks int) string
}

// ChainStatus is the wire shape returned by the Status RPC.
type ChainStatus struct {
	HighestHeight   uint64
	CommittedHeight uint64
}

// InSync reports whether the committed frontier has caught up with the
// highest known block.
func (s ChainStatus) InSync() bool {
	return s.CommittedHeight == s.HighestHeight
}

// Server is the debug/inspection RPC service. SetSubmitter, SetStater,
// and SetTransactionManager wire in collaborators before Start, mirroring
// the teacher's SetSender/SetStater-then-Start convention.
type Server struct {
	submitter TxnSubmitter

	mu    sync.Mutex
	chain ChainStater
	txns  *txnmanager.Manager
}

// New builds an unstarted Server.
func New() *Server {
	return &Server{}
}

// SetSubmitter attaches the collaborator that accepts submitted
// transactions.
func (s *Server) SetSubmitter(t TxnSubmitter) {
	s.submitter = t
}

// SetStater attaches the chain-introspection collaborator.
func (s *Server) SetStater(c ChainStater) {
	s.mu.Lock()
	s.chain = c
	s.mu.Unlock()
}

// SetTransactionManager attaches the client transaction manager whose
// pending/committed counts the PendingCount/CommittedCount RPCs report.
func (s *Server) SetTransactionManager(m *txnmanager.Manager) {
	s.mu.Lock()
	s.txns = m
	s.mu.Unlock()
}

// Start registers the introspection service and serves it over HTTP at
// addr (teacher's Start: rpc.Register, rpc.HandleHTTP, net.Listen,
// http.Serve in a goroutine).
func (s *Server) Start(addr string) error {
	if err := rpc.Register(&Introspection{s: s}); err != nil {
		return err
	}
	rpc.HandleHTTP()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		if err := http.Serve(ln, nil); err != nil {
			log.Error("debug RPC server stopped", "err", err)
		}
	}()
	return nil
}

func (s *Server) status(_ int, out *ChainStatus) error {
	s.mu.Lock()
	chain := s.chain
	s.mu.Unlock()
	if chain == nil {
		return errors.New("chain not yet attached")
	}
	out.HighestHeight = chain.HighestHeight()
	out.CommittedHeight = chain.CommittedHeight()
	return nil
}

func (s *Server) ancestry(maxBlocks int, out *string) error {
	s.mu.Lock()
	chain := s.chain
	s.mu.Unlock()
	if chain == nil {
		return errors.New("chain not yet attached")
	}
	if maxBlocks <= 0 {
		maxBlocks = 6
	}
	*out = chain.Describe(maxBlocks)
	return nil
}

func (s *Server) submit(data []byte, out *wire.TransactionHash) error {
	s.mu.Lock()
	chain := s.chain
	s.mu.Unlock()

	if chain != nil {
		status := ChainStatus{HighestHeight: chain.HighestHeight(), CommittedHeight: chain.CommittedHeight()}
		if !status.InSync() {
			return fmt.Errorf("chain not synchronized: committed height %d, highest height %d", status.CommittedHeight, status.HighestHeight)
		}
	}
	if s.submitter == nil {
		return errors.New("no transaction submitter attached")
	}
	hash, err := s.submitter.SubmitTransaction(data)
	if err != nil {
		return err
	}
	*out = hash
	return nil
}

func (s *Server) pendingCount(_ int, out *int) error {
	s.mu.Lock()
	m := s.txns
	s.mu.Unlock()
	if m == nil {
		return errors.New("no transaction manager attached")
	}
	*out = m.PendingCount()
	return nil
}

func (s *Server) committedCount(_ int, out *int) error {
	s.mu.Lock()
	m := s.txns
	s.mu.Unlock()
	if m == nil {
		return errors.New("no transaction manager attached")
	}
	*out = m.CommittedCount()
	return nil
}

// Introspection is the RPC-exported surface (teacher's WalletService):
// each method's signature follows net/rpc's (args, *reply) error
// convention and simply delegates to Server's private methods.
type Introspection struct {
	s *Server
}

// Status reports the chain's committed and highest known heights.
func (i *Introspection) Status(_ int, out *ChainStatus) error {
	return i.s.status(0, out)
}

// Ancestry renders up to maxBlocks of the committed chain.
func (i *Introspection) Ancestry(maxBlocks int, out *string) error {
	return i.s.ancestry(maxBlocks, out)
}

// Submit forwards a raw transaction payload for submission and returns
// its content hash.
func (i *Introspection) Submit(data []byte, out *wire.TransactionHash) error {
	return i.s.submit(data, out)
}

// PendingCount reports how many client-submitted transactions are still
// awaiting quorum.
func (i *Introspection) PendingCount(_ int, out *int) error {
	return i.s.pendingCount(0, out)
}

// CommittedCount reports how many client-submitted transactions have
// reached quorum.
func (i *Introspection) CommittedCount(_ int, out *int) error {
	return i.s.committedCount(0, out)
}
