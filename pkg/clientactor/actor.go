// Package clientactor implements the client-facing actor (spec §4.7,
// C7) and its companion commit watcher (spec §4.8, C8): together they
// accept client transaction submissions, forward them into block
// production, and turn finalized blocks back into receipts naming this
// node as receiptor (receipts carry no signature).
package clientactor

import (
	"context"
	"sync"

	log "github.com/helinwang/log15"

	"github.com/Shapooo/dash-plat/pkg/transport"
	"github.com/Shapooo/dash-plat/pkg/wire"
)

// CommitEvent is what the Commit Watcher emits once a transaction's
// block has been finalized: the original requester and the
// transaction's hash (spec §4.8).
type CommitEvent struct {
	Requester wire.PublicKey
	Hash      wire.TransactionHash
}

// Actor is the C7 Client Actor. It owns the two bookkeeping maps spec
// §3/§5 describe as shared between the actor and the commit watcher,
// guarded by a single exclusive lock.
type Actor struct {
	self   wire.PublicKey
	server *transport.ServerFabric
	toProd chan<- *wire.TransactionRequest

	mu                sync.Mutex
	requesterAddr     map[wire.PublicKey]string
	pendingOriginator map[wire.TransactionHash]wire.PublicKey

	commits chan CommitEvent
}

// New builds an Actor. server is the accept-only fabric bound to the
// node's client-facing listen address (spec §4.7); toProd is the
// channel pkg/blockprod's Policy drains for candidate transactions.
func New(self wire.PublicKey, server *transport.ServerFabric, toProd chan<- *wire.TransactionRequest) *Actor {
	return &Actor{
		self:              self,
		server:            server,
		toProd:            toProd,
		requesterAddr:     make(map[wire.PublicKey]string),
		pendingOriginator: make(map[wire.TransactionHash]wire.PublicKey),
		commits:           make(chan CommitEvent, 1000),
	}
}

// Commits returns the channel the Commit Watcher pushes finalized
// (requester, hash) pairs onto.
func (a *Actor) Commits() chan<- CommitEvent {
	return a.commits
}

// Run consumes client frames and commit events until ctx is canceled.
// In the live process ctx is never canceled (spec §9 open question 4);
// tests cancel it to bound goroutine lifetime.
func (a *Actor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-a.server.Received():
			if !ok {
				return
			}
			a.handleClientFrame(frame)
		case ev, ok := <-a.commits:
			if !ok {
				return
			}
			a.handleCommit(ev)
		}
	}
}

// handleClientFrame decodes a client-submitted TransactionRequest,
// records its originator under both maps, and forwards it into block
// production. Malformed frames — undecodable, or with a hash that does
// not match the payload — are logged and dropped (spec §7 category 2).
func (a *Actor) handleClientFrame(frame transport.ReceivedFrame) {
	req, err := wire.DecodeTransactionRequest(frame.Payload)
	if err != nil {
		log.Warn("dropping malformed transaction request", "addr", frame.Addr, "err", err)
		return
	}
	if !req.VerifyHash() {
		log.Warn("dropping transaction request with mismatched hash", "addr", frame.Addr, "requester", req.Requester)
		return
	}

	a.mu.Lock()
	a.requesterAddr[req.Requester] = frame.Addr
	a.pendingOriginator[req.Hash] = req.Requester
	a.mu.Unlock()

	a.toProd <- req
}

// takeOriginator atomically looks up and removes hash's originator, for
// the Commit Watcher's use.
func (a *Actor) takeOriginator(hash wire.TransactionHash) (wire.PublicKey, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	pk, ok := a.pendingOriginator[hash]
	if ok {
		delete(a.pendingOriginator, hash)
	}
	return pk, ok
}

// handleCommit builds and sends a Committed receipt for a finalized
// transaction, or logs and drops the event if its requester is no
// longer known (spec §4.7, §7 category 3; Unaccepted is reserved and
// never emitted by this path).
func (a *Actor) handleCommit(ev CommitEvent) {
	a.mu.Lock()
	addr, ok := a.requesterAddr[ev.Requester]
	a.mu.Unlock()
	if !ok {
		log.Warn("unknown requester for commit, dropping receipt", "requester", ev.Requester, "hash", ev.Hash)
		return
	}

	receipt := &wire.TransactionReceipt{
		Receiptor: a.self,
		Requester: ev.Requester,
		Hash:      ev.Hash,
		Result:    wire.Committed,
	}
	a.server.Send(addr, wire.EncodeTransactionReceipt(receipt))
}
