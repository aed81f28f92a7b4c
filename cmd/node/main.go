// Command node wires together one validator's collaborators: the
// peer-to-peer overlay and the client-facing transaction pipeline.
// Grounded on original:dash-node/src/main.rs's wiring order (load
// config, build App/Network/KVStore, hand them to the consensus
// engine, then block forever) — the HotStuff engine itself
// (view changes, voting, pacemaker timeouts) is the external
// collaborator spec §1 puts out of scope, so this command constructs
// the real App (pkg/blockprod), Network (pkg/overlay), and block tree
// (pkg/consensus.Tree) it would drive, and otherwise blocks, the same
// way main.rs hands off to hotstuff_rs's Replica::start and then loops
// forever.
package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"path/filepath"

	log "github.com/helinwang/log15"

	"github.com/Shapooo/dash-plat/pkg/blockprod"
	"github.com/Shapooo/dash-plat/pkg/clientactor"
	"github.com/Shapooo/dash-plat/pkg/config"
	"github.com/Shapooo/dash-plat/pkg/consensus"
	"github.com/Shapooo/dash-plat/pkg/debugrpc"
	"github.com/Shapooo/dash-plat/pkg/kvstore"
	"github.com/Shapooo/dash-plat/pkg/overlay"
	"github.com/Shapooo/dash-plat/pkg/transport"
	"github.com/Shapooo/dash-plat/pkg/wire"
)

// incomingCapacity bounds the channel carrying client-submitted
// transactions into block production.
const incomingCapacity = 1000

func main() {
	configDir := flag.String("config_dir", "config", "directory holding config.yaml and the peers/ subdirectory")
	pubkeyB64 := flag.String("pubkey", "", "this validator's base64-encoded public key (key generation is external to this binary, spec §6)")
	clientAddress := flag.String("client_address", ":9100", "address the client-facing transaction service listens on")
	debugAddress := flag.String("debug_address", ":9200", "address the debug/inspection RPC service listens on")
	chainID := flag.Uint64("chain_id", 1, "chain identifier this validator produces blocks for")
	flag.Parse()

	self, err := decodePublicKey(*pubkeyB64)
	if err != nil {
		log.Crit("invalid -pubkey", "err", err)
		return
	}

	cfg, err := config.LoadNodeConfig(filepath.Join(*configDir, "config.yaml"))
	if err != nil {
		log.Crit("failed to load node config", "err", err)
		return
	}
	if err := cfg.LoadPeers(filepath.Join(*configDir, "peers")); err != nil {
		log.Crit("failed to load peer directory", "err", err)
		return
	}
	log.Info("loaded config", "self", self, "peers", len(cfg.PeerAddresses), "host_address", cfg.HostAddress)

	fabric, err := transport.NewPeerFabric(cfg.HostAddress)
	if err != nil {
		log.Crit("failed to start peer fabric", "err", err)
		return
	}
	defer fabric.Close()

	network := overlay.New(self, cfg.PeerAddresses, fabric)
	network.InitValidatorSet(cfg.Validators)

	genesisHash := consensus.Hash(wire.SHA256([]byte("genesis")))
	tree := consensus.NewTree(genesisHash)

	incoming := make(chan *wire.TransactionRequest, incomingCapacity)
	store := kvstore.New()
	policy := blockprod.New(*chainID, tree, incoming, store)
	_ = policy // driven by the external consensus engine (spec §1, §6)

	serverFabric, err := transport.NewServerFabric(*clientAddress)
	if err != nil {
		log.Crit("failed to start client-facing transaction service", "err", err)
		return
	}
	defer serverFabric.Close()

	actor := clientactor.New(self, serverFabric, incoming)
	watcher := clientactor.NewCommitWatcher(tree, actor)

	ctx := context.Background()
	go actor.Run(ctx)
	go watcher.Run(ctx)

	dbg := debugrpc.New()
	dbg.SetStater(tree)
	dbg.SetSubmitter(clientSubmitter{incoming: incoming})
	if err := dbg.Start(*debugAddress); err != nil {
		log.Crit("failed to start debug RPC service", "err", err)
		return
	}

	log.Info("node ready, waiting on the consensus engine", "client_address", *clientAddress, "debug_address", *debugAddress, "validators", network.Validators.Len())
	select {}
}

func decodePublicKey(s string) (wire.PublicKey, error) {
	var pk wire.PublicKey
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return pk, err
	}
	if len(raw) != wire.PublicKeySize {
		return pk, errInvalidPublicKeyLength
	}
	copy(pk[:], raw)
	return pk, nil
}

var errInvalidPublicKeyLength = errors.New("public key must decode to 32 bytes")

// clientSubmitter lets the debug RPC service inject an operator-
// submitted transaction directly into block production, standing in
// for a locally-originated client request (spec §6 treats transaction
// origin/routing as the client actor's concern; debugrpc reuses the
// same incoming channel rather than duplicating it).
type clientSubmitter struct {
	incoming chan<- *wire.TransactionRequest
}

func (s clientSubmitter) SubmitTransaction(data []byte) (wire.TransactionHash, error) {
	req := wire.NewTransactionRequest(wire.PublicKey{}, data)
	s.incoming <- req
	return req.Hash, nil
}
