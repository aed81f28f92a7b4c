// Command client runs the transaction-submitting client actor (spec
// §4.9, C9), grounded on original:dash-client/src/main.rs +
// dash-client/src/client.rs's run loop: generate transactions up to a
// fixed in-flight cap, broadcast them to every configured node, and
// collect receipts until each reaches quorum.
package main

import (
	"crypto/rand"
	"flag"
	"net"
	"time"

	log "github.com/helinwang/log15"

	"github.com/Shapooo/dash-plat/pkg/config"
	"github.com/Shapooo/dash-plat/pkg/transport"
	"github.com/Shapooo/dash-plat/pkg/txnmanager"
	"github.com/Shapooo/dash-plat/pkg/wire"
)

// fillPeriod is how often the client tops up its in-flight transaction
// cache (spec §4.9's fixed cap is enforced by FillPending itself; this
// just controls how promptly newly-freed slots are refilled).
const fillPeriod = 200 * time.Millisecond

func main() {
	configPath := flag.String("config", "client_config.yaml", "path to the client's YAML configuration file")
	flag.Parse()

	cfg, err := config.LoadClientConfig(*configPath)
	if err != nil {
		log.Crit("failed to load client config", "err", err)
		return
	}
	if len(cfg.NodeAddresses) == 0 {
		log.Crit("client config lists no node addresses")
		return
	}

	// Key generation is an external collaborator's job (spec §6); a
	// fresh random identifier stands in for a loaded keypair's public
	// half.
	var requester wire.PublicKey
	if _, err := rand.Read(requester[:]); err != nil {
		log.Crit("failed to generate client identity", "err", err)
		return
	}
	log.Info("starting client", "requester", requester, "nodes", len(cfg.NodeAddresses))

	manager := txnmanager.New(requester, len(cfg.NodeAddresses))

	conns := make([]*nodeConn, len(cfg.NodeAddresses))
	for i, addr := range cfg.NodeAddresses {
		conns[i] = newNodeConn(addr, manager)
		go conns[i].run()
	}

	ticker := time.NewTicker(fillPeriod)
	defer ticker.Stop()
	for range ticker.C {
		generated := manager.FillPending()
		for _, req := range generated {
			frame := wire.EncodeTransactionRequest(req)
			for _, c := range conns {
				c.send(frame)
			}
		}
		if len(generated) > 0 {
			log.Debug("generated transactions", "count", len(generated), "pending", manager.PendingCount(), "committed", manager.CommittedCount())
		}
	}
}

// nodeConn owns one persistent connection to a node: it writes
// outbound transaction requests and reads back transaction receipts
// over the same link, mirroring the way pkg/transport.ServerFabric
// replies on the connection a request arrived on.
type nodeConn struct {
	addr    string
	manager *txnmanager.Manager
	outbox  chan []byte
}

func newNodeConn(addr string, manager *txnmanager.Manager) *nodeConn {
	return &nodeConn{addr: addr, manager: manager, outbox: make(chan []byte, 1000)}
}

func (c *nodeConn) send(frame []byte) {
	select {
	case c.outbox <- frame:
	default:
		log.Warn("outbound queue full, dropping transaction request", "addr", c.addr)
	}
}

// run dials c.addr and, once connected, writes queued frames and reads
// receipts until the connection breaks, then retries after a fixed
// delay (a simpler cousin of pkg/transport.Connector's backoff, since a
// client talking to a handful of nodes has no need for its reconnect
// buffering/drop policy).
func (c *nodeConn) run() {
	for {
		conn, err := net.Dial("tcp", c.addr)
		if err != nil {
			log.Warn("failed to connect to node, retrying", "addr", c.addr, "err", err)
			time.Sleep(time.Second)
			continue
		}
		log.Info("connected to node", "addr", c.addr)
		link := transport.NewFramedLink(conn)
		done := make(chan struct{})
		go c.readLoop(link, done)
		c.writeLoop(link, done)
	}
}

func (c *nodeConn) writeLoop(link *transport.FramedLink, done chan struct{}) {
	for {
		select {
		case frame := <-c.outbox:
			if err := link.WriteFrame(frame); err != nil {
				log.Warn("write to node failed, reconnecting", "addr", c.addr, "err", err)
				link.Close()
				<-done
				return
			}
		case <-done:
			link.Close()
			return
		}
	}
}

func (c *nodeConn) readLoop(link *transport.FramedLink, done chan struct{}) {
	defer close(done)
	for {
		frame, err := link.ReadFrame()
		if err != nil {
			log.Warn("read from node failed, reconnecting", "addr", c.addr, "err", err)
			return
		}
		receipt, err := wire.DecodeTransactionReceipt(frame)
		if err != nil {
			log.Warn("malformed receipt from node, dropping", "addr", c.addr, "err", err)
			continue
		}
		c.manager.HandleReceipt(receipt.Hash)
	}
}
