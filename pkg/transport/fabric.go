package transport

import (
	"net"
	"sync"
)

// PeerFabric is the dial-based peer-to-peer fabric (spec §4.4, C4): it
// routes each outbound (addr, frame) to a lazily-created, process-
// lifetime Connector for addr, and fans all inbound readers into one
// receive queue. It does no deduplication or retransmission beyond what
// Connector's reconnect provides.
type PeerFabric struct {
	mu         sync.Mutex
	connectors map[string]*Connector
	received   chan ReceivedFrame
	listener   net.Listener
}

// NewPeerFabric binds listenAddr for inbound peer connections and
// returns a fabric ready to send to and receive from peers. Bind
// failure is fatal (spec §7 category 5).
func NewPeerFabric(listenAddr string) (*PeerFabric, error) {
	f := &PeerFabric{
		connectors: make(map[string]*Connector),
		received:   make(chan ReceivedFrame, sendQueueCapacity),
	}
	ln, err := acceptLoop(listenAddr, func(conn net.Conn) {
		runReader(conn, f.received)
	})
	if err != nil {
		return nil, err
	}
	f.listener = ln
	return f, nil
}

// ListenAddr returns the address the fabric accepts peer connections on.
func (f *PeerFabric) ListenAddr() string {
	return f.listener.Addr().String()
}

// Received returns the shared fan-in queue for all inbound frames from
// any peer, tagged by remote address. Spec's single-consumer / try-lock
// semantics are implemented one layer up, in pkg/overlay, which is the
// component the consensus library actually calls recv() on.
func (f *PeerFabric) Received() <-chan ReceivedFrame {
	return f.received
}

// Send routes frame to the connector for addr, creating it lazily on
// first use and retaining it for the fabric's lifetime (spec §4.4).
func (f *PeerFabric) Send(addr string, frame []byte) {
	f.connectorFor(addr).Send(frame)
}

func (f *PeerFabric) connectorFor(addr string) *Connector {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.connectors[addr]
	if !ok {
		c = NewConnector(addr)
		f.connectors[addr] = c
		go c.Run()
	}
	return c
}

// Close shuts down the listener and every connector. The node binary
// reaches it only on a startup-abort path (spec §9 open question 4);
// tests use it to release their fabrics.
func (f *PeerFabric) Close() {
	if f.listener != nil {
		f.listener.Close()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.connectors {
		c.Close()
	}
}
