package transport

import (
	"net"
	"sync"

	log "github.com/helinwang/log15"
)

// ServerFabric is the accept-only transport flavor used by the client-
// facing side of a node (spec §4.7's "client transport"). Unlike
// PeerFabric it never dials: it only accepts inbound connections
// (clients dial the node), and replies are addressed by looking up the
// remote address of an already-accepted connection — grounded on
// original:dash-network/src/server.rs's connection-by-address map.
type ServerFabric struct {
	mu       sync.Mutex
	conns    map[string]*FramedLink
	received chan ReceivedFrame
	listener net.Listener
}

// NewServerFabric binds listenAddr for inbound client connections.
func NewServerFabric(listenAddr string) (*ServerFabric, error) {
	f := &ServerFabric{
		conns:    make(map[string]*FramedLink),
		received: make(chan ReceivedFrame, sendQueueCapacity),
	}
	ln, err := acceptLoop(listenAddr, f.handleConn)
	if err != nil {
		return nil, err
	}
	f.listener = ln
	return f, nil
}

func (f *ServerFabric) handleConn(conn net.Conn) {
	addr := conn.RemoteAddr().String()
	link := NewFramedLink(conn)

	f.mu.Lock()
	f.conns[addr] = link
	f.mu.Unlock()

	for {
		payload, err := link.ReadFrame()
		if err != nil {
			log.Debug("client reader ending", "addr", addr, "err", err)
			break
		}
		f.received <- ReceivedFrame{Addr: addr, Payload: payload}
	}

	f.mu.Lock()
	if f.conns[addr] == link {
		delete(f.conns, addr)
	}
	f.mu.Unlock()
	link.Close()
}

// ListenAddr returns the address the fabric accepts client connections on.
func (f *ServerFabric) ListenAddr() string {
	return f.listener.Addr().String()
}

// Received returns the shared fan-in queue of decoded client frames.
func (f *ServerFabric) Received() <-chan ReceivedFrame {
	return f.received
}

// Send writes frame to the connection currently accepted from addr. If
// no such connection exists (the client has disconnected, or never
// connected under that address), the frame is logged and dropped — spec
// §7 category 3, "unknown requester on receipt emission".
func (f *ServerFabric) Send(addr string, frame []byte) {
	f.mu.Lock()
	link := f.conns[addr]
	f.mu.Unlock()

	if link == nil {
		log.Warn("no connection from address, dropping reply", "addr", addr)
		return
	}
	if err := link.WriteFrame(frame); err != nil {
		log.Warn("disconnected while replying", "addr", addr, "err", err)
		f.mu.Lock()
		if f.conns[addr] == link {
			delete(f.conns, addr)
		}
		f.mu.Unlock()
	}
}

// Close shuts down the listener. Provided for tests.
func (f *ServerFabric) Close() {
	if f.listener != nil {
		f.listener.Close()
	}
}
