package transport

import (
	"net"

	log "github.com/helinwang/log15"
)

// acceptLoop binds addr and, from a background goroutine, calls onConn
// for every accepted connection until the listener is closed. It returns
// the bound listener, or the bind error; callers treat a bind failure as
// fatal (spec §7 category 5).
func acceptLoop(addr string, onConn func(net.Conn)) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				log.Debug("listener stopped accepting", "addr", addr, "err", err)
				return
			}
			log.Debug("accepted connection", "local", addr, "remote", conn.RemoteAddr())
			go onConn(conn)
		}
	}()
	return ln, nil
}

// ReceivedFrame is one decoded frame tagged with the remote address it
// arrived from (spec §4.3 "tagged with the remote socket address").
type ReceivedFrame struct {
	Addr    string
	Payload []byte
}

// runReader decodes frames from conn and pushes them onto out, tagged
// with conn's remote address. It returns silently on stream close or
// decode error, logging either case (spec §4.3); a single bad frame from
// a peer tears down that reader but not the rest of the fabric.
func runReader(conn net.Conn, out chan<- ReceivedFrame) {
	addr := conn.RemoteAddr().String()
	link := NewFramedLink(conn)
	defer link.Close()
	for {
		payload, err := link.ReadFrame()
		if err != nil {
			log.Debug("reader ending", "addr", addr, "err", err)
			return
		}
		out <- ReceivedFrame{Addr: addr, Payload: payload}
	}
}
