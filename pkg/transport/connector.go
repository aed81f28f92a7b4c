package transport

import (
	"net"
	"time"

	log "github.com/helinwang/log15"
)

// sendQueueCapacity is the bounded FIFO queue capacity shared by the send
// queue and the outage pending buffer (spec §3, §4.2).
const sendQueueCapacity = 1000

// dropBatchSize is how many of the oldest buffered frames are discarded
// once the pending buffer overflows (spec §3 "capacity 1000, drop
// policy... oldest 400 frames are discarded").
const dropBatchSize = 400

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 60 * time.Second
)

// Connector owns one outbound connection to a single remote peer (spec
// §4.2, C2). It dials, reconnects with exponential backoff, and buffers
// frames accepted while disconnected — dropping the oldest dropBatchSize
// entries once the buffer exceeds sendQueueCapacity.
//
// Frames accepted into Send are delivered in enqueue order across a
// single connection lifetime; across reconnects, ordering is preserved
// except for frames dropped by the overflow policy.
type Connector struct {
	addr      string
	sendQueue chan []byte
	closed    chan struct{}
	dial      func(addr string) (net.Conn, error)
}

// NewConnector creates a connector for addr. Call Run in its own
// goroutine to start dialing.
func NewConnector(addr string) *Connector {
	return &Connector{
		addr:      addr,
		sendQueue: make(chan []byte, sendQueueCapacity),
		closed:    make(chan struct{}),
		dial: func(addr string) (net.Conn, error) {
			return net.Dial("tcp", addr)
		},
	}
}

// Send enqueues a frame for delivery to this connector's peer. It blocks
// while the send queue is full, and returns without enqueueing once
// Close has been called.
func (c *Connector) Send(frame []byte) {
	select {
	case c.sendQueue <- frame:
	case <-c.closed:
	}
}

// Close terminates the connector; in-flight writes are abandoned (spec
// §4.2 "Cancellation").
func (c *Connector) Close() {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
}

// Run drives the Disconnected → Connecting → Connected → Disconnected
// state machine (spec §4.2) until Close is called. It never returns
// otherwise (there is no orderly shutdown besides Close, per spec §9
// open question 4).
func (c *Connector) Run() {
	delay := initialBackoff
	retry := 0
	var pending [][]byte

	for {
		select {
		case <-c.closed:
			return
		default:
		}

		conn, err := c.dial(c.addr)
		if err != nil {
			log.Warn("connect failed, will retry", "addr", c.addr, "retry", retry, "err", err)
			timer := time.NewTimer(delay)
			drained := false
			for !drained {
				select {
				case <-timer.C:
					delay = minDuration(2*delay, maxBackoff)
					retry++
					drained = true
				case frame, ok := <-c.sendQueue:
					if !ok {
						timer.Stop()
						return
					}
					pending = append(pending, frame)
					if len(pending) > sendQueueCapacity {
						log.Warn("outbound buffer overflow, dropping oldest frames", "addr", c.addr, "dropped", dropBatchSize)
						pending = pending[dropBatchSize:]
					}
				case <-c.closed:
					timer.Stop()
					return
				}
			}
			continue
		}

		log.Debug("outbound connection established", "addr", c.addr)
		delay = initialBackoff
		retry = 0
		pending = c.runConnected(conn, pending)
	}
}

// runConnected flushes pending into the connection, then interleaves
// reading the send queue with writing, returning the (possibly
// non-empty) pending buffer once a write error sends us back to
// Disconnected.
func (c *Connector) runConnected(conn net.Conn, pending [][]byte) [][]byte {
	link := NewFramedLink(conn)
	defer link.Close()

	for len(pending) > 0 {
		frame := pending[0]
		pending = pending[1:]
		if err := link.WriteFrame(frame); err != nil {
			log.Warn("write failed, reconnecting", "addr", c.addr, "err", err)
			return pending
		}
	}

	for {
		select {
		case frame, ok := <-c.sendQueue:
			if !ok {
				return nil
			}
			if err := link.WriteFrame(frame); err != nil {
				log.Warn("write failed, reconnecting", "addr", c.addr, "err", err)
				return nil
			}
		case <-c.closed:
			return nil
		}
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
