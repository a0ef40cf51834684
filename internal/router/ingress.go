package router

import (
	"bytes"
	"log"
	"net"
	"time"

	"procem/pkg/measurement"
)

// getValuePrefix is the literal marker distinguishing a latest-value query
// from a raw measurement datagram.
var getValuePrefix = []byte("get_value:")

// queuePushTimeout bounds how long the ingress loop will block trying to
// push into a full downstream queue before dropping and logging; the UDP
// socket must keep draining regardless of downstream backpressure.
const queuePushTimeout = 50 * time.Millisecond

func (r *Router) runIngress() {
	buf := make([]byte, measurement.MaxDatagramBytes+len(getValuePrefix)+32)
	for {
		n, addr, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			break
		}
		payload := append([]byte(nil), buf[:n]...)

		if bytes.HasPrefix(payload, getValuePrefix) {
			idBytes := payload[len(getValuePrefix):]
			r.pushQuery(QueryItem{IDBytes: idBytes, Addr: addr})
			continue
		}

		r.pushMain(Datagram{Bytes: payload})
		if r.Cfg.UseUDPAck {
			if _, err := r.conn.WriteToUDP([]byte("OK"), addr); err != nil {
				log.Printf("router: ack reply to %s: %v", addr, err)
			}
		}
	}

	close(r.MainQueue)
	close(r.QueryQueue)
}

func (r *Router) pushMain(dg Datagram) {
	select {
	case r.MainQueue <- dg:
	case <-time.After(queuePushTimeout):
		log.Printf("router: main queue full, dropping datagram (%d bytes)", len(dg.Bytes))
	}
}

func (r *Router) pushQuery(q QueryItem) {
	select {
	case r.QueryQueue <- q:
	case <-time.After(queuePushTimeout):
		log.Printf("router: query queue full, dropping query from %s", q.Addr)
	}
}

// ReplyUDP sends a response datagram back to addr over the router's bound
// socket, used by the query responder.
func (r *Router) ReplyUDP(addr *net.UDPAddr, payload []byte) error {
	_, err := r.conn.WriteToUDP(payload, addr)
	return err
}
