package router

import (
	"log"
	"strconv"
	"strings"
)

// RunQueryResponder drains QueryQueue until the ingress loop closes it. It
// belongs in main() alongside Start/Stop since it owns no additional
// resources beyond the router's socket and store.
func (r *Router) RunQueryResponder() {
	for q := range r.QueryQueue {
		reply := r.formatQueryReply(q.IDBytes)
		if err := r.ReplyUDP(q.Addr, []byte(reply)); err != nil {
			log.Printf("router: query reply to %s: %v", q.Addr, err)
		}
	}
}

func (r *Router) formatQueryReply(idBytes []byte) string {
	id, err := strconv.ParseInt(strings.TrimSpace(string(idBytes)), 10, 64)
	if err != nil {
		return ""
	}

	points := r.Store.Get(id, r.Cfg.PresentValueCount)
	if len(points) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(strconv.FormatInt(id, 10))
	for _, p := range points {
		b.WriteString(r.Cfg.ValueSeparator)
		b.WriteString(p.V.String())
		b.WriteString(r.Cfg.ValueSeparator)
		b.WriteString(strconv.FormatInt(p.Ts, 10))
	}
	return b.String()
}
