package observability

import (
	"net"
	"net/http"
	"strings"
)

// ClientMeta is the per-request identity attached to websocket events.
type ClientMeta struct {
	RequestID string
	IP        string
}

// ClientMetaFromRequest extracts the request id and client address, honoring
// the first hop of X-Forwarded-For when a proxy is in front.
func ClientMetaFromRequest(r *http.Request) ClientMeta {
	meta := ClientMeta{RequestID: r.Header.Get("X-Request-Id")}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		meta.IP = strings.TrimSpace(strings.Split(forwarded, ",")[0])
		return meta
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		meta.IP = host
		return meta
	}
	meta.IP = r.RemoteAddr
	return meta
}
