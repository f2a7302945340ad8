package httpapi

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP attributes a request to a network address. X-Forwarded-For is only
// read when the direct peer is one of the trusted proxies; otherwise the
// header is caller controlled and ignored.
type ClientIP struct {
	trusted []netip.Prefix
}

func NewClientIP(trusted ...netip.Prefix) ClientIP {
	return ClientIP{trusted: trusted}
}

// Resolve returns the peer address, or the nearest untrusted hop recorded by
// trusted proxies in X-Forwarded-For.
func (c ClientIP) Resolve(r *http.Request) string {
	peer := remoteHost(r)
	addr, err := netip.ParseAddr(peer)
	if err != nil || !c.isTrusted(addr) {
		return peer
	}
	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			return peer
		}
		if !c.isTrusted(hop) {
			return hop.Unmap().String()
		}
	}
	return peer
}

func (c ClientIP) isTrusted(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range c.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
