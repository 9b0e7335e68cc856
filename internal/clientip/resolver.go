// Package clientip resolves the client IP a request should be attributed
// to, honoring X-Forwarded-For/X-Real-Ip only when the immediate peer is a
// trusted proxy.
package clientip

import (
	"net"
	"strings"

	"github.com/hyperapi/gateway/internal/netx"
)

type Resolver struct {
	Trusted *netx.CIDRSet
}

func (r Resolver) ClientIP(remoteAddr string, forwardedFor, realIP string) string {
	remote := parseRemoteIP(remoteAddr)
	if remote != nil && r.Trusted != nil && r.Trusted.Contains(remote) {
		if forwardedFor != "" {
			parts := strings.Split(forwardedFor, ",")
			if len(parts) > 0 {
				if ip := net.ParseIP(strings.TrimSpace(parts[0])); ip != nil {
					return ip.String()
				}
			}
		}
		if ip := net.ParseIP(strings.TrimSpace(realIP)); ip != nil {
			return ip.String()
		}
	}
	if remote != nil {
		return remote.String()
	}
	return remoteAddr
}

func parseRemoteIP(remoteAddr string) net.IP {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return net.ParseIP(remoteAddr)
	}
	return net.ParseIP(host)
}
