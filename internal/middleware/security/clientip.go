package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the caller's address, trusting forwarding headers only
// when the direct peer is a trusted proxy.
type ClientIP struct {
	trustedProxies []*net.IPNet
}

// NewClientIP trusts loopback and private networks by default.
func NewClientIP() *ClientIP {
	c := &ClientIP{}
	for _, cidr := range []string{"127.0.0.0/8", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "::1/128"} {
		_, network, _ := net.ParseCIDR(cidr)
		c.trustedProxies = append(c.trustedProxies, network)
	}
	return c
}

// AddTrustedProxy adds a trusted proxy network
func (c *ClientIP) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	c.trustedProxies = append(c.trustedProxies, network)
	return nil
}

// Extract returns the client IP for r.
func (c *ClientIP) Extract(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsed := net.ParseIP(directIP)
	if parsed == nil || !c.isTrustedProxy(parsed) {
		return directIP
	}

	// X-Forwarded-For can contain multiple IPs, take the first one
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

func (c *ClientIP) isTrustedProxy(ip net.IP) bool {
	for _, network := range c.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
