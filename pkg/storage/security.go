package storage

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// BlockedNetworks are IP ranges a remote source URL may never resolve
// to. Fetching user-supplied URLs from inside the deployment network
// would otherwise reach internal services.
var BlockedNetworks = []string{
	"127.0.0.0/8",    // Localhost
	"10.0.0.0/8",     // Private network
	"172.16.0.0/12",  // Private network
	"192.168.0.0/16", // Private network
	"169.254.0.0/16", // Link-local (cloud metadata service)
}

// IsBlockedIP checks an IP address against the blocked ranges
func IsBlockedIP(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}

	for _, cidr := range BlockedNetworks {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if network.Contains(ip) {
			return true
		}
	}

	return false
}

// ValidateSourceURL vets a user-supplied remote source URL: it must be
// http or https and must not resolve to a blocked network.
func ValidateSourceURL(uri string) error {
	parsed, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("source URLs must be http or https, got %s", parsed.Scheme)
	}

	hostname := parsed.Hostname()
	ips, err := net.LookupIP(hostname)
	if err != nil {
		return fmt.Errorf("failed to resolve hostname: %w", err)
	}

	for _, ip := range ips {
		ipStr := ip.String()
		if IsBlockedIP(ipStr) {
			return fmt.Errorf("access denied: %s resolves to %s (%s)", hostname, ipStr, blockReason(ipStr))
		}
	}

	return nil
}

func blockReason(ipStr string) string {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return "invalid IP"
	}

	if ip.IsLoopback() {
		return "localhost access not allowed"
	}

	for _, cidr := range BlockedNetworks {
		_, network, _ := net.ParseCIDR(cidr)
		if network != nil && network.Contains(ip) {
			if strings.HasPrefix(cidr, "169.254") {
				return "link-local access not allowed"
			}
			return "private network access not allowed"
		}
	}

	return "blocked network"
}
