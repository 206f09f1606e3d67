// ssrf.go — SSRF-safe dialer/transport for the configured Supabase endpoint.
//
// endpoint_url is operator-supplied configuration, not a trusted constant
// (spec section 4.5), so every outbound request is dialed through the same
// private-IP-blocking, DNS-pinning transport the teacher built for its form
// submission targets (internal/upload/ssrf.go).
package uploader

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const ssrfLookupTimeout = 5 * time.Second

// AllowedHosts holds host or host:port values that bypass private-IP
// blocking. Intended for test use only (httptest.NewServer on 127.0.0.1).
var AllowedHosts []string

// SkipSSRFCheck disables private IP blocking entirely. Must only be set
// from test code.
var SkipSSRFCheck bool

var privateRanges []*net.IPNet

func init() {
	for _, cidr := range []string{
		"127.0.0.0/8",
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
		"0.0.0.0/8",
		"::1/128",
		"fc00::/7",
		"fe80::/10",
	} {
		_, ipNet, _ := net.ParseCIDR(cidr)
		privateRanges = append(privateRanges, ipNet)
	}
}

// IsPrivateIP returns true if ip is in a private, loopback, link-local, or
// unspecified range.
func IsPrivateIP(ip net.IP) bool {
	if ip.IsUnspecified() || ip.IsLoopback() {
		return true
	}
	for _, cidr := range privateRanges {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

func isAllowedHost(hostOrAddr string) bool {
	for _, allowed := range AllowedHosts {
		if allowed == hostOrAddr {
			return true
		}
	}
	return false
}

// ResolvePublicIP resolves host and returns its first non-private address.
func ResolvePublicIP(ctx context.Context, host string) (net.IP, error) {
	normalized := strings.TrimSpace(host)
	if normalized == "" {
		return nil, fmt.Errorf("empty hostname")
	}
	if idx := strings.IndexByte(normalized, '%'); idx != -1 {
		normalized = normalized[:idx]
	}

	if ip := net.ParseIP(normalized); ip != nil {
		if IsPrivateIP(ip) {
			return nil, fmt.Errorf("host %q is private IP %s", host, ip.String())
		}
		return ip, nil
	}

	ips, err := net.DefaultResolver.LookupIPAddr(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("DNS lookup failed for %q: %w", host, err)
	}
	for _, ipAddr := range ips {
		if ipAddr.IP != nil && !IsPrivateIP(ipAddr.IP) {
			return ipAddr.IP, nil
		}
	}
	return nil, fmt.Errorf("hostname %q resolves only to private IP addresses", host)
}

func ssrfSafeDialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("ssrf_blocked: invalid address %s", addr)
	}

	if SkipSSRFCheck || isAllowedHost(addr) || isAllowedHost(host) {
		var d net.Dialer
		return d.DialContext(ctx, network, net.JoinHostPort(host, port))
	}

	lookupCtx, cancel := context.WithTimeout(ctx, ssrfLookupTimeout)
	defer cancel()

	ip, err := ResolvePublicIP(lookupCtx, host)
	if err != nil {
		return nil, fmt.Errorf("ssrf_blocked: %w", err)
	}

	var d net.Dialer
	return d.DialContext(ctx, network, net.JoinHostPort(ip.String(), port))
}

// newSSRFSafeTransport returns an HTTP transport that blocks private or
// internal dial targets and pins DNS resolution to the resolved address.
func newSSRFSafeTransport() *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = ssrfSafeDialContext
	return transport
}

// validateEndpointURL rejects schemes other than http/https and, unless
// skipped, resolves the host to confirm it is not a private address before
// the caller ever opens a connection. Checked once at connection-test time
// and again implicitly on every upload dial via the transport above.
func validateEndpointURL(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("malformed endpoint url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("scheme %q not allowed: only http and https are permitted", u.Scheme)
	}
	hostname := u.Hostname()
	if hostname == "" {
		return fmt.Errorf("endpoint url has no hostname")
	}
	if SkipSSRFCheck || isAllowedHost(hostname) {
		return nil
	}
	lookupCtx, cancel := context.WithTimeout(ctx, ssrfLookupTimeout)
	defer cancel()
	_, err = ResolvePublicIP(lookupCtx, hostname)
	return err
}
