// Package guard holds the input checks shared by the recipe client and the
// offline API: recipe ids, links carried by uploaded recipes, and bounded
// body reads.
package guard

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
)

// MaxIDLen is the longest accepted recipe id.
const MaxIDLen = 64

// ErrID is returned for a malformed recipe id.
var ErrID = errors.New("guard: invalid recipe id")

// ErrLink is returned for a link that is not a public http(s) URL.
var ErrLink = errors.New("guard: invalid link")

// ErrTooLarge is returned when a body exceeds its limit.
var ErrTooLarge = errors.New("guard: body too large")

// RecipeID checks that id is non-empty, at most MaxIDLen long, and made of
// letters, digits, '-' and '_'. Ids go into URL paths unescaped by some
// clients, so nothing else is let through.
func RecipeID(id string) error {
	if id == "" || len(id) > MaxIDLen {
		return fmt.Errorf("%w: length %d", ErrID, len(id))
	}
	for _, r := range id {
		if !isIDChar(r) {
			return fmt.Errorf("%w: character %q", ErrID, r)
		}
	}
	return nil
}

// Link checks that raw is an absolute http or https URL with a host, no
// credentials, and not a loopback or private address given literally.
// Hostnames are not resolved.
func Link(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLink, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: scheme %q", ErrLink, u.Scheme)
	}
	if u.User != nil {
		return fmt.Errorf("%w: credentials in URL", ErrLink)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: no host", ErrLink)
	}
	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("%w: local host", ErrLink)
	}
	if ip := net.ParseIP(host); ip != nil && isPrivateIP(ip) {
		return fmt.Errorf("%w: private address %s", ErrLink, ip)
	}
	return nil
}

// ReadAll reads r up to maxBytes. A longer body is ErrTooLarge.
func ReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: over %d bytes", ErrTooLarge, maxBytes)
	}
	return data, nil
}

func isIDChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_' || r == '-'
}

var privateNets = mustCIDRs("10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "fc00::/7", "100.64.0.0/10")

func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return true
	}
	for _, n := range privateNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func mustCIDRs(cidrs ...string) []*net.IPNet {
	out := make([]*net.IPNet, len(cidrs))
	for i, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic("guard: " + err.Error())
		}
		out[i] = n
	}
	return out
}
