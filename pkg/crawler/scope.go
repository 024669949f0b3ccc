package crawler

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Scope decides which links the crawler may follow.
type Scope struct {
	host    string
	root    string
	subdoms bool
}

// NewScope builds the scope for a crawl starting at base. Without subdomains
// only base's exact host (including port) is in scope. With subdomains every
// host under base's registrable domain (eTLD+1) is; hosts without a public
// suffix, such as IPs or "localhost", fall back to the exact host.
func NewScope(base *url.URL, allowSubdomains bool) Scope {
	s := Scope{
		host:    strings.ToLower(base.Host),
		subdoms: allowSubdomains,
	}

	hostname := strings.ToLower(base.Hostname())
	if net.ParseIP(hostname) != nil {
		return s
	}
	if root, err := publicsuffix.EffectiveTLDPlusOne(hostname); err == nil {
		s.root = root
	}

	return s
}

// Contains reports whether u may be crawled.
func (s Scope) Contains(u *url.URL) bool {
	if u == nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}

	if !s.subdoms || s.root == "" {
		return strings.ToLower(u.Host) == s.host
	}

	hostname := strings.ToLower(u.Hostname())

	return hostname == s.root || strings.HasSuffix(hostname, "."+s.root)
}
