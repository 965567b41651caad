package crawler

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/webscoutlabs/webscout/internal/model"
)

// Normalize canonicalizes a URL for visited-set membership: lowercase
// scheme/host, fragment stripped, query parameters sorted, trailing slash
// dropped except at the root. Normalize is idempotent.
func Normalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host in %q", raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	// Encode() emits keys in sorted order, making parameter order irrelevant.
	if u.RawQuery != "" {
		u.RawQuery = u.Query().Encode()
	}

	if u.Path == "" {
		u.Path = "/"
	} else if u.Path != "/" {
		u.Path = strings.TrimRight(u.Path, "/")
		if u.Path == "" {
			u.Path = "/"
		}
	}

	return u.String(), nil
}

// InScope reports whether target may be crawled given the start host and the
// configured domain restrictions.
func InScope(target *url.URL, startHost string, r model.DomainRestrictions) bool {
	host := strings.ToLower(target.Hostname())
	startHost = strings.ToLower(startHost)

	if !r.StayWithinDomain {
		return hostAllowed(host, r.AllowedDomains, r.IncludeSubdomains) || len(r.AllowedDomains) == 0
	}
	if host == startHost {
		return true
	}
	if r.IncludeSubdomains && strings.HasSuffix(host, "."+startHost) {
		return true
	}
	return hostAllowed(host, r.AllowedDomains, r.IncludeSubdomains)
}

// hostAllowed checks the explicit allow-list: exact host match, or suffix
// match when subdomains are included.
func hostAllowed(host string, allowed []string, includeSub bool) bool {
	for _, d := range allowed {
		d = strings.ToLower(d)
		if host == d {
			return true
		}
		if includeSub && strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
