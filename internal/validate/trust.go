package validate

import (
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
)

// TrustClassifier answers whether a source domain is on the trusted
// allow-list used to break stance-rank ties
type TrustClassifier struct {
	domains map[string]bool
}

// NewTrustClassifier creates a classifier over the given domains
func NewTrustClassifier(domains []string) *TrustClassifier {
	t := &TrustClassifier{domains: make(map[string]bool, len(domains))}
	for _, d := range domains {
		if d = normalizeHost(d); d != "" {
			t.domains[d] = true
		}
	}
	return t
}

// IsTrusted reports whether domain equals a trusted domain or is a
// subdomain of one (science.nasa.gov matches nasa.gov)
func (t *TrustClassifier) IsTrusted(domain string) bool {
	host := normalizeHost(domain)
	if host == "" || host == model.UnknownDomain {
		return false
	}

	if t.domains[host] {
		return true
	}

	for trusted := range t.domains {
		if strings.HasSuffix(host, "."+trusted) {
			return true
		}
	}
	return false
}

// IsTrustedURL classifies the domain of rawURL
func (t *TrustClassifier) IsTrustedURL(rawURL string) bool {
	return t.IsTrusted(model.SourceDomain(rawURL))
}

// normalizeHost lower-cases, strips any port and a leading "www."
func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if idx := strings.LastIndex(host, ":"); idx > 0 && !strings.Contains(host[idx:], "]") {
		host = host[:idx]
	}
	return strings.TrimPrefix(host, "www.")
}
