package model

import (
	"net/url"
	"strings"
)

// UnknownDomain is the source domain of an item without a usable URL
const UnknownDomain = "unknown"

// EvidenceItem is one piece of retrieved evidence for a claim
type EvidenceItem struct {
	URL          string         `json:"url"`
	Snippet      string         `json:"snippet"`
	SourceDomain string         `json:"source_domain"`
	Title        string         `json:"title,omitempty"`
	Origin       EvidenceOrigin `json:"origin,omitempty"`
}

// EvidenceOrigin records which retrieval collaborator produced the item
type EvidenceOrigin string

const (
	OriginWeb           EvidenceOrigin = "web"            // Live web search
	OriginKnowledgeBase EvidenceOrigin = "knowledge_base" // Vector-store knowledge base
)

// NewEvidenceItem builds an item and derives its source domain from the URL
func NewEvidenceItem(rawURL, snippet string, origin EvidenceOrigin) EvidenceItem {
	return EvidenceItem{
		URL:          rawURL,
		Snippet:      snippet,
		SourceDomain: SourceDomain(rawURL),
		Origin:       origin,
	}
}

// SourceDomain derives the host portion of a URL with any "www." prefix removed.
// URLs without a scheme ("nasa.gov/artemis") are treated as host-first.
func SourceDomain(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return UnknownDomain
	}

	host := hostOf(rawURL)
	if host == "" && !strings.Contains(rawURL, "://") {
		host = hostOf("//" + rawURL)
	}
	if host == "" {
		return UnknownDomain
	}

	host = strings.ToLower(host)
	return strings.TrimPrefix(host, "www.")
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Host
}
