package validate

import (
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
)

// DefaultMaxSources caps the filtered evidence list when no limit is configured
const DefaultMaxSources = 5

// EvidenceFilter drops low-value sources (social, video and UGC platforms)
// from a raw evidence list
type EvidenceFilter struct {
	denyList   []string
	maxSources int
}

// FilterResult is the outcome of one filter pass
type FilterResult struct {
	Kept      []model.EvidenceItem // Retained items, in input order
	Skipped   int                  // Items matching the deny-list or without a URL
	Truncated int                  // Acceptable items dropped by the cap
}

// NewEvidenceFilter creates a filter. Deny-list entries are matched as
// case-insensitive substrings of the item URL.
func NewEvidenceFilter(denyList []string, maxSources int) *EvidenceFilter {
	if maxSources <= 0 {
		maxSources = DefaultMaxSources
	}

	entries := make([]string, 0, len(denyList))
	for _, d := range denyList {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			entries = append(entries, d)
		}
	}

	return &EvidenceFilter{denyList: entries, maxSources: maxSources}
}

// NewEvidenceFilterFromConfig creates a filter from configuration
func NewEvidenceFilterFromConfig(cfg model.FilterConfig) *EvidenceFilter {
	return NewEvidenceFilter(cfg.DenyList, cfg.MaxSources)
}

// Filter returns the ordered sub-sequence of items that are not denied,
// truncated to the configured maximum. Items are never reordered.
func (f *EvidenceFilter) Filter(items []model.EvidenceItem) FilterResult {
	res := FilterResult{Kept: make([]model.EvidenceItem, 0, min(len(items), f.maxSources))}

	for _, item := range items {
		if f.Denied(item.URL) {
			res.Skipped++
			continue
		}
		if len(res.Kept) == f.maxSources {
			res.Truncated++
			continue
		}
		res.Kept = append(res.Kept, item)
	}

	return res
}

// Denied reports whether rawURL is empty or contains a deny-listed entry
func (f *EvidenceFilter) Denied(rawURL string) bool {
	u := strings.ToLower(strings.TrimSpace(rawURL))
	if u == "" {
		return true
	}
	for _, d := range f.denyList {
		if strings.Contains(u, d) {
			return true
		}
	}
	return false
}
