package score

import (
	"errors"

	"github.com/ppiankov/claimcheck/internal/model"
)

// ErrNoCandidates is returned when there is nothing to select from
var ErrNoCandidates = errors.New("no evidence candidates")

// TrustChecker answers whether a source domain is on the trusted allow-list
type TrustChecker interface {
	IsTrusted(domain string) bool
}

// Candidate is one filtered evidence item with its classified stance
type Candidate struct {
	Item       model.EvidenceItem
	Stance     model.Stance
	Classified bool // False when classification was rejected; never ranked
}

// Selection is the winning candidate
type Selection struct {
	Index    int // Position in the candidate list
	Item     model.EvidenceItem
	Stance   model.Stance
	Rank     int
	Trusted  bool
	TieBreak bool // Replaced an equal-rank item on domain trust
	Fallback bool // Nothing ranked; first candidate used as unrelated
}

// Selector picks the best evidence by stance rank with a trusted-domain
// tie-break. Given the same ordered candidates it always picks the same one.
type Selector struct {
	trust TrustChecker
}

// NewSelector creates a selector. A nil checker trusts nothing.
func NewSelector(trust TrustChecker) *Selector {
	return &Selector{trust: trust}
}

// Select walks candidates in order keeping a running best. A strictly higher
// rank replaces the best; an equal rank replaces it only when the candidate's
// domain is trusted and the best's is not. Earlier items win remaining ties.
func (s *Selector) Select(cands []Candidate) (Selection, error) {
	if len(cands) == 0 {
		return Selection{}, ErrNoCandidates
	}

	best := Selection{Index: -1, Rank: model.SentinelRank}

	for i, c := range cands {
		if !c.Classified {
			continue
		}

		stance := c.Stance
		if !stance.Valid() {
			stance = model.StanceUnrelated
		}
		rank := stance.Rank()
		trusted := s.isTrusted(c.Item.SourceDomain)

		switch {
		case rank > best.Rank:
			best = Selection{Index: i, Item: c.Item, Stance: stance, Rank: rank, Trusted: trusted}
		case rank == best.Rank && trusted && !best.Trusted:
			best = Selection{Index: i, Item: c.Item, Stance: stance, Rank: rank, Trusted: trusted, TieBreak: true}
		}
	}

	if best.Index < 0 {
		first := cands[0]
		return Selection{
			Index:    0,
			Item:     first.Item,
			Stance:   model.StanceUnrelated,
			Rank:     model.StanceUnrelated.Rank(),
			Trusted:  s.isTrusted(first.Item.SourceDomain),
			Fallback: true,
		}, nil
	}

	return best, nil
}

func (s *Selector) isTrusted(domain string) bool {
	return s.trust != nil && s.trust.IsTrusted(domain)
}
