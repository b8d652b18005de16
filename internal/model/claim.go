package model

// Claim is an atomic, independently verifiable factual statement
type Claim struct {
	Text  string `json:"text"`            // The claim text itself
	Index int    `json:"index"`           // Position in extraction order (0-based)
	Chunk int    `json:"chunk,omitempty"` // Article chunk the claim came from
}

// ClaimTexts returns the text of each claim in order
func ClaimTexts(claims []Claim) []string {
	texts := make([]string, len(claims))
	for i, c := range claims {
		texts[i] = c.Text
	}
	return texts
}
