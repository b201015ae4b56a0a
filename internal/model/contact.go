package model

// ContactCandidate is one discovered contact for a building. Several
// may exist per building during resolution; unchosen ones are kept as
// secondary sources for audit. Confidence here is the per-source
// 0-100 scale, distinct from the final 0-10 contact score.
type ContactCandidate struct {
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Name       string `json:"name,omitempty"`
	Title      string `json:"title,omitempty"`
	Source     string `json:"source"`
	SourceURL  string `json:"source_url,omitempty"`
	Confidence int    `json:"confidence"`
}

// Empty reports whether the candidate carries no usable contact field.
func (c ContactCandidate) Empty() bool {
	return c.Email == "" && c.Phone == "" && c.Name == "" && c.Title == ""
}

// ResolvedContact is the single chosen contact plus the scorer's
// verdict. Verified is true iff Score > 7.
type ResolvedContact struct {
	ContactCandidate
	Score     int                `json:"score"`
	Verified  bool               `json:"verified"`
	Notes     string             `json:"notes,omitempty"`
	Flags     []string           `json:"flags,omitempty"`
	Secondary []ContactCandidate `json:"secondary,omitempty"`
}
