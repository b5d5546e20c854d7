package healing

// CandidateList is an ordered preference list of locators for one semantic
// target. Index 0 is the primary locator; everything after it is a fallback
// tried only when the primary fails.
type CandidateList []string

// Primary returns the preferred locator, or "" for an empty list.
func (c CandidateList) Primary() string {
	if len(c) == 0 {
		return ""
	}
	return c[0]
}

// Fallbacks returns the locators after the primary.
func (c CandidateList) Fallbacks() []string {
	if len(c) <= 1 {
		return nil
	}
	return c[1:]
}

// ResolutionOutcome is the immutable result of one successful resolution.
type ResolutionOutcome struct {
	MatchedLocator string
	CandidateIndex int
	Healed         bool
}
