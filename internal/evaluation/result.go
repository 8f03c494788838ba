package evaluation

// Result is the structured outcome of evaluating a résumé against a job
// offer. The same shape serves the initial screening and the re-scoring
// after the interview.
type Result struct {
	// Score is the final mark from 0 to 100.
	Score int `json:"score"`
	// Discarded is true when a mandatory requirement is not met. A discarded
	// candidate always scores 0.
	Discarded bool `json:"discarded"`
	// MatchingRequirements lists the offer requirements the candidate meets.
	MatchingRequirements []string `json:"matching_requirements"`
	// UnmatchingRequirements lists requirements the candidate explicitly
	// fails to meet.
	UnmatchingRequirements []string `json:"unmatching_requirements"`
	// NotFoundRequirements lists requirements the résumé does not mention at
	// all. This gap list seeds the interview.
	NotFoundRequirements []string `json:"not_found_requirements"`
	// Explanation is the model's free-text reasoning.
	Explanation string `json:"explanation"`
}

// Normalize clamps the score into range and enforces the discard rule
// regardless of what the model produced.
func (r *Result) Normalize() {
	if r.Score < 0 {
		r.Score = 0
	}
	if r.Score > 100 {
		r.Score = 100
	}
	if r.Discarded {
		r.Score = 0
	}
}
