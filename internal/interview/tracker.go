package interview

import "strings"

// Tracker holds the requirement labels still waiting for validation in one
// session. Membership only shrinks: labels are removed as the tool records
// validations and never put back. The exported field keeps it serializable
// for the session store.
type Tracker struct {
	Remaining []string `json:"remaining"`
}

// NewTracker builds a tracker from the gap list, deduplicating labels by
// their normalized form while preserving the input order.
func NewTracker(labels []string) *Tracker {
	seen := make(map[string]struct{}, len(labels))
	remaining := make([]string, 0, len(labels))

	for _, label := range labels {
		norm := normalizeLabel(label)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		remaining = append(remaining, strings.TrimSpace(label))
	}

	return &Tracker{Remaining: remaining}
}

// TryResolve removes every tracked label matching the reported skill and
// returns the removed labels. Matching is deliberately loose: the normalized
// strings match when either contains the other, so "python" resolves
// "Python 3" and vice versa. A miss is not an error; the skill is simply
// treated as extra information.
func (t *Tracker) TryResolve(skill string) []string {
	reported := normalizeLabel(skill)
	if reported == "" {
		return nil
	}

	var resolved []string
	kept := t.Remaining[:0]
	for _, label := range t.Remaining {
		if labelsMatch(normalizeLabel(label), reported) {
			resolved = append(resolved, label)
			continue
		}
		kept = append(kept, label)
	}
	t.Remaining = kept

	return resolved
}

// IsEmpty reports whether every requirement has been validated. This is the
// termination predicate for the interview.
func (t *Tracker) IsEmpty() bool {
	return len(t.Remaining) == 0
}

// Labels returns a copy of the outstanding labels in order.
func (t *Tracker) Labels() []string {
	out := make([]string, len(t.Remaining))
	copy(out, t.Remaining)
	return out
}

func (t *Tracker) clone() *Tracker {
	return &Tracker{Remaining: t.Labels()}
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// labelsMatch applies bidirectional substring containment on normalized
// labels. This can over-match overlapping names ("Java" vs "JavaScript");
// kept on purpose to mirror how reported skills rarely repeat the offer's
// exact wording. Swap the body for a stricter matcher if that ever bites.
func labelsMatch(label, reported string) bool {
	return strings.Contains(reported, label) || strings.Contains(label, reported)
}
