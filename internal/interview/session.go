package interview

import "strings"

// State is the lifecycle phase of an interview session. A session that is
// absent from the store is implicitly awaiting start.
type State string

const (
	// StateActive accepts candidate turns.
	StateActive State = "active"
	// StateTerminating is entered once the assistant emitted the end token.
	// Further Submit calls are still accepted but discouraged; the caller is
	// expected to Finalize.
	StateTerminating State = "terminating"
	// StateClosed is entered by Finalize. Submit is rejected afterwards.
	StateClosed State = "closed"
)

// transcriptDelimiter separates the original résumé from the interview
// evidence in the augmented payload sent to the scorer.
const transcriptDelimiter = "=== TRANSCRIPCIÓN ENTREVISTA ==="

// Session aggregates everything one interview owns: the append-only turn
// log and the requirement tracker. Sessions are serialized as-is by the
// stores, so all state lives in exported fields.
type Session struct {
	ID      string   `json:"id"`
	State   State    `json:"state"`
	Turns   []Turn   `json:"turns"`
	Tracker *Tracker `json:"tracker"`
}

func newSession(id string, requirements []string) *Session {
	tracker := NewTracker(requirements)
	return &Session{
		ID:    id,
		State: StateActive,
		Turns: []Turn{
			{Role: RoleSystem, Text: buildSystemPrompt(tracker.Labels())},
			{Role: RoleCandidate, Text: beginTrigger, Hidden: true},
		},
		Tracker: tracker,
	}
}

func (s *Session) append(turn Turn) {
	s.Turns = append(s.Turns, turn)
}

// Clone deep-copies the session. Operations mutate a clone and persist it
// only after the gateway round trip succeeds, so a failure leaves the
// stored session untouched and the operation can be retried.
func (s *Session) Clone() *Session {
	turns := make([]Turn, len(s.Turns))
	copy(turns, s.Turns)
	for i := range turns {
		if len(turns[i].ToolCalls) == 0 {
			continue
		}
		calls := make([]ToolCall, len(turns[i].ToolCalls))
		copy(calls, turns[i].ToolCalls)
		turns[i].ToolCalls = calls
	}

	clone := &Session{
		ID:    s.ID,
		State: s.State,
		Turns: turns,
	}
	if s.Tracker != nil {
		clone.Tracker = s.Tracker.clone()
	}
	return clone
}

// Transcript renders the candidate/recruiter dialogue in turn order. System
// turns, tool observations, hidden turns and empty assistant turns are
// excluded; the end token is stripped. Reconstruction is pure, so repeated
// calls over the same log yield identical text.
func (s *Session) Transcript() string {
	var b strings.Builder
	for _, turn := range s.Turns {
		if turn.Hidden {
			continue
		}
		switch turn.Role {
		case RoleCandidate:
			b.WriteString("Candidato: ")
			b.WriteString(strings.TrimSpace(turn.Text))
			b.WriteString("\n")
		case RoleAssistant:
			text := StripEndToken(turn.Text)
			if text == "" {
				continue
			}
			b.WriteString("Recruiter: ")
			b.WriteString(text)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// AugmentedResume appends the interview transcript to the original résumé
// text, delimited so the scorer can weigh it as additional evidence.
func (s *Session) AugmentedResume(originalResume string) string {
	var b strings.Builder
	b.WriteString(originalResume)
	b.WriteString("\n\n")
	b.WriteString(transcriptDelimiter)
	b.WriteString("\n")
	b.WriteString(s.Transcript())
	return b.String()
}
