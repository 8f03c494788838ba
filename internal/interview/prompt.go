package interview

import (
	"strings"

	_ "embed"
)

// EndToken is the out-of-band marker the model appends to its closing
// remark once every requirement is validated. Its presence in an assistant
// turn is the only termination signal callers should rely on; presentation
// layers must strip it before rendering.
const EndToken = "[FIN_ENTREVISTA]"

//go:embed prompt.md
var systemPromptTemplate string

// beginTrigger is the synthetic first candidate turn that makes the model
// open the conversation. It is hidden from the transcript.
const beginTrigger = "Saluda, si no sabes el nombre del candidato pregúntalo, y lanza la primera pregunta."

// terminationGuard is appended as a hidden system turn on every Submit once
// the tracker is empty. The model may ignore the instruction embedded in the
// main prompt, so the guard repeats it unconditionally each turn.
const terminationGuard = "La lista de requisitos pendientes está vacía: la entrevista ha terminado. " +
	"No hagas más preguntas. Despídete cordialmente del candidato y termina tu mensaje con el token exacto " + EndToken + "."

func buildSystemPrompt(requirements []string) string {
	prompt := strings.ReplaceAll(systemPromptTemplate, "{{REQUIREMENTS}}", strings.Join(requirements, ", "))
	prompt = strings.ReplaceAll(prompt, "{{NONE_REMAINING}}", noneRemaining)
	prompt = strings.ReplaceAll(prompt, "{{END_TOKEN}}", EndToken)
	return prompt
}

// StripEndToken removes the termination marker from assistant text so it is
// never shown to the end user.
func StripEndToken(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, EndToken, ""))
}
