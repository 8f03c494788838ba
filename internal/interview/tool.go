package interview

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// RecordValidationTool is the wire name of the single tool exposed to the
// model. The Spanish name matches the conversation language so the model
// picks it up naturally from the system instruction.
const RecordValidationTool = "registrar_validacion"

// noneRemaining is the sentinel word the observation uses when the tracker
// is empty. The system instruction tells the model to wrap up on seeing it.
const noneRemaining = "NINGUNO"

// RecordValidationArgs are the decoded arguments of a record-validation call.
type RecordValidationArgs struct {
	Skill      string `mapstructure:"skill"`
	Conclusion string `mapstructure:"conclusion"`
}

// Tools returns the descriptors bound to every gateway invocation of an
// interview session.
func Tools() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        RecordValidationTool,
			Description: "Guarda la conclusión sobre una skill del candidato y la marca como revisada.",
			Parameters: []ToolParameter{
				{Name: "skill", Description: "Nombre de la skill o requisito validado.", Required: true},
				{Name: "conclusion", Description: "Conclusión breve sobre la experiencia del candidato con esa skill.", Required: true},
			},
		},
	}
}

// executeToolCall dispatches a tool invocation against the closed set of
// known tools and returns the observation turn fed back to the model. An
// unrecognized tool name is an error rather than a silent skip.
func executeToolCall(tracker *Tracker, call ToolCall) (Turn, error) {
	if call.Name != RecordValidationTool {
		return Turn{}, fmt.Errorf("unknown tool requested by model: %q", call.Name)
	}

	var args RecordValidationArgs
	if err := mapstructure.Decode(call.Args, &args); err != nil {
		return Turn{}, fmt.Errorf("decode %s arguments: %w", call.Name, err)
	}

	resolved := tracker.TryResolve(args.Skill)

	remaining := noneRemaining
	if !tracker.IsEmpty() {
		remaining = strings.Join(tracker.Labels(), ", ")
	}

	var observation string
	if len(resolved) > 0 {
		observation = fmt.Sprintf("OK. '%s' registrada y borrada de la lista. Faltan por validar: %s", args.Skill, remaining)
	} else {
		observation = fmt.Sprintf("OK. '%s' registrada (era extra). Faltan por validar: %s", args.Skill, remaining)
	}

	return Turn{
		Role:       RoleTool,
		Text:       observation,
		ToolCallID: call.ID,
		ToolName:   call.Name,
	}, nil
}
