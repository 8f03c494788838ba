package gemini

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"github.com/velora-ai/velora/internal/interview"
)

// Invoke implements interview.Gateway: it flattens the provider-neutral
// turn log into Gemini contents, sends it with the tool declarations bound
// and converts the first candidate back into a turn. All provider-specific
// message shaping lives here; the state machine never sees genai types.
func (c *Client) Invoke(ctx context.Context, turns []interview.Turn, tools []interview.ToolDefinition) (interview.Turn, error) {
	contents, system := flattenTurns(turns)
	if len(contents) == 0 {
		return interview.Turn{}, errors.New("turn log has no model-visible content")
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if len(tools) > 0 {
		config.Tools = toGenaiTools(tools)
	}

	resp, err := c.generate(ctx, contents, config)
	if err != nil {
		return interview.Turn{}, err
	}

	return toTurn(resp), nil
}

// flattenTurns maps the turn log to Gemini contents. System turns are not
// part of the Gemini conversation: they are concatenated into the single
// system instruction, which also carries mid-conversation guard turns.
func flattenTurns(turns []interview.Turn) ([]*genai.Content, string) {
	contents := make([]*genai.Content, 0, len(turns))
	var system []string

	for _, turn := range turns {
		switch turn.Role {
		case interview.RoleSystem:
			system = append(system, turn.Text)

		case interview.RoleCandidate:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: turn.Text}},
			})

		case interview.RoleAssistant:
			parts := make([]*genai.Part, 0, 1+len(turn.ToolCalls))
			if turn.Text != "" {
				parts = append(parts, &genai.Part{Text: turn.Text})
			}
			for _, call := range turn.ToolCalls {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   call.ID,
					Name: call.Name,
					Args: call.Args,
				}})
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: parts})

		case interview.RoleTool:
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{FunctionResponse: &genai.FunctionResponse{
					ID:       turn.ToolCallID,
					Name:     turn.ToolName,
					Response: map[string]any{"output": turn.Text},
				}}},
			})
		}
	}

	var instruction string
	if len(system) > 0 {
		instruction = system[0]
		for _, s := range system[1:] {
			instruction += "\n\n" + s
		}
	}

	return contents, instruction
}

func toGenaiTools(tools []interview.ToolDefinition) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		properties := make(map[string]*genai.Schema, len(tool.Parameters))
		required := make([]string, 0, len(tool.Parameters))
		for _, param := range tool.Parameters {
			properties[param.Name] = &genai.Schema{
				Type:        genai.TypeString,
				Description: param.Description,
			}
			if param.Required {
				required = append(required, param.Name)
			}
		}

		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: properties,
				Required:   required,
			},
		})
	}

	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

func toTurn(resp *genai.GenerateContentResponse) interview.Turn {
	turn := interview.Turn{
		Role: interview.RoleAssistant,
		Text: responseText(resp),
	}

	if resp == nil {
		return turn
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.FunctionCall == nil {
				continue
			}
			turn.ToolCalls = append(turn.ToolCalls, interview.ToolCall{
				ID:   part.FunctionCall.ID,
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
		}
	}

	return turn
}
