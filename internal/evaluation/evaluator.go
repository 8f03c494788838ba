package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/velora-ai/velora/internal/util"
)

//go:embed system_prompt.md
var systemPrompt string

//go:embed user_prompt.md
var userPromptTemplate string

const defaultMaxLogLength = 200

// Overridable in tests so the injected date is deterministic.
var now = time.Now

// jsonGenerator is the schema-constrained generation call the evaluator
// depends on. The gemini client satisfies it.
type jsonGenerator interface {
	GenerateJSON(ctx context.Context, system, prompt string, schema *genai.Schema) (string, error)
}

// Evaluator scores a résumé against a job offer in a single stateless model
// call with structured output.
type Evaluator struct {
	generator jsonGenerator
	logger    *zap.Logger
	maxLogLen int
}

func New(generator jsonGenerator, logger *zap.Logger, maxLogLength int) *Evaluator {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Evaluator{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Evaluate runs the evaluation prompt over (offer, résumé) and returns the
// parsed result. The current date is injected so the model can compute
// years of experience from the CV's date ranges.
func (e *Evaluator) Evaluate(ctx context.Context, offerText, resumeText string) (*Result, error) {
	if strings.TrimSpace(offerText) == "" {
		return nil, fmt.Errorf("offer text is required")
	}
	if strings.TrimSpace(resumeText) == "" {
		return nil, fmt.Errorf("resume text is required")
	}

	prompt := buildPrompt(offerText, resumeText, now().Format("02/01/2006"))

	e.logger.Debug("evaluation request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateJSON(ctx, systemPrompt, prompt, resultSchema())
	if err != nil {
		return nil, err
	}

	e.logger.Debug("evaluation response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", util.TruncateForLog(raw, e.maxLogLen)),
	)

	result, err := parseResult(raw)
	if err != nil {
		return nil, err
	}

	return result, nil
}

func buildPrompt(offerText, resumeText, currentDate string) string {
	prompt := strings.ReplaceAll(userPromptTemplate, "{{OFFER_TEXT}}", offerText)
	prompt = strings.ReplaceAll(prompt, "{{CV_TEXT}}", resumeText)
	prompt = strings.ReplaceAll(prompt, "{{CURRENT_DATE}}", currentDate)
	return prompt
}

// resultSchema constrains the model output to the Result shape. Structured
// output keeps parsing trivial; extractJSON below still guards against
// providers that wrap the payload in a code fence.
func resultSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"score": {
				Type:        genai.TypeInteger,
				Description: "Puntuación final del 0 al 100. Si hay un requisito obligatorio no cumplido, debe ser 0.",
			},
			"discarded": {
				Type:        genai.TypeBoolean,
				Description: "True si el candidato no cumple algún requisito obligatorio.",
			},
			"matching_requirements": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "Requisitos de la oferta que el candidato SÍ cumple.",
			},
			"unmatching_requirements": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "Requisitos que el candidato explícitamente NO cumple.",
			},
			"not_found_requirements": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "Requisitos de la oferta que no se mencionan en el CV.",
			},
			"explanation": {
				Type:        genai.TypeString,
				Description: "Explicación detallada del análisis realizado.",
			},
		},
		Required: []string{"score", "discarded", "matching_requirements"},
	}
}

func parseResult(raw string) (*Result, error) {
	cleaned := extractJSON(raw)

	var result Result
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("parse evaluation response: %w", err)
	}

	result.Normalize()
	return &result, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
