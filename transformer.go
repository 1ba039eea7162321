package papergenerator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ContentTransformer issues one rewrite call per question and parses the
// structured candidate out of the response. Every response is untrusted:
// the outcome is always one of success, parse failure, or call failure, and
// the caller decides what to do with each.
type ContentTransformer struct {
	client chatCompleter
	cfg    Config
	logger *RunLogger
}

// NewContentTransformer creates a transformer backed by the OpenAI API
func NewContentTransformer(apiKey string, cfg Config) *ContentTransformer {
	return &ContentTransformer{
		client: openai.NewClient(apiKey),
		cfg:    cfg,
	}
}

// SetLogger attaches a run transcript logger
func (ct *ContentTransformer) SetLogger(logger *RunLogger) {
	ct.logger = logger
}

const latexRules = `CRITICAL MATH FORMATTING RULES:
1. Every math expression must be wrapped in $...$ (single dollar signs).
2. Powers and exponents always use braces: $10^{-3}$, $x^{2}$.
3. Subscripts always use braces: $v_{max}$, $F_{net}$.
4. Fractions: $\frac{numerator}{denominator}$. Square roots: $\sqrt{expression}$.
5. Greek letters as commands: $\alpha$, $\theta$, $\mu$, $\lambda$, $\omega$, $\pi$.
6. Scientific notation: $3 \times 10^{-4}$ with \times, never the Unicode sign.
7. Each complete mathematical expression goes in ONE $...$ pair. Never fragment
   an expression into many tiny $...$ pieces.

FORBIDDEN: Unicode math symbols, bare powers like 10^-3, unclosed dollar
signs, unbalanced braces, fragmented math.`

// Transform rewrites one question according to its assigned action. The
// per-call timeout from the configuration is always applied; a timeout is
// treated the same as any other call failure.
func (ct *ContentTransformer) Transform(ctx context.Context, q QuestionRecord, action TransformAction) TransformResult {
	ctx, cancel := context.WithTimeout(ctx, ct.cfg.CallTimeout)
	defer cancel()

	systemPrompt := ct.cfg.DirectiveFor(action) + "\n\n" + latexRules
	userPrompt := ct.buildPrompt(q, action)

	if ct.logger != nil {
		ct.logger.LogLLMRequest("ContentTransformer", userPrompt)
	}

	resp, err := ct.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: ct.cfg.Model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: userPrompt,
				},
			},
			Tools: []openai.Tool{
				{
					Type: openai.ToolTypeFunction,
					Function: &openai.FunctionDefinition{
						Name:        "submit_question",
						Description: "Submit the rewritten question",
						Parameters: map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"question_text": map[string]interface{}{
									"type":        "string",
									"description": "The rewritten question text",
								},
								"options": map[string]interface{}{
									"type": "array",
									"items": map[string]interface{}{
										"type": "string",
									},
									"description": "All 4 options for multiple choice, empty for numeric questions",
								},
								"correct_answer": map[string]interface{}{
									"type":        "integer",
									"description": "0-based index of the correct option (multiple choice only)",
								},
								"correct_value": map[string]interface{}{
									"type":        "string",
									"description": "The numeric answer (numeric questions only)",
								},
							},
							"required": []string{"question_text"},
						},
					},
				},
			},
			ToolChoice: openai.ToolChoice{
				Type: openai.ToolTypeFunction,
				Function: openai.ToolFunction{
					Name: "submit_question",
				},
			},
		},
	)

	if err != nil {
		return TransformResult{
			Status: TransformCallFail,
			Err:    fmt.Errorf("transform call failed: %w", err),
		}
	}

	candidate, err := ct.parseResponse(resp)
	if err != nil {
		return TransformResult{
			Status: TransformParseFail,
			Err:    err,
		}
	}

	if ct.logger != nil {
		ct.logger.LogLLMResponse("ContentTransformer", candidate.Text)
	}

	return TransformResult{
		Status:    TransformOK,
		Candidate: candidate,
	}
}

func (ct *ContentTransformer) parseResponse(resp openai.ChatCompletionResponse) (*Candidate, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from model")
	}

	choice := resp.Choices[0]
	if len(choice.Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("no tool calls in response")
	}

	toolCall := choice.Message.ToolCalls[0]
	if toolCall.Function.Name != "submit_question" {
		return nil, fmt.Errorf("unexpected tool call: %s", toolCall.Function.Name)
	}

	var candidate Candidate
	if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &candidate); err != nil {
		return nil, fmt.Errorf("failed to parse tool arguments: %w", err)
	}

	if candidate.Text == "" {
		return nil, fmt.Errorf("response has no question text")
	}

	return &candidate, nil
}

func (ct *ContentTransformer) buildPrompt(q QuestionRecord, action TransformAction) string {
	var sb strings.Builder

	verb := "Rewrite"
	switch action {
	case ActionChangeNumbers:
		verb = "Modify the numerical values in"
	case ActionFixIncomplete:
		verb = "Complete the missing parts of"
	case ActionRephrase:
		verb = "Rephrase"
	}

	sb.WriteString(fmt.Sprintf("%s this %s question:\n\n", verb, q.Subject))
	sb.WriteString(fmt.Sprintf("Question: %s\n", q.Text))
	sb.WriteString(fmt.Sprintf("Type: %s\n", q.Type))

	if q.Type == TypeMCQ {
		sb.WriteString("Options:\n")
		for i, option := range q.Options {
			marker := " "
			if i == q.CorrectAnswer {
				marker = "*"
			}
			sb.WriteString(fmt.Sprintf("%s%d. %s\n", marker, i+1, option))
		}
		sb.WriteString(fmt.Sprintf("Correct Answer: option %d\n", q.CorrectAnswer+1))
	} else {
		sb.WriteString(fmt.Sprintf("Correct Answer: %s\n", q.CorrectValue))
	}

	sb.WriteString("\nRemember:\n")
	sb.WriteString("- Wrap all math in $...$\n")
	switch action {
	case ActionChangeNumbers:
		sb.WriteString("- Recompute the answer correctly from the new values\n")
		sb.WriteString("- All 4 options must be complete and exactly one correct\n")
	case ActionFixIncomplete:
		sb.WriteString("- The question must be complete and self-contained\n")
		sb.WriteString("- Preserve the original correct answer\n")
	default:
		sb.WriteString("- Keep numbers, values, and the correct answer identical\n")
		sb.WriteString("- Keep all options unchanged apart from formatting fixes\n")
	}
	sb.WriteString("- Use the submit_question tool to return the result\n")

	return sb.String()
}
