package papergenerator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
)

// chatCompleter is the slice of the OpenAI client the pipeline uses. Tests
// substitute a fake.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ActionClassifier assigns each question a transformation action using the
// chat model.
type ActionClassifier struct {
	client chatCompleter
	cfg    Config
	logger *RunLogger
}

// NewActionClassifier creates a classifier backed by the OpenAI API
func NewActionClassifier(apiKey string, cfg Config) *ActionClassifier {
	return &ActionClassifier{
		client: openai.NewClient(apiKey),
		cfg:    cfg,
	}
}

// SetLogger attaches a run transcript logger
func (ac *ActionClassifier) SetLogger(logger *RunLogger) {
	ac.logger = logger
}

const classifierSystemPrompt = `You are an exam question analyzer. Classify each question for transformation.

Actions:
1. change_numbers: the question has numerical values that can be changed while keeping the same concept, and the answer can be recomputed. Good for physics and math problems with specific numbers.
2. rephrase: the question should be reworded but values and formulas must stay the same. Good for conceptual questions and chemistry reactions.
3. fix_incomplete: the question references statements or lists that are missing but can be reasonably reconstructed from context.
4. discard: the question is unfixable - it references images, diagrams, or graphs that are not available, or is too incomplete to reconstruct.

Rules:
- Chemistry equations and reactions are always rephrase; never change formulas.
- Math or physics with specific numbers and a standard computation: change_numbers.
- Conceptual or theory questions: rephrase.
- Numeric-answer questions with calculations: change_numbers.`

// classifyItem is the per-question payload sent to the model. Long question
// texts are truncated to respect payload limits.
type classifyItem struct {
	ID      string   `json:"id"`
	Subject string   `json:"subject"`
	Type    string   `json:"question_type"`
	Text    string   `json:"question_text"`
	Options []string `json:"options,omitempty"`
}

const classifyTextLimit = 500

// truncateText cuts text to at most limit bytes without splitting a rune
func truncateText(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit]
}

// Classify returns exactly one result per input question, in input order.
// Questions are sent in batches; if a batch call fails, or a question id is
// missing from a parsed response, those questions get DefaultAction instead
// of aborting the run.
func (ac *ActionClassifier) Classify(ctx context.Context, questions []QuestionRecord) []ClassificationResult {
	results := make([]ClassificationResult, 0, len(questions))

	batchSize := ac.cfg.ClassificationBatchSize
	for start := 0; start < len(questions); start += batchSize {
		end := start + batchSize
		if end > len(questions) {
			end = len(questions)
		}
		results = append(results, ac.classifyBatch(ctx, questions[start:end])...)
	}

	return results
}

func (ac *ActionClassifier) classifyBatch(ctx context.Context, batch []QuestionRecord) []ClassificationResult {
	byID, err := ac.callBatch(ctx, batch)
	if err != nil {
		VerboseLog("Classification failed for batch of %d, defaulting to %s: %v", len(batch), DefaultAction, err)
		if ac.logger != nil {
			ac.logger.Logf("Classification batch failed (%d questions): %v\n", len(batch), err)
		}
	}

	results := make([]ClassificationResult, 0, len(batch))
	for _, q := range batch {
		if r, ok := byID[q.ID]; ok {
			results = append(results, r)
			continue
		}
		results = append(results, ClassificationResult{
			QuestionID: q.ID,
			Action:     DefaultAction,
			Reason:     "classification failed",
		})
	}
	return results
}

func (ac *ActionClassifier) callBatch(ctx context.Context, batch []QuestionRecord) (map[string]ClassificationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, ac.cfg.CallTimeout)
	defer cancel()

	items := make([]classifyItem, 0, len(batch))
	for _, q := range batch {
		items = append(items, classifyItem{
			ID:      q.ID,
			Subject: q.Subject,
			Type:    string(q.Type),
			Text:    truncateText(q.Text, classifyTextLimit),
			Options: q.Options,
		})
	}
	itemsJSON, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal classification batch: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Classify these %d exam questions:\n\n", len(batch)))
	sb.Write(itemsJSON)
	sb.WriteString("\n\nUse the classify_questions tool to return one classification per question id.")
	prompt := sb.String()

	if ac.logger != nil {
		ac.logger.LogLLMRequest("ActionClassifier", prompt)
	}

	resp, err := ac.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: ac.cfg.Model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: classifierSystemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Tools: []openai.Tool{
				{
					Type: openai.ToolTypeFunction,
					Function: &openai.FunctionDefinition{
						Name:        "classify_questions",
						Description: "Submit one transformation action per question",
						Parameters: map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"classifications": map[string]interface{}{
									"type": "array",
									"items": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"id": map[string]interface{}{
												"type":        "string",
												"description": "The question id, unchanged",
											},
											"action": map[string]interface{}{
												"type":        "string",
												"enum":        []string{"change_numbers", "rephrase", "fix_incomplete", "discard"},
												"description": "What to do with this question",
											},
											"reason": map[string]interface{}{
												"type":        "string",
												"description": "Brief reason for the decision",
											},
										},
										"required": []string{"id", "action"},
									},
								},
							},
							"required": []string{"classifications"},
						},
					},
				},
			},
			ToolChoice: openai.ToolChoice{
				Type: openai.ToolTypeFunction,
				Function: openai.ToolFunction{
					Name: "classify_questions",
				},
			},
		},
	)

	if err != nil {
		return nil, fmt.Errorf("classification call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from model")
	}

	choice := resp.Choices[0]
	if len(choice.Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("no tool calls in response")
	}

	toolCall := choice.Message.ToolCalls[0]
	if toolCall.Function.Name != "classify_questions" {
		return nil, fmt.Errorf("unexpected tool call: %s", toolCall.Function.Name)
	}

	if ac.logger != nil {
		ac.logger.LogLLMResponse("ActionClassifier", toolCall.Function.Arguments)
	}

	var toolArgs struct {
		Classifications []struct {
			ID     string `json:"id"`
			Action string `json:"action"`
			Reason string `json:"reason"`
		} `json:"classifications"`
	}

	if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &toolArgs); err != nil {
		return nil, fmt.Errorf("failed to parse tool arguments: %w", err)
	}

	byID := make(map[string]ClassificationResult, len(toolArgs.Classifications))
	for _, c := range toolArgs.Classifications {
		action := TransformAction(c.Action)
		switch action {
		case ActionChangeNumbers, ActionRephrase, ActionFixIncomplete, ActionDiscard:
		default:
			// Unrecognized action from the model, treat as the default
			action = DefaultAction
		}
		byID[c.ID] = ClassificationResult{
			QuestionID: c.ID,
			Action:     action,
			Reason:     c.Reason,
		}
	}
	return byID, nil
}
