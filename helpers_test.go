package papergenerator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// fakeChatClient substitutes the OpenAI client in tests
type fakeChatClient struct {
	fn    func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	calls int
}

func (f *fakeChatClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	return f.fn(ctx, req)
}

// toolCallResponse builds a chat response carrying a single function tool call
func toolCallResponse(name, arguments string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{
				Message: openai.ChatCompletionMessage{
					Role: openai.ChatMessageRoleAssistant,
					ToolCalls: []openai.ToolCall{
						{
							Type: openai.ToolTypeFunction,
							Function: openai.FunctionCall{
								Name:      name,
								Arguments: arguments,
							},
						},
					},
				},
			},
		},
	}
}

// classificationArgs marshals classifier tool arguments for the given actions
func classificationArgs(actions map[string]TransformAction) string {
	type item struct {
		ID     string `json:"id"`
		Action string `json:"action"`
		Reason string `json:"reason"`
	}
	var payload struct {
		Classifications []item `json:"classifications"`
	}
	for id, action := range actions {
		payload.Classifications = append(payload.Classifications, item{ID: id, Action: string(action)})
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

// candidateArgs marshals transformer tool arguments for a candidate
func candidateArgs(c Candidate) string {
	data, _ := json.Marshal(c)
	return string(data)
}

func testMCQ(id, subject string) QuestionRecord {
	return QuestionRecord{
		ID:            id,
		Subject:       subject,
		Type:          TypeMCQ,
		Text:          fmt.Sprintf("A particle moves at $5$ m/s. Question %s?", id),
		Options:       []string{"$1$ m", "$2$ m", "$3$ m", "$4$ m"},
		CorrectAnswer: 1,
	}
}

func testNumeric(id, subject string) QuestionRecord {
	return QuestionRecord{
		ID:           id,
		Subject:      subject,
		Type:         TypeNumeric,
		Text:         fmt.Sprintf("Compute the value for question %s.", id),
		CorrectValue: "42",
	}
}

func validCandidate() Candidate {
	return Candidate{
		Text:          "A particle moves at $8$ m/s. How far does it travel in $2$ s?",
		Options:       []string{"$8$ m", "$16$ m", "$24$ m", "$32$ m"},
		CorrectAnswer: 1,
	}
}

// fastConfig is DefaultConfig with no inter-call delay and a short timeout
func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.InterCallDelay = 0
	cfg.CallTimeout = 5 * time.Second
	return cfg
}

// newTestPipeline wires a pipeline with fake clients for both call sites
func newTestPipeline(cfg Config, pool *QuestionPool, classify, transform *fakeChatClient) *TransformPipeline {
	return &TransformPipeline{
		classifier:  &ActionClassifier{client: classify, cfg: cfg},
		transformer: &ContentTransformer{client: transform, cfg: cfg},
		validator:   NewStructuralValidator(cfg),
		pool:        pool,
		cfg:         cfg,
	}
}
