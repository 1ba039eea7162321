package papergenerator

import "fmt"

// QuestionType distinguishes multiple-choice questions from numeric-answer questions
type QuestionType string

const (
	TypeMCQ     QuestionType = "mcq"
	TypeNumeric QuestionType = "numeric"
)

// QuestionRecord is a single bank question as loaded from the tagged dataset.
// Records are read-only inputs to the pipeline.
type QuestionRecord struct {
	ID            string       `json:"id"`
	Subject       string       `json:"subject"`
	Type          QuestionType `json:"question_type"`
	Text          string       `json:"question_text"`
	Options       []string     `json:"options,omitempty"` // exactly 4 for MCQ, empty for numeric
	CorrectAnswer int          `json:"correct_answer"`    // 0-based option index for MCQ
	CorrectValue  string       `json:"correct_value,omitempty"`
	Source        string       `json:"source,omitempty"` // paper id the bank record came from
}

// Validate checks the record against the data-model invariants. Records that
// fail here must be rejected at ingestion, before any pipeline run starts.
func (q *QuestionRecord) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("question %s: empty question text", q.ID)
	}
	switch q.Type {
	case TypeMCQ:
		if len(q.Options) != 4 {
			return fmt.Errorf("question %s: mcq has %d options, want 4", q.ID, len(q.Options))
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return fmt.Errorf("question %s: correct answer index %d out of range", q.ID, q.CorrectAnswer)
		}
	case TypeNumeric:
		if len(q.Options) != 0 {
			return fmt.Errorf("question %s: numeric question has %d options, want 0", q.ID, len(q.Options))
		}
		if q.CorrectValue == "" {
			return fmt.Errorf("question %s: numeric question has no correct value", q.ID)
		}
	default:
		return fmt.Errorf("question %s: unknown question type %q", q.ID, q.Type)
	}
	return nil
}

// TransformAction is what the classifier decided to do with a question
type TransformAction string

const (
	ActionChangeNumbers TransformAction = "change_numbers"
	ActionRephrase      TransformAction = "rephrase"
	ActionFixIncomplete TransformAction = "fix_incomplete"
	ActionDiscard       TransformAction = "discard"
)

// DefaultAction is applied whenever classification fails for a question, and
// to every replacement drawn from the pool. Rephrasing is the least
// destructive transformation, so it is the safe default.
const DefaultAction = ActionRephrase

// ClassificationResult is one classifier verdict
type ClassificationResult struct {
	QuestionID string          `json:"question_id"`
	Action     TransformAction `json:"action"`
	Reason     string          `json:"reason"`
}

// Candidate is the structured payload parsed out of a transformer response.
// It has not been normalized or validated yet.
type Candidate struct {
	Text          string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	CorrectValue  string   `json:"correct_value,omitempty"`
}

// TransformStatus tags a transformer outcome so every call site has to
// handle all three branches explicitly.
type TransformStatus string

const (
	TransformOK        TransformStatus = "ok"
	TransformParseFail TransformStatus = "parse_error"
	TransformCallFail  TransformStatus = "call_error"
)

// TransformResult is the tagged outcome of one transformer call
type TransformResult struct {
	Status    TransformStatus
	Candidate *Candidate // set only when Status == TransformOK
	Err       error      // set for parse/call failures
}

// QuestionState is where a question sits in the fallback state machine
type QuestionState string

const (
	StatePending         QuestionState = "pending"
	StateClassified      QuestionState = "classified"
	StateTransforming    QuestionState = "transforming"
	StateValidated       QuestionState = "validated"
	StateFailedTransform QuestionState = "failed_transform"
	StateFinalized       QuestionState = "finalized"
)

// ProvenanceTag identifies which pipeline path produced a finalized record
type ProvenanceTag string

const (
	ProvenanceChangeNumbers    ProvenanceTag = "change_numbers"
	ProvenanceRephrase         ProvenanceTag = "rephrase"
	ProvenanceFixIncomplete    ProvenanceTag = "fix_incomplete"
	ProvenanceFallbackOriginal ProvenanceTag = "fallback_original"
	ProvenanceFallbackError    ProvenanceTag = "fallback_error"
)

// FinalizedQuestionRecord is the pipeline output: guaranteed to satisfy
// every data-model invariant and ready for layout without further checks.
type FinalizedQuestionRecord struct {
	SourceID      string        `json:"source_id"`
	Subject       string        `json:"subject"`
	Type          QuestionType  `json:"question_type"`
	Text          string        `json:"question_text"`
	Options       []string      `json:"options,omitempty"`
	CorrectAnswer int           `json:"correct_answer"`
	CorrectValue  string        `json:"correct_value,omitempty"`
	Provenance    ProvenanceTag `json:"provenance"`
	ReplacedFrom  string        `json:"replaced_from,omitempty"` // id of the discarded record this one replaced
	Note          string        `json:"note,omitempty"`          // e.g. "no replacement available"
}

// TransformationAttempt tracks one question through the state machine for
// the duration of a single run.
type TransformationAttempt struct {
	Original     QuestionRecord
	Action       TransformAction
	State        QuestionState
	Result       *TransformResult
	FailReason   ValidationReason // set when the validator rejected the candidate
	ReplacedFrom string
	Note         string
}

// RunSummary counts finalized records by provenance tag
type RunSummary struct {
	RunID  string                `json:"run_id"`
	Total  int                   `json:"total"`
	Counts map[ProvenanceTag]int `json:"counts"`
}
