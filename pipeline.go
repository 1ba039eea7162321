package papergenerator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransformPipeline drives a fixed set of questions through classification,
// replacement, transformation, normalization, and validation, guaranteeing
// exactly one valid finalized record per input slot.
type TransformPipeline struct {
	classifier  *ActionClassifier
	transformer *ContentTransformer
	validator   *StructuralValidator
	pool        *QuestionPool
	cfg         Config
	logger      *RunLogger
}

// NewTransformPipeline creates a pipeline backed by the OpenAI API
func NewTransformPipeline(apiKey string, cfg Config, pool *QuestionPool) *TransformPipeline {
	return &TransformPipeline{
		classifier:  NewActionClassifier(apiKey, cfg),
		transformer: NewContentTransformer(apiKey, cfg),
		validator:   NewStructuralValidator(cfg),
		pool:        pool,
		cfg:         cfg,
	}
}

// SetLogger attaches a run transcript logger to the pipeline and both of
// its model-calling components.
func (tp *TransformPipeline) SetLogger(logger *RunLogger) {
	tp.logger = logger
	tp.classifier.SetLogger(logger)
	tp.transformer.SetLogger(logger)
}

// RunResult is the ordered output of one pipeline run
type RunResult struct {
	RunID   string                    `json:"run_id"`
	Records []FinalizedQuestionRecord `json:"records"`
	Summary RunSummary                `json:"summary"`
}

// NewRunID returns a fresh identifier for a pipeline run. Callers that
// create a RunLogger should mint the id first and pass it to RunWithID so
// the transcript file and the result share one id.
func NewRunID() string {
	return uuid.NewString()
}

// Run transforms the selected question set under a freshly minted run id.
// The only fatal error is an input record that violates its own invariants;
// every external failure is absorbed into a fallback record. On cancellation
// the already-finalized prefix is returned alongside the context error:
// finalized records never depend on one another, so a partial result is
// still valid.
func (tp *TransformPipeline) Run(ctx context.Context, selected []QuestionRecord) (*RunResult, error) {
	return tp.RunWithID(ctx, NewRunID(), selected)
}

// RunWithID is Run with a caller-supplied run id
func (tp *TransformPipeline) RunWithID(ctx context.Context, runID string, selected []QuestionRecord) (*RunResult, error) {
	for i := range selected {
		if err := selected[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid input record at slot %d: %w", i, err)
		}
	}

	result := &RunResult{
		RunID: runID,
		Summary: RunSummary{
			RunID:  runID,
			Counts: make(map[ProvenanceTag]int),
		},
	}

	VerboseLog("Run %s: classifying %d questions", runID, len(selected))

	attempts := tp.classify(ctx, selected)
	tp.resolveDiscards(attempts)

	for i, attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if i > 0 && tp.cfg.InterCallDelay > 0 {
			// Rate limit between transformer calls
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(tp.cfg.InterCallDelay):
			}
		}

		record := tp.finalize(ctx, attempt)
		result.Records = append(result.Records, record)
		result.Summary.Counts[record.Provenance]++
		result.Summary.Total++

		if tp.logger != nil {
			tp.logger.LogQuestionResult(record.SourceID, record.Provenance, record.Note)
		}
		VerboseLog("Run %s: [%d/%d] %s -> %s", runID, i+1, len(attempts), record.SourceID, record.Provenance)
	}

	if tp.logger != nil {
		tp.logger.LogSummary(result.Summary)
	}
	return result, nil
}

// classify moves every question from Pending to Classified. Classification
// failures are absorbed inside the classifier, so every attempt gets an
// action here.
func (tp *TransformPipeline) classify(ctx context.Context, selected []QuestionRecord) []*TransformationAttempt {
	attempts := make([]*TransformationAttempt, len(selected))
	for i, q := range selected {
		attempts[i] = &TransformationAttempt{
			Original: q,
			State:    StatePending,
		}
	}

	classifications := tp.classifier.Classify(ctx, selected)
	for i := range attempts {
		attempts[i].Action = classifications[i].Action
		attempts[i].State = StateClassified
	}
	return attempts
}

// resolveDiscards replaces each discarded question with a pool draw for the
// same slot. Replacements get the default action; an exhausted pool keeps
// the original, so the slot count never shrinks.
func (tp *TransformPipeline) resolveDiscards(attempts []*TransformationAttempt) {
	for _, attempt := range attempts {
		if attempt.Action != ActionDiscard {
			continue
		}

		replacement := tp.pool.Draw(attempt.Original.Subject, attempt.Original.Type)
		if replacement == nil {
			VerboseLog("Pool exhausted, keeping discarded question %s", attempt.Original.ID)
			attempt.Action = DefaultAction
			attempt.Note = "no replacement available"
			continue
		}

		VerboseLog("Replacing discarded question %s with %s", attempt.Original.ID, replacement.ID)
		attempt.ReplacedFrom = attempt.Original.ID
		attempt.Original = *replacement
		attempt.Action = DefaultAction
	}
}

// finalize runs one question through Transforming to Finalized. Whatever
// the transformer and validator do, exactly one valid record comes out.
func (tp *TransformPipeline) finalize(ctx context.Context, attempt *TransformationAttempt) FinalizedQuestionRecord {
	attempt.State = StateTransforming

	res := tp.transformer.Transform(ctx, attempt.Original, attempt.Action)
	attempt.Result = &res

	switch res.Status {
	case TransformOK:
		NormalizeCandidate(res.Candidate)
		if fail := tp.validator.Check(attempt.Original.Type, res.Candidate); fail != nil {
			VerboseLog("Question %s failed validation: %s", attempt.Original.ID, fail)
			attempt.State = StateFailedTransform
			attempt.FailReason = fail.Reason
			return tp.emitOriginal(attempt, ProvenanceFallbackOriginal)
		}
		attempt.State = StateValidated
		return tp.emitCandidate(attempt, res.Candidate)

	case TransformParseFail, TransformCallFail:
		VerboseLog("Question %s transform failed (%s): %v", attempt.Original.ID, res.Status, res.Err)
		attempt.State = StateFailedTransform
		return tp.emitOriginal(attempt, ProvenanceFallbackError)

	default:
		attempt.State = StateFailedTransform
		return tp.emitOriginal(attempt, ProvenanceFallbackError)
	}
}

// emitCandidate finalizes a validated candidate under the action's
// provenance tag.
func (tp *TransformPipeline) emitCandidate(attempt *TransformationAttempt, c *Candidate) FinalizedQuestionRecord {
	attempt.State = StateFinalized
	return FinalizedQuestionRecord{
		SourceID:      attempt.Original.ID,
		Subject:       attempt.Original.Subject,
		Type:          attempt.Original.Type,
		Text:          c.Text,
		Options:       c.Options,
		CorrectAnswer: c.CorrectAnswer,
		CorrectValue:  c.CorrectValue,
		Provenance:    provenanceForAction(attempt.Action),
		ReplacedFrom:  attempt.ReplacedFrom,
		Note:          attempt.Note,
	}
}

// emitOriginal finalizes the original record verbatim, unnormalized.
// Original bank content is already canonical.
func (tp *TransformPipeline) emitOriginal(attempt *TransformationAttempt, tag ProvenanceTag) FinalizedQuestionRecord {
	attempt.State = StateFinalized
	q := attempt.Original
	return FinalizedQuestionRecord{
		SourceID:      q.ID,
		Subject:       q.Subject,
		Type:          q.Type,
		Text:          q.Text,
		Options:       q.Options,
		CorrectAnswer: q.CorrectAnswer,
		CorrectValue:  q.CorrectValue,
		Provenance:    tag,
		ReplacedFrom:  attempt.ReplacedFrom,
		Note:          attempt.Note,
	}
}

func provenanceForAction(action TransformAction) ProvenanceTag {
	switch action {
	case ActionChangeNumbers:
		return ProvenanceChangeNumbers
	case ActionFixIncomplete:
		return ProvenanceFixIncomplete
	default:
		return ProvenanceRephrase
	}
}
