package papergenerator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ValidationReason tags why a candidate was rejected
type ValidationReason string

const (
	ReasonUnbalancedDelimiters ValidationReason = "unbalanced_delimiters"
	ReasonForbiddenCharacters  ValidationReason = "forbidden_characters"
	ReasonFragmentedMath       ValidationReason = "fragmented_math"
	ReasonBadOptionCount       ValidationReason = "bad_option_count"
	ReasonBadAnswer            ValidationReason = "bad_answer"
)

// ValidationFailure describes a rejected candidate
type ValidationFailure struct {
	Reason ValidationReason
	Detail string
}

func (vf *ValidationFailure) String() string {
	return fmt.Sprintf("%s: %s", vf.Reason, vf.Detail)
}

var numericAnswerRe = regexp.MustCompile(`-?\d+(\.\d+)?`)

// StructuralValidator enforces the formatting and answer-integrity
// invariants on a normalized candidate. Checks run in order and
// short-circuit on the first failure.
type StructuralValidator struct {
	fragmentRe *regexp.Regexp
}

// NewStructuralValidator builds a validator with the configured
// fragmentation threshold.
func NewStructuralValidator(cfg Config) *StructuralValidator {
	// A run of tiny consecutive math regions means one expression has been
	// shredded into fragments that are individually balanced but unusable.
	pattern := fmt.Sprintf(`(\$[^$]{1,2}\$\s*){%d,}`, cfg.FragmentThreshold)
	return &StructuralValidator{
		fragmentRe: regexp.MustCompile(pattern),
	}
}

// Check validates a normalized candidate. A nil return means the candidate
// passed every check.
func (sv *StructuralValidator) Check(qtype QuestionType, c *Candidate) *ValidationFailure {
	fields := append([]string{c.Text}, c.Options...)
	names := fieldNames(len(c.Options))

	for i, text := range fields {
		if fail := sv.checkDelimiters(text); fail != nil {
			fail.Detail = names[i] + ": " + fail.Detail
			return fail
		}
	}
	for i, text := range fields {
		if fail := sv.checkForbidden(text); fail != nil {
			fail.Detail = names[i] + ": " + fail.Detail
			return fail
		}
	}
	for i, text := range fields {
		if sv.fragmentRe.MatchString(text) {
			return &ValidationFailure{
				Reason: ReasonFragmentedMath,
				Detail: names[i] + ": severely fragmented math",
			}
		}
	}

	switch qtype {
	case TypeMCQ:
		if len(c.Options) != 4 {
			return &ValidationFailure{
				Reason: ReasonBadOptionCount,
				Detail: fmt.Sprintf("mcq has %d options, want 4", len(c.Options)),
			}
		}
		if c.CorrectAnswer < 0 || c.CorrectAnswer >= len(c.Options) {
			return &ValidationFailure{
				Reason: ReasonBadAnswer,
				Detail: fmt.Sprintf("answer index %d does not resolve to an option", c.CorrectAnswer),
			}
		}
	case TypeNumeric:
		if len(c.Options) != 0 {
			return &ValidationFailure{
				Reason: ReasonBadOptionCount,
				Detail: fmt.Sprintf("numeric question has %d options, want 0", len(c.Options)),
			}
		}
		if !parseableNumeric(c.CorrectValue) {
			return &ValidationFailure{
				Reason: ReasonBadAnswer,
				Detail: fmt.Sprintf("answer %q is not a parseable number", c.CorrectValue),
			}
		}
	}

	return nil
}

// checkDelimiters verifies every math region opens and closes, and braces
// balance without ever going negative.
func (sv *StructuralValidator) checkDelimiters(text string) *ValidationFailure {
	if strings.Count(text, "$")%2 != 0 {
		return &ValidationFailure{Reason: ReasonUnbalancedDelimiters, Detail: "odd number of $ delimiters"}
	}

	depth := 0
	for _, r := range text {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
		}
		if depth < 0 {
			return &ValidationFailure{Reason: ReasonUnbalancedDelimiters, Detail: "extra closing brace"}
		}
	}
	if depth != 0 {
		return &ValidationFailure{Reason: ReasonUnbalancedDelimiters, Detail: "missing closing brace"}
	}
	return nil
}

// checkForbidden rejects literal math glyphs that survived outside the
// normalizer's substitution set: Greek letters, Unicode math operators,
// and math alphanumeric letterforms. Glyphs the normalizer knows are
// already gone by the time this runs.
func (sv *StructuralValidator) checkForbidden(text string) *ValidationFailure {
	for _, r := range text {
		switch {
		case r >= 0x0370 && r <= 0x03FF, // Greek and Coptic
			r >= 0x2200 && r <= 0x22FF,   // mathematical operators
			r >= 0x1D400 && r <= 0x1D7FF, // math alphanumeric symbols
			r == '×', r == '√', r == '±':
			return &ValidationFailure{
				Reason: ReasonForbiddenCharacters,
				Detail: fmt.Sprintf("literal math glyph %q", r),
			}
		}
	}
	if strings.Contains(text, `\mathbb`) {
		return &ValidationFailure{
			Reason: ReasonForbiddenCharacters,
			Detail: `contains \mathbb`,
		}
	}
	return nil
}

func parseableNumeric(value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return true
	}
	return numericAnswerRe.MatchString(trimmed)
}

func fieldNames(optionCount int) []string {
	names := make([]string, 0, optionCount+1)
	names = append(names, "question text")
	for i := 0; i < optionCount; i++ {
		names = append(names, fmt.Sprintf("option %d", i+1))
	}
	return names
}
