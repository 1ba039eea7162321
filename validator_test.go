package papergenerator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator() *StructuralValidator {
	return NewStructuralValidator(DefaultConfig())
}

func TestCheckPassesValidCandidates(t *testing.T) {
	sv := newTestValidator()

	mcq := validCandidate()
	assert.Nil(t, sv.Check(TypeMCQ, &mcq))

	numeric := Candidate{
		Text:         `The value of $x^{2}$ at $x = 3$ is?`,
		CorrectValue: "9",
	}
	assert.Nil(t, sv.Check(TypeNumeric, &numeric))
}

func TestCheckRejectsUnbalancedDelimiters(t *testing.T) {
	sv := newTestValidator()

	c := validCandidate()
	c.Text = `the price is $5 per unit`
	fail := sv.Check(TypeMCQ, &c)
	require.NotNil(t, fail)
	assert.Equal(t, ReasonUnbalancedDelimiters, fail.Reason)

	c = validCandidate()
	c.Options[2] = `$\frac{a}{b$`
	fail = sv.Check(TypeMCQ, &c)
	require.NotNil(t, fail)
	assert.Equal(t, ReasonUnbalancedDelimiters, fail.Reason)

	c = validCandidate()
	c.Text = `extra close $x}$`
	fail = sv.Check(TypeMCQ, &c)
	require.NotNil(t, fail)
	assert.Equal(t, ReasonUnbalancedDelimiters, fail.Reason)
}

func TestCheckRejectsForbiddenCharacters(t *testing.T) {
	sv := newTestValidator()

	c := validCandidate()
	c.Text = `angle θ remains`
	fail := sv.Check(TypeMCQ, &c)
	require.NotNil(t, fail)
	assert.Equal(t, ReasonForbiddenCharacters, fail.Reason)

	c = validCandidate()
	c.Options[0] = `$\mathbb{RR}$`
	fail = sv.Check(TypeMCQ, &c)
	require.NotNil(t, fail)
	assert.Equal(t, ReasonForbiddenCharacters, fail.Reason)

	c = validCandidate()
	c.Text = `sum ∑ of terms`
	fail = sv.Check(TypeMCQ, &c)
	require.NotNil(t, fail)
	assert.Equal(t, ReasonForbiddenCharacters, fail.Reason)
}

func TestCheckRejectsFragmentedMath(t *testing.T) {
	sv := newTestValidator()

	c := validCandidate()
	c.Text = `broken $T$ $=$ $4$ $m$ $k$ expression`
	fail := sv.Check(TypeMCQ, &c)
	require.NotNil(t, fail)
	assert.Equal(t, ReasonFragmentedMath, fail.Reason)

	// four tiny regions sit below the default threshold of five
	c = validCandidate()
	c.Text = `ok $T$ $=$ $4$ $m$ here`
	assert.Nil(t, sv.Check(TypeMCQ, &c))
}

func TestCheckFragmentThresholdIsConfigurable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FragmentThreshold = 3
	sv := NewStructuralValidator(cfg)

	c := validCandidate()
	c.Text = `now $a$ $b$ $c$ trips`
	fail := sv.Check(TypeMCQ, &c)
	require.NotNil(t, fail)
	assert.Equal(t, ReasonFragmentedMath, fail.Reason)
}

func TestCheckRejectsBadCardinality(t *testing.T) {
	sv := newTestValidator()

	c := validCandidate()
	c.Options = c.Options[:3]
	fail := sv.Check(TypeMCQ, &c)
	require.NotNil(t, fail)
	assert.Equal(t, ReasonBadOptionCount, fail.Reason)

	numeric := Candidate{
		Text:         `Find the answer.`,
		Options:      []string{"$1$", "$2$", "$3$", "$4$"},
		CorrectValue: "7",
	}
	fail = sv.Check(TypeNumeric, &numeric)
	require.NotNil(t, fail)
	assert.Equal(t, ReasonBadOptionCount, fail.Reason)
}

func TestCheckRejectsBadAnswers(t *testing.T) {
	sv := newTestValidator()

	c := validCandidate()
	c.CorrectAnswer = 7
	fail := sv.Check(TypeMCQ, &c)
	require.NotNil(t, fail)
	assert.Equal(t, ReasonBadAnswer, fail.Reason)

	c = validCandidate()
	c.CorrectAnswer = -1
	fail = sv.Check(TypeMCQ, &c)
	require.NotNil(t, fail)
	assert.Equal(t, ReasonBadAnswer, fail.Reason)

	numeric := Candidate{Text: `Compute.`, CorrectValue: "not a number"}
	fail = sv.Check(TypeNumeric, &numeric)
	require.NotNil(t, fail)
	assert.Equal(t, ReasonBadAnswer, fail.Reason)

	numeric = Candidate{Text: `Compute.`, CorrectValue: "approximately 42"}
	assert.Nil(t, sv.Check(TypeNumeric, &numeric))

	numeric = Candidate{Text: `Compute.`, CorrectValue: "-12.5"}
	assert.Nil(t, sv.Check(TypeNumeric, &numeric))
}

func TestCheckOrderShortCircuits(t *testing.T) {
	sv := newTestValidator()

	// Both unbalanced and fragmented: delimiter balance runs first
	c := validCandidate()
	c.Text = `$a$ $b$ $c$ $d$ $e$ and a stray $`
	fail := sv.Check(TypeMCQ, &c)
	require.NotNil(t, fail)
	assert.Equal(t, ReasonUnbalancedDelimiters, fail.Reason)
}
