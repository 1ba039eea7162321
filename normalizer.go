package papergenerator

import (
	"regexp"
	"strconv"
	"strings"
)

// The normalizer rewrites generator output into canonical delimited LaTeX.
// It is deterministic and idempotent: applying it twice changes nothing.
// It runs on every transformer candidate before validation and is never
// applied to fallback content, which is assumed already canonical.

// glyphReplacements maps literal math glyphs to their LaTeX commands.
// Order matters only for readability; replacements never overlap.
var glyphReplacements = []struct {
	glyph string
	latex string
}{
	{"×", ` \times `}, // ×
	{"−", "-"},        // minus sign
	{"–", "-"},        // en dash
	{"—", "-"},        // em dash
	{"√", `\sqrt`},    // √
	{"α", `\alpha`},
	{"β", `\beta`},
	{"γ", `\gamma`},
	{"δ", `\delta`},
	{"θ", `\theta`},
	{"λ", `\lambda`},
	{"μ", `\mu`},
	{"π", `\pi`},
	{"ω", `\omega`},
	{"Ω", `\Omega`},
	{"ε", `\varepsilon`},
	{"°", `^{\circ}`}, // degree
	{"±", `\pm`},
	{"≠", `\neq`},
	{"≤", `\leq`},
	{"≥", `\geq`},
	{"→", `\rightarrow`},
	{"∞", `\infty`},
	{"ℎ", "h"}, // Planck constant letterform
}

var (
	unicodeEscapeRe    = regexp.MustCompile(`\\u([0-9a-fA-F]{4})`)
	circumflexDigitsRe = regexp.MustCompile(`\\textasciicircum\{\}(-?\d+)`)
	circumflexRe       = regexp.MustCompile(`\\textasciicircum\{\}`)
	adjacentMathRe     = regexp.MustCompile(`\$([^$]+)\$\s*\$([^$]+)\$`)
	bareExponentRe     = regexp.MustCompile(`\^(-?\d+)`)
	bareSubscriptRe    = regexp.MustCompile(`_([a-zA-Z][a-zA-Z]+)`)
	mathbbRe           = regexp.MustCompile(`\\mathbb\{([A-Z])\}`)
)

// NormalizeMath canonicalizes math markup in a single text field
func NormalizeMath(text string) string {
	if text == "" {
		return text
	}

	// Decode stray \uXXXX escapes first so the glyphs they produce go
	// through the substitution table in the same pass.
	text = decodeUnicodeEscapes(text)

	for _, r := range glyphReplacements {
		text = strings.ReplaceAll(text, r.glyph, r.latex)
	}

	text = foldMathAlphanumerics(text)

	text = circumflexDigitsRe.ReplaceAllString(text, `^{$1}`)
	text = circumflexRe.ReplaceAllString(text, "^")

	text = mergeAdjacentMath(text)
	text = braceBareExponents(text)
	text = braceBareSubscripts(text)

	for strings.Contains(text, "$$") {
		text = strings.ReplaceAll(text, "$$", "$")
	}

	text = trimDelimiterSpaces(text)

	// \mathbb sneaks into model output but is not in the exam typeface
	text = mathbbRe.ReplaceAllString(text, "$1")

	return text
}

// NormalizeCandidate normalizes the statement and every option in place
func NormalizeCandidate(c *Candidate) {
	c.Text = NormalizeMath(c.Text)
	for i, opt := range c.Options {
		c.Options[i] = NormalizeMath(opt)
	}
}

func decodeUnicodeEscapes(text string) string {
	return unicodeEscapeRe.ReplaceAllStringFunc(text, func(m string) string {
		code, err := strconv.ParseUint(m[2:], 16, 32)
		if err != nil {
			return m
		}
		return string(rune(code))
	})
}

// foldMathAlphanumerics maps Unicode math bold/italic letters back to ASCII
func foldMathAlphanumerics(text string) string {
	var sb strings.Builder
	changed := false
	for _, r := range text {
		folded := r
		switch {
		case r >= 0x1D400 && r <= 0x1D419: // bold uppercase
			folded = 'A' + (r - 0x1D400)
		case r >= 0x1D41A && r <= 0x1D433: // bold lowercase
			folded = 'a' + (r - 0x1D41A)
		case r >= 0x1D434 && r <= 0x1D44D: // italic uppercase
			folded = 'A' + (r - 0x1D434)
		case r >= 0x1D44E && r <= 0x1D467: // italic lowercase
			folded = 'a' + (r - 0x1D44E)
		}
		if folded != r {
			changed = true
		}
		sb.WriteRune(folded)
	}
	if !changed {
		return text
	}
	return sb.String()
}

// mergeAdjacentMath collapses "$a$ $b$" into "$a b$" until stable. Models
// frequently shred one expression into many tiny delimited regions; merging
// them restores a single region per expression.
func mergeAdjacentMath(text string) string {
	for {
		merged := adjacentMathRe.ReplaceAllString(text, `$$$1 $2$$`)
		if merged == text {
			return merged
		}
		text = merged
	}
}

// braceBareExponents rewrites 10^-3 as 10^{-3}. A match already followed by
// a closing brace is left alone.
func braceBareExponents(text string) string {
	return replaceUnlessFollowedByBrace(text, bareExponentRe, "^{", "}")
}

// braceBareSubscripts rewrites v_max as v_{max}. Single-letter subscripts
// stay bare, matching LaTeX convention.
func braceBareSubscripts(text string) string {
	return replaceUnlessFollowedByBrace(text, bareSubscriptRe, "_{", "}")
}

// replaceUnlessFollowedByBrace wraps the first capture group of each match
// in braces unless the match is immediately followed by '}'. RE2 has no
// lookahead, so the guard is checked against the match end position.
func replaceUnlessFollowedByBrace(text string, re *regexp.Regexp, prefix, suffix string) string {
	matches := re.FindAllStringSubmatchIndex(text, -1)
	if matches == nil {
		return text
	}

	var sb strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		groupStart, groupEnd := m[2], m[3]
		if end < len(text) && text[end] == '}' {
			continue
		}
		sb.WriteString(text[last:start])
		sb.WriteString(prefix)
		sb.WriteString(text[groupStart:groupEnd])
		sb.WriteString(suffix)
		last = end
	}
	sb.WriteString(text[last:])
	return sb.String()
}

// trimDelimiterSpaces removes whitespace just inside each math region, so
// "$ x = 2 $" becomes "$x = 2$". Toggles on the dollar delimiter; an
// unbalanced trailing region is left as-is for the validator to reject.
func trimDelimiterSpaces(text string) string {
	parts := strings.Split(text, "$")
	// parts at odd indices are inside math when delimiters are balanced
	for i := 1; i < len(parts); i += 2 {
		if i == len(parts)-1 {
			break // trailing unbalanced segment
		}
		parts[i] = strings.TrimSpace(parts[i])
	}
	return strings.Join(parts, "$")
}
