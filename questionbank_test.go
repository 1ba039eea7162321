package papergenerator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBank(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bank.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0644))
	return path
}

func TestLoadBankParsesRecords(t *testing.T) {
	path := writeBank(t, `{"paper_id":"2024-01","question_number":3,"subject":"Physics","question_type":"mcq","question_text":"A ball is thrown at $20$ m/s.","options":["$10$ m","$20$ m","$30$ m","$40$ m"],"correct_index":2}

{"id":"int-7","subject":"Mathematics","question_type":"integer","question_text":"Evaluate the sum.","correct_answer":42}
`)

	questions, err := LoadBank(path)
	require.NoError(t, err)
	require.Len(t, questions, 2)

	assert.Equal(t, "2024-01-q3", questions[0].ID)
	assert.Equal(t, TypeMCQ, questions[0].Type)
	assert.Equal(t, 1, questions[0].CorrectAnswer) // dataset index is 1-based
	assert.Equal(t, "2024-01", questions[0].Source)

	assert.Equal(t, "int-7", questions[1].ID)
	assert.Equal(t, TypeNumeric, questions[1].Type)
	assert.Equal(t, "42", questions[1].CorrectValue)
	assert.Empty(t, questions[1].Options)
}

func TestLoadBankRejectsInvalidRecords(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"too few options", `{"id":"x","subject":"Physics","question_type":"mcq","question_text":"Q?","options":["a","b","c"],"correct_index":1}`},
		{"answer out of range", `{"id":"x","subject":"Physics","question_type":"mcq","question_text":"Q?","options":["a","b","c","d"],"correct_index":9}`},
		{"numeric without answer", `{"id":"x","subject":"Maths","question_type":"integer","question_text":"Q?"}`},
		{"unknown type", `{"id":"x","subject":"Maths","question_type":"essay","question_text":"Q?"}`},
		{"broken json", `{"id":"x",`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadBank(writeBank(t, tc.line+"\n"))
			assert.Error(t, err)
		})
	}
}

func TestLoadBankEmptyFile(t *testing.T) {
	_, err := LoadBank(writeBank(t, "\n\n"))
	assert.Error(t, err)
}

func TestLoadBankMissingFile(t *testing.T) {
	_, err := LoadBank(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}
