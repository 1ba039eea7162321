package papergenerator

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *PaperDB {
	t.Helper()
	db, err := OpenPaperDB(filepath.Join(t.TempDir(), "papers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleResult() *RunResult {
	return &RunResult{
		RunID: "run-1",
		Records: []FinalizedQuestionRecord{
			{
				SourceID:      "q1",
				Subject:       "Physics",
				Type:          TypeMCQ,
				Text:          "A ball is thrown at $25$ m/s.",
				Options:       []string{"$10$ m", "$20$ m", "$30$ m", "$40$ m"},
				CorrectAnswer: 2,
				Provenance:    ProvenanceChangeNumbers,
			},
			{
				SourceID:     "q2",
				Subject:      "Mathematics",
				Type:         TypeNumeric,
				Text:         "Evaluate the integral.",
				CorrectValue: "7",
				Provenance:   ProvenanceFallbackError,
				Note:         "no replacement available",
			},
		},
		Summary: RunSummary{
			RunID: "run-1",
			Total: 2,
			Counts: map[ProvenanceTag]int{
				ProvenanceChangeNumbers: 1,
				ProvenanceFallbackError: 1,
			},
		},
	}
}

func TestSaveAndGetPaper(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SavePaper("Mock Test 1", sampleResult()))

	records, err := db.GetPaperQuestions("run-1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "q1", records[0].SourceID)
	assert.Equal(t, TypeMCQ, records[0].Type)
	assert.Equal(t, []string{"$10$ m", "$20$ m", "$30$ m", "$40$ m"}, records[0].Options)
	assert.Equal(t, 2, records[0].CorrectAnswer)
	assert.Equal(t, ProvenanceChangeNumbers, records[0].Provenance)

	assert.Equal(t, "q2", records[1].SourceID)
	assert.Equal(t, TypeNumeric, records[1].Type)
	assert.Empty(t, records[1].Options)
	assert.Equal(t, "7", records[1].CorrectValue)
	assert.Equal(t, "no replacement available", records[1].Note)
}

func TestSavePaperRejectsDuplicateRun(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SavePaper("Mock Test 1", sampleResult()))
	assert.Error(t, db.SavePaper("Mock Test 1 again", sampleResult()))
}

func TestListPapers(t *testing.T) {
	db := openTestDB(t)

	first := sampleResult()
	require.NoError(t, db.SavePaper("Mock Test 1", first))

	second := sampleResult()
	second.RunID = "run-2"
	second.Summary.RunID = "run-2"
	require.NoError(t, db.SavePaper("Mock Test 2", second))

	papers, err := db.ListPapers(0)
	require.NoError(t, err)
	require.Len(t, papers, 2)
	for _, p := range papers {
		assert.Equal(t, 2, p.Total)
		assert.NotEmpty(t, p.Title)
	}

	limited, err := db.ListPapers(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
