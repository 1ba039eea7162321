package papergenerator

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawPrefersExactMatch(t *testing.T) {
	pool := NewQuestionPool([]QuestionRecord{
		testMCQ("phys-1", "Physics"),
		testNumeric("phys-n1", "Physics"),
		testMCQ("chem-1", "Chemistry"),
	})

	got := pool.Draw("Physics", TypeMCQ)
	require.NotNil(t, got)
	assert.Equal(t, "phys-1", got.ID)
}

func TestDrawIsFIFOWithinQueue(t *testing.T) {
	pool := NewQuestionPool([]QuestionRecord{
		testMCQ("phys-1", "Physics"),
		testMCQ("phys-2", "Physics"),
		testMCQ("phys-3", "Physics"),
	})

	assert.Equal(t, "phys-1", pool.Draw("Physics", TypeMCQ).ID)
	assert.Equal(t, "phys-2", pool.Draw("Physics", TypeMCQ).ID)
	assert.Equal(t, "phys-3", pool.Draw("Physics", TypeMCQ).ID)
	assert.Nil(t, pool.Draw("Physics", TypeMCQ))
}

func TestDrawFallsBackToSameSubjectAnyType(t *testing.T) {
	pool := NewQuestionPool([]QuestionRecord{
		testNumeric("phys-n1", "Physics"),
		testMCQ("chem-1", "Chemistry"),
	})

	got := pool.Draw("Physics", TypeMCQ)
	require.NotNil(t, got)
	assert.Equal(t, "phys-n1", got.ID)
}

func TestDrawFallsBackToAnySubject(t *testing.T) {
	pool := NewQuestionPool([]QuestionRecord{
		testMCQ("chem-1", "Chemistry"),
	})

	got := pool.Draw("Physics", TypeMCQ)
	require.NotNil(t, got)
	assert.Equal(t, "chem-1", got.ID)
}

func TestDrawExhaustedPoolReturnsNil(t *testing.T) {
	pool := NewQuestionPool(nil)
	assert.Nil(t, pool.Draw("Physics", TypeMCQ))
	assert.True(t, pool.IsEmpty())
}

func TestDrawNeverHandsOutARecordTwice(t *testing.T) {
	const n = 40
	questions := make([]QuestionRecord, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, testMCQ(generateID(i), "Physics"))
	}
	pool := NewQuestionPool(questions)

	var wg sync.WaitGroup
	drawn := make(chan string, n*2)
	for i := 0; i < n*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if q := pool.Draw("Physics", TypeMCQ); q != nil {
				drawn <- q.ID
			}
		}()
	}
	wg.Wait()
	close(drawn)

	seen := make(map[string]bool)
	for id := range drawn {
		assert.False(t, seen[id], "record %s drawn twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.True(t, pool.IsEmpty())
}

func TestRemainingCountsUnconsumed(t *testing.T) {
	pool := NewQuestionPool([]QuestionRecord{
		testMCQ("phys-1", "Physics"),
		testMCQ("chem-1", "Chemistry"),
		testNumeric("math-n1", "Mathematics"),
	})

	assert.Equal(t, 3, pool.Remaining())
	pool.Draw("Physics", TypeMCQ)
	assert.Equal(t, 2, pool.Remaining())
	pool.Draw("Biology", TypeMCQ) // any-subject fallback consumes one more
	assert.Equal(t, 1, pool.Remaining())
}

func generateID(i int) string {
	return string(rune('a'+i%26)) + string(rune('0'+i/26))
}
