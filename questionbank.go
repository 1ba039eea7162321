package papergenerator

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// bankRecord is the on-disk JSONL shape of the tagged question dataset
type bankRecord struct {
	ID            string       `json:"id"`
	PaperID       string       `json:"paper_id"`
	QuestionNum   int          `json:"question_number"`
	Subject       string       `json:"subject"`
	Topic         string       `json:"topic"`
	QuestionType  string       `json:"question_type"`
	QuestionText  string       `json:"question_text"`
	Options       []string     `json:"options"`
	CorrectIndex  int          `json:"correct_index"` // 1-based in the dataset
	CorrectAnswer *json.Number `json:"correct_answer,omitempty"`
}

// LoadBank reads a JSONL question bank. Every record is validated against
// the data-model invariants; a malformed record is a hard error, since bad
// input must be rejected here rather than discovered mid-run.
func LoadBank(path string) ([]QuestionRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open question bank: %w", err)
	}
	defer file.Close()

	var questions []QuestionRecord

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec bankRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("line %d: failed to parse bank record: %w", lineNum, err)
		}

		q, err := rec.toQuestion()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		questions = append(questions, q)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read question bank: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("question bank %s is empty", path)
	}

	return questions, nil
}

func (r *bankRecord) toQuestion() (QuestionRecord, error) {
	q := QuestionRecord{
		ID:      r.ID,
		Subject: r.Subject,
		Text:    r.QuestionText,
		Options: r.Options,
		Source:  r.PaperID,
	}
	if q.ID == "" {
		q.ID = fmt.Sprintf("%s-q%d", r.PaperID, r.QuestionNum)
	}

	switch r.QuestionType {
	case "mcq":
		q.Type = TypeMCQ
		// Dataset indices are 1-based
		q.CorrectAnswer = r.CorrectIndex - 1
	case "integer", "numeric":
		q.Type = TypeNumeric
		if r.CorrectAnswer == nil {
			return q, fmt.Errorf("question %s: numeric question has no correct answer", q.ID)
		}
		q.CorrectValue = r.CorrectAnswer.String()
	default:
		return q, fmt.Errorf("question %s: unknown question type %q", q.ID, r.QuestionType)
	}

	return q, nil
}
