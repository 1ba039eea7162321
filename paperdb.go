package papergenerator

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// PaperDB archives finalized papers so runs can be re-rendered later
type PaperDB struct {
	db *sql.DB
}

// PaperInfo is the archive metadata for one finalized paper
type PaperInfo struct {
	RunID     string    `json:"run_id"`
	Title     string    `json:"title"`
	Total     int       `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

// OpenPaperDB opens (and if needed creates) a paper archive database
func OpenPaperDB(dbPath string) (*PaperDB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pdb := &PaperDB{db: db}
	if err := pdb.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return pdb, nil
}

// Close closes the database connection
func (p *PaperDB) Close() error {
	return p.db.Close()
}

func (p *PaperDB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			run_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			total INTEGER NOT NULL,
			summary TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS paper_questions (
			run_id TEXT NOT NULL,
			slot INTEGER NOT NULL,
			source_id TEXT NOT NULL,
			subject TEXT,
			question_type TEXT NOT NULL,
			text TEXT NOT NULL,
			options TEXT NOT NULL,
			correct_answer INTEGER NOT NULL,
			correct_value TEXT,
			provenance TEXT NOT NULL,
			replaced_from TEXT,
			note TEXT,
			PRIMARY KEY (run_id, slot),
			FOREIGN KEY (run_id) REFERENCES papers(run_id)
		)`,
	}

	for _, query := range queries {
		if _, err := p.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute %s: %w", query, err)
		}
	}
	return nil
}

// SavePaper stores a finished run with its summary and every finalized
// question in slot order.
func (p *PaperDB) SavePaper(title string, result *RunResult) error {
	summaryJSON, err := json.Marshal(result.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO papers (run_id, title, total, summary, created_at) VALUES (?, ?, ?, ?, ?)",
		result.RunID, title, result.Summary.Total, string(summaryJSON), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save paper: %w", err)
	}

	for slot, record := range result.Records {
		optionsJSON, err := optionsToJSON(record.Options)
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			`INSERT INTO paper_questions
			(run_id, slot, source_id, subject, question_type, text, options, correct_answer, correct_value, provenance, replaced_from, note)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			result.RunID, slot, record.SourceID, record.Subject, string(record.Type), record.Text,
			optionsJSON, record.CorrectAnswer, record.CorrectValue, string(record.Provenance),
			record.ReplacedFrom, record.Note,
		)
		if err != nil {
			return fmt.Errorf("failed to save question at slot %d: %w", slot, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit paper: %w", err)
	}
	return nil
}

// GetPaperQuestions retrieves the finalized questions of a run in slot order
func (p *PaperDB) GetPaperQuestions(runID string) ([]FinalizedQuestionRecord, error) {
	rows, err := p.db.Query(
		`SELECT source_id, subject, question_type, text, options, correct_answer, correct_value, provenance, replaced_from, note
		FROM paper_questions WHERE run_id = ? ORDER BY slot`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get paper questions: %w", err)
	}
	defer rows.Close()

	var records []FinalizedQuestionRecord
	for rows.Next() {
		var record FinalizedQuestionRecord
		var qtype, provenance, optionsJSON string
		err := rows.Scan(&record.SourceID, &record.Subject, &qtype, &record.Text, &optionsJSON,
			&record.CorrectAnswer, &record.CorrectValue, &provenance, &record.ReplacedFrom, &record.Note)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		record.Type = QuestionType(qtype)
		record.Provenance = ProvenanceTag(provenance)
		record.Options, err = jsonToOptions(optionsJSON)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}
	return records, nil
}

// ListPapers retrieves archived papers, newest first
func (p *PaperDB) ListPapers(limit int) ([]PaperInfo, error) {
	query := "SELECT run_id, title, total, created_at FROM papers ORDER BY created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := p.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list papers: %w", err)
	}
	defer rows.Close()

	var papers []PaperInfo
	for rows.Next() {
		var info PaperInfo
		if err := rows.Scan(&info.RunID, &info.Title, &info.Total, &info.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan paper: %w", err)
		}
		papers = append(papers, info)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating papers: %w", err)
	}
	return papers, nil
}

func optionsToJSON(options []string) (string, error) {
	if options == nil {
		options = []string{}
	}
	data, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("failed to marshal options: %w", err)
	}
	return string(data), nil
}

func jsonToOptions(optionsJSON string) ([]string, error) {
	var options []string
	if err := json.Unmarshal([]byte(optionsJSON), &options); err != nil {
		return nil, fmt.Errorf("failed to unmarshal options: %w", err)
	}
	if len(options) == 0 {
		return nil, nil
	}
	return options, nil
}
