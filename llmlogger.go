package papergenerator

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RunLogger writes a transcript of one pipeline run: every LLM request and
// response plus the outcome of each question.
type RunLogger struct {
	file  *os.File
	mu    sync.Mutex
	runID string
}

// NewRunLogger creates a transcript logger for a run, writing to log/<runID>.log
func NewRunLogger(runID string, questionCount int) (*RunLogger, error) {
	if err := os.MkdirAll("log", 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := filepath.Join("log", fmt.Sprintf("%s.log", runID))
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger := &RunLogger{
		file:  file,
		runID: runID,
	}

	logger.Logf("=== Transformation Run Log ===\n")
	logger.Logf("Run ID: %s\n", runID)
	logger.Logf("Questions: %d\n", questionCount)
	logger.Logf("Started: %s\n", time.Now().Format(time.RFC3339))
	logger.Logf("==============================\n\n")

	return logger, nil
}

// Logf writes a formatted log entry with timestamp
func (rl *RunLogger) Logf(format string, args ...interface{}) {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	timestamp := time.Now().Format("15:04:05.000")
	message := fmt.Sprintf(format, args...)

	fmt.Fprintf(rl.file, "[%s] %s", timestamp, message)
	rl.file.Sync()
}

// LogLLMRequest logs an LLM request
func (rl *RunLogger) LogLLMRequest(module, prompt string) {
	rl.Logf("=== LLM REQUEST (%s) ===\n", module)
	rl.Logf("Prompt:\n%s\n", prompt)
	rl.Logf("=====================\n\n")
}

// LogLLMResponse logs an LLM response
func (rl *RunLogger) LogLLMResponse(module, response string) {
	rl.Logf("=== LLM RESPONSE (%s) ===\n", module)
	rl.Logf("Response:\n%s\n", response)
	rl.Logf("======================\n\n")
}

// LogQuestionResult logs the finalized outcome of one question
func (rl *RunLogger) LogQuestionResult(questionID string, tag ProvenanceTag, note string) {
	if note != "" {
		rl.Logf("Question %s: %s (%s)\n", questionID, tag, note)
		return
	}
	rl.Logf("Question %s: %s\n", questionID, tag)
}

// LogSummary logs the per-run provenance counts
func (rl *RunLogger) LogSummary(summary RunSummary) {
	rl.Logf("=== Run Summary ===\n")
	rl.Logf("Total: %d\n", summary.Total)
	for tag, count := range summary.Counts {
		rl.Logf("  %s: %d\n", tag, count)
	}
	rl.Logf("===================\n")
}

// Close closes the log file
func (rl *RunLogger) Close() error {
	if rl == nil {
		return nil
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.file != nil {
		fmt.Fprintf(rl.file, "[%s] === Run Complete: %s ===\n",
			time.Now().Format("15:04:05.000"), time.Now().Format(time.RFC3339))
		return rl.file.Close()
	}
	return nil
}
