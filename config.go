package papergenerator

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Directives holds the action-specific instruction text sent to the model.
// These are pure data: swapping them changes prompt wording, never pipeline
// behavior.
type Directives struct {
	ChangeNumbers string `yaml:"change_numbers"`
	Rephrase      string `yaml:"rephrase"`
	FixIncomplete string `yaml:"fix_incomplete"`
}

// Config is the pipeline configuration surface
type Config struct {
	Model                   string
	ClassificationBatchSize int
	CallTimeout             time.Duration
	InterCallDelay          time.Duration
	// FragmentThreshold is the number of consecutive tiny math regions that
	// trips the fragmentation check. Empirically tuned, not a fixed law.
	FragmentThreshold int
	Directives        Directives
}

const (
	defaultChangeNumbersDirective = "Change the numerical values in the question while keeping the same concept and structure. " +
		"Recompute the correct answer from the new values. Update all four options so exactly one is correct. " +
		"Keep the order of magnitude of every value physically reasonable."

	defaultRephraseDirective = "Rephrase the question text using different wording and sentence structure. " +
		"Do not change any numbers, values, or formulas. Keep all options and the correct answer exactly the same, " +
		"fixing only broken math formatting."

	defaultFixIncompleteDirective = "The question is incomplete. Reconstruct any missing statements, lists, or match " +
		"columns from context so the question is complete and self-contained. Preserve the original correct answer."
)

// DefaultConfig returns the configuration used when no config file is given
func DefaultConfig() Config {
	return Config{
		Model:                   "gpt-4o-mini",
		ClassificationBatchSize: 10,
		CallTimeout:             60 * time.Second,
		InterCallDelay:          500 * time.Millisecond,
		FragmentThreshold:       5,
		Directives: Directives{
			ChangeNumbers: defaultChangeNumbersDirective,
			Rephrase:      defaultRephraseDirective,
			FixIncomplete: defaultFixIncompleteDirective,
		},
	}
}

// configFile is the on-disk YAML shape. Durations are plain integers so the
// file stays trivially editable.
type configFile struct {
	Model                   string     `yaml:"model"`
	ClassificationBatchSize int        `yaml:"classification_batch_size"`
	CallTimeoutSeconds      int        `yaml:"call_timeout_seconds"`
	InterCallDelayMS        int        `yaml:"inter_call_delay_ms"`
	FragmentThreshold       int        `yaml:"fragment_threshold"`
	Directives              Directives `yaml:"directives"`
}

// LoadConfig reads a YAML config file over the defaults. Fields missing from
// the file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	if file.Model != "" {
		cfg.Model = file.Model
	}
	if file.ClassificationBatchSize != 0 {
		cfg.ClassificationBatchSize = file.ClassificationBatchSize
	}
	if file.CallTimeoutSeconds != 0 {
		cfg.CallTimeout = time.Duration(file.CallTimeoutSeconds) * time.Second
	}
	if file.InterCallDelayMS != 0 {
		cfg.InterCallDelay = time.Duration(file.InterCallDelayMS) * time.Millisecond
	}
	if file.FragmentThreshold != 0 {
		cfg.FragmentThreshold = file.FragmentThreshold
	}
	if file.Directives.ChangeNumbers != "" {
		cfg.Directives.ChangeNumbers = file.Directives.ChangeNumbers
	}
	if file.Directives.Rephrase != "" {
		cfg.Directives.Rephrase = file.Directives.Rephrase
	}
	if file.Directives.FixIncomplete != "" {
		cfg.Directives.FixIncomplete = file.Directives.FixIncomplete
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.ClassificationBatchSize < 1 {
		return fmt.Errorf("classification_batch_size must be at least 1, got %d", c.ClassificationBatchSize)
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("call_timeout_seconds must be positive, got %s", c.CallTimeout)
	}
	if c.InterCallDelay < 0 {
		return fmt.Errorf("inter_call_delay_ms must not be negative, got %s", c.InterCallDelay)
	}
	if c.FragmentThreshold < 2 {
		return fmt.Errorf("fragment_threshold must be at least 2, got %d", c.FragmentThreshold)
	}
	return nil
}

// DirectiveFor returns the directive text for an action. Unknown actions and
// discard fall back to the rephrase directive, matching the classifier
// default.
func (c Config) DirectiveFor(action TransformAction) string {
	switch action {
	case ActionChangeNumbers:
		return c.Directives.ChangeNumbers
	case ActionFixIncomplete:
		return c.Directives.FixIncomplete
	default:
		return c.Directives.Rephrase
	}
}
