package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sort"
	"time"

	"papergenerator"
)

func main() {
	var (
		inputFile  = flag.String("input", "", "Question bank JSONL file (required)")
		count      = flag.Int("count", 30, "Number of questions in the generated paper")
		subject    = flag.String("subject", "", "Restrict selection to one subject")
		configFile = flag.String("config", "", "YAML config file (defaults used when omitted)")
		outputFile = flag.String("output", "", "Output file for paper JSON (default: stdout)")
		dbFile     = flag.String("db", "", "SQLite paper archive to save the result into")
		title      = flag.String("title", "Practice Paper", "Paper title for the archive")
		apiKey     = flag.String("api-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		seed       = flag.Int64("seed", 0, "Selection shuffle seed (0 = time-based)")
		verbose    = flag.Bool("verbose", false, "Enable verbose debugging output")
	)
	flag.Parse()

	papergenerator.SetVerbose(*verbose)

	if *inputFile == "" {
		log.Fatal("Question bank is required. Use -input flag.")
	}

	if *apiKey == "" {
		*apiKey = os.Getenv("OPENAI_API_KEY")
		if *apiKey == "" {
			log.Fatal("OpenAI API key is required. Use -api-key flag or set OPENAI_API_KEY environment variable.")
		}
	}

	cfg := papergenerator.DefaultConfig()
	if *configFile != "" {
		var err error
		cfg, err = papergenerator.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	bank, err := papergenerator.LoadBank(*inputFile)
	if err != nil {
		log.Fatalf("Failed to load question bank: %v", err)
	}
	log.Printf("Loaded %d questions from %s", len(bank), *inputFile)

	if *subject != "" {
		filtered := bank[:0]
		for _, q := range bank {
			if q.Subject == *subject {
				filtered = append(filtered, q)
			}
		}
		bank = filtered
		log.Printf("%d questions remain after subject filter %q", len(bank), *subject)
	}

	if len(bank) < *count {
		log.Fatalf("Question bank has only %d questions, need %d", len(bank), *count)
	}

	selected, remainder := selectQuestions(bank, *count, *seed)
	pool := papergenerator.NewQuestionPool(remainder)
	log.Printf("Selected %d questions, %d left in replacement pool", len(selected), pool.Remaining())

	pipeline := papergenerator.NewTransformPipeline(*apiKey, cfg, pool)

	runID := papergenerator.NewRunID()
	runLogger, err := papergenerator.NewRunLogger(runID, len(selected))
	if err != nil {
		log.Printf("Failed to create run logger: %v", err)
		// Continue without the transcript rather than failing
	} else {
		pipeline.SetLogger(runLogger)
		defer runLogger.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	result, err := pipeline.RunWithID(ctx, runID, selected)
	if err != nil {
		log.Fatalf("Pipeline run failed: %v", err)
	}

	printSummary(result)

	if *dbFile != "" {
		db, err := papergenerator.OpenPaperDB(*dbFile)
		if err != nil {
			log.Fatalf("Failed to open paper archive: %v", err)
		}
		defer db.Close()

		if err := db.SavePaper(*title, result); err != nil {
			log.Fatalf("Failed to archive paper: %v", err)
		}
		log.Printf("Paper archived as run %s", result.RunID)
	}

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal paper: %v", err)
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, output, 0644); err != nil {
			log.Fatalf("Failed to write output file: %v", err)
		}
		log.Printf("Paper saved to: %s", *outputFile)
	} else {
		fmt.Println(string(output))
	}
}

// selectQuestions picks the working set and returns the unselected
// remainder for the replacement pool.
func selectQuestions(bank []papergenerator.QuestionRecord, count int, seed int64) (selected, remainder []papergenerator.QuestionRecord) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	shuffled := make([]papergenerator.QuestionRecord, len(bank))
	copy(shuffled, bank)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	return shuffled[:count], shuffled[count:]
}

func printSummary(result *papergenerator.RunResult) {
	log.Printf("Run %s finalized %d questions:", result.RunID, result.Summary.Total)

	tags := make([]string, 0, len(result.Summary.Counts))
	for tag := range result.Summary.Counts {
		tags = append(tags, string(tag))
	}
	sort.Strings(tags)

	for _, tag := range tags {
		log.Printf("  %s: %d", tag, result.Summary.Counts[papergenerator.ProvenanceTag(tag)])
	}
}
