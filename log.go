package papergenerator

import (
	"log"
	"sync/atomic"
)

// verboseMode gates per-question debug output. Pipeline components log from
// multiple goroutines, so the flag is read atomically.
var verboseMode atomic.Bool

// SetVerbose toggles debug logging for subsequent runs
func SetVerbose(verbose bool) {
	verboseMode.Store(verbose)
}

// VerboseLog writes a debug line when verbose mode is enabled
func VerboseLog(format string, v ...interface{}) {
	if verboseMode.Load() {
		log.Printf(format, v...)
	}
}
