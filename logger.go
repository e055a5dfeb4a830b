package pseudoasm

import (
	"fmt"
	"log"
)

// StdLogger forwards to the standard log package, matching the teacher's
// own heavy use of log.Printf for warnings. It is the default Logger for
// every package that accepts one.
type StdLogger struct{}

func (StdLogger) Warnf(format string, args ...any) {
	log.Printf(format, args...)
}

// CollectingLogger records every warning instead of printing it; used by
// tests that assert on the boundary behaviours in spec §8 ("exactly one
// overflow warning").
type CollectingLogger struct {
	Warnings []string
}

func (l *CollectingLogger) Warnf(format string, args ...any) {
	l.Warnings = append(l.Warnings, fmt.Sprintf(format, args...))
}
