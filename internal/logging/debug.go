package logging

import (
	"log"
	"time"

	genv "github.com/blong14/pilot/internal/environment"
)

// ShouldLog returns true if in DEBUG mode
func ShouldLog() bool {
	return genv.Debug()
}

// Track logs information IFF the DEBUG env variable is "true"
// error handling should use std log package
func Track(format string, v ...any) {
	if ShouldLog() {
		log.Printf(format, v...)
	}
}

// Trace logs name and, when t is set, the time elapsed since t. It returns
// the current time so calls can be chained.
func Trace(name string, t time.Time) time.Time {
	if ShouldLog() {
		if !t.IsZero() {
			log.Printf("%s total: %s\n", name, time.Since(t))
		} else {
			log.Printf("tracing %s\n", name)
		}
	}
	return time.Now()
}

// TraceStart logs the start of name and returns a func logging its duration.
func TraceStart(name string) func() time.Time {
	start := Trace(name, time.Time{})
	return func() time.Time {
		return Trace(name, start)
	}
}
